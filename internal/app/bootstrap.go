// Package app wires the service together: config, logging, audit store,
// venue adapter, engine, feeds and HTTP surface.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"execgate/internal/engine"
	"execgate/internal/exchange/bybit"
	"execgate/internal/feed"
	"execgate/internal/infra"
	"execgate/internal/server"
	"execgate/internal/storage"
)

// App holds the assembled service.
type App struct {
	Config     *infra.Config
	Audit      *storage.AuditStore
	Handler    *engine.Handler
	Reconciler *engine.Reconciler
	Health     *engine.FeedHealth

	httpServer *http.Server
	pubFeed    *feed.Worker
	privFeed   *feed.Worker
}

// Bootstrap loads configuration and assembles every component. No network
// activity happens until Run.
func Bootstrap(configPath string) (*App, error) {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("bootstrapping",
		slog.String("name", cfg.App.Name),
		slog.Int("symbols", len(cfg.Symbols)),
	)

	audit, err := storage.NewAuditStore(cfg.Audit.DBPath)
	if err != nil {
		return nil, err
	}

	adapter := bybit.NewClient(cfg.API.Bybit.RestURL, cfg.API.Bybit.AccessKey, cfg.API.Bybit.SecretKey)
	state := engine.NewStateStore()
	idem := engine.NewIdempotencyStore(time.Duration(cfg.Engine.IdempotencyTTLMS) * time.Millisecond)
	leverage := engine.NewLeverageCache()
	health := engine.NewFeedHealth()

	handler := engine.NewHandler(engine.Config{
		StaleThreshold:      cfg.StaleThreshold(),
		ProtectPollInterval: time.Duration(cfg.Engine.ProtectPollIntervalMS) * time.Millisecond,
		ProtectWaitCap:      time.Duration(cfg.Engine.ProtectWaitCapMS) * time.Millisecond,
		Leverage:            cfg.LeverageMap(),
		DefaultLeverage:     1,
	}, adapter, state, idem, leverage, health, audit)

	reconciler := engine.NewReconciler(engine.ReconcilerConfig{
		Interval:         time.Duration(cfg.Engine.ReconcileIntervalMS) * time.Millisecond,
		Symbols:          cfg.SymbolNames(),
		DesyncGraceTicks: cfg.Engine.DesyncGraceTicks,
		StaleThreshold:   cfg.StaleThreshold(),
	}, adapter, state, idem, health, audit)

	signer := bybit.NewSigner(cfg.API.Bybit.AccessKey, cfg.API.Bybit.SecretKey)
	srv := server.New(handler, state)

	return &App{
		Config:     cfg,
		Audit:      audit,
		Handler:    handler,
		Reconciler: reconciler,
		Health:     health,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		pubFeed:  feed.NewPublicWorker(cfg.API.Bybit.WSPublicURL, cfg.SymbolNames(), health),
		privFeed: feed.NewPrivateWorker(cfg.API.Bybit.WSPrivateURL, signer, health),
	}, nil
}

// Run starts the feeds, the reconcile loop and the HTTP server, then blocks
// until ctx is cancelled and everything has shut down.
func (a *App) Run(ctx context.Context) error {
	a.pubFeed.Start(ctx)
	a.privFeed.Start(ctx)
	go a.Reconciler.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpServer.Shutdown(shutdownCtx)
	a.pubFeed.Stop()
	a.privFeed.Stop()
	_ = a.Audit.Close()
	slog.Info("shutdown complete")
	return nil
}
