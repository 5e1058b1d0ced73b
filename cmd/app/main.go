package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"execgate/internal/app"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "execgate",
		Short: "Venue execution engine: intents in, orders out",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := app.Bootstrap(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return service.Run(ctx)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	if err := root.Execute(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}
