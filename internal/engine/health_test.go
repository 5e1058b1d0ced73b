package engine

import (
	"testing"
	"time"

	"execgate/internal/domain"
)

func TestFeedHealth_StaleBeforeFirstMessage(t *testing.T) {
	h := NewFeedHealth()
	if !h.IsMarketStale(time.Hour) {
		t.Error("market must be stale before any message, even with a huge threshold")
	}
	if !h.IsPrivateStale(time.Hour) {
		t.Error("private must be stale before any message")
	}
}

func TestFeedHealth_MarkAndThreshold(t *testing.T) {
	h := NewFeedHealth()
	h.MarkMarket()
	h.MarkPrivate()

	if h.IsMarketStale(time.Minute) || h.IsPrivateStale(time.Minute) {
		t.Error("just-marked channels reported stale")
	}

	time.Sleep(15 * time.Millisecond)
	if !h.IsMarketStale(5 * time.Millisecond) {
		t.Error("channel silent past threshold was not stale")
	}
}

func TestFeedHealth_ChannelsAreIndependent(t *testing.T) {
	h := NewFeedHealth()
	h.MarkMarket()
	if h.IsMarketStale(time.Minute) {
		t.Error("market stale after mark")
	}
	if !h.IsPrivateStale(time.Minute) {
		t.Error("private must stay stale; only market was marked")
	}
}

func TestFeedHealth_Summary(t *testing.T) {
	h := NewFeedHealth()
	h.MarkMarket()

	sum := h.Summary(time.Minute)
	if sum.Market.State != domain.FeedUp {
		t.Errorf("market = %s, want UP", sum.Market.State)
	}
	if sum.Private.State != domain.FeedDown {
		t.Errorf("private = %s, want DOWN (never seen)", sum.Private.State)
	}

	time.Sleep(15 * time.Millisecond)
	if got := h.Summary(5 * time.Millisecond).Market.State; got != domain.FeedStale {
		t.Errorf("market = %s, want STALE", got)
	}
}
