package dispatch

import (
	"testing"
	"time"

	"github.com/gwnexus/bridge/internal/wire"
)

// TestServerRestartStopsPausesThenStarts covers spec §4.8's restart
// sequence: stop, a 100ms pause, then start -- not stop-immediately-start.
func TestServerRestartStopsPausesThenStarts(t *testing.T) {
	d := newTestDispatcher()

	var stoppedAt, startedAt time.Time
	d.Hooks.Stop = func() { stoppedAt = time.Now() }
	d.Hooks.Start = func() error { startedAt = time.Now(); return nil }

	resp := d.Handle(&wire.Request{Kind: wire.KindServerRestart})
	if !resp.Success {
		t.Fatalf("restart failed: %s", resp.ErrorMessage)
	}
	if stoppedAt.IsZero() || startedAt.IsZero() {
		t.Fatal("expected both stop and start hooks to run")
	}
	if !startedAt.After(stoppedAt) {
		t.Fatal("expected start to run after stop")
	}
	if gap := startedAt.Sub(stoppedAt); gap < restartPause {
		t.Fatalf("gap between stop and start = %s, want at least %s", gap, restartPause)
	}
}

// TestServerRestartFailsWithoutStartHook covers the guard that a restart
// request can't silently no-op when no start hook is wired.
func TestServerRestartFailsWithoutStartHook(t *testing.T) {
	d := newTestDispatcher()
	d.Hooks.Stop = func() {}
	d.Hooks.Start = nil

	resp := d.Handle(&wire.Request{Kind: wire.KindServerRestart})
	if resp.Success {
		t.Fatal("expected restart to fail without a start hook")
	}
}
