package watcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/chalkbook/internal/climbstore"
	"github.com/starford/chalkbook/internal/models"
	"github.com/starford/chalkbook/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type countingReloader struct{ calls atomic.Int32 }

func (c *countingReloader) Reload() (bool, error) {
	c.calls.Add(1)
	return true, nil
}

func TestWatch_ExternalWriteReloadsStore(t *testing.T) {
	dir, fs := testutil.TestSettings(t)
	store := testutil.TestStore(t, fs)
	store.Add("local", "5A")

	var reloaded atomic.Bool
	store.Subscribe(func(ev climbstore.Event) {
		if ev.Kind == climbstore.EventReloaded {
			reloaded.Store(true)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, dir, climbstore.DefaultKey, store, quietLogger(), 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	external := []models.Climb{{
		ID:         "ext-1",
		Name:       "Synced",
		Difficulty: "7A",
		Date:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}}
	data, _ := json.Marshal(external)
	if err := fs.Set(climbstore.DefaultKey, data); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		all := store.All()
		return len(all) == 1 && all[0].ID == "ext-1"
	}, "store not reloaded after external write")
	eventually(t, time.Second, 20*time.Millisecond, reloaded.Load, "expected reloaded event")
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, dir, "SavedClimbs", r, quietLogger(), 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "Other"), []byte("x"), 0o644)
	time.Sleep(200 * time.Millisecond)
	if n := r.calls.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0", n)
	}
}

func TestWatch_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, dir, "SavedClimbs", r, quietLogger(), 150*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "SavedClimbs")
	for i := 0; i < 5; i++ {
		_ = os.WriteFile(path, []byte("[]"), 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return r.calls.Load() >= 1
	}, "expected a reload")
	time.Sleep(300 * time.Millisecond)
	if n := r.calls.Load(); n != 1 {
		t.Errorf("reloads = %d, want 1 for a burst", n)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, t.TempDir(), "SavedClimbs", &countingReloader{}, quietLogger(), 0)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), "SavedClimbs", &countingReloader{}, quietLogger(), 0)
	if err == nil {
		t.Error("expected error for missing dir")
	}
}
