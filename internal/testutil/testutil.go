// Package testutil provides shared test helpers for setting up settings
// backends and climb stores.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/starford/chalkbook/internal/climbstore"
	"github.com/starford/chalkbook/internal/storage"
)

// TestSQLite creates a temporary SQLite settings database that is automatically cleaned up.
func TestSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "chalkbook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := storage.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSettings creates a temporary settings directory with a file-backed provider.
func TestSettings(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestStore opens a climb store over p with a UTC calendar. A nil p gets an
// in-memory provider.
func TestStore(t *testing.T, p storage.Provider, opts ...climbstore.Option) *climbstore.Store {
	t.Helper()
	if p == nil {
		p = storage.NewMemory()
	}
	opts = append([]climbstore.Option{climbstore.WithLocation(time.UTC)}, opts...)
	return climbstore.New(p, opts...)
}
