// Package testutil provides helpers for tests that need a real PostgreSQL.
package testutil

import (
	"io"
	"net"
	"path/filepath"
	"strconv"
	"testing"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/xelth-com/fabricplan/internal/database"
	"gorm.io/gorm"
)

// StartPostgres starts an embedded PostgreSQL on a free port, migrates the
// planning schema and returns a gorm handle. The server and its data directory
// are removed when the test completes.
//
// The test is skipped under -short, or when the embedded binary cannot be
// started (no network to fetch it, unsupported platform).
//
// Example:
//
//	func TestStore(t *testing.T) {
//	    db := testutil.StartPostgres(t)
//	    store := planner.NewGormStore(db)
//	}
func StartPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL test in short mode")
	}

	port, err := freePort()
	if err != nil {
		t.Skipf("no free port for embedded PostgreSQL: %v", err)
	}

	dir := t.TempDir()
	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(uint32(port)).
		Database("fabricplan_test").
		Username("postgres").
		Password("postgres").
		RuntimePath(filepath.Join(dir, "runtime")).
		DataPath(filepath.Join(dir, "data")).
		Logger(io.Discard))
	if err := pg.Start(); err != nil {
		t.Skipf("embedded PostgreSQL unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pg.Stop() })

	db, err := database.Open(database.DSN("localhost", strconv.Itoa(port), "postgres", "postgres", "fabricplan_test"), true)
	if err != nil {
		t.Fatalf("Failed to connect to embedded PostgreSQL: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}
	return db
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
