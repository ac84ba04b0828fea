// Package testutil provides shared test helpers for setting up databases and services.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/routetree/internal/routedb"
	"github.com/starford/routetree/internal/routeservice"
	"github.com/starford/routetree/internal/routetree"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *routedb.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "routetree-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := routedb.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService creates a service over an empty tree and a temporary database.
func TestService(t *testing.T, opts ...routeservice.Option) (*routeservice.Service, *routedb.DB) {
	t.Helper()
	db := TestDB(t)
	return routeservice.NewService(routetree.NewStore(), db, opts...), db
}

// Int64 returns a pointer to id, for parent references in drafts.
func Int64(id int64) *int64 {
	return &id
}
