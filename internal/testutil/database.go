// Package testutil provides shared test fixtures for packages that need a
// populated hawker-center store.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/storage"
	"github.com/Veraticus/hawker-crowd/internal/testutil/hawkers"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Centers hawkers.Centers
}

// SetupTestDB creates a new in-memory test database seeded with centers.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, hawkers.Fixture())
func SetupTestDB(t *testing.T, centers hawkers.Centers) *TestDB {
	t.Helper()

	// Create in-memory SQLite storage
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(centers) > 0 {
		if err := store.SaveHawkerCenters(ctx, centers); err != nil {
			t.Fatalf("failed to seed hawker centers: %v", err)
		}
	}

	// Register cleanup
	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		Centers: centers,
		t:       t,
	}
}

// MustGetCenter returns the seeded center with id or fails the test.
func (db *TestDB) MustGetCenter(id string) model.HawkerCenter {
	db.t.Helper()
	return db.Centers.MustFind(db.t, id)
}
