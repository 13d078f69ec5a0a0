package testsupport

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"hermes/internal/adapters/config"
	"hermes/internal/adapters/postgres"
)

// PostgresTestHelper manages a database connection for integration tests.
type PostgresTestHelper struct {
	client *postgres.Client
}

// NewPostgresTestHelper opens a connection that is closed when the test ends.
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	client, err := postgres.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to create postgres client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	return &PostgresTestHelper{client: client}
}

// DB returns the underlying database handle.
func (h *PostgresTestHelper) DB() *sqlx.DB {
	return h.client.DB()
}

// RegisterTableCleanup deletes matching rows when the test finishes.
func (h *PostgresTestHelper) RegisterTableCleanup(t *testing.T, table, where string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = h.client.DB().Exec("DELETE FROM " + table + " WHERE " + where)
	})
}
