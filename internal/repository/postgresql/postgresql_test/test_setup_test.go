package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vprep/preparator-backend-go/internal/pkg/database"
	"github.com/vprep/preparator-backend-go/internal/repository/postgresql"
)

// TestDatabaseSetup wraps the connection used by repository tests
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the schema. The
// test is skipped when the variable is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn)
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, postgresql.Migrate(ctx, db))

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.TruncateAllTables(ctx))
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables removes every row from the tables
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"alert_deliveries",
		"preparations",
		"timesheets",
		"schedules",
		"agency_settings",
		"agencies",
		"users",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// seedUser inserts a user and returns its id
func (t *TestDatabaseSetup) seedUser(tb testing.TB, email, role string, active, verified bool) string {
	tb.Helper()
	var id string
	err := t.DB.QueryRow(context.Background(), `
		INSERT INTO users (first_name, last_name, email, role, is_active, email_verified)
		VALUES ('Test', $1, $1, $2, $3, $4)
		RETURNING id`, email, role, active, verified,
	).Scan(&id)
	require.NoError(tb, err)
	return id
}

// seedAgency inserts an agency and returns its id
func (t *TestDatabaseSetup) seedAgency(tb testing.TB, code string) string {
	tb.Helper()
	var id string
	err := t.DB.QueryRow(context.Background(), `
		INSERT INTO agencies (name, code) VALUES ($1, $1) RETURNING id`, code,
	).Scan(&id)
	require.NoError(tb, err)
	return id
}

// Close closes the database connection
func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
