package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/database/dbtest"
)

func TestDialectFor(t *testing.T) {
	cases := map[string]database.Dialect{
		"":         database.MySQL,
		"mysql":    database.MySQL,
		"Postgres": database.Postgres,
		"pgx":      database.Postgres,
		"sqlite":   database.SQLite,
		"sqlite3":  database.SQLite,
	}
	for in, want := range cases {
		got, err := database.DialectFor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := database.DialectFor("oracle")
	assert.Error(t, err)
}

func TestPostgresRebind(t *testing.T) {
	got := database.Postgres.Rebind("SELECT a FROM t WHERE b = ? AND c = ?")
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", got)
	assert.Equal(t, "SELECT 1", database.Postgres.Rebind("SELECT 1"))
	assert.Equal(t, "x = ?", database.MySQL.Rebind("x = ?"))
}

func TestUpsertFragments(t *testing.T) {
	assert.Equal(t, "ON DUPLICATE KEY UPDATE", database.MySQL.UpsertClause("uid"))
	assert.Equal(t, "VALUES(status)", database.MySQL.Excluded("status"))
	assert.Equal(t, "ON CONFLICT (uid) DO UPDATE SET", database.Postgres.UpsertClause("uid"))
	assert.Equal(t, "excluded.status", database.SQLite.Excluded("status"))
	assert.Equal(t, "MAX(a, b)", database.SQLite.Greatest("a", "b"))
	assert.Equal(t, "GREATEST(a, b)", database.Postgres.Greatest("a", "b"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, database.MySQL.IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, database.MySQL.IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.True(t, database.Postgres.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, database.Postgres.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, database.SQLite.IsUniqueViolation(errors.New("boom")))
}

func TestSQLiteUniqueViolationFromDriver(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	insert := `INSERT INTO users (uid, display_name, discriminator, full_tag, email, password_digest, created_at, last_seen)
		VALUES (?, 'a', '1000', ?, ?, 'x', 0, 0)`
	_, err := db.ExecContext(ctx, insert, "u1", "a#1000", "a@x.io")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "u2", "a#1000", "b@x.io")
	require.Error(t, err)
	assert.True(t, db.Dialect.IsUniqueViolation(err))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	n, err := database.Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (uid, display_name, discriminator, full_tag, email, password_digest, created_at, last_seen)
			VALUES ('u1', 'a', '1000', 'a#1000', 'a@x.io', 'x', 0, 0)`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n))
	assert.Zero(t, n)
}

func TestWithTxRethrowsPanic(t *testing.T) {
	db := dbtest.New(t)
	assert.Panics(t, func() {
		_ = db.WithTx(context.Background(), func(context.Context, database.DBTX) error {
			panic("kaboom")
		})
	})
	// the connection must be usable again after the rollback
	require.NoError(t, db.PingContext(context.Background()))
}

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t, "root:pw@tcp(db:3306)/duo?charset=utf8mb4&parseTime=true&loc=UTC",
		database.MySQLDSN("root", "pw", "db", "3306", "duo"))
	assert.Equal(t, "postgres://app@db:5432/duo?sslmode=disable",
		database.PostgresDSN("app", "", "db", "5432", "duo"))
}
