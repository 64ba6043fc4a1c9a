package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect hides the SQL differences between the supported backends.
// Queries are written with '?' placeholders and passed through Rebind.
type Dialect interface {
	// Name is the DB_DRIVER value and the migrations sub-directory.
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	Rebind(query string) string
	// UpsertClause starts the update part of an INSERT keyed on key.
	UpsertClause(key string) string
	// Excluded references the value the INSERT tried to write.
	Excluded(column string) string
	Greatest(a, b string) string
	IsUniqueViolation(err error) bool
	Goose() goose.Dialect
}

var (
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// DialectFor maps a DB_DRIVER value to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return nil, fmt.Errorf("database: unsupported driver %q", driver)
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }
func (mysqlDialect) DriverName() string { return "mysql" }
func (mysqlDialect) Rebind(q string) string { return q }
func (mysqlDialect) UpsertClause(string) string { return "ON DUPLICATE KEY UPDATE" }
func (mysqlDialect) Excluded(col string) string { return "VALUES(" + col + ")" }
func (mysqlDialect) Greatest(a, b string) string { return "GREATEST(" + a + ", " + b + ")" }
func (mysqlDialect) Goose() goose.Dialect { return goose.DialectMySQL }
func (mysqlDialect) IsUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }
func (postgresDialect) UpsertClause(key string) string {
	return "ON CONFLICT (" + key + ") DO UPDATE SET"
}
func (postgresDialect) Excluded(col string) string { return "excluded." + col }
func (postgresDialect) Greatest(a, b string) string { return "GREATEST(" + a + ", " + b + ")" }
func (postgresDialect) Goose() goose.Dialect { return goose.DialectPostgres }
func (postgresDialect) IsUniqueViolation(err error) bool {
	var pe *pgconn.PgError
	return errors.As(err, &pe) && pe.Code == "23505"
}

// Rebind rewrites '?' placeholders to $1..$n.
func (postgresDialect) Rebind(q string) string {
	if !strings.Contains(q, "?") {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }
func (sqliteDialect) Rebind(q string) string { return q }
func (sqliteDialect) UpsertClause(key string) string {
	return "ON CONFLICT (" + key + ") DO UPDATE SET"
}
func (sqliteDialect) Excluded(col string) string { return "excluded." + col }
func (sqliteDialect) Greatest(a, b string) string { return "MAX(" + a + ", " + b + ")" }
func (sqliteDialect) Goose() goose.Dialect { return goose.DialectSQLite3 }
func (sqliteDialect) IsUniqueViolation(err error) bool {
	var le *sqlite.Error
	if !errors.As(err, &le) {
		return false
	}
	switch le.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(le.Error(), "UNIQUE constraint failed")
	}
	return false
}
