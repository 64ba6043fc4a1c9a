package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/model"
)

func mockDB(t *testing.T, d database.Dialect) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return &database.DB{DB: raw, Dialect: d}, mock
}

func TestPresenceUpsertMySQLShape(t *testing.T) {
	db, mock := mockDB(t, database.MySQL)
	repo := NewPresenceRepo(db)

	mock.ExpectExec(`(?s)INSERT INTO presence .* ON DUPLICATE KEY UPDATE\s+status = VALUES\(status\),\s+group_id = VALUES\(group_id\),\s+last_updated = GREATEST\(presence\.last_updated \+ 1, VALUES\(last_updated\)\)`).
		WithArgs("u1", "idle", nil, int64(42), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertStatus(context.Background(), "u1", model.StatusIdle, nil, 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPresenceTypingPostgresShape(t *testing.T) {
	db, mock := mockDB(t, database.Postgres)
	repo := NewPresenceRepo(db)

	mock.ExpectExec(`VALUES \(\$1, \$2, NULL, \$3, \$4\) ON CONFLICT \(uid\) DO UPDATE SET\s+is_typing = excluded\.is_typing,\s+last_updated = GREATEST\(presence\.last_updated \+ 1, excluded\.last_updated\)`).
		WithArgs("u1", "online", int64(7), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertTyping(context.Background(), "u1", true, model.StatusOnline, 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateMySQLDuplicate(t *testing.T) {
	db, mock := mockDB(t, database.MySQL)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), model.User{UID: "u1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeStatsPostgresPassesNulls(t *testing.T) {
	db, mock := mockDB(t, database.Postgres)
	repo := NewUserRepo(db)
	streak := int64(3)

	mock.ExpectExec(`(?s)UPDATE users SET\s+total_study_time = COALESCE\(\$1, total_study_time\).*WHERE uid = \$6`).
		WithArgs(nil, nil, nil, int64(3), nil, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MergeStats(context.Background(), "u1", model.StatsPatch{Streak: &streak}))
	require.NoError(t, mock.ExpectationsWereMet())
}
