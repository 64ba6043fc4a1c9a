package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/model"
)

const userColumns = `uid, display_name, discriminator, full_tag, email, password_digest, status,
	created_at, last_seen, total_study_time, today_study_time, week_study_time, streak, completed_todos`

// UserRepo reads and writes the `users` table.
type UserRepo struct {
	db database.DBTX
	d  database.Dialect
}

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{db: db, d: db.Dialect} }

// WithTx returns a copy of the repo bound to tx.
func (r *UserRepo) WithTx(tx database.DBTX) *UserRepo { return &UserRepo{db: tx, d: r.d} }

// Create inserts u. A clash on uid, email or full tag yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.db.ExecContext(ctx, r.d.Rebind(`INSERT INTO users (`+userColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		u.UID, u.DisplayName, u.Discriminator, u.FullTag, u.Email, u.PasswordDigest, string(u.Status),
		u.CreatedAt, u.LastSeen,
		u.Stats.TotalStudyTime, u.Stats.TodayStudyTime, u.Stats.WeekStudyTime, u.Stats.Streak, u.Stats.CompletedTodos)
	if err != nil {
		if r.d.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	return nil
}

// GetByID fetches a user by uid.
func (r *UserRepo) GetByID(ctx context.Context, uid string) (model.User, error) {
	return r.getBy(ctx, "uid", uid)
}

// GetByEmail fetches a user by its already normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByTag fetches a user by exact full tag.
func (r *UserRepo) GetByTag(ctx context.Context, fullTag string) (model.User, error) {
	return r.getBy(ctx, "full_tag", fullTag)
}

// EmailExists reports whether email is already registered.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

// TagExists reports whether fullTag is already taken.
func (r *UserRepo) TagExists(ctx context.Context, fullTag string) (bool, error) {
	return r.exists(ctx, "full_tag", fullTag)
}

// UpdateStatus sets status and last_seen.
func (r *UserRepo) UpdateStatus(ctx context.Context, uid string, status model.Status, lastSeen int64) error {
	_, err := r.db.ExecContext(ctx, r.d.Rebind(
		"UPDATE users SET status = ?, last_seen = ? WHERE uid = ?"),
		string(status), lastSeen, uid)
	return err
}

// MergeStats overwrites the supplied counters in a single statement;
// omitted counters keep their stored value.
func (r *UserRepo) MergeStats(ctx context.Context, uid string, p model.StatsPatch) error {
	_, err := r.db.ExecContext(ctx, r.d.Rebind(`UPDATE users SET
		total_study_time = COALESCE(?, total_study_time),
		today_study_time = COALESCE(?, today_study_time),
		week_study_time = COALESCE(?, week_study_time),
		streak = COALESCE(?, streak),
		completed_todos = COALESCE(?, completed_todos)
		WHERE uid = ?`),
		nullable(p.TotalStudyTime), nullable(p.TodayStudyTime), nullable(p.WeekStudyTime),
		nullable(p.Streak), nullable(p.CompletedTodos), uid)
	return err
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (model.User, error) {
	var (
		u      model.User
		status string
	)
	err := r.db.QueryRowContext(ctx, r.d.Rebind(
		"SELECT "+userColumns+" FROM users WHERE "+column+" = ? LIMIT 1"), value).
		Scan(&u.UID, &u.DisplayName, &u.Discriminator, &u.FullTag, &u.Email, &u.PasswordDigest, &status,
			&u.CreatedAt, &u.LastSeen,
			&u.Stats.TotalStudyTime, &u.Stats.TodayStudyTime, &u.Stats.WeekStudyTime, &u.Stats.Streak, &u.Stats.CompletedTodos)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Status = model.Status(status)
	return u, nil
}

func (r *UserRepo) exists(ctx context.Context, column, value string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.d.Rebind(
		"SELECT 1 FROM users WHERE "+column+" = ? LIMIT 1"), value).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func nullable(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
