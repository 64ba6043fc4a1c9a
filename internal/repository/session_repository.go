package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/model"
)

// SessionRepo persists bearer sessions keyed by token hash.
type SessionRepo struct {
	db database.DBTX
	d  database.Dialect
}

func NewSessionRepo(db *database.DB) *SessionRepo { return &SessionRepo{db: db, d: db.Dialect} }

// WithTx returns a copy of the repo bound to tx.
func (r *SessionRepo) WithTx(tx database.DBTX) *SessionRepo { return &SessionRepo{db: tx, d: r.d} }

// Create stores a new session row.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.db.ExecContext(ctx, r.d.Rebind(
		"INSERT INTO sessions (token_hash, uid, created_at, expires_at) VALUES (?,?,?,?)"),
		s.TokenHash, s.UID, s.CreatedAt, s.ExpiresAt)
	if err != nil && r.d.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// Get returns the session for tokenHash whether or not it has expired.
func (r *SessionRepo) Get(ctx context.Context, tokenHash string) (model.Session, error) {
	var s model.Session
	err := r.db.QueryRowContext(ctx, r.d.Rebind(
		"SELECT token_hash, uid, created_at, expires_at FROM sessions WHERE token_hash = ? LIMIT 1"),
		tokenHash).Scan(&s.TokenHash, &s.UID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	return s, err
}

// Delete removes a session. Deleting an unknown hash is not an error.
func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, r.d.Rebind("DELETE FROM sessions WHERE token_hash = ?"), tokenHash)
	return err
}

// DeleteExpired removes every session whose expiry lies strictly before
// nowMs and returns how many went.
func (r *SessionRepo) DeleteExpired(ctx context.Context, nowMs int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.d.Rebind("DELETE FROM sessions WHERE expires_at < ?"), nowMs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
