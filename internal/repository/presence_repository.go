package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/model"
)

// PresenceRepo upserts presence rows. Each write only touches its own
// columns and last_updated never moves backwards.
type PresenceRepo struct {
	db database.DBTX
	d  database.Dialect

	upsertStatus string
	upsertTyping string
	selectOne    string
}

func NewPresenceRepo(db *database.DB) *PresenceRepo {
	d := db.Dialect
	lastUpdated := "last_updated = " + d.Greatest("presence.last_updated + 1", d.Excluded("last_updated"))
	return &PresenceRepo{
		db: db,
		d:  d,
		upsertStatus: d.Rebind(`INSERT INTO presence (uid, status, group_id, last_updated, is_typing)
			VALUES (?, ?, ?, ?, ?) ` + d.UpsertClause("uid") + `
			status = ` + d.Excluded("status") + `,
			group_id = ` + d.Excluded("group_id") + `,
			` + lastUpdated),
		upsertTyping: d.Rebind(`INSERT INTO presence (uid, status, group_id, last_updated, is_typing)
			VALUES (?, ?, NULL, ?, ?) ` + d.UpsertClause("uid") + `
			is_typing = ` + d.Excluded("is_typing") + `,
			` + lastUpdated),
		selectOne: d.Rebind(
			"SELECT uid, status, group_id, last_updated, is_typing FROM presence WHERE uid = ? LIMIT 1"),
	}
}

// UpsertStatus writes status and group, leaving is_typing untouched on
// an existing row.
func (r *PresenceRepo) UpsertStatus(ctx context.Context, uid string, status model.Status, groupID *string, nowMs int64) error {
	_, err := r.db.ExecContext(ctx, r.upsertStatus, uid, string(status), nullString(groupID), nowMs, false)
	return err
}

// UpsertTyping writes only the typing flag. A missing row is created with
// fallbackStatus and no group.
func (r *PresenceRepo) UpsertTyping(ctx context.Context, uid string, isTyping bool, fallbackStatus model.Status, nowMs int64) error {
	_, err := r.db.ExecContext(ctx, r.upsertTyping, uid, string(fallbackStatus), nowMs, isTyping)
	return err
}

// Get returns the presence row for uid or ErrNotFound.
func (r *PresenceRepo) Get(ctx context.Context, uid string) (model.Presence, error) {
	var (
		p      model.Presence
		status string
		group  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.selectOne, uid).
		Scan(&p.UID, &status, &group, &p.LastUpdated, &p.IsTyping)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Presence{}, ErrNotFound
	}
	if err != nil {
		return model.Presence{}, err
	}
	p.Status = model.Status(status)
	if group.Valid {
		g := group.String
		p.GroupID = &g
	}
	return p, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
