package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/duo/internal/metrics"
	"github.com/iliyamo/duo/internal/model"
	"github.com/iliyamo/duo/internal/queue"
	"github.com/iliyamo/duo/internal/repository"
)

// DefaultStaleAfter is three missed 30 second heartbeats.
const DefaultStaleAfter = 90 * time.Second

// PresenceView is a stored presence row plus its read-time staleness.
type PresenceView struct {
	model.Presence
	Stale           bool
	EffectiveStatus model.Status
}

// PresenceService records and reads per-user presence. Ownership of the
// uid is checked by the caller.
type PresenceService struct {
	presence   *repository.PresenceRepo
	events     *eventSink
	clock      Clock
	staleAfter time.Duration
}

// SetPresence stores status and group for uid, leaving the typing flag
// alone. An empty group id means no group.
func (s *PresenceService) SetPresence(ctx context.Context, uid string, status model.Status, groupID *string) error {
	if !status.Valid() {
		return opErr("service.SetPresence", ErrValidation, "Invalid status")
	}
	if groupID != nil && *groupID == "" {
		groupID = nil
	}
	now := s.clock.now()
	if err := s.presence.UpsertStatus(ctx, uid, status, groupID, now.UnixMilli()); err != nil {
		return fmt.Errorf("service.SetPresence: %w", err)
	}
	metrics.PresenceWrites.WithLabelValues("presence").Inc()
	s.events.publish(ctx, queue.PresenceChangedEvent{
		Kind: queue.KindPresence, UID: uid, Status: string(status), GroupID: groupID,
	}, now)
	return nil
}

// SetTyping stores only the typing flag. When uid has no presence row yet,
// one is created with fallbackStatus and no group.
func (s *PresenceService) SetTyping(ctx context.Context, uid string, isTyping bool, fallbackStatus model.Status) error {
	if !fallbackStatus.Valid() {
		fallbackStatus = model.StatusOnline
	}
	now := s.clock.now()
	if err := s.presence.UpsertTyping(ctx, uid, isTyping, fallbackStatus, now.UnixMilli()); err != nil {
		return fmt.Errorf("service.SetTyping: %w", err)
	}
	metrics.PresenceWrites.WithLabelValues("typing").Inc()
	s.events.publish(ctx, queue.PresenceChangedEvent{
		Kind: queue.KindTyping, UID: uid, IsTyping: &isTyping,
	}, now)
	return nil
}

// GetPresence returns the row for uid or (nil, nil) when there is none.
func (s *PresenceService) GetPresence(ctx context.Context, uid string) (*PresenceView, error) {
	p, err := s.presence.Get(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service.GetPresence: %w", err)
	}
	now := s.clock.nowMs()
	return &PresenceView{
		Presence:        p,
		Stale:           p.Stale(now, s.staleAfter),
		EffectiveStatus: p.EffectiveStatus(now, s.staleAfter),
	}, nil
}
