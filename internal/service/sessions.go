package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/metrics"
	"github.com/iliyamo/duo/internal/model"
	"github.com/iliyamo/duo/internal/repository"
	"github.com/iliyamo/duo/internal/utils"
)

// Issued is a freshly minted bearer token. Token is only ever returned to
// the client; the store keeps its hash.
type Issued struct {
	Token     string
	ExpiresAt int64
}

// SessionService issues, resolves and revokes bearer sessions.
type SessionService struct {
	sessions *repository.SessionRepo
	users    *repository.UserRepo
	clock    Clock
	log      *slog.Logger
	ttl      time.Duration
}

// Issue creates a session for uid valid for the session TTL.
func (s *SessionService) Issue(ctx context.Context, uid string) (Issued, error) {
	return s.issue(ctx, s.sessions, uid)
}

func (s *SessionService) issueTx(ctx context.Context, tx database.DBTX, uid string) (Issued, error) {
	return s.issue(ctx, s.sessions.WithTx(tx), uid)
}

func (s *SessionService) issue(ctx context.Context, repo *repository.SessionRepo, uid string) (Issued, error) {
	token, err := utils.NewSessionToken()
	if err != nil {
		return Issued{}, fmt.Errorf("service.IssueSession: token: %w", err)
	}
	now := s.clock.nowMs()
	sess := model.Session{
		TokenHash: utils.HashToken(token),
		UID:       uid,
		CreatedAt: now,
		ExpiresAt: now + s.ttl.Milliseconds(),
	}
	if err := repo.Create(ctx, sess); err != nil {
		return Issued{}, fmt.Errorf("service.IssueSession: %w", err)
	}
	return Issued{Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Resolve maps a raw bearer token to its user. Unknown, expired and empty
// tokens all yield (nil, nil); only store failures return an error.
func (s *SessionService) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		metrics.SessionResolutions.WithLabelValues("missing").Inc()
		return nil, nil
	}
	sess, err := s.sessions.Get(ctx, utils.HashToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		metrics.SessionResolutions.WithLabelValues("unknown").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.SessionResolutions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("service.ResolveSession: %w", err)
	}
	if !sess.ActiveAt(s.clock.nowMs()) {
		metrics.SessionResolutions.WithLabelValues("expired").Inc()
		return nil, nil
	}

	u, err := s.users.GetByID(ctx, sess.UID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.SessionResolutions.WithLabelValues("unknown").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.SessionResolutions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("service.ResolveSession: %w", err)
	}
	metrics.SessionResolutions.WithLabelValues("ok").Inc()
	return &u, nil
}

// Revoke deletes the session for token. Unknown tokens are a no-op.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, utils.HashToken(token)); err != nil {
		return fmt.Errorf("service.RevokeSession: %w", err)
	}
	return nil
}

// ReapExpired deletes sessions that expired before now.
func (s *SessionService) ReapExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.clock.nowMs())
}

// RunReaper calls ReapExpired every interval until ctx is done.
func (s *SessionService) RunReaper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.ReapExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error("session.reap.failed", "err", err)
				}
				continue
			}
			if n > 0 {
				s.log.Info("session.reap", "deleted", n)
			}
		}
	}
}
