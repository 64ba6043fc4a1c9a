package service

import (
	"log/slog"
	"time"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/model"
	"github.com/iliyamo/duo/internal/queue"
	"github.com/iliyamo/duo/internal/repository"
	"github.com/iliyamo/duo/internal/utils"
)

// Options tune the services. Zero values fall back to defaults.
type Options struct {
	Log        *slog.Logger
	Publisher  queue.Publisher
	Clock      Clock
	StaleAfter time.Duration
	SessionTTL time.Duration
	Tags       *TagAllocator
}

// Services bundles every service built over one database.
type Services struct {
	Users    *UserService
	Sessions *SessionService
	Presence *PresenceService
	Auth     *AuthService

	events *eventSink
}

// New wires repositories and services over db.
func New(db *database.DB, opts Options) (*Services, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = queue.NopPublisher{}
	}
	if opts.StaleAfter == 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = model.SessionTTL
	}
	if opts.Tags == nil {
		opts.Tags = NewTagAllocator()
	}

	// digest for unknown-email logins, so both paths cost one derivation
	dummy, err := utils.HashPassword("duo-dummy-password")
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepo(db)
	events := newEventSink(opts.Publisher, opts.Log)

	s := &Services{events: events}
	s.Users = &UserService{
		db: db, users: users, tags: opts.Tags, events: events,
		clock: opts.Clock, log: opts.Log, dummyDigest: dummy,
	}
	s.Sessions = &SessionService{
		sessions: repository.NewSessionRepo(db), users: users,
		clock: opts.Clock, log: opts.Log, ttl: opts.SessionTTL,
	}
	s.Presence = &PresenceService{
		presence: repository.NewPresenceRepo(db), events: events,
		clock: opts.Clock, staleAfter: opts.StaleAfter,
	}
	s.Auth = &AuthService{users: s.Users, sessions: s.Sessions}
	return s, nil
}

// Close flushes pending presence events and closes the publisher.
func (s *Services) Close() error {
	return s.events.close()
}
