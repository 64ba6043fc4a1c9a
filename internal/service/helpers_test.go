package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/database/dbtest"
	"github.com/iliyamo/duo/internal/queue"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.PresenceChangedEvent
	closed bool
}

func (p *recordingPublisher) PublishPresenceChanged(_ context.Context, ev queue.PresenceChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingPublisher) Events() []queue.PresenceChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.PresenceChangedEvent(nil), p.events...)
}

type fixture struct {
	db    *database.DB
	svc   *Services
	clock *fakeClock
	pub   *recordingPublisher
}

func newFixture(t *testing.T, tags *TagAllocator) *fixture {
	t.Helper()
	f := &fixture{db: dbtest.New(t), clock: newFakeClock(), pub: &recordingPublisher{}}
	svc, err := New(f.db, Options{
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Publisher: f.pub,
		Clock:     f.clock.Now,
		Tags:      tags,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	f.svc = svc
	return f
}

// sequence returns an intn that yields vals in order, then repeats the last.
func sequence(vals ...int) func(int) int {
	var (
		mu sync.Mutex
		i  int
	)
	return func(int) int {
		mu.Lock()
		defer mu.Unlock()
		v := vals[min(i, len(vals)-1)]
		i++
		return v
	}
}
