package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/duo/internal/queue"
)

const (
	eventBuffer         = 256
	eventPublishTimeout = 5 * time.Second
)

// eventSink hands presence events to a Publisher from a single background
// goroutine, so a slow or absent broker never delays a request. Events are
// delivered in submission order; when the buffer is full they are dropped.
type eventSink struct {
	pub queue.Publisher
	log *slog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan queue.PresenceChangedEvent
	done   chan struct{}
}

func newEventSink(pub queue.Publisher, log *slog.Logger) *eventSink {
	s := &eventSink{
		pub:  pub,
		log:  log,
		ch:   make(chan queue.PresenceChangedEvent, eventBuffer),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// publish stamps ev with an id and time and queues it.
func (s *eventSink) publish(_ context.Context, ev queue.PresenceChangedEvent, at time.Time) {
	ev.EventID = queue.NewEventID(at)
	ev.OccurredAt = at.UnixMilli()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.log.Warn("presence.publish.dropped", "kind", ev.Kind, "uid", ev.UID)
	}
}

func (s *eventSink) loop() {
	defer close(s.done)
	for ev := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		if err := s.pub.PublishPresenceChanged(ctx, ev); err != nil {
			s.log.Warn("presence.publish.failed", "kind", ev.Kind, "uid", ev.UID, "err", err)
		}
		cancel()
	}
}

// close flushes queued events and closes the publisher.
func (s *eventSink) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	<-s.done
	return s.pub.Close()
}
