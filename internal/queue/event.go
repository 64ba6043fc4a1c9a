// Package queue carries presence change events over RabbitMQ.
package queue

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// PresenceQueueName is the durable queue presence events are routed to.
const PresenceQueueName = "presence.changed"

// EventKind tells consumers which write produced the event.
type EventKind string

const (
	KindStatus   EventKind = "status"
	KindPresence EventKind = "presence"
	KindTyping   EventKind = "typing"
)

// PresenceChangedEvent is published after a status, presence or typing
// write commits. Fields that the write did not touch are omitted.
type PresenceChangedEvent struct {
	EventID    string    `json:"eventId"`
	Kind       EventKind `json:"kind"`
	UID        string    `json:"uid"`
	Status     string    `json:"status,omitempty"`
	GroupID    *string   `json:"groupId,omitempty"`
	IsTyping   *bool     `json:"isTyping,omitempty"`
	OccurredAt int64     `json:"occurredAt"`
}

// NewEventID returns a lexicographically sortable ULID.
func NewEventID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
