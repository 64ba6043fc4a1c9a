package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PresenceLogFile is the file the consumer appends to inside its log dir.
const PresenceLogFile = "presence.log"

// Consumer drains the presence queue into an append-only audit log.
type Consumer struct {
	URL    string
	LogDir string
	Log    *slog.Logger
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff (1s doubling up to 30s). It returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("presence_consumer.dial_failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("presence_consumer.loop_ended", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("presence_consumer.qos_failed", "err", err)
	}
	if _, err := ch.QueueDeclare(PresenceQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(PresenceQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := AppendPresenceLog(c.LogDir, d.Body); err != nil {
				c.Log.Error("presence_consumer.handle_failed", "err", err)
				_ = d.Nack(false, false) // no requeue, avoids a poison message loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// AppendPresenceLog decodes one event body and appends a single line for
// it to <dir>/presence.log.
func AppendPresenceLog(dir string, body []byte) error {
	var ev PresenceChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.UID == "" || ev.Kind == "" {
		return errors.New("event missing uid or kind")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, PresenceLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLogLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLogLine renders ev as one newline terminated log line.
func FormatLogLine(ev PresenceChangedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] presence %s | event_id=%s | uid=%s",
		time.UnixMilli(ev.OccurredAt).UTC().Format(time.RFC3339), ev.Kind, ev.EventID, ev.UID)
	if ev.Status != "" {
		fmt.Fprintf(&b, " | status=%s", ev.Status)
	}
	if ev.GroupID != nil {
		fmt.Fprintf(&b, " | group=%q", *ev.GroupID)
	}
	if ev.IsTyping != nil {
		fmt.Fprintf(&b, " | typing=%t", *ev.IsTyping)
	}
	b.WriteByte('\n')
	return b.String()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
