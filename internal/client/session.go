package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/duo/internal/model"
)

// DefaultHeartbeatInterval is how often a running heartbeat refreshes presence.
const DefaultHeartbeatInterval = 30 * time.Second

// heartbeatSendTimeout bounds each background presence write.
const heartbeatSendTimeout = 10 * time.Second

// Session is one signed-in user. It owns at most one presence heartbeat.
type Session struct {
	client    *Client
	Token     string
	ExpiresAt int64
	User      User

	mu sync.Mutex
	hb *Heartbeat
}

// Me re-reads the signed-in user. It returns nil once the token stops resolving.
func (s *Session) Me(ctx context.Context) (*User, error) {
	return s.client.Me(ctx, s.Token)
}

func (s *Session) UpdateStatus(ctx context.Context, status model.Status) error {
	return s.client.UpdateStatus(ctx, s.Token, s.User.UID, status)
}

func (s *Session) UpdateStats(ctx context.Context, patch model.StatsPatch) error {
	return s.client.UpdateStats(ctx, s.Token, s.User.UID, patch)
}

func (s *Session) SetPresence(ctx context.Context, status model.Status, groupID *string) error {
	return s.client.SetPresence(ctx, s.Token, s.User.UID, status, groupID)
}

func (s *Session) SetTyping(ctx context.Context, isTyping bool) error {
	return s.client.SetTyping(ctx, s.Token, s.User.UID, isTyping)
}

func (s *Session) GetPresence(ctx context.Context, uid string) (*Presence, error) {
	return s.client.GetPresence(ctx, s.Token, uid)
}

// StartHeartbeat writes presence once, then again every heartbeat interval
// until the returned handle is stopped or ctx ends. A heartbeat already
// running on this session is cancelled first without an offline write.
func (s *Session) StartHeartbeat(ctx context.Context, status model.Status, groupID *string) (*Heartbeat, error) {
	s.mu.Lock()
	prev := s.hb
	s.hb = nil
	s.mu.Unlock()
	prev.discard()

	if err := s.SetPresence(ctx, status, groupID); err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	hb := &Heartbeat{
		session: s,
		status:  status,
		groupID: groupID,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go hb.loop(loopCtx, s.client.heartbeat)

	s.mu.Lock()
	prev, s.hb = s.hb, hb
	s.mu.Unlock()
	prev.discard()
	return hb, nil
}

// Logout stops any running heartbeat, which sends a final offline
// presence, then revokes the token.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	hb := s.hb
	s.mu.Unlock()

	var stopErr error
	if hb != nil {
		stopErr = hb.Stop(ctx)
	}
	return errors.Join(stopErr, s.client.Logout(ctx, s.Token))
}

// Heartbeat is a running presence refresher. Stop it exactly when the
// user goes away; stopping twice is a no-op.
type Heartbeat struct {
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once

	mu      sync.Mutex
	status  model.Status
	groupID *string
}

// Update changes what the heartbeat reports and writes it immediately.
func (h *Heartbeat) Update(ctx context.Context, status model.Status, groupID *string) error {
	h.mu.Lock()
	h.status, h.groupID = status, groupID
	h.mu.Unlock()
	return h.session.SetPresence(ctx, status, groupID)
}

// Stop cancels the ticker, waits for an in-flight write and sends a final
// offline presence with no group.
func (h *Heartbeat) Stop(ctx context.Context) error {
	var err error
	h.stop.Do(func() {
		h.cancelLoop()
		h.session.detach(h)
		err = h.session.SetPresence(ctx, model.StatusOffline, nil)
	})
	return err
}

// Done is closed once the background loop has exited.
func (h *Heartbeat) Done() <-chan struct{} { return h.done }

// discard stops the loop without the final offline write.
func (h *Heartbeat) discard() {
	if h != nil {
		h.stop.Do(h.cancelLoop)
	}
}

func (h *Heartbeat) cancelLoop() {
	h.cancel()
	<-h.done
}

func (h *Heartbeat) loop(ctx context.Context, interval time.Duration) {
	defer close(h.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.mu.Lock()
			status, groupID := h.status, h.groupID
			h.mu.Unlock()

			sendCtx, cancel := context.WithTimeout(ctx, heartbeatSendTimeout)
			err := h.session.SetPresence(sendCtx, status, groupID)
			cancel()
			if err != nil && ctx.Err() == nil {
				h.session.client.log.Warn("client.heartbeat.failed", "uid", h.session.User.UID, "err", err)
			}
		}
	}
}

func (s *Session) detach(h *Heartbeat) {
	s.mu.Lock()
	if s.hb == h {
		s.hb = nil
	}
	s.mu.Unlock()
}
