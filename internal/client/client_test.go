package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/duo/internal/client"
	"github.com/iliyamo/duo/internal/database/dbtest"
	"github.com/iliyamo/duo/internal/logging"
	"github.com/iliyamo/duo/internal/model"
	"github.com/iliyamo/duo/internal/router"
	"github.com/iliyamo/duo/internal/service"
)

const beat = 20 * time.Millisecond

func newClient(t *testing.T) *client.Client {
	t.Helper()
	db := dbtest.New(t)
	svcs, err := service.New(db, service.Options{Log: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svcs.Close() })

	e := router.New(router.Deps{
		Services:       svcs,
		DB:             db,
		Log:            logging.Discard(),
		RequestTimeout: 5 * time.Second,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return client.New(srv.URL,
		client.WithHTTPClient(srv.Client()),
		client.WithLogger(logging.Discard()),
		client.WithHeartbeatInterval(beat),
	)
}

func signup(t *testing.T, c *client.Client, name, email string) *client.Session {
	t.Helper()
	s, err := c.Signup(context.Background(), name, email, "secret-pass")
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	ana := signup(t, c, "Ana", "ana@example.com")
	assert.NotEmpty(t, ana.Token)
	assert.Regexp(t, `^Ana#\d{4}$`, ana.User.FullTag)
	assert.Equal(t, "online", ana.User.Status)

	me, err := ana.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, ana.User.UID, me.UID)

	_, err = c.Signup(ctx, "Other", "ANA@example.com", "x")
	assert.True(t, client.IsStatus(err, http.StatusConflict), "got %v", err)

	_, err = c.Login(ctx, "ana@example.com", "wrong")
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized), "got %v", err)

	again, err := c.Login(ctx, "ana@example.com", "secret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, ana.Token, again.Token)

	found, err := c.FindByTag(ctx, ana.User.FullTag)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ana.User.UID, found.UID)

	missing, err := c.FindByTag(ctx, "Nobody#0000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = c.GetUser(ctx, "no-such-uid")
	assert.True(t, client.IsStatus(err, http.StatusNotFound), "got %v", err)

	require.NoError(t, ana.Logout(ctx))
	me, err = c.Me(ctx, ana.Token)
	require.NoError(t, err)
	assert.Nil(t, me)

	require.NoError(t, c.Ready(ctx))
}

func TestStatusAndStatsAreSelfOnly(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	ana := signup(t, c, "Ana", "ana@example.com")
	bob := signup(t, c, "Bob", "bob@example.com")

	require.NoError(t, ana.UpdateStatus(ctx, model.StatusStudying))
	streak := int64(4)
	require.NoError(t, ana.UpdateStats(ctx, model.StatsPatch{Streak: &streak}))

	u, err := c.GetUser(ctx, ana.User.UID)
	require.NoError(t, err)
	assert.Equal(t, "studying", u.Status)
	assert.Equal(t, int64(4), u.Stats.Streak)

	err = c.UpdateStatus(ctx, bob.Token, ana.User.UID, model.StatusIdle)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized), "got %v", err)

	err = c.SetPresence(ctx, bob.Token, ana.User.UID, model.StatusOnline, nil)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized), "got %v", err)

	err = ana.UpdateStatus(ctx, model.Status("away"))
	assert.True(t, client.IsStatus(err, http.StatusBadRequest), "got %v", err)
}

func TestHeartbeatRefreshesAndStopsOffline(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	ana := signup(t, c, "Ana", "ana@example.com")

	hb, err := ana.StartHeartbeat(ctx, model.StatusStudying, strPtr("g1"))
	require.NoError(t, err)

	first, err := ana.GetPresence(ctx, ana.User.UID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "studying", first.Status)
	require.NotNil(t, first.GroupID)
	assert.Equal(t, "g1", *first.GroupID)

	require.Eventually(t, func() bool {
		p, err := ana.GetPresence(ctx, ana.User.UID)
		return err == nil && p != nil && p.LastUpdated > first.LastUpdated
	}, 2*time.Second, beat)

	require.NoError(t, hb.Stop(ctx))
	select {
	case <-hb.Done():
	default:
		t.Fatal("heartbeat loop still running after Stop")
	}

	stopped, err := ana.GetPresence(ctx, ana.User.UID)
	require.NoError(t, err)
	assert.Equal(t, "offline", stopped.Status)
	assert.Nil(t, stopped.GroupID)

	time.Sleep(4 * beat)
	later, err := ana.GetPresence(ctx, ana.User.UID)
	require.NoError(t, err)
	assert.Equal(t, stopped.LastUpdated, later.LastUpdated)

	assert.NoError(t, hb.Stop(ctx), "second stop is a no-op")
}

func TestHeartbeatUpdate(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	ana := signup(t, c, "Ana", "ana@example.com")

	hb, err := ana.StartHeartbeat(ctx, model.StatusOnline, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = hb.Stop(context.Background()) })

	require.NoError(t, hb.Update(ctx, model.StatusIdle, strPtr("g2")))
	require.Eventually(t, func() bool {
		p, err := ana.GetPresence(ctx, ana.User.UID)
		return err == nil && p != nil && p.Status == "idle" && p.GroupID != nil && *p.GroupID == "g2"
	}, 2*time.Second, beat)
}

func TestStartHeartbeatReplacesRunningOne(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	ana := signup(t, c, "Ana", "ana@example.com")

	old, err := ana.StartHeartbeat(ctx, model.StatusOnline, nil)
	require.NoError(t, err)
	cur, err := ana.StartHeartbeat(ctx, model.StatusStudying, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cur.Stop(context.Background()) })

	<-old.Done()
	require.NoError(t, old.Stop(ctx))

	p, err := ana.GetPresence(ctx, ana.User.UID)
	require.NoError(t, err)
	assert.Equal(t, "studying", p.Status, "stopping a replaced heartbeat must not write offline")
}

func TestLogoutStopsHeartbeat(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	ana := signup(t, c, "Ana", "ana@example.com")
	bob := signup(t, c, "Bob", "bob@example.com")

	hb, err := ana.StartHeartbeat(ctx, model.StatusStudying, strPtr("g1"))
	require.NoError(t, err)

	require.NoError(t, ana.Logout(ctx))
	<-hb.Done()

	p, err := bob.GetPresence(ctx, ana.User.UID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "offline", p.Status)

	me, err := ana.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)
}

func TestHeartbeatEndsWithContext(t *testing.T) {
	c := newClient(t)
	ana := signup(t, c, "Ana", "ana@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	hb, err := ana.StartHeartbeat(ctx, model.StatusOnline, nil)
	require.NoError(t, err)
	cancel()

	select {
	case <-hb.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat did not stop on context cancel")
	}
}
