package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/duo/internal/model"
)

func TestGetUserAndFindByTag(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := signupUser(t, f, "Alex", "a@x.com")

	got, err := f.svc.Users.GetUser(ctx, u.UID)
	require.NoError(t, err)
	assert.Equal(t, u.FullTag, got.FullTag)

	_, err = f.svc.Users.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := f.svc.Users.FindUserByTag(ctx, u.FullTag)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.UID, found.UID)

	found, err = f.svc.Users.FindUserByTag(ctx, "alex#"+u.Discriminator)
	require.NoError(t, err)
	assert.Nil(t, found, "tag lookup is case-sensitive")
}

func TestUpdateStatusBumpsLastSeen(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := signupUser(t, f, "Alex", "a@x.com")

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.Users.UpdateStatus(ctx, u.UID, model.StatusStudying))

	got, err := f.svc.Users.GetUser(ctx, u.UID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusStudying, got.Status)
	assert.Equal(t, f.clock.Now().UnixMilli(), got.LastSeen)

	assert.ErrorIs(t, f.svc.Users.UpdateStatus(ctx, u.UID, model.Status("away")), ErrValidation)
}

func TestMergeStats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := signupUser(t, f, "Alex", "a@x.com")
	v := func(n int64) *int64 { return &n }

	require.NoError(t, f.svc.Users.MergeStats(ctx, u.UID, model.StatsPatch{TotalStudyTime: v(3600), Streak: v(4)}))
	require.NoError(t, f.svc.Users.MergeStats(ctx, u.UID, model.StatsPatch{}))
	require.NoError(t, f.svc.Users.MergeStats(ctx, u.UID, model.StatsPatch{TodayStudyTime: v(60)}))

	err := f.svc.Users.MergeStats(ctx, u.UID, model.StatsPatch{Streak: v(-1)})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.svc.Users.GetUser(ctx, u.UID)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{TotalStudyTime: 3600, TodayStudyTime: 60, Streak: 4}, got.Stats)
}

func TestCreateUserStandalone(t *testing.T) {
	f := newFixture(t, nil)
	u, err := f.svc.Users.CreateUser(context.Background(), NewUser{DisplayName: " Kim ", Email: "K@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Kim", u.DisplayName)
	assert.Equal(t, "k@x.com", u.Email)

	_, err = f.svc.Users.VerifyCredentials(context.Background(), "k@x.com", "pw")
	assert.NoError(t, err)
}

func TestOpErrorMessages(t *testing.T) {
	err := OpError{Op: "service.X", Kind: ErrNotFound}
	assert.Equal(t, "service.X: not found", err.Error())
	assert.Equal(t, "not found", err.PublicMessage())

	err = OpError{Op: "service.X", Kind: ErrConflict, Msg: "taken"}
	assert.Equal(t, "service.X: conflict: taken", err.Error())
	assert.Equal(t, "taken", err.PublicMessage())
}
