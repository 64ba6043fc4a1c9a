package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/metrics"
	"github.com/iliyamo/duo/internal/model"
	"github.com/iliyamo/duo/internal/queue"
	"github.com/iliyamo/duo/internal/repository"
	"github.com/iliyamo/duo/internal/utils"
)

const (
	// MaxDisplayNameRunes caps the display name length.
	MaxDisplayNameRunes = 32
	// signupTxAttempts bounds whole-transaction retries after a unique
	// violation raced past the in-transaction checks.
	signupTxAttempts = 3
)

// NewUser is the validated input of CreateUser.
type NewUser struct {
	DisplayName string
	Email       string
	Password    string
}

// UserService is the credential store: user records, password digests,
// status and stats.
type UserService struct {
	db     *database.DB
	users  *repository.UserRepo
	tags   *TagAllocator
	events *eventSink
	clock  Clock
	log    *slog.Logger

	// checker overrides the tx-bound user repo as the tag pre-check.
	checker func(tx database.DBTX) TagChecker

	dummyDigest string
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validate normalizes in and reports the first problem found.
func (in NewUser) validate() (NewUser, error) {
	const op = "service.CreateUser"
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Email = NormalizeEmail(in.Email)

	if in.DisplayName == "" || in.Email == "" || in.Password == "" {
		return in, opErr(op, ErrValidation, "Missing fields")
	}
	if utf8.RuneCountInString(in.DisplayName) > MaxDisplayNameRunes {
		return in, opErr(op, ErrValidation, fmt.Sprintf("Display name must be at most %d characters", MaxDisplayNameRunes))
	}
	if strings.Contains(in.DisplayName, "#") {
		return in, opErr(op, ErrValidation, "Display name must not contain '#'")
	}
	if !strings.Contains(in.Email, "@") {
		return in, opErr(op, ErrValidation, "Invalid email")
	}
	return in, nil
}

// CreateUser registers a new user with a freshly allocated tag.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (model.User, error) {
	var u model.User
	err := s.signupTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		var err error
		u, err = s.createTx(ctx, tx, in)
		return err
	})
	return u, err
}

// signupTx runs fn in a transaction and reruns it when a unique
// constraint fires, so a concurrent signup grabbing the same tag costs a
// retry instead of an error.
func (s *UserService) signupTx(ctx context.Context, fn func(ctx context.Context, tx database.DBTX) error) error {
	var err error
	for attempt := 1; attempt <= signupTxAttempts; attempt++ {
		err = s.db.WithTx(ctx, fn)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		s.log.Warn("auth.signup.retry", "attempt", attempt)
	}
	return opErr("service.CreateUser", ErrExhaustedRetries, "Could not complete signup, please retry")
}

// createTx validates in, checks the email, allocates a tag and inserts
// the user, all through tx.
func (s *UserService) createTx(ctx context.Context, tx database.DBTX, in NewUser) (model.User, error) {
	const op = "service.CreateUser"
	in, err := in.validate()
	if err != nil {
		return model.User{}, err
	}

	users := s.users.WithTx(tx)
	taken, err := users.EmailExists(ctx, in.Email)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: email lookup: %w", op, err)
	}
	if taken {
		return model.User{}, opErr(op, ErrConflict, "Email already in use")
	}

	var checker TagChecker = users
	if s.checker != nil {
		checker = s.checker(tx)
	}
	tag, err := s.tags.Allocate(ctx, checker, in.DisplayName)
	if err != nil {
		return model.User{}, err
	}
	digest, err := utils.HashPassword(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: hash password: %w", op, err)
	}

	now := s.clock.nowMs()
	u := model.User{
		UID:            utils.NewUID(),
		DisplayName:    in.DisplayName,
		Discriminator:  tag.Discriminator,
		FullTag:        tag.FullTag,
		Email:          in.Email,
		PasswordDigest: digest,
		Status:         model.StatusOnline,
		CreatedAt:      now,
		LastSeen:       now,
	}
	if err := users.Create(ctx, u); err != nil {
		return model.User{}, fmt.Errorf("%s: insert: %w", op, err)
	}
	return u, nil
}

// VerifyCredentials returns the user owning email when password matches.
// Unknown emails still pay for one derivation.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (model.User, error) {
	const op = "service.VerifyCredentials"
	invalid := opErr(op, ErrUnauthorized, "Invalid credentials")

	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(s.dummyDigest, password)
		return model.User{}, invalid
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !utils.VerifyPassword(u.PasswordDigest, password) {
		return model.User{}, invalid
	}
	return u, nil
}

// GetUser fetches a user by uid.
func (s *UserService) GetUser(ctx context.Context, uid string) (model.User, error) {
	u, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, opErr("service.GetUser", ErrNotFound, "Not found")
	}
	return u, err
}

// FindUserByTag does an exact, case-sensitive full tag lookup. A miss
// returns (nil, nil).
func (s *UserService) FindUserByTag(ctx context.Context, fullTag string) (*model.User, error) {
	u, err := s.users.GetByTag(ctx, fullTag)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateStatus sets the user's status and bumps lastSeen.
func (s *UserService) UpdateStatus(ctx context.Context, uid string, status model.Status) error {
	if !status.Valid() {
		return opErr("service.UpdateStatus", ErrValidation, "Invalid status")
	}
	now := s.clock.now()
	if err := s.users.UpdateStatus(ctx, uid, status, now.UnixMilli()); err != nil {
		return fmt.Errorf("service.UpdateStatus: %w", err)
	}
	metrics.PresenceWrites.WithLabelValues("status").Inc()
	s.events.publish(ctx, queue.PresenceChangedEvent{
		Kind: queue.KindStatus, UID: uid, Status: string(status),
	}, now)
	return nil
}

// MergeStats overwrites the supplied counters and keeps the rest.
func (s *UserService) MergeStats(ctx context.Context, uid string, patch model.StatsPatch) error {
	if patch.HasNegative() {
		return opErr("service.MergeStats", ErrValidation, "Stats must be non-negative")
	}
	if patch.Empty() {
		return nil
	}
	if err := s.users.MergeStats(ctx, uid, patch); err != nil {
		return fmt.Errorf("service.MergeStats: %w", err)
	}
	metrics.PresenceWrites.WithLabelValues("stats").Inc()
	return nil
}
