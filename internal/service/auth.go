package service

import (
	"context"

	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/model"
)

// AuthService composes the credential store and session manager into the
// signup, login and logout flows.
type AuthService struct {
	users    *UserService
	sessions *SessionService
}

// Signup creates the user and its first session in one transaction.
func (a *AuthService) Signup(ctx context.Context, in NewUser) (model.User, Issued, error) {
	var (
		u      model.User
		issued Issued
	)
	err := a.users.signupTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		var err error
		if u, err = a.users.createTx(ctx, tx, in); err != nil {
			return err
		}
		issued, err = a.sessions.issueTx(ctx, tx, u.UID)
		return err
	})
	if err != nil {
		return model.User{}, Issued{}, err
	}
	return u, issued, nil
}

// Login verifies the credentials and issues a new, independent session.
func (a *AuthService) Login(ctx context.Context, email, password string) (model.User, Issued, error) {
	if NormalizeEmail(email) == "" || password == "" {
		return model.User{}, Issued{}, opErr("service.Login", ErrValidation, "Missing fields")
	}
	u, err := a.users.VerifyCredentials(ctx, email, password)
	if err != nil {
		return model.User{}, Issued{}, err
	}
	issued, err := a.sessions.Issue(ctx, u.UID)
	if err != nil {
		return model.User{}, Issued{}, err
	}
	return u, issued, nil
}

// Logout revokes token. It succeeds whether or not the token existed.
func (a *AuthService) Logout(ctx context.Context, token string) error {
	return a.sessions.Revoke(ctx, token)
}
