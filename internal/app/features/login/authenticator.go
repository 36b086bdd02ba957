// internal/app/features/login/authenticator.go
package login

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/app/system/authutil"
	"github.com/dalemusser/mansahub/internal/domain/models"
)

// ProfileFinder is the part of the admin store sign-in reads.
type ProfileFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminProfile, error)
}

// AttemptLimiter throttles sign-in attempts per client and account.
type AttemptLimiter interface {
	Check(r *http.Request, email string) (bool, string)
	ResetEmail(ctx context.Context, email string)
}

// Authenticator checks email/password credentials against admin_users.
type Authenticator struct {
	Profiles ProfileFinder
	Limiter  AttemptLimiter
}

// SignIn returns the active profile for the credentials or an
// *auth.AuthError describing why sign-in was refused. Any other error is
// a store failure.
func (a *Authenticator) SignIn(ctx context.Context, r *http.Request, email, password string) (*models.AdminProfile, error) {
	email = authutil.NormalizeEmail(email)

	if a.Limiter != nil {
		if ok, msg := a.Limiter.Check(r, email); !ok {
			return nil, &auth.AuthError{Kind: auth.RateLimited, Message: msg}
		}
	}

	if !authutil.IsValidEmail(email) || password == "" {
		return nil, auth.NewAuthError(auth.InvalidCredentials)
	}

	p, err := a.Profiles.GetByEmail(ctx, email)
	if errors.Is(err, adminusers.ErrNotFound) {
		return nil, auth.NewAuthError(auth.UnknownAccount)
	}
	if err != nil {
		return nil, err
	}

	if !authutil.CheckPassword(password, p.PasswordHash) {
		return p, auth.NewAuthError(auth.InvalidCredentials)
	}
	if !p.IsActive() {
		return p, auth.NewAuthError(auth.Disabled)
	}
	if !models.IsValidRole(p.Role) {
		return p, auth.NewAuthError(auth.UnknownAccount)
	}

	if a.Limiter != nil {
		a.Limiter.ResetEmail(ctx, email)
	}
	return p, nil
}
