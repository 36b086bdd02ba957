// internal/app/system/authz/resolver.go
package authz

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Outcome classifies a role resolution.
type Outcome int

const (
	// Unknown means no profile (or an unrecognized role) for the identity.
	// Callers treat it as unauthorized, never as a default role.
	Unknown Outcome = iota
	// Inactive means the profile exists but was deactivated.
	Inactive
	// Authorized means an active profile with a valid role.
	Authorized
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case Inactive:
		return "inactive"
	}
	return "unknown"
}

// Resolution is the result of resolving an identity to a staff role.
type Resolution struct {
	Outcome Outcome
	Role    string
	Profile *models.AdminProfile
}

// ProfileGetter is the part of the admin store the resolver reads.
type ProfileGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.AdminProfile, error)
}

// Resolver maps an identity id to its AdminProfile and role. It never
// writes.
type Resolver struct {
	profiles ProfileGetter
	log      *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(profiles ProfileGetter, log *zap.Logger) *Resolver {
	return &Resolver{profiles: profiles, log: log}
}

// Resolve looks up the profile for id. A missing profile or malformed id
// is Unknown with a nil error; lookup failures return the error so the
// caller can fail closed.
func (rv *Resolver) Resolve(ctx context.Context, id string) (Resolution, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Resolution{Outcome: Unknown}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	p, err := rv.profiles.GetByID(ctx, oid)
	if errors.Is(err, adminusers.ErrNotFound) {
		return Resolution{Outcome: Unknown}, nil
	}
	if err != nil {
		return Resolution{Outcome: Unknown}, err
	}

	role := strings.ToLower(strings.TrimSpace(p.Role))
	if !models.IsValidRole(role) {
		rv.log.Warn("admin profile has unrecognized role",
			zap.String("admin_id", id), zap.String("role", p.Role))
		return Resolution{Outcome: Unknown, Profile: p}, nil
	}
	if !p.IsActive() {
		return Resolution{Outcome: Inactive, Role: role, Profile: p}, nil
	}
	return Resolution{Outcome: Authorized, Role: role, Profile: p}, nil
}

// FetchUser implements auth.UserFetcher on top of Resolve.
func (rv *Resolver) FetchUser(ctx context.Context, userID string) (*auth.SessionUser, error) {
	res, err := rv.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if res.Outcome != Authorized {
		return nil, nil
	}
	return &auth.SessionUser{
		ID:           res.Profile.ID.Hex(),
		Name:         res.Profile.Name,
		LoginID:      res.Profile.Email,
		Role:         res.Role,
		IsSuperAdmin: res.Role == models.RoleSuperAdmin,
	}, nil
}
