// Package identity models the signed-in user as seen through the external
// identity provider.
package identity

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthenticated is returned when no valid session accompanies a request.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrWrongPassword is returned when the provider refuses the current
// password of a password change.
var ErrWrongPassword = errors.New("current password is incorrect")

// User is the signed-in customer.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	ImageURL  string
}

// Name returns the display name.
func (u User) Name() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Metadata is the profile data kept by the identity provider on the user.
type Metadata struct {
	Phone   string
	Address string
}

// PasswordChange is a password update request.
type PasswordChange struct {
	Current string
	New     string
	Confirm string
}

// Provider is the identity provider.
type Provider interface {
	// Authenticate resolves a session token. Invalid tokens yield
	// ErrUnauthenticated.
	Authenticate(ctx context.Context, token string) (*User, error)
	Metadata(ctx context.Context, userID string) (*Metadata, error)
	UpdateMetadata(ctx context.Context, userID string, m Metadata) error
	ChangePassword(ctx context.Context, userID string, p PasswordChange) error
}

type userKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the user stored by WithUser, nil when absent.
func UserFrom(ctx context.Context) *User {
	u, _ := ctx.Value(userKey{}).(*User)
	return u
}
