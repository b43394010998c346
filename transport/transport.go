// Package transport defines the credential transport: the capability set the
// auth facade needs from the hosted auth backend. Retry and backoff policy
// belong to the implementation, never to the stores.
package transport

import (
	"context"
	"time"

	"github.com/agiworkforce/go-auth-client/profile"
)

// Credentials is a successful token grant plus the decoded user it belongs to.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *profile.User
}

// RegisterStatus distinguishes an immediately-active registration from one
// waiting on email confirmation.
type RegisterStatus string

const (
	RegisterStatusActive              RegisterStatus = "active"
	RegisterStatusPendingConfirmation RegisterStatus = "pending_confirmation"
)

// RegisterRequest carries the account-creation fields.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	FirstName   string
	LastName    string
	Company     string
}

// RegisterResult is the outcome of account creation. Credentials is nil when
// Status is pending confirmation.
type RegisterResult struct {
	Status      RegisterStatus
	Credentials *Credentials
}

// Transport is the injectable boundary to the hosted auth backend. All calls
// are remote; callers bound them with the context.
type Transport interface {
	Login(ctx context.Context, email, password string) (*Credentials, error)
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
	GetCurrentUser(ctx context.Context, accessToken string) (*profile.User, error)
	UpdateProfile(ctx context.Context, accessToken string, patch profile.ProfilePatch) (*profile.User, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}
