package transportfake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agiworkforce/go-auth-client/internal/errors"
	"github.com/agiworkforce/go-auth-client/profile"
	"github.com/agiworkforce/go-auth-client/transport"
)

var _ transport.Transport = (*FakeTransport)(nil)

// FakeTransport is an in-memory credential transport for tests. Accounts are
// keyed by email with plaintext passwords; tokens are opaque UUIDs.
type FakeTransport struct {
	lock     sync.Mutex
	accounts map[string]*account
	sessions map[string]*session // access token -> session
	refresh  map[string]string   // refresh token -> access token

	// PendingEmails lists addresses whose registration requires email
	// confirmation.
	PendingEmails map[string]bool

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration

	// LogoutErr, RefreshErr and LoginErr, when set, are returned by the
	// corresponding call regardless of state.
	LogoutErr  error
	RefreshErr error
	LoginErr   error

	// RefreshDelay stalls Refresh before it touches state, so tests can
	// hold an exchange in flight.
	RefreshDelay time.Duration

	// Call counters for re-entrancy assertions.
	LoginCalls   int
	RefreshCalls int
	LogoutCalls  int

	nowTime func() time.Time
}

type account struct {
	password string
	user     profile.User
}

type session struct {
	email     string
	expiresAt time.Time
}

// Option configures a FakeTransport.
type Option func(*FakeTransport)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(ft *FakeTransport) {
		ft.nowTime = nowFunc
	}
}

func NewFakeTransport(options ...Option) *FakeTransport {
	ft := &FakeTransport{
		accounts:      make(map[string]*account),
		sessions:      make(map[string]*session),
		refresh:       make(map[string]string),
		PendingEmails: make(map[string]bool),
		TokenTTL:      time.Hour,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(ft)
	}
	return ft
}

// AddAccount seeds an account that can log in with the given password.
func (ft *FakeTransport) AddAccount(email, password string, user profile.User) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = email
	ft.accounts[email] = &account{password: password, user: user}
}

func (ft *FakeTransport) Login(_ context.Context, email, password string) (*transport.Credentials, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	ft.LoginCalls++
	if ft.LoginErr != nil {
		return nil, ft.LoginErr
	}

	acct, ok := ft.accounts[email]
	if !ok || acct.password != password {
		return nil, errors.ErrInvalidCredentials
	}
	return ft.issueLocked(acct), nil
}

func (ft *FakeTransport) Register(_ context.Context, req transport.RegisterRequest) (*transport.RegisterResult, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	if _, exists := ft.accounts[req.Email]; exists {
		return nil, errors.ErrInvalidCredentials
	}

	user := profile.User{
		ID:          uuid.New().String(),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        profile.RoleUser,
		Plan:        profile.PlanFree,
		Profile: profile.Profile{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Company:   req.Company,
		},
		CreatedAt: ft.nowTime(),
	}
	ft.accounts[req.Email] = &account{password: req.Password, user: user}

	if ft.PendingEmails[req.Email] {
		return &transport.RegisterResult{Status: transport.RegisterStatusPendingConfirmation}, nil
	}
	return &transport.RegisterResult{
		Status:      transport.RegisterStatusActive,
		Credentials: ft.issueLocked(ft.accounts[req.Email]),
	}, nil
}

func (ft *FakeTransport) Logout(_ context.Context, refreshToken string) error {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	ft.LogoutCalls++
	if ft.LogoutErr != nil {
		return ft.LogoutErr
	}

	if accessToken, ok := ft.refresh[refreshToken]; ok {
		delete(ft.sessions, accessToken)
		delete(ft.refresh, refreshToken)
	}
	return nil
}

func (ft *FakeTransport) Refresh(_ context.Context, refreshToken string) (*transport.Credentials, error) {
	if ft.RefreshDelay > 0 {
		time.Sleep(ft.RefreshDelay)
	}

	ft.lock.Lock()
	defer ft.lock.Unlock()

	ft.RefreshCalls++
	if ft.RefreshErr != nil {
		return nil, ft.RefreshErr
	}

	accessToken, ok := ft.refresh[refreshToken]
	if !ok {
		return nil, errors.ErrSessionExpired
	}
	sess := ft.sessions[accessToken]
	acct, ok := ft.accounts[sess.email]
	if !ok {
		return nil, errors.ErrUserNotFound
	}

	// Rotate: drop the old pair before issuing a new one.
	delete(ft.sessions, accessToken)
	delete(ft.refresh, refreshToken)
	return ft.issueLocked(acct), nil
}

func (ft *FakeTransport) GetCurrentUser(_ context.Context, accessToken string) (*profile.User, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	sess, ok := ft.sessions[accessToken]
	if !ok || !sess.expiresAt.After(ft.nowTime()) {
		return nil, errors.ErrSessionExpired
	}
	acct, ok := ft.accounts[sess.email]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	cp := acct.user
	return &cp, nil
}

func (ft *FakeTransport) UpdateProfile(_ context.Context, accessToken string, patch profile.ProfilePatch) (*profile.User, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	sess, ok := ft.sessions[accessToken]
	if !ok {
		return nil, errors.ErrSessionExpired
	}
	acct, ok := ft.accounts[sess.email]
	if !ok {
		return nil, errors.ErrUserNotFound
	}

	p := &acct.user.Profile
	if patch.FirstName != nil {
		p.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		p.LastName = *patch.LastName
	}
	if patch.Company != nil {
		p.Company = *patch.Company
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.Timezone != nil {
		p.Timezone = *patch.Timezone
	}
	if patch.Notifications != nil {
		p.Notifications = *patch.Notifications
	}
	acct.user.UpdatedAt = ft.nowTime()

	cp := acct.user
	return &cp, nil
}

func (ft *FakeTransport) ResetPassword(_ context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return errors.ErrInvalidCredentials
	}
	return nil
}

func (ft *FakeTransport) issueLocked(acct *account) *transport.Credentials {
	accessToken := uuid.New().String()
	refreshToken := uuid.New().String()
	expiresAt := ft.nowTime().Add(ft.TokenTTL)

	ft.sessions[accessToken] = &session{email: acct.user.Email, expiresAt: expiresAt}
	ft.refresh[refreshToken] = accessToken

	cp := acct.user
	return &transport.Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         &cp,
	}
}
