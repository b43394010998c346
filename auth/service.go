// Package auth composes the session, profile, and flow stores into the single
// facade the rest of the application depends on. Each verb follows the same
// state machine: Idle -> InFlight -> {Authenticated, Failed}, with Failed
// returning to Idle and the error recorded on the session store.
package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agiworkforce/go-auth-client/flow"
	apperrors "github.com/agiworkforce/go-auth-client/internal/errors"
	"github.com/agiworkforce/go-auth-client/profile"
	"github.com/agiworkforce/go-auth-client/session"
	"github.com/agiworkforce/go-auth-client/transport"
)

// Stores holds all store dependencies for the Service
type Stores struct {
	Session *session.Store
	Profile *profile.Store
	Flow    *flow.Store
}

// Service orchestrates the three stores around each auth verb.
type Service struct {
	stores    Stores
	transport transport.Transport
	timeout   time.Duration // per-transport-call bound; 0 means caller's context only
	logger    zerolog.Logger
	nowTime   func() time.Time

	// refreshGroup collapses concurrent RefreshAuth calls into a single
	// in-flight transport call whose result all callers share.
	refreshGroup singleflight.Group
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the facade logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTransportTimeout bounds every transport call so a hung backend cannot
// leave a flow flag stuck indefinitely.
func WithTransportTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.timeout = timeout
	}
}

// NewService initializes the auth facade with required dependencies.
func NewService(stores Stores, t transport.Transport, options ...ServiceOption) (*Service, error) {
	if stores.Session == nil {
		return nil, errors.New("[NewService] Session store is required")
	}
	if stores.Profile == nil {
		return nil, errors.New("[NewService] Profile store is required")
	}
	if stores.Flow == nil {
		return nil, errors.New("[NewService] Flow store is required")
	}
	if t == nil {
		return nil, errors.New("[NewService] transport is required")
	}

	s := &Service{
		stores:    stores,
		transport: t,
		logger:    zerolog.Nop(),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Initialize hydrates the persisted stores. Called once from application
// bootstrap; nothing in this package runs at import time.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.stores.Session.Load(ctx); err != nil {
		return errors.Wrap(err, "[Service.Initialize] session.Load")
	}
	if err := s.stores.Profile.Load(ctx); err != nil {
		return errors.Wrap(err, "[Service.Initialize] profile.Load")
	}

	// A profile without a live session is a leftover from a discarded or
	// expired session blob; drop it so profile-non-nil tracks authenticated.
	if !s.stores.Session.Authenticated() && s.stores.Profile.User() != nil {
		s.stores.Profile.Clear()
	}
	return nil
}

// Login authenticates with the credential transport and, on success,
// populates the session and profile stores and stamps last-login. The flow
// flag is cleared on every exit path.
func (s *Service) Login(ctx context.Context, email, password string) Result {
	s.stores.Flow.Begin(flow.OpSignIn)
	defer s.stores.Flow.End(flow.OpSignIn)
	s.stores.Flow.ClearError()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	creds, err := s.transport.Login(ctx, email, password)
	if err != nil {
		s.logger.Debug().Err(err).Str("email", email).Msg("login failed")
		return s.fail(err)
	}

	s.adoptCredentials(creds)
	s.stores.Session.UpdateLastLogin()
	s.logger.Info().Str("email", email).Msg("login succeeded")
	return success(StatusAuthenticated)
}

// Register creates an account. When the backend requires email confirmation
// the result is a distinct pending outcome and no session is populated.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) Result {
	s.stores.Flow.Begin(flow.OpSignUp)
	defer s.stores.Flow.End(flow.OpSignUp)
	s.stores.Flow.ClearError()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.transport.Register(ctx, req)
	if err != nil {
		s.logger.Debug().Err(err).Str("email", req.Email).Msg("registration failed")
		return s.fail(err)
	}

	if res.Status == transport.RegisterStatusPendingConfirmation || res.Credentials == nil {
		s.stores.Session.ClearError()
		return success(StatusPendingConfirmation)
	}

	s.adoptCredentials(res.Credentials)
	s.stores.Session.UpdateLastLogin()
	return success(StatusAuthenticated)
}

// Logout tells the transport to revoke the session, then resets all local
// state unconditionally. A failed remote logout never blocks the local clear.
func (s *Service) Logout(ctx context.Context) Result {
	s.stores.Flow.Begin(flow.OpSignOut)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if refreshToken := s.stores.Session.RefreshToken(); refreshToken != "" {
		if err := s.transport.Logout(ctx, refreshToken); err != nil {
			s.logger.Warn().Err(err).Msg("remote logout failed; clearing local session anyway")
		}
	}

	s.stores.Session.ClearTokens()
	s.stores.Session.ClearError()
	s.stores.Profile.Clear()
	s.stores.Flow.Reset()
	return success(StatusSignedOut)
}

// RefreshAuth exchanges the refresh token for a new grant. No refresh token
// is a no-op. Concurrent callers share one in-flight exchange. A failed
// refresh is fatal: the whole session is cleared rather than retried.
func (s *Service) RefreshAuth(ctx context.Context) error {
	refreshToken := s.stores.Session.RefreshToken()
	if refreshToken == "" {
		return nil
	}

	_, err, _ := s.refreshGroup.Do("refresh", func() (interface{}, error) {
		s.stores.Flow.Begin(flow.OpRefresh)
		defer s.stores.Flow.End(flow.OpRefresh)
		s.stores.Flow.ClearError()

		ctx, cancel := s.opContext(ctx)
		defer cancel()

		creds, err := s.transport.Refresh(ctx, refreshToken)
		if err != nil {
			s.logger.Warn().Err(err).Msg("token refresh failed; clearing session")
			s.stores.Session.ClearTokens()
			s.stores.Profile.Clear()
			s.stores.Session.SetError(apperrors.ErrSessionExpired.Error())
			return nil, apperrors.Wrapf(apperrors.ErrSessionExpired, "[Service.RefreshAuth] transport.Refresh: %v", err)
		}

		s.adoptCredentials(creds)
		return nil, nil
	})
	return err
}

// CheckSession reports whether the session expiry is still in the future.
func (s *Service) CheckSession() bool {
	return s.stores.Session.CheckSession()
}

// ExtendSession optimistically pushes the local expiry forward without
// contacting the transport.
func (s *Service) ExtendSession() {
	s.stores.Session.ExtendSession()
}

// UpdateProfile patches the profile remotely, then replaces the local
// snapshot with the server's canonical answer.
func (s *Service) UpdateProfile(ctx context.Context, patch profile.ProfilePatch) Result {
	accessToken := s.stores.Session.AccessToken()
	if accessToken == "" {
		return failure(apperrors.ErrNoSession.Error())
	}
	s.stores.Flow.ClearError()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	user, err := s.transport.UpdateProfile(ctx, accessToken, patch)
	if err != nil {
		return s.fail(err)
	}

	s.stores.Profile.SetSnapshot(user)
	return success(StatusAuthenticated)
}

// ResetPassword completes a password reset started out of band (email link).
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) Result {
	s.stores.Flow.ClearError()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.transport.ResetPassword(ctx, resetToken, newPassword); err != nil {
		return s.fail(err)
	}
	return Result{Success: true, Status: StatusSignedOut}
}

// CurrentUser returns the loaded profile snapshot, nil when anonymous.
func (s *Service) CurrentUser() *profile.User {
	return s.stores.Profile.User()
}

// SessionState returns a copy of the current session state.
func (s *Service) SessionState() session.State {
	return s.stores.Session.State()
}

// Flags returns the current in-flight flags.
func (s *Service) Flags() flow.Flags {
	return s.stores.Flow.Flags()
}

func (s *Service) adoptCredentials(creds *transport.Credentials) {
	s.stores.Session.SetTokens(creds.AccessToken, creds.RefreshToken, creds.ExpiresAt)
	s.stores.Session.ClearError()
	if creds.User != nil {
		s.stores.Profile.SetSnapshot(creds.User)
	}
}

// fail converts a transport error into the structured failure result,
// recording the message on the session and flow stores.
func (s *Service) fail(err error) Result {
	msg := errorMessage(err)
	s.stores.Session.SetError(msg)
	s.stores.Flow.SetError(msg)
	return failure(msg)
}

// errorMessage flattens an error chain to the user-facing string. Known
// sentinels surface their own message; everything else is reported as-is
// (network and unknown failures).
func errorMessage(err error) string {
	for _, sentinel := range []error{
		apperrors.ErrInvalidCredentials,
		apperrors.ErrConfirmationRequired,
		apperrors.ErrSessionExpired,
		apperrors.ErrProfileFetch,
		apperrors.ErrNoSession,
		apperrors.ErrUserNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
