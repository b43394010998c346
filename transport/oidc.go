package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	apperrors "github.com/agiworkforce/go-auth-client/internal/errors"
	"github.com/agiworkforce/go-auth-client/profile"
	"github.com/agiworkforce/go-auth-client/token"
)

// OIDCConfig configures the hosted-backend transport.
type OIDCConfig struct {
	// IssuerURL is the OIDC issuer used for endpoint discovery.
	IssuerURL string
	// ClientID identifies this application to the auth backend.
	ClientID string
	// ClientSecret is empty for public clients.
	ClientSecret string
	// APIBaseURL hosts the non-OAuth account endpoints (register, profile,
	// password reset). Defaults to the issuer URL.
	APIBaseURL string
	// Scopes requested on login. Defaults to openid, profile, email,
	// offline_access.
	Scopes []string
	// HTTPClient, when nil, falls back to http.DefaultClient.
	HTTPClient *http.Client
}

var _ Transport = (*OIDCTransport)(nil)

// OIDCTransport implements Transport against an OIDC-discoverable auth
// backend: password-grant login and refresh via the token endpoint, identity
// from the userinfo endpoint, and plain JSON endpoints for account management.
type OIDCTransport struct {
	provider   *oidc.Provider
	oauthCfg   oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// NewOIDCTransport discovers the backend's endpoints and builds the transport.
func NewOIDCTransport(ctx context.Context, cfg OIDCConfig) (*OIDCTransport, error) {
	if strings.TrimSpace(cfg.IssuerURL) == "" {
		return nil, errors.New("[NewOIDCTransport] IssuerURL is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("[NewOIDCTransport] ClientID is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewOIDCTransport] oidc.NewProvider")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}
	}
	apiBaseURL := cfg.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = cfg.IssuerURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OIDCTransport{
		provider: provider,
		oauthCfg: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Login exchanges the credentials via the resource-owner password grant.
func (t *OIDCTransport) Login(ctx context.Context, email, password string) (*Credentials, error) {
	ctx = t.clientContext(ctx)
	tok, err := t.oauthCfg.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, mapOAuthError(err, "[OIDCTransport.Login] PasswordCredentialsToken")
	}
	return t.credentialsFromToken(ctx, tok)
}

// Refresh exchanges the refresh token for a fresh grant. The backend rotates
// refresh tokens, so callers must store the returned one.
func (t *OIDCTransport) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	ctx = t.clientContext(ctx)
	tok, err := t.oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, mapOAuthError(err, "[OIDCTransport.Refresh] TokenSource")
	}
	return t.credentialsFromToken(ctx, tok)
}

// Logout revokes the refresh token. The local session is cleared by the
// facade regardless of the outcome here.
func (t *OIDCTransport) Logout(ctx context.Context, refreshToken string) error {
	form := url.Values{
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
		"client_id":       {t.oauthCfg.ClientID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiBaseURL+"/oauth/revoke", strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "[OIDCTransport.Logout] NewRequest")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[OIDCTransport.Logout] Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Errorf("[OIDCTransport.Logout] revoke returned %d", resp.StatusCode)
	}
	return nil
}

// GetCurrentUser fetches the profile snapshot from the userinfo endpoint.
func (t *OIDCTransport) GetCurrentUser(ctx context.Context, accessToken string) (*profile.User, error) {
	ctx = t.clientContext(ctx)
	info, err := t.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrProfileFetch, "[OIDCTransport.GetCurrentUser] UserInfo: %v", err)
	}

	var wire apiUser
	if err := info.Claims(&wire); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrProfileFetch, "[OIDCTransport.GetCurrentUser] Claims: %v", err)
	}
	return wire.toUser(), nil
}

// Register creates an account through the backend's signup endpoint. A 202
// response means the account awaits email confirmation and no tokens are
// issued yet.
func (t *OIDCTransport) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	body := map[string]string{
		"email":        req.Email,
		"password":     req.Password,
		"display_name": req.DisplayName,
		"first_name":   req.FirstName,
		"last_name":    req.LastName,
		"company":      req.Company,
	}
	resp, status, err := t.postJSON(ctx, "/api/v1/signup", "", body)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCTransport.Register] postJSON")
	}

	if status == http.StatusAccepted {
		return &RegisterResult{Status: RegisterStatusPendingConfirmation}, nil
	}
	if status >= 400 {
		return nil, apiError(status, resp)
	}

	// Active account: the backend logs the new user straight in.
	creds, err := t.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCTransport.Register] post-signup login")
	}
	return &RegisterResult{Status: RegisterStatusActive, Credentials: creds}, nil
}

// UpdateProfile patches the profile server-side and returns the updated user.
func (t *OIDCTransport) UpdateProfile(ctx context.Context, accessToken string, patch profile.ProfilePatch) (*profile.User, error) {
	resp, status, err := t.postJSON(ctx, "/api/v1/profile", accessToken, patch)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCTransport.UpdateProfile] postJSON")
	}
	if status >= 400 {
		return nil, apiError(status, resp)
	}

	var wire apiUser
	if err := json.Unmarshal(resp, &wire); err != nil {
		return nil, errors.Wrap(err, "[OIDCTransport.UpdateProfile] Unmarshal")
	}
	return wire.toUser(), nil
}

// ResetPassword completes a password reset started out of band.
func (t *OIDCTransport) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	body := map[string]string{"token": resetToken, "password": newPassword}
	resp, status, err := t.postJSON(ctx, "/api/v1/password/reset", "", body)
	if err != nil {
		return errors.Wrap(err, "[OIDCTransport.ResetPassword] postJSON")
	}
	if status >= 400 {
		return apiError(status, resp)
	}
	return nil
}

// clientContext makes the oauth2 machinery use the configured HTTP client.
func (t *OIDCTransport) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)
}

func (t *OIDCTransport) credentialsFromToken(ctx context.Context, tok *oauth2.Token) (*Credentials, error) {
	user, err := t.GetCurrentUser(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	// Prefer the access token's own exp claim; the token endpoint's
	// expires_in is relative and already skewed by transit time.
	expiresAt := token.Expiry(tok.AccessToken, tok.Expiry)

	return &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

func (t *OIDCTransport) postJSON(ctx context.Context, path, accessToken string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "Marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, errors.Wrap(err, "NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "Do")
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, errors.Wrap(err, "ReadAll")
	}
	return blob, resp.StatusCode, nil
}

// apiUser is the wire shape of a user as returned by the userinfo and account
// endpoints.
type apiUser struct {
	Sub         string           `json:"sub"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
	Name        string           `json:"name"`
	Picture     string           `json:"picture"`
	Role        profile.RoleType `json:"role"`
	Plan        profile.PlanTier `json:"plan"`
	Profile     profile.Profile  `json:"profile"`
	Billing     profile.Billing  `json:"billing"`
	Usage       profile.Usage    `json:"usage"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (u *apiUser) toUser() *profile.User {
	displayName := u.DisplayName
	if displayName == "" {
		displayName = u.Name
	}
	role := u.Role
	if role == "" {
		role = profile.RoleUser
	}
	plan := u.Plan
	if plan == "" {
		plan = profile.PlanFree
	}
	return &profile.User{
		ID:          u.Sub,
		Email:       u.Email,
		DisplayName: displayName,
		AvatarURL:   u.Picture,
		Role:        role,
		Plan:        plan,
		Profile:     u.Profile,
		Billing:     u.Billing,
		Usage:       u.Usage,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func mapOAuthError(err error, msg string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case "invalid_grant", "invalid_request":
			return apperrors.ErrInvalidCredentials
		}
		return errors.Wrapf(apperrors.ErrInternal, "%s: token endpoint: %s", msg, retrieveErr.ErrorCode)
	}
	return errors.Wrap(err, msg)
}

func apiError(status int, body []byte) error {
	var wire struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &wire)

	switch {
	case status == http.StatusUnauthorized || wire.Error == "invalid_credentials":
		return apperrors.ErrInvalidCredentials
	case wire.Error != "":
		return fmt.Errorf("api error (%d): %s", status, wire.Error)
	default:
		return fmt.Errorf("api error (%d)", status)
	}
}
