package session

import "time"

// State is the transport-credential portion of auth state: the persisted
// subset of the session store. Error is deliberately excluded; it is
// transient and never survives a restart.
type State struct {
	Authenticated bool      `json:"authenticated"`
	AccessToken   string    `json:"access_token,omitempty"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	LastLogin     time.Time `json:"last_login,omitempty"`
	DeviceID      string    `json:"device_id,omitempty"`
}
