package profile

import "time"

// RoleType represents the user's role within the application.
type RoleType string

const (
	RoleUser      RoleType = "user"
	RoleAdmin     RoleType = "admin"
	RoleModerator RoleType = "moderator"
)

// PlanTier represents the subscription tier.
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// NotificationPrefs holds the user's notification toggles.
type NotificationPrefs struct {
	Email     bool `json:"email"`
	Push      bool `json:"push"`
	Marketing bool `json:"marketing"`
}

// Profile is the editable, nested portion of the user record. Only these
// fields are touched by UpdateProfile merges.
type Profile struct {
	FirstName     string            `json:"first_name,omitempty"`
	LastName      string            `json:"last_name,omitempty"`
	Company       string            `json:"company,omitempty"`
	Bio           string            `json:"bio,omitempty"`
	Timezone      string            `json:"timezone,omitempty"`
	Notifications NotificationPrefs `json:"notifications"`
}

// Billing is a read-only snapshot of the subscription state, refreshed from
// the backend; the client never mutates it locally.
type Billing struct {
	SubscriptionStatus string     `json:"subscription_status,omitempty"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

// Usage is a read-only snapshot of metered consumption.
type Usage struct {
	TokensUsed         int64 `json:"tokens_used"`
	TokensLimit        int64 `json:"tokens_limit"`
	JobsCompleted      int64 `json:"jobs_completed"`
	EmployeesPurchased int64 `json:"employees_purchased"`
}

// User is the decoded business-data portion of auth state.
type User struct {
	ID          string    `json:"id,omitempty"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        RoleType  `json:"role,omitempty"`
	Plan        PlanTier  `json:"plan,omitempty"`
	Profile     Profile   `json:"profile"`
	Billing     Billing   `json:"billing"`
	Usage       Usage     `json:"usage"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	LastActive  time.Time `json:"last_active,omitempty"`
}

// ProfilePatch carries a shallow merge into the nested Profile. Nil fields are
// left untouched.
type ProfilePatch struct {
	FirstName     *string            `json:"first_name,omitempty"`
	LastName      *string            `json:"last_name,omitempty"`
	Company       *string            `json:"company,omitempty"`
	Bio           *string            `json:"bio,omitempty"`
	Timezone      *string            `json:"timezone,omitempty"`
	Notifications *NotificationPrefs `json:"notifications,omitempty"`
}

// UserPatch carries a shallow merge into the top-level user record.
type UserPatch struct {
	DisplayName *string   `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Plan        *PlanTier `json:"plan,omitempty"`
}
