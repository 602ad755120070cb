package domain

// AuthState is the composed snapshot of everything the application knows
// about the current login: identity, credentials, role and display profile.
// IsLoading is true until the first session fetch and role/profile
// resolution settle.
type AuthState struct {
	User      *User    `json:"user"`
	Session   *Session `json:"session"`
	Role      Role     `json:"role"`
	Profile   *Profile `json:"profile"`
	IsLoading bool     `json:"is_loading"`
}

// Authenticated reports whether the state carries a live identity
func (s AuthState) Authenticated() bool {
	return s.User != nil
}

// AuthEventType identifies a change in the authentication state stream
type AuthEventType string

const (
	EventSignedIn        AuthEventType = "SIGNED_IN"
	EventSignedOut       AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed  AuthEventType = "TOKEN_REFRESHED"
	EventPasswordUpdated AuthEventType = "PASSWORD_UPDATED"
)

// AuthEvent is one entry in the provider's auth-change stream.
// Session is nil for sign-out events.
type AuthEvent struct {
	Type    AuthEventType `json:"type"`
	User    *User         `json:"user"`
	Session *Session      `json:"session"`
}
