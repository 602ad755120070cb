package gate

import (
	"github.com/fitloop/backend-auth/internal/domain"
)

// Action is what the caller should do with the protected view
type Action int

const (
	// ShowLoading renders a placeholder; no navigation decision yet
	ShowLoading Action = iota
	// Render shows the protected content
	Render
	// RedirectSignIn sends the user to the sign-in entry point
	RedirectSignIn
	// RedirectOnboarding sends the user to role selection
	RedirectOnboarding
	// RedirectHome sends the user to the default location
	RedirectHome
)

// String returns the action name
func (a Action) String() string {
	switch a {
	case ShowLoading:
		return "show_loading"
	case Render:
		return "render"
	case RedirectSignIn:
		return "redirect_sign_in"
	case RedirectOnboarding:
		return "redirect_onboarding"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Requirements describe what a protected view demands of the caller
type Requirements struct {
	// RequireRole demands an assigned role; users without one go to
	// onboarding
	RequireRole bool
	// AllowedRoles restricts access to the listed roles when non-empty
	AllowedRoles []domain.Role
	// From is the originally requested location, carried through a sign-in
	// redirect so the flow can return there afterwards
	From string
}

// Decision is the gate's verdict
type Decision struct {
	Action Action
	// From is advisory return state, set only on RedirectSignIn
	From string
}

// Decide evaluates the guard rules in strict order. It is a pure function
// of the state and requirements: no internal state, no I/O.
func Decide(state domain.AuthState, req Requirements) Decision {
	if state.IsLoading {
		return Decision{Action: ShowLoading}
	}

	if !state.Authenticated() {
		return Decision{Action: RedirectSignIn, From: req.From}
	}

	if req.RequireRole && state.Role == domain.RoleNone {
		return Decision{Action: RedirectOnboarding}
	}

	if len(req.AllowedRoles) > 0 && !containsRole(req.AllowedRoles, state.Role) {
		return Decision{Action: RedirectHome}
	}

	return Decision{Action: Render}
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
