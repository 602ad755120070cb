package gate

import (
	"testing"

	"github.com/fitloop/backend-auth/internal/domain"
)

func TestDecide(t *testing.T) {
	user := &domain.User{ID: "user-1", Email: "user@example.com"}

	tests := []struct {
		name  string
		state domain.AuthState
		req   Requirements
		want  Action
	}{
		{
			name:  "loading suspends judgment regardless of other fields",
			state: domain.AuthState{IsLoading: true},
			req:   Requirements{RequireRole: true, AllowedRoles: []domain.Role{domain.RoleAdmin}},
			want:  ShowLoading,
		},
		{
			name:  "loading with identity present still shows loading",
			state: domain.AuthState{User: user, Role: domain.RoleAdmin, IsLoading: true},
			req:   Requirements{},
			want:  ShowLoading,
		},
		{
			name:  "no identity redirects to sign-in",
			state: domain.AuthState{IsLoading: false},
			req:   Requirements{},
			want:  RedirectSignIn,
		},
		{
			name:  "no identity redirects to sign-in even with allow-list",
			state: domain.AuthState{IsLoading: false},
			req:   Requirements{RequireRole: true, AllowedRoles: []domain.Role{domain.RoleCoach}},
			want:  RedirectSignIn,
		},
		{
			name:  "role required and absent redirects to onboarding",
			state: domain.AuthState{User: user, Role: domain.RoleNone, IsLoading: false},
			req:   Requirements{RequireRole: true},
			want:  RedirectOnboarding,
		},
		{
			name:  "role outside allow-list redirects home",
			state: domain.AuthState{User: user, Role: domain.RoleClient, IsLoading: false},
			req:   Requirements{AllowedRoles: []domain.Role{domain.RoleCoach, domain.RoleAdmin}},
			want:  RedirectHome,
		},
		{
			name:  "role inside allow-list renders",
			state: domain.AuthState{User: user, Role: domain.RoleCoach, IsLoading: false},
			req:   Requirements{AllowedRoles: []domain.Role{domain.RoleCoach, domain.RoleAdmin}},
			want:  Render,
		},
		{
			name:  "no requirements renders for any authenticated user",
			state: domain.AuthState{User: user, Role: domain.RoleNone, IsLoading: false},
			req:   Requirements{},
			want:  Render,
		},
		{
			name:  "role required and present renders",
			state: domain.AuthState{User: user, Role: domain.RoleClient, IsLoading: false},
			req:   Requirements{RequireRole: true},
			want:  Render,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.state, tt.req)
			if got.Action != tt.want {
				t.Errorf("Decide() = %v, want %v", got.Action, tt.want)
			}
		})
	}
}

func TestDecide_SignInRedirectCarriesFrom(t *testing.T) {
	got := Decide(domain.AuthState{IsLoading: false}, Requirements{From: "/challenges/42"})
	if got.Action != RedirectSignIn {
		t.Fatalf("Decide() = %v, want %v", got.Action, RedirectSignIn)
	}
	if got.From != "/challenges/42" {
		t.Errorf("Decide().From = %q, want /challenges/42", got.From)
	}
}

func TestDecide_FromOnlySetOnSignInRedirect(t *testing.T) {
	user := &domain.User{ID: "user-1"}
	got := Decide(domain.AuthState{User: user, IsLoading: false}, Requirements{RequireRole: true, From: "/somewhere"})
	if got.Action != RedirectOnboarding {
		t.Fatalf("Decide() = %v, want %v", got.Action, RedirectOnboarding)
	}
	if got.From != "" {
		t.Errorf("Decide().From = %q, want empty", got.From)
	}
}
