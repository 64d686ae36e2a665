package access

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func query(raw string) url.Values {
	v, _ := url.ParseQuery(raw)
	return v
}

func TestDecide(t *testing.T) {
	policy := DefaultPolicy()
	sessionErr := errors.New("session store unavailable")

	tests := []struct {
		name string
		in   Input
		want Decision
	}{
		{
			name: "anonymous dashboard goes to login",
			in:   Input{Path: "/dashboard"},
			want: Decision{Redirect: true, Location: "/auth?redirectTo=/dashboard"},
		},
		{
			name: "signed in user leaves login for redirectTo",
			in:   Input{Path: "/auth", Query: query("redirectTo=/course"), Authenticated: true},
			want: Decision{Redirect: true, Location: "/course"},
		},
		{
			name: "signed in user leaves login for dashboard",
			in:   Input{Path: "/auth", Authenticated: true},
			want: Decision{Redirect: true, Location: "/dashboard"},
		},
		{
			name: "external redirectTo is ignored",
			in:   Input{Path: "/auth", Query: query("redirectTo=https://evil.example"), Authenticated: true},
			want: Decision{Redirect: true, Location: "/dashboard"},
		},
		{
			name: "protocol relative redirectTo is ignored",
			in:   Input{Path: "/auth", Query: query("redirectTo=//evil.example"), Authenticated: true},
			want: Decision{Redirect: true, Location: "/dashboard"},
		},
		{
			name: "anonymous nested lesson path keeps full path",
			in:   Input{Path: "/course/2/7"},
			want: Decision{Redirect: true, Location: "/auth?redirectTo=/course/2/7"},
		},
		{
			name: "anonymous public home passes",
			in:   Input{Path: "/"},
			want: Allow,
		},
		{
			name: "anonymous login page passes",
			in:   Input{Path: "/auth"},
			want: Allow,
		},
		{
			name: "prefix matches whole segments only",
			in:   Input{Path: "/courses-catalog"},
			want: Allow,
		},
		{
			name: "plural of a protected segment is not protected",
			in:   Input{Path: "/courses"},
			want: Allow,
		},
		{
			name: "suffixed dashboard path is not protected",
			in:   Input{Path: "/dashboard-old"},
			want: Allow,
		},
		{
			name: "nested dashboard path is protected",
			in:   Input{Path: "/dashboard/stats"},
			want: Decision{Redirect: true, Location: "/auth?redirectTo=/dashboard/stats"},
		},
		{
			name: "signed in student on dashboard passes",
			in:   Input{Path: "/dashboard", Authenticated: true},
			want: Allow,
		},
		{
			name: "student is sent away from admin",
			in:   Input{Path: "/admin/users", Authenticated: true},
			want: Decision{Redirect: true, Location: "/dashboard"},
		},
		{
			name: "admin reaches admin",
			in:   Input{Path: "/admin/users", Authenticated: true, IsAdmin: true},
			want: Allow,
		},
		{
			name: "session error on public page passes",
			in:   Input{Path: "/", SessionErr: sessionErr},
			want: Allow,
		},
		{
			name: "session error elsewhere goes to login",
			in:   Input{Path: "/pricing", SessionErr: sessionErr},
			want: Decision{Redirect: true, Location: "/auth?redirectTo=/pricing"},
		},
		{
			name: "trailing slash is normalised",
			in:   Input{Path: "/dashboard/"},
			want: Decision{Redirect: true, Location: "/auth?redirectTo=/dashboard"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Decide(tt.in))
		})
	}
}

func TestLoginURLEscapesQueryCharacters(t *testing.T) {
	policy := DefaultPolicy()
	assert.Equal(t, "/auth?redirectTo=/course/1%3Ftab%3Dnotes", policy.LoginURL("/course/1?tab=notes"))
}

func TestSafeRedirect(t *testing.T) {
	policy := DefaultPolicy()
	assert.Equal(t, "/course/1/2", policy.SafeRedirect("/course/1/2"))
	assert.Equal(t, "/dashboard", policy.SafeRedirect(""))
	assert.Equal(t, "/dashboard", policy.SafeRedirect("course"))
	assert.Equal(t, "/dashboard", policy.SafeRedirect("/\\evil.example"))
}
