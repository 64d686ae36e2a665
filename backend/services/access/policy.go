// Package access decides where a page request should be sent based on its
// path and the caller's session. Every guard in the application (the edge
// middleware, the admin layout and individual pages) asks the same Policy.
package access

import (
	"net/url"
	"strings"
)

// Policy describes the page areas of the site.
type Policy struct {
	LoginPath         string
	HomePath          string
	ProtectedPrefixes []string
	AdminPrefix       string
	PublicPaths       []string
}

func DefaultPolicy() Policy {
	return Policy{
		LoginPath:         "/auth",
		HomePath:          "/dashboard",
		ProtectedPrefixes: []string{"/dashboard", "/course", "/profile", "/strategies", "/admin"},
		AdminPrefix:       "/admin",
		PublicPaths:       []string{"/", "/auth"},
	}
}

// Input is the request as seen by a guard.
type Input struct {
	Path          string
	Query         url.Values
	Authenticated bool
	IsAdmin       bool
	// SessionErr is set when the session could not be evaluated at all.
	SessionErr error
}

// Decision is either "continue" (Redirect false) or a redirect to Location.
type Decision struct {
	Redirect bool
	Location string
}

var Allow = Decision{}

func redirect(location string) Decision {
	return Decision{Redirect: true, Location: location}
}

// Decide is the single redirect policy of the application.
func (p Policy) Decide(in Input) Decision {
	path := cleanPath(in.Path)

	if in.SessionErr != nil {
		if p.IsPublic(path) {
			return Allow
		}
		return redirect(p.LoginURL(path))
	}

	if in.Authenticated && path == p.LoginPath {
		return redirect(p.SafeRedirect(in.Query.Get("redirectTo")))
	}

	if !in.Authenticated && p.IsProtected(path) {
		return redirect(p.LoginURL(path))
	}

	if in.Authenticated && !in.IsAdmin && p.AdminPrefix != "" && hasPrefix(path, p.AdminPrefix) {
		return redirect(p.HomePath)
	}

	return Allow
}

// SafeRedirect returns target when it is a path on this site, else HomePath.
func (p Policy) SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return p.HomePath
	}
	// protocol-relative and backslash forms leave the site
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return p.HomePath
	}
	return target
}

// LoginURL is the login page carrying the originally requested path.
func (p Policy) LoginURL(from string) string {
	q := url.QueryEscape(from)
	q = strings.ReplaceAll(q, "%2F", "/")
	return p.LoginPath + "?redirectTo=" + q
}

func (p Policy) IsProtected(path string) bool {
	for _, prefix := range p.ProtectedPrefixes {
		if hasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (p Policy) IsPublic(path string) bool {
	for _, public := range p.PublicPaths {
		if path == public {
			return true
		}
	}
	return false
}

// hasPrefix matches whole segments: /course matches /course and /course/1/2
// but not /courses.
func hasPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

func cleanPath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
