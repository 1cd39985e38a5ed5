// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// ENDPOINT DEFAULTS (local provider)
// =============================================================================

const (
	DefaultSignInPath   = "/login"
	DefaultSignInMethod = "POST"

	DefaultSignOutPath   = "/logout"
	DefaultSignOutMethod = "POST"

	DefaultSignUpPath   = "/register"
	DefaultSignUpMethod = "POST"

	DefaultGetSessionPath   = "/session"
	DefaultGetSessionMethod = "GET"
)

// DefaultAuthJSBasePath is appended to an AUTH_ORIGIN override to form the
// authjs endpoint root.
const DefaultAuthJSBasePath = "/api/auth"

// =============================================================================
// TOKEN DEFAULTS
// =============================================================================

// DefaultTokenPointer locates the credential in a sign-in response body.
const DefaultTokenPointer = "/token"

// =============================================================================
// SESSION REFRESH
// =============================================================================

// DefaultRefreshIntervalMillis is the timer interval used when periodic
// refresh is enabled with a bare `true`.
const DefaultRefreshIntervalMillis = 1000

// =============================================================================
// ROUTE GUARD
// =============================================================================

// DefaultLoginPath is where denied navigations are redirected.
const DefaultLoginPath = "/login"

// DefaultCallbackParam is the query key carrying the blocked route's path
// on a login redirect.
const DefaultCallbackParam = "redirect"

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultServerPort is the gateway's listen port.
const DefaultServerPort = 18090

// DefaultRequestTimeout bounds every backend authentication request.
const DefaultRequestTimeout = 10 * time.Second

// MaxResponseBodySize caps backend response bodies read into memory (5MB).
const MaxResponseBodySize = 5 * 1024 * 1024
