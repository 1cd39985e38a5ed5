// Package types defines the shared authentication types used across the
// session gateway: provider kinds, the token record, endpoint descriptors,
// and the error taxonomy.
package types

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// PROVIDER KIND
// =============================================================================

// ProviderKind selects the authentication strategy for the gateway.
type ProviderKind string

const (
	// ProviderAuthJS delegates authentication to a third-party identity
	// provider behind an authjs-compatible endpoint set.
	ProviderAuthJS ProviderKind = "authjs"

	// ProviderLocal authenticates against a first-party backend with
	// direct credential exchange.
	ProviderLocal ProviderKind = "local"
)

// ParseProviderKind converts a string to a ProviderKind.
// An empty string defaults to ProviderLocal.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "authjs", "oauth":
		return ProviderAuthJS, nil
	case "local", "credentials", "":
		return ProviderLocal, nil
	default:
		return "", fmt.Errorf("unknown provider kind %q (want authjs or local)", s)
	}
}

// String returns the provider kind name.
func (k ProviderKind) String() string {
	return string(k)
}

// =============================================================================
// TOKEN RECORD
// =============================================================================

// TokenRecord is the single active bearer credential for the gateway.
// A zero ExpiresAt means the record never expires on its own; it is
// cleared only by sign-out or process end.
type TokenRecord struct {
	Raw        string
	HeaderType string
	HeaderName string
	ExpiresAt  time.Time
	AcquiredAt time.Time
}

// Expired reports whether the record is past its expiry instant.
// A nil record counts as expired.
func (r *TokenRecord) Expired(now time.Time) bool {
	if r == nil {
		return true
	}
	return !r.ExpiresAt.IsZero() && !r.ExpiresAt.After(now)
}

// HeaderValue renders the credential as "<type> <token>", e.g.
// "Bearer sk-abc". An empty header type yields the bare token.
func (r *TokenRecord) HeaderValue() string {
	if r == nil || r.Raw == "" {
		return ""
	}
	if r.HeaderType == "" {
		return r.Raw
	}
	return r.HeaderType + " " + r.Raw
}

// Attach sets the authentication header on an outgoing request.
// No-op for nil or empty records.
func (r *TokenRecord) Attach(h http.Header) {
	v := r.HeaderValue()
	if v == "" {
		return
	}
	name := r.HeaderName
	if name == "" {
		name = HeaderAuthorization
	}
	h.Set(name, v)
}

// =============================================================================
// ENDPOINT DESCRIPTOR
// =============================================================================

// EndpointDescriptor names one backend operation: a path resolved against
// the configured base URL, and the HTTP method used to call it.
type EndpointDescriptor struct {
	Path   string
	Method string
}

// Resolve joins the endpoint path onto base, normalizing slashes so that
// "base/" + "/path" never produces a double slash and "base" + "path"
// never drops one.
func (e EndpointDescriptor) Resolve(base string) string {
	b := strings.TrimRight(base, "/")
	p := e.Path
	if p == "" {
		return b
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return b + p
}

// =============================================================================
// HEADER CONSTANTS
// =============================================================================

const (
	// HeaderAuthorization is the default authentication header name.
	HeaderAuthorization = "Authorization"

	// HeaderContentType is the Content-Type header.
	HeaderContentType = "Content-Type"

	// DefaultHeaderType is the default credential scheme.
	DefaultHeaderType = "Bearer"
)

// BearerToken extracts the bearer token value from an Authorization header.
// Input: "Bearer sk-abc" -> Output: "sk-abc"
// Input: "sk-abc" -> Output: "sk-abc" (pass-through if no Bearer prefix)
func BearerToken(authHeader string) string {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return ""
	}

	const bearerPrefix = "Bearer "
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimSpace(authHeader[len(bearerPrefix):])
	}

	return authHeader
}
