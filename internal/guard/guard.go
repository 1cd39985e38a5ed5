// Package guard implements the route-protection middleware: a pure
// decision function evaluated before each navigation, plus the net/http
// plumbing that applies it.
package guard

import (
	"net/url"

	"github.com/authbridge/session-gateway/internal/config"
)

// Override is a page-level annotation that flips the default middleware
// policy for a specific route.
type Override int

const (
	// OverrideNone leaves the global policy in charge.
	OverrideNone Override = iota

	// OverrideRequired forces authentication even when the global
	// middleware is disabled (page meta auth: true).
	OverrideRequired

	// OverridePublic exempts the page unconditionally (auth: false).
	OverridePublic
)

// Policy is the guard's resolved, immutable configuration.
type Policy struct {
	// EnabledGlobally applies the guard to every route without an
	// override.
	EnabledGlobally bool

	// Allow404WithoutAuth lets unresolved routes through so the 404
	// page renders without a session.
	Allow404WithoutAuth bool

	// AddCallback appends a callback query parameter to the login
	// redirect. CallbackValue, when non-empty, is used literally in
	// place of the blocked route's path.
	AddCallback   bool
	CallbackValue string

	// LoginPath is the app-local login page.
	LoginPath string

	// DefaultProvider, when set (authjs), sends denied navigations
	// straight into that provider's sign-in flow under SignInBase.
	DefaultProvider string
	SignInBase      string
}

// PolicyFromConfig derives the guard policy from loaded configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		EnabledGlobally:     cfg.Middleware.Enabled,
		Allow404WithoutAuth: cfg.Middleware.Allow404WithoutAuth,
		AddCallback:         cfg.Middleware.AddDefaultCallbackURL.Enabled(),
		CallbackValue:       cfg.Middleware.AddDefaultCallbackURL.Value(""),
		LoginPath:           cfg.Middleware.LoginPath,
		DefaultProvider:     cfg.Provider.DefaultProvider,
		SignInBase:          cfg.ResolveBaseURL(),
	}
}

// Input is everything a single navigation decision depends on.
type Input struct {
	// Route is the navigation target path.
	Route string

	// RouteExists reports whether the target resolves to a known page.
	RouteExists bool

	// Authenticated is the session store's current signal. Any
	// non-authenticated state, including errors upstream, must arrive
	// here as false.
	Authenticated bool

	// Override is the page-level annotation for the target route.
	Override Override

	Policy Policy
}

// Decision is the outcome of evaluating one navigation.
type Decision struct {
	Allow      bool
	RedirectTo string

	// Reason names the first matching rule, for logs.
	Reason string
}

// Decide evaluates the protection rules in order; the first match wins.
func Decide(in Input) Decision {
	// 1. A page that opted out is always reachable.
	if in.Override == OverridePublic {
		return Decision{Allow: true, Reason: "page opted out"}
	}

	// 2. Unresolved routes may render their 404 without a session.
	if !in.RouteExists && in.Policy.Allow404WithoutAuth {
		return Decision{Allow: true, Reason: "unresolved route"}
	}

	// 3. With the global guard off, only pages that opted in are gated.
	if !in.Policy.EnabledGlobally && in.Override != OverrideRequired {
		return Decision{Allow: true, Reason: "guard disabled for route"}
	}

	// 4. An authenticated session passes.
	if in.Authenticated {
		return Decision{Allow: true, Reason: "authenticated"}
	}

	// 5. Deny and redirect to the sign-in target.
	return Decision{
		Allow:      false,
		RedirectTo: redirectTarget(in),
		Reason:     "unauthenticated",
	}
}

// redirectTarget computes where a denied navigation is sent: the
// configured identity provider's sign-in flow when one is set, otherwise
// the app-local login page, optionally carrying a callback parameter.
func redirectTarget(in Input) string {
	target := in.Policy.LoginPath
	if in.Policy.DefaultProvider != "" {
		target = in.Policy.SignInBase + "/signin/" + in.Policy.DefaultProvider
	}

	if !in.Policy.AddCallback {
		return target
	}

	callback := in.Policy.CallbackValue
	if callback == "" {
		callback = in.Route
	}

	sep := "?"
	if u, err := url.Parse(target); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return target + sep + config.DefaultCallbackParam + "=" + url.QueryEscape(callback)
}
