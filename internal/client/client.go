// Package client implements the authentication client: sign-in, sign-out,
// sign-up, and session fetch against the configured backend endpoints.
//
// DESIGN: The client is the single writer of the session store. Every
// state transition — token acquired, payload refreshed, signed out,
// rejected by the backend — happens here and nowhere else. The route
// guard and refresh scheduler only ever read.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/authbridge/session-gateway/internal/auth/types"
	"github.com/authbridge/session-gateway/internal/config"
	"github.com/authbridge/session-gateway/internal/session"
)

// Client performs authentication operations against the backend and owns
// all writes to the session store.
type Client struct {
	cfg        *config.Config
	store      *session.Store
	httpClient *http.Client
	base       string
	now        func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates an authentication client bound to a store. The authjs
// provider gets a cookie jar, since delegated sessions ride on cookies
// rather than an extracted bearer token.
func New(cfg *config.Config, store *session.Store, opts ...Option) *Client {
	c := &Client{
		cfg:   cfg,
		store: store,
		httpClient: &http.Client{
			Timeout: config.DefaultRequestTimeout,
		},
		base: cfg.ResolveBaseURL(),
		now:  time.Now,
	}

	if cfg.Provider.Kind == types.ProviderAuthJS {
		if jar, err := cookiejar.New(nil); err == nil {
			c.httpClient.Jar = jar
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Store exposes the read-only view of the session state.
func (c *Client) Store() session.Reader {
	return c.store
}

// =============================================================================
// SIGN IN
// =============================================================================

// SignInOptions tunes a single sign-in call.
type SignInOptions struct {
	// Provider names the authjs identity provider to sign in through.
	// Falls back to the configured default provider.
	Provider string

	// CallbackURL is forwarded to authjs backends that support
	// post-login redirects.
	CallbackURL string
}

// SignIn authenticates with the backend and establishes a session.
//
// For the local provider the credential is extracted from the response
// via the configured pointer and stored as the active token record; the
// record's expiry is computed from max_age_seconds at acquisition time.
// The session payload is then populated with a follow-up session fetch.
// The raw response body is returned so callers can resolve backend-driven
// callback URLs.
func (c *Client) SignIn(ctx context.Context, credentials any, opts *SignInOptions) (json.RawMessage, error) {
	if opts == nil {
		opts = &SignInOptions{}
	}

	if c.cfg.Provider.Kind == types.ProviderAuthJS {
		merged, err := c.attachCSRF(ctx, credentials)
		if err != nil {
			return nil, err
		}
		credentials = merged
	}

	ep := c.signInEndpoint(opts)
	status, body, err := c.do(ctx, ep, credentials, nil)
	if err != nil {
		return nil, fmt.Errorf("sign-in request: %w", err)
	}
	if !is2xx(status) {
		return nil, fmt.Errorf("sign-in rejected: unexpected status %d: %s", status, truncate(body))
	}

	if c.cfg.Provider.Kind == types.ProviderLocal {
		tok := c.cfg.Provider.Token
		raw, err := ExtractToken(body, tok.Pointer)
		if err != nil {
			return nil, err
		}

		rec := &types.TokenRecord{
			Raw:        raw,
			HeaderType: tok.HeaderType,
			HeaderName: tok.HeaderName,
			AcquiredAt: c.now(),
		}
		if tok.MaxAgeSeconds > 0 {
			rec.ExpiresAt = c.now().Add(time.Duration(tok.MaxAgeSeconds) * time.Second)
		}
		c.store.SetSession(rec, nil)
	} else {
		// Delegated sessions live in the cookie jar; record presence is
		// tracked with an empty-header record so the store still knows a
		// sign-in happened.
		c.store.SetSession(nil, nil)
	}

	if _, err := c.GetSession(ctx); err != nil {
		log.Warn().Err(err).Msg("client: session fetch after sign-in failed")
	}

	log.Info().Str("provider", c.cfg.Provider.Kind.String()).Msg("client: signed in")
	return body, nil
}

// attachCSRF fetches a CSRF token from the authjs endpoint set and merges
// it into the sign-in body. The protocol rejects sign-in POSTs that do not
// carry the token, so a failed fetch fails the sign-in.
func (c *Client) attachCSRF(ctx context.Context, credentials any) (json.RawMessage, error) {
	ep := c.endpoint(opCSRF)
	status, body, err := c.do(ctx, ep, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("csrf fetch: %w", err)
	}
	if !is2xx(status) {
		return nil, fmt.Errorf("csrf fetch: unexpected status %d: %s", status, truncate(body))
	}

	token := gjson.GetBytes(body, "csrfToken").String()
	if token == "" {
		return nil, fmt.Errorf("csrf fetch: no csrfToken in response: %s", truncate(body))
	}

	raw := []byte(`{}`)
	if credentials != nil {
		if raw, err = json.Marshal(credentials); err != nil {
			return nil, fmt.Errorf("marshaling sign-in body: %w", err)
		}
	}
	merged, err := sjson.SetBytes(raw, "csrfToken", token)
	if err != nil {
		return nil, fmt.Errorf("merging csrf token: %w", err)
	}
	return json.RawMessage(merged), nil
}

// =============================================================================
// SIGN OUT
// =============================================================================

// SignOut ends the session. The backend request is best effort: transport
// failures are logged and swallowed, and local state is cleared no matter
// what. Calling SignOut without an active session is a harmless no-op.
func (c *Client) SignOut(ctx context.Context) {
	snap := c.store.Snapshot()

	ep := c.endpoint(opSignOut)
	if _, _, err := c.do(ctx, ep, nil, snap.Record); err != nil {
		soErr := &types.SignOutTransportError{Err: err}
		log.Warn().Err(soErr).Msg("client: sign-out transport failure")
	}

	c.store.Clear()
	log.Info().Msg("client: signed out")
}

// =============================================================================
// SIGN UP
// =============================================================================

// SignUpOptions tunes a single sign-up call.
type SignUpOptions struct {
	// SignInAfter performs a sign-in with the same credentials once
	// registration succeeds.
	SignInAfter bool
}

// SignUp registers a new account. It does not establish a session unless
// SignInAfter is set.
func (c *Client) SignUp(ctx context.Context, credentials any, opts *SignUpOptions) error {
	ep := c.endpoint(opSignUp)
	status, body, err := c.do(ctx, ep, credentials, nil)
	if err != nil {
		return fmt.Errorf("sign-up request: %w", err)
	}
	if !is2xx(status) {
		return fmt.Errorf("sign-up rejected: unexpected status %d: %s", status, truncate(body))
	}

	if opts != nil && opts.SignInAfter {
		if _, err := c.SignIn(ctx, credentials, nil); err != nil {
			return fmt.Errorf("sign-in after sign-up: %w", err)
		}
	}
	return nil
}

// =============================================================================
// GET SESSION
// =============================================================================

// GetSession revalidates the session with the backend and returns the
// current payload, or nil when unauthenticated.
//
//   - The authentication header is attached only when an unexpired token
//     record exists (an expired record is cleared before the call).
//   - 401/403 clears local state and returns (nil, nil): logged out, not
//     an error.
//   - Any other failure returns a SessionFetchError and leaves existing
//     state untouched, so a network blip cannot log the user out.
//   - A 2xx response replaces the payload wholesale.
//
// Every outcome — apply and clear alike — is guarded by the generation
// captured before the request: if the session changed while the request
// was in flight, the result is discarded, whichever way it points.
func (c *Client) GetSession(ctx context.Context) (json.RawMessage, error) {
	snap := c.store.Snapshot()
	gen := snap.Generation

	ep := c.endpoint(opGetSession)
	status, body, err := c.do(ctx, ep, nil, snap.Record)
	if err != nil {
		return nil, &types.SessionFetchError{Err: err}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if c.store.ClearIfCurrent(gen) {
			log.Debug().Int("status", status).Msg("client: session rejected by backend")
		}
		return nil, nil

	case !is2xx(status):
		return nil, &types.SessionFetchError{StatusCode: status}
	}

	payload := normalizePayload(body)
	if payload == nil {
		// Backend says no session. This is an authoritative sign-out,
		// not a transient failure, but it speaks for the session the
		// request was made under.
		c.store.ClearIfCurrent(gen)
		return nil, nil
	}

	if !c.store.ApplyPayload(gen, payload) {
		return nil, nil
	}
	return payload, nil
}

// normalizePayload maps empty and null bodies to "no session".
func normalizePayload(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.RawMessage(trimmed)
}

// =============================================================================
// ENDPOINT RESOLUTION
// =============================================================================

type operation int

const (
	opSignIn operation = iota
	opSignOut
	opSignUp
	opGetSession
	opCSRF
)

// authjs endpoint set is fixed by the protocol; only the base varies.
var authJSEndpoints = map[operation]types.EndpointDescriptor{
	opSignOut:    {Path: "/signout", Method: http.MethodPost},
	opSignUp:     {Path: "/signup", Method: http.MethodPost},
	opGetSession: {Path: "/session", Method: http.MethodGet},
	opCSRF:       {Path: "/csrf", Method: http.MethodGet},
}

func (c *Client) endpoint(op operation) resolvedEndpoint {
	var desc types.EndpointDescriptor
	if c.cfg.Provider.Kind == types.ProviderAuthJS {
		desc = authJSEndpoints[op]
	} else {
		ep := c.cfg.Provider.Endpoints
		switch op {
		case opSignIn:
			desc = ep.SignIn.Descriptor()
		case opSignOut:
			desc = ep.SignOut.Descriptor()
		case opSignUp:
			desc = ep.SignUp.Descriptor()
		case opGetSession:
			desc = ep.GetSession.Descriptor()
		}
	}
	return resolvedEndpoint{URL: desc.Resolve(c.base), Method: desc.Method}
}

func (c *Client) signInEndpoint(opts *SignInOptions) resolvedEndpoint {
	if c.cfg.Provider.Kind != types.ProviderAuthJS {
		return c.endpoint(opSignIn)
	}

	provider := opts.Provider
	if provider == "" {
		provider = c.cfg.Provider.DefaultProvider
	}
	desc := types.EndpointDescriptor{Path: "/signin/" + provider, Method: http.MethodPost}
	target := desc.Resolve(c.base)
	if opts.CallbackURL != "" {
		target += "?callbackUrl=" + url.QueryEscape(opts.CallbackURL)
	}
	return resolvedEndpoint{URL: target, Method: desc.Method}
}

type resolvedEndpoint struct {
	URL    string
	Method string
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func (c *Client) do(ctx context.Context, ep resolvedEndpoint, payload any, rec *types.TokenRecord) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, ep.URL, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	if payload != nil {
		req.Header.Set(types.HeaderContentType, "application/json")
	}
	req.Header.Set("Accept", "application/json")
	rec.Attach(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// IsSessionFetchError reports whether err is a transient session fetch
// failure that preserved local state.
func IsSessionFetchError(err error) bool {
	var sfe *types.SessionFetchError
	return errors.As(err, &sfe)
}
