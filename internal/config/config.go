// Package config loads and validates the gateway configuration.
//
// The configuration is read once at startup from a YAML file, resolved
// against environment overrides, and is immutable afterwards. Every
// optional field has a documented default applied during Load.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/authbridge/session-gateway/internal/auth/types"
)

// EnvAuthOrigin overrides the origin component of the configured base URL
// at runtime. It takes precedence over base_url for the authjs provider.
const EnvAuthOrigin = "AUTH_ORIGIN"

// Config is the top-level gateway configuration.
type Config struct {
	// BaseURL is the authentication endpoint root (origin + path).
	// The authjs provider requires a fully qualified URL in server mode;
	// the local provider accepts a path-only value.
	BaseURL string `yaml:"base_url"`

	Provider   ProviderConfig   `yaml:"provider"`
	Session    SessionConfig    `yaml:"session"`
	Middleware MiddlewareConfig `yaml:"middleware"`
	Server     ServerConfig     `yaml:"server"`

	// Pages maps route patterns to per-page auth overrides. true forces
	// authentication even when the global middleware is disabled; false
	// exempts the page even when it is enabled.
	Pages map[string]bool `yaml:"pages"`

	// Routes lists the application's known route patterns, used by the
	// guard to distinguish real pages from 404s. Patterns in Pages are
	// implicitly known.
	Routes []string `yaml:"routes"`

	// SlotPath is the SQLite file backing the persisted session slot.
	// Empty keeps the session in memory only.
	SlotPath string `yaml:"slot_path"`

	// ServerMode indicates the gateway renders on behalf of clients
	// (the equivalent of SSR). The authjs provider cannot run in server
	// mode without a resolvable origin.
	ServerMode bool `yaml:"server_mode"`
}

// ProviderConfig selects and configures the authentication provider.
type ProviderConfig struct {
	Kind types.ProviderKind `yaml:"kind"`

	// Endpoints configures the local provider's backend operations.
	// Ignored by the authjs provider, which uses a fixed endpoint set.
	Endpoints EndpointsConfig `yaml:"endpoints"`

	// Token configures extraction and transmission of the credential
	// returned by the local provider's sign-in endpoint.
	Token TokenConfig `yaml:"token"`

	// DefaultProvider, for authjs, redirects denied navigations straight
	// to this identity provider's sign-in flow instead of the login page.
	DefaultProvider string `yaml:"default_provider"`
}

// EndpointsConfig holds one endpoint descriptor per backend operation.
type EndpointsConfig struct {
	SignIn     EndpointConfig `yaml:"sign_in"`
	SignOut    EndpointConfig `yaml:"sign_out"`
	SignUp     EndpointConfig `yaml:"sign_up"`
	GetSession EndpointConfig `yaml:"get_session"`
}

// EndpointConfig is the YAML form of a single endpoint descriptor.
type EndpointConfig struct {
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
}

// Descriptor converts the YAML form into the runtime descriptor.
func (e EndpointConfig) Descriptor() types.EndpointDescriptor {
	return types.EndpointDescriptor{Path: e.Path, Method: strings.ToUpper(e.Method)}
}

// TokenConfig configures credential extraction from sign-in responses.
type TokenConfig struct {
	// Pointer is a structured pointer path ("/token", "/data/jwt", "/")
	// evaluated against the sign-in response body.
	Pointer string `yaml:"pointer"`

	// HeaderType and HeaderName define the authentication header:
	// "<HeaderName>: <HeaderType> <token>".
	HeaderType string `yaml:"header_type"`
	HeaderName string `yaml:"header_name"`

	// MaxAgeSeconds bounds the token's local validity. Zero or negative
	// means the token never expires on its own.
	MaxAgeSeconds int `yaml:"max_age_seconds"`
}

// SessionConfig configures session refresh behavior.
type SessionConfig struct {
	// RefreshPeriodically enables timer-driven refresh. Accepts a bool
	// (true = 1000ms) or an interval in milliseconds.
	RefreshPeriodically BoolOrMillis `yaml:"refresh_periodically"`

	// RefreshOnWindowFocus triggers a refresh whenever the embedding
	// frontend reports a window-focus event.
	RefreshOnWindowFocus bool `yaml:"refresh_on_window_focus"`
}

// MiddlewareConfig configures the global route guard.
type MiddlewareConfig struct {
	// Enabled turns the guard on for every route that has no page-level
	// override.
	Enabled bool `yaml:"enabled"`

	// Allow404WithoutAuth lets unresolved routes through so the 404 page
	// can render without a session.
	Allow404WithoutAuth bool `yaml:"allow_404_without_auth"`

	// AddDefaultCallbackURL appends a callback query parameter to the
	// login redirect. true uses the blocked route's path; a string value
	// is used literally.
	AddDefaultCallbackURL BoolOrString `yaml:"add_default_callback_url"`

	// LoginPath is the app-local login page unauthenticated navigations
	// are redirected to.
	LoginPath string `yaml:"login_path"`
}

// ServerConfig configures the gateway's HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port"`

	// Upstream is the application origin the gateway fronts. Guarded
	// navigations that pass are reverse-proxied here. Empty serves a
	// placeholder page instead, which is enough for local development.
	Upstream string `yaml:"upstream"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv resolves ${VAR} references against the process environment.
// Unset variables expand to the empty string.
func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		return os.Getenv(name)
	})
}

// Load reads, defaults, and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a fully populated configuration without reading a file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Provider.Kind == "" {
		c.Provider.Kind = types.ProviderLocal
	}

	ep := &c.Provider.Endpoints
	applyEndpointDefault(&ep.SignIn, DefaultSignInPath, DefaultSignInMethod)
	applyEndpointDefault(&ep.SignOut, DefaultSignOutPath, DefaultSignOutMethod)
	applyEndpointDefault(&ep.SignUp, DefaultSignUpPath, DefaultSignUpMethod)
	applyEndpointDefault(&ep.GetSession, DefaultGetSessionPath, DefaultGetSessionMethod)

	tok := &c.Provider.Token
	if tok.Pointer == "" {
		tok.Pointer = DefaultTokenPointer
	}
	if tok.HeaderType == "" {
		tok.HeaderType = types.DefaultHeaderType
	}
	if tok.HeaderName == "" {
		tok.HeaderName = types.HeaderAuthorization
	}

	if c.Middleware.LoginPath == "" {
		c.Middleware.LoginPath = DefaultLoginPath
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}

	c.BaseURL = expandEnv(c.BaseURL)
}

func applyEndpointDefault(e *EndpointConfig, path, method string) {
	if e.Path == "" {
		e.Path = path
	}
	if e.Method == "" {
		e.Method = method
	} else {
		e.Method = strings.ToUpper(e.Method)
	}
}

// ResolveBaseURL returns the effective authentication endpoint root.
// For the authjs provider the AUTH_ORIGIN environment variable takes
// precedence over the configured value.
func (c *Config) ResolveBaseURL() string {
	if c.Provider.Kind == types.ProviderAuthJS {
		if origin := strings.TrimSpace(os.Getenv(EnvAuthOrigin)); origin != "" {
			return strings.TrimRight(origin, "/") + DefaultAuthJSBasePath
		}
	}
	return c.BaseURL
}

func (c *Config) validate() error {
	if _, err := types.ParseProviderKind(string(c.Provider.Kind)); err != nil {
		return &Error{Field: "provider.kind", Reason: err.Error()}
	}

	base := c.ResolveBaseURL()

	if c.Provider.Kind == types.ProviderAuthJS {
		// Server mode cannot fall back to a request-derived origin, so an
		// unresolved origin is fatal here rather than at first use.
		if c.ServerMode && !hasOrigin(base) {
			return &Error{
				Field:  "base_url",
				Reason: "authjs provider in server mode requires a fully qualified origin (set base_url or " + EnvAuthOrigin + ")",
			}
		}
	}

	if base != "" && hasOrigin(base) {
		if _, err := url.Parse(base); err != nil {
			return &Error{Field: "base_url", Reason: fmt.Sprintf("invalid URL: %v", err)}
		}
	}

	if ms := c.Session.RefreshPeriodically.Millis(); ms < 0 {
		return &Error{Field: "session.refresh_periodically", Reason: "interval must not be negative"}
	}

	return nil
}

// hasOrigin reports whether s carries a scheme+host origin component.
func hasOrigin(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Error is a fatal configuration error detected at load time.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}
