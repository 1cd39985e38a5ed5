package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func basePolicy() Policy {
	return Policy{
		EnabledGlobally: true,
		LoginPath:       "/login",
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		in           Input
		wantAllow    bool
		wantRedirect string
	}{
		{
			name: "page opted out always allowed",
			in: Input{
				Route:    "/public",
				Override: OverridePublic,
				Policy:   basePolicy(),
			},
			wantAllow: true,
		},
		{
			name: "page opted out allowed even with global guard and no session",
			in: Input{
				Route:         "/public",
				RouteExists:   true,
				Authenticated: false,
				Override:      OverridePublic,
				Policy:        basePolicy(),
			},
			wantAllow: true,
		},
		{
			name: "unresolved route allowed when 404s are open",
			in: Input{
				Route:       "/no/such/page",
				RouteExists: false,
				Policy: Policy{
					EnabledGlobally:     true,
					Allow404WithoutAuth: true,
					LoginPath:           "/login",
				},
			},
			wantAllow: true,
		},
		{
			name: "unresolved route denied when 404s are gated",
			in: Input{
				Route:       "/no/such/page",
				RouteExists: false,
				Policy:      basePolicy(),
			},
			wantAllow:    false,
			wantRedirect: "/login",
		},
		{
			name: "global guard disabled allows without override",
			in: Input{
				Route:       "/dashboard",
				RouteExists: true,
				Policy: Policy{
					EnabledGlobally: false,
					LoginPath:       "/login",
				},
			},
			wantAllow: true,
		},
		{
			name: "page override required gates even with global guard disabled",
			in: Input{
				Route:       "/dashboard",
				RouteExists: true,
				Override:    OverrideRequired,
				Policy: Policy{
					EnabledGlobally: false,
					AddCallback:     true,
					LoginPath:       "/login",
				},
			},
			wantAllow:    false,
			wantRedirect: "/login?redirect=%2Fdashboard",
		},
		{
			name: "authenticated passes",
			in: Input{
				Route:         "/dashboard",
				RouteExists:   true,
				Authenticated: true,
				Policy:        basePolicy(),
			},
			wantAllow: true,
		},
		{
			name: "unauthenticated denied with callback",
			in: Input{
				Route:       "/reports/q3",
				RouteExists: true,
				Policy: Policy{
					EnabledGlobally: true,
					AddCallback:     true,
					LoginPath:       "/login",
				},
			},
			wantAllow:    false,
			wantRedirect: "/login?redirect=%2Freports%2Fq3",
		},
		{
			name: "literal callback value wins over route path",
			in: Input{
				Route:       "/reports/q3",
				RouteExists: true,
				Policy: Policy{
					EnabledGlobally: true,
					AddCallback:     true,
					CallbackValue:   "/home",
					LoginPath:       "/login",
				},
			},
			wantAllow:    false,
			wantRedirect: "/login?redirect=%2Fhome",
		},
		{
			name: "denied without callback when not configured",
			in: Input{
				Route:       "/reports/q3",
				RouteExists: true,
				Policy:      basePolicy(),
			},
			wantAllow:    false,
			wantRedirect: "/login",
		},
		{
			name: "default provider redirects straight to its sign-in flow",
			in: Input{
				Route:       "/dashboard",
				RouteExists: true,
				Policy: Policy{
					EnabledGlobally: true,
					AddCallback:     true,
					LoginPath:       "/login",
					DefaultProvider: "github",
					SignInBase:      "https://auth.example.com/api/auth",
				},
			},
			wantAllow:    false,
			wantRedirect: "https://auth.example.com/api/auth/signin/github?redirect=%2Fdashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.in)
			assert.Equal(t, tt.wantAllow, d.Allow)
			assert.Equal(t, tt.wantRedirect, d.RedirectTo)
		})
	}
}

func TestRoutesResolve(t *testing.T) {
	routes := NewRoutes()
	routes.Register("/")
	routes.Register("/dashboard")
	routes.SetAuth("/settings", true)
	routes.SetAuth("/about", false)
	routes.SetOverride("/admin/*", OverrideRequired)
	routes.SetOverride("/admin/public/*", OverridePublic)

	tests := []struct {
		path       string
		wantExists bool
		wantOv     Override
	}{
		{"/", true, OverrideNone},
		{"/dashboard", true, OverrideNone},
		{"/dashboard/", true, OverrideNone},
		{"/settings", true, OverrideRequired},
		{"/about", true, OverridePublic},
		{"/admin/users", true, OverrideRequired},
		{"/admin/public/docs", true, OverridePublic},
		{"/missing", false, OverrideNone},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			exists, ov := routes.Resolve(tt.path)
			assert.Equal(t, tt.wantExists, exists)
			assert.Equal(t, tt.wantOv, ov)
		})
	}
}
