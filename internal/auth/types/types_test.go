package types

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEndpointResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"plain join", "http://api.local/auth", "/login", "http://api.local/auth/login"},
		{"trailing slash on base", "http://api.local/auth/", "/login", "http://api.local/auth/login"},
		{"missing slash on path", "http://api.local/auth", "login", "http://api.local/auth/login"},
		{"both slashes", "http://api.local/auth/", "login", "http://api.local/auth/login"},
		{"path-only base", "/api/auth", "/session", "/api/auth/session"},
		{"empty path", "http://api.local/auth", "", "http://api.local/auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := EndpointDescriptor{Path: tt.path, Method: http.MethodPost}
			assert.Equal(t, tt.want, e.Resolve(tt.base))
		})
	}
}

func TestTokenRecordExpired(t *testing.T) {
	now := time.Now()

	var nilRec *TokenRecord
	assert.True(t, nilRec.Expired(now))

	never := &TokenRecord{Raw: "t"}
	assert.False(t, never.Expired(now.Add(1000*time.Hour)))

	past := &TokenRecord{Raw: "t", ExpiresAt: now.Add(-time.Second)}
	assert.True(t, past.Expired(now))

	future := &TokenRecord{Raw: "t", ExpiresAt: now.Add(time.Second)}
	assert.False(t, future.Expired(now))

	exact := &TokenRecord{Raw: "t", ExpiresAt: now}
	assert.True(t, exact.Expired(now), "expiry instant itself is invalid")
}

func TestTokenRecordAttach(t *testing.T) {
	h := http.Header{}

	rec := &TokenRecord{Raw: "tok", HeaderType: "Bearer", HeaderName: "Authorization"}
	rec.Attach(h)
	assert.Equal(t, "Bearer tok", h.Get("Authorization"))

	h = http.Header{}
	custom := &TokenRecord{Raw: "tok", HeaderType: "Token", HeaderName: "X-Auth"}
	custom.Attach(h)
	assert.Equal(t, "Token tok", h.Get("X-Auth"))

	h = http.Header{}
	var nilRec *TokenRecord
	nilRec.Attach(h)
	assert.Empty(t, h)

	h = http.Header{}
	bare := &TokenRecord{Raw: "tok"}
	bare.Attach(h)
	assert.Equal(t, "tok", h.Get("Authorization"), "empty header type sends the bare token")
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "sk-abc", BearerToken("Bearer sk-abc"))
	assert.Equal(t, "sk-abc", BearerToken("sk-abc"))
	assert.Equal(t, "sk-abc", BearerToken("  Bearer sk-abc  "))
	assert.Empty(t, BearerToken(""))
}

func TestParseProviderKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderKind
		wantErr bool
	}{
		{"authjs", ProviderAuthJS, false},
		{"oauth", ProviderAuthJS, false},
		{"local", ProviderLocal, false},
		{"credentials", ProviderLocal, false},
		{"", ProviderLocal, false},
		{"LOCAL", ProviderLocal, false},
		{"saml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseProviderKind(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
