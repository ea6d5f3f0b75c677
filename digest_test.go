package rets

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/rets/internal/testutils"
)

func TestDigestChallenge_Authorization(t *testing.T) {
	// RFC 2617 section 3.5.
	ch := &digestChallenge{
		realm:  "testrealm@host.com",
		nonce:  "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		opaque: "5ccc069c403ebaf9f0171e9517f40e41",
		qop:    "auth",
	}

	header := ch.authorization("Mufasa", "Circle Of Life", "GET", "/dir/index.html", 1, "0a4f113b")

	params, ok := testutils.ParseDigest(header)
	require.True(t, ok)
	assert.Equal(t, "6629fae49393a05397450978507c4ef1", params["response"])
	assert.Equal(t, "00000001", params["nc"])
	assert.Equal(t, "0a4f113b", params["cnonce"])
	assert.Equal(t, "5ccc069c403ebaf9f0171e9517f40e41", params["opaque"])
}

func TestDigestChallenge_NoQop(t *testing.T) {
	ch := &digestChallenge{realm: "r", nonce: "n"}

	params, ok := testutils.ParseDigest(ch.authorization("u", "p", "GET", "/x", 1, "c"))
	require.True(t, ok)

	want := md5Hex(md5Hex("u:r:p") + ":n:" + md5Hex("GET:/x"))
	assert.Equal(t, want, params["response"])
	assert.NotContains(t, params, "qop")
}

func TestParseDigestChallenge(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   *digestChallenge
	}{
		{
			name:   "quoted comma",
			values: []string{`Digest realm="rets, inc", nonce="abc", qop="auth,auth-int", opaque="xyz"`},
			want:   &digestChallenge{realm: "rets, inc", nonce: "abc", qop: "auth", opaque: "xyz"},
		},
		{
			name:   "after basic",
			values: []string{`Basic realm="x"`, `digest realm="y", nonce="n2", algorithm=MD5, stale=TRUE`},
			want:   &digestChallenge{realm: "y", nonce: "n2", algorithm: "MD5", stale: true},
		},
		{
			name:   "auth-int only",
			values: []string{`Digest realm="y", nonce="n3", qop="auth-int"`},
			want:   &digestChallenge{realm: "y", nonce: "n3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDigestChallenge(tt.values)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := parseDigestChallenge([]string{`Basic realm="x"`})
	assert.False(t, ok)
	_, ok = parseDigestChallenge([]string{`Digest realm="x"`})
	assert.False(t, ok, "a challenge without nonce is unusable")
}

func TestAuthenticator_Challenged(t *testing.T) {
	challenge := func(nonce string, stale bool) *http.Response {
		rec := httptest.NewRecorder()
		value := `Digest realm="r", nonce="` + nonce + `", qop="auth"`
		if stale {
			value += `, stale=true`
		}
		rec.Header().Set("WWW-Authenticate", value)
		rec.WriteHeader(http.StatusUnauthorized)
		return rec.Result()
	}

	a := newAuthenticator(AuthDigest, "u", "p")

	assert.True(t, a.challenged(challenge("n1", false), false), "first challenge")
	assert.False(t, a.challenged(challenge("n1", false), true), "same nonce rejected: bad credentials")
	assert.True(t, a.challenged(challenge("n1", true), true), "stale nonce")
	assert.True(t, a.challenged(challenge("n2", false), true), "new nonce")

	basic := newAuthenticator(AuthBasic, "u", "p")
	assert.False(t, basic.challenged(challenge("n1", false), false))
}

func TestAuthenticator_Authorize(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://rets.example.com/rets/login", nil)

	a := newAuthenticator(AuthDigest, "u", "p")
	a.authorize(req)
	assert.Empty(t, req.Header.Get("Authorization"), "no challenge yet")

	a.challenge = &digestChallenge{realm: "r", nonce: "n", qop: "auth"}
	a.authorize(req)
	params, ok := testutils.ParseDigest(req.Header.Get("Authorization"))
	require.True(t, ok)
	assert.Equal(t, "/rets/login", params["uri"])
	assert.Equal(t, "00000002", params["nc"])

	req = httptest.NewRequest(http.MethodGet, "http://rets.example.com/rets/login", nil)
	newAuthenticator(AuthBasic, "u", "p").authorize(req)
	user, pass, ok := req.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)

	req = httptest.NewRequest(http.MethodGet, "http://rets.example.com/rets/login", nil)
	newAuthenticator(AuthBasic, "", "").authorize(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestUAAuthorization(t *testing.T) {
	got := uaAuthorization("MyAgent/1.0", "secret", "req-1", "sess-1", "RETS/1.7.2")

	a1 := md5Hex("MyAgent/1.0:secret")
	assert.Equal(t, "Digest "+md5Hex(a1+":req-1:sess-1:RETS/1.7.2"), got)
}
