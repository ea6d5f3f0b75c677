package rets

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// AuthMode selects how credentials are sent to the server.
type AuthMode int

const (
	// AuthDigest answers the server's Digest challenge (RFC 2617, MD5).
	// The first request of a session costs one extra 401 round-trip.
	AuthDigest AuthMode = iota
	// AuthBasic sends credentials preemptively with every request.
	AuthBasic
)

func (m AuthMode) String() string {
	switch m {
	case AuthDigest:
		return "digest"
	case AuthBasic:
		return "basic"
	default:
		return fmt.Sprintf("AuthMode(%d)", int(m))
	}
}

// digestChallenge is a parsed WWW-Authenticate: Digest header.
type digestChallenge struct {
	realm     string
	nonce     string
	opaque    string
	algorithm string
	qop       string // "auth" or empty
	stale     bool
}

// authenticator signs requests for one client. The digest challenge is shared
// by every request of the client and refreshed when the server issues a new
// one.
type authenticator struct {
	mode     AuthMode
	username string
	password string

	mu        sync.Mutex
	challenge *digestChallenge
	nc        uint32
}

func newAuthenticator(mode AuthMode, username, password string) *authenticator {
	return &authenticator{mode: mode, username: username, password: password}
}

// authorize sets the Authorization header on req, if credentials apply.
func (a *authenticator) authorize(req *http.Request) {
	if a.username == "" {
		return
	}
	if a.mode == AuthBasic {
		req.SetBasicAuth(a.username, a.password)
		return
	}

	a.mu.Lock()
	ch := a.challenge
	a.nc++
	nc := a.nc
	a.mu.Unlock()

	if ch != nil {
		req.Header.Set("Authorization", ch.authorization(a.username, a.password, req.Method, req.URL.RequestURI(), nc, uuid.NewString()))
	}
}

// challenged records the challenge of a 401 response and reports whether the
// request should be retried with it. A challenge for the nonce that was just
// rejected means the credentials are wrong; it is retried only when marked
// stale.
func (a *authenticator) challenged(resp *http.Response, sentAuthorization bool) bool {
	if a.mode != AuthDigest || a.username == "" {
		return false
	}

	ch, ok := parseDigestChallenge(resp.Header.Values("WWW-Authenticate"))
	if !ok {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	retry := !sentAuthorization || ch.stale || a.challenge == nil || a.challenge.nonce != ch.nonce
	a.challenge = ch
	a.nc = 0
	return retry
}

// reset forgets the cached challenge, at logout.
func (a *authenticator) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.challenge = nil
	a.nc = 0
}

func (c *digestChallenge) authorization(username, password, method, uri string, nc uint32, cnonce string) string {
	ha1 := md5Hex(username + ":" + c.realm + ":" + password)
	if strings.EqualFold(c.algorithm, "MD5-sess") {
		ha1 = md5Hex(ha1 + ":" + c.nonce + ":" + cnonce)
	}
	ha2 := md5Hex(method + ":" + uri)

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username="%s", realm="%s", nonce="%s", uri="%s"`, username, c.realm, c.nonce, uri)

	if c.qop != "" {
		ncValue := fmt.Sprintf("%08x", nc)
		response := md5Hex(strings.Join([]string{ha1, c.nonce, ncValue, cnonce, c.qop, ha2}, ":"))
		fmt.Fprintf(&b, `, qop=%s, nc=%s, cnonce="%s", response="%s"`, c.qop, ncValue, cnonce, response)
	} else {
		fmt.Fprintf(&b, `, response="%s"`, md5Hex(ha1+":"+c.nonce+":"+ha2))
	}
	if c.opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, c.opaque)
	}
	if c.algorithm != "" {
		fmt.Fprintf(&b, `, algorithm=%s`, c.algorithm)
	}
	return b.String()
}

// parseDigestChallenge finds the Digest challenge among WWW-Authenticate
// header values.
func parseDigestChallenge(values []string) (*digestChallenge, bool) {
	for _, v := range values {
		rest, ok := cutPrefixFold(strings.TrimSpace(v), "Digest ")
		if !ok {
			continue
		}
		params := parseAuthParams(rest)
		ch := &digestChallenge{
			realm:     params["realm"],
			nonce:     params["nonce"],
			opaque:    params["opaque"],
			algorithm: params["algorithm"],
			stale:     strings.EqualFold(params["stale"], "true"),
		}
		for _, q := range strings.Split(params["qop"], ",") {
			if strings.TrimSpace(q) == "auth" {
				ch.qop = "auth"
			}
		}
		if ch.nonce == "" {
			continue
		}
		return ch, true
	}
	return nil, false
}

// parseAuthParams parses comma-separated key=value pairs where values may be
// quoted strings containing commas.
func parseAuthParams(s string) map[string]string {
	params := make(map[string]string)
	for s != "" {
		s = strings.TrimLeft(s, " ,\t")
		key, rest, found := strings.Cut(s, "=")
		if !found {
			break
		}
		key = strings.ToLower(strings.TrimSpace(key))

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				value, rest = rest[1:], ""
			} else {
				value, rest = rest[1:end+1], rest[end+2:]
			}
		} else {
			value, rest, _ = strings.Cut(rest, ",")
			value = strings.TrimSpace(value)
		}
		params[key] = value
		s = rest
	}
	return params
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// uaAuthorization computes the RETS-UA-Authorization header value:
// MD5(MD5(UserAgent:Password):RequestID:SessionID:Version).
func uaAuthorization(userAgent, password, requestID, sessionID, version string) string {
	a1 := md5Hex(userAgent + ":" + password)
	return "Digest " + md5Hex(a1+":"+requestID+":"+sessionID+":"+version)
}
