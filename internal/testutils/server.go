package testutils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// Paths served by Server.
const (
	LoginPath       = "/rets/login"
	GetMetadataPath = "/rets/getmetadata"
	LogoutPath      = "/rets/logout"
	SearchPath      = "/rets/search"

	SessionCookie = "RETS-Session-ID"
	Realm         = "rets@test"
	Nonce         = "dcd98b7102dd2f0e8b11d0f600bfb0c093"
)

// Response is a scripted reply. A zero Status means 200.
// Hijack makes the server drop the connection instead of replying.
type Response struct {
	Status int
	Body   string
	Delay  time.Duration
	Hijack bool
}

// Request is a request recorded by Server.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
}

// Server is a scripted RETS server.
//
// Login and logout replies default to success. Metadata replies are looked up
// by Type and ID; unscripted requests get reply code 20503. Metadata and
// logout requests without the session cookie issued at login get 20701.
type Server struct {
	*httptest.Server

	Username string
	Password string
	// Digest selects digest authentication for the login path instead of basic.
	Digest bool

	mu       sync.Mutex
	login    *Response
	logout   *Response
	metadata map[string]Response
	requests []Request
	sessions int
}

// NewServer starts a Server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		Username: "agent",
		Password: "secret",
		metadata: make(map[string]Response),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// LoginURL returns the absolute login URL.
func (s *Server) LoginURL() string {
	return s.URL + LoginPath
}

// HandleLogin scripts the login reply.
func (s *Server) HandleLogin(resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = &resp
}

// HandleLogout scripts the logout reply.
func (s *Server) HandleLogout(resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logout = &resp
}

// HandleMetadata scripts the reply to GetMetadata with the given Type and ID.
func (s *Server) HandleMetadata(typ, id string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[typ+"|"+id] = resp
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount returns the number of requests received on path.
func (s *Server) RequestCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	})
	s.mu.Unlock()

	switch r.URL.Path {
	case LoginPath:
		s.serveLogin(w, r)
	case GetMetadataPath:
		s.serveMetadata(w, r)
	case LogoutPath:
		s.serveLogout(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		if s.Digest {
			w.Header().Set("WWW-Authenticate",
				fmt.Sprintf(`Digest realm="%s", nonce="%s", qop="auth", opaque="5ccc069c403ebaf9f0171e9517f40e41"`, Realm, Nonce))
		} else {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	s.sessions++
	id := fmt.Sprintf("session-%d", s.sessions)
	resp := s.login
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/"})
	if resp == nil {
		resp = &Response{Body: LoginReply(map[string]string{
			"Login":       LoginPath,
			"GetMetadata": GetMetadataPath,
			"Logout":      LogoutPath,
			"Search":      s.URL + SearchPath,
		}, map[string]string{
			"MemberName":      "Test Agent",
			"MetadataVersion": "1.12.29",
		})}
	}
	s.write(w, r, *resp)
}

func (s *Server) serveMetadata(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(SessionCookie); err != nil {
		s.write(w, r, Response{Body: ReplyCode(20701, "Not logged in")})
		return
	}

	q := r.URL.Query()
	s.mu.Lock()
	resp, ok := s.metadata[q.Get("Type")+"|"+q.Get("ID")]
	s.mu.Unlock()
	if !ok {
		resp = Response{Body: ReplyCode(20503, "No Metadata Found")}
	}
	s.write(w, r, resp)
}

func (s *Server) serveLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := s.logout
	s.mu.Unlock()
	if resp == nil {
		resp = &Response{Body: LogoutReply("Goodbye")}
	}
	s.write(w, r, *resp)
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, resp Response) {
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if resp.Hijack {
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				conn.Close()
				return
			}
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp.Body))
}

func (s *Server) authorized(r *http.Request) bool {
	if s.Username == "" {
		return true
	}
	if !s.Digest {
		user, pass, ok := r.BasicAuth()
		return ok && user == s.Username && pass == s.Password
	}

	params, ok := ParseDigest(r.Header.Get("Authorization"))
	if !ok || params["username"] != s.Username || params["nonce"] != Nonce {
		return false
	}
	ha1 := md5hex(s.Username + ":" + Realm + ":" + s.Password)
	ha2 := md5hex(r.Method + ":" + params["uri"])
	want := md5hex(strings.Join([]string{ha1, params["nonce"], params["nc"], params["cnonce"], params["qop"], ha2}, ":"))
	return params["response"] == want
}

// ParseDigest parses a Digest Authorization header into its parameters.
func ParseDigest(header string) (map[string]string, bool) {
	rest, ok := strings.CutPrefix(header, "Digest ")
	if !ok {
		return nil, false
	}
	params := make(map[string]string)
	for _, part := range strings.Split(rest, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		params[k] = strings.Trim(v, `"`)
	}
	return params, true
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
