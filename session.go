package rets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/pior/rets/metadata"
)

// State is the session state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateLoggingOut
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateLoggingOut:
		return "logging out"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// SessionCookie is the cookie RETS servers use to carry the session.
const SessionCookie = "RETS-Session-ID"

// LoginInfo is the result of a successful login.
type LoginInfo struct {
	// Text is the server's ReplyText.
	Text string
	// Capabilities maps capability names to absolute URLs.
	Capabilities map[string]string
	// Info holds the other key=value pairs of the login reply
	// (MemberName, User, Broker, MetadataVersion, ...).
	Info       map[string]string
	LoggedInAt time.Time
}

// LogoutResult is the server's answer to a logout.
type LogoutResult struct {
	Text string
	// Info holds ConnectTime, Billing, SignOffMessage when the server sent
	// them. Empty for a local-only logout.
	Info map[string]string
	// Local is set when the server advertised no Logout capability and only
	// the local session was torn down.
	Local bool
}

// session holds the mutable state of the login/logout state machine.
// Only Login and Logout write it, under transition; metadata operations read
// a snapshot.
type session struct {
	transition sync.Mutex

	mu           sync.RWMutex
	state        State
	jar          http.CookieJar
	capabilities map[string]*url.URL
	info         *LoginInfo
}

// sessionView is a read-only snapshot of the session.
type sessionView struct {
	state        State
	jar          http.CookieJar
	capabilities map[string]*url.URL
	info         *LoginInfo
}

func newSession() *session {
	return &session{state: StateDisconnected}
}

func (s *session) view() sessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sessionView{state: s.state, jar: s.jar, capabilities: s.capabilities, info: s.info}
}

func (s *session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *session) connect(jar http.CookieJar, capabilities map[string]*url.URL, info *LoginInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateConnected
	s.jar = jar
	s.capabilities = capabilities
	s.info = info
}

// beginLogout moves to LoggingOut and drops the session data in one step.
// The caller keeps its own snapshot for the logout round-trip.
func (s *session) beginLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateLoggingOut
	s.jar = nil
	s.capabilities = nil
	s.info = nil
}

func (s *session) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
	s.jar = nil
	s.capabilities = nil
	s.info = nil
}

// State returns the current session state.
func (c *Client) State() State {
	return c.session.view().state
}

// Capabilities returns the capability URLs advertised at login, resolved to
// absolute URLs. Empty unless Connected.
func (c *Client) Capabilities() map[string]string {
	v := c.session.view()
	if v.info == nil {
		return map[string]string{}
	}
	caps := make(map[string]string, len(v.info.Capabilities))
	for k, u := range v.info.Capabilities {
		caps[k] = u
	}
	return caps
}

// LoginInfo returns the result of the current session's login, or nil when
// not Connected.
func (c *Client) LoginInfo() *LoginInfo {
	return c.session.view().info
}

// Login runs the Login transaction and establishes the session.
//
// Calling Login while Connected re-runs the transaction on the existing
// session cookies and replaces the capability URLs; if that fails the
// existing session is left as it was.
//
// Errors: *AuthenticationError when the server rejects the credentials,
// *TransportError, or *metadata.ProtocolError when the reply has no usable
// capability list.
func (c *Client) Login(ctx context.Context) (*LoginInfo, error) {
	info, err := c.login(ctx)
	c.stats.recordLogin(err)
	c.publish(KindConnection, info, err)
	return info, err
}

func (c *Client) login(ctx context.Context) (*LoginInfo, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	c.session.transition.Lock()
	defer c.session.transition.Unlock()

	prev := c.session.view()
	relogin := prev.state == StateConnected

	jar := prev.jar
	if !relogin {
		jar, _ = cookiejar.New(nil)
		c.session.setState(StateConnecting)
	}

	c.logger.Info("logging in", "url", redactURL(c.loginURL), "user", c.username, "relogin", relogin)

	info, caps, err := c.runLogin(ctx, jar)
	if err != nil {
		if !relogin {
			c.session.disconnect()
			c.auth.reset()
		}
		c.logger.Warn("login failed", "error", err)
		return nil, err
	}

	c.session.connect(jar, caps, info)
	c.logger.Info("logged in", "member", info.Info["MemberName"], "capabilities", len(caps))
	return info, nil
}

func (c *Client) runLogin(ctx context.Context, jar http.CookieJar) (*LoginInfo, map[string]*url.URL, error) {
	resp, err := c.exchange(ctx, opLogin, c.loginURL, jar)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode == http.StatusUnauthorized {
			return nil, nil, &AuthenticationError{Text: "unauthorized", Err: err}
		}
		return nil, nil, err
	}

	reply, err := metadata.ParseLogin(resp.Body)
	if err != nil {
		var rce *metadata.ReplyCodeError
		if errors.As(err, &rce) {
			return nil, nil, &AuthenticationError{Code: rce.Code, Text: rce.Text, Err: err}
		}
		return nil, nil, err
	}

	caps := make(map[string]*url.URL, len(reply.Capabilities))
	resolved := make(map[string]string, len(reply.Capabilities))
	for name, raw := range reply.Capabilities {
		ref, err := url.Parse(raw)
		if err != nil {
			return nil, nil, &metadata.ProtocolError{Message: "invalid " + name + " capability URL", Err: err}
		}
		u := c.loginURL.ResolveReference(ref)
		caps[name] = u
		resolved[name] = u.String()
	}

	info := &LoginInfo{
		Text:         reply.Text,
		Capabilities: resolved,
		Info:         reply.Info,
		LoggedInAt:   time.Now(),
	}
	return info, caps, nil
}

// Logout ends the session.
//
// The session always ends Disconnected, even when the server round-trip
// fails; the failure is still returned. Logout on a session that is not
// Connected does nothing and returns (nil, nil). When the server advertised
// no Logout capability only the local session is torn down.
//
// The logout event is published on the success topic in every case, with
// the round-trip error, if any, in Event.Err.
func (c *Client) Logout(ctx context.Context) (*LogoutResult, error) {
	result, err := c.logout(ctx)
	if result != nil || err != nil {
		c.stats.recordLogout()
	}
	c.events.Publish(Event{Topic: SuccessTopic(KindLogout), Kind: KindLogout, Data: result, Err: err})
	return result, err
}

func (c *Client) logout(ctx context.Context) (*LogoutResult, error) {
	c.session.transition.Lock()
	defer c.session.transition.Unlock()

	v := c.session.view()
	if v.state != StateConnected {
		return nil, nil
	}

	c.session.beginLogout()
	defer func() {
		c.session.disconnect()
		c.auth.reset()
	}()

	logoutURL, ok := v.capabilities[metadata.CapabilityLogout]
	if !ok {
		c.logger.Info("logged out locally, server has no Logout capability")
		return &LogoutResult{Local: true, Info: map[string]string{}}, nil
	}

	resp, err := c.exchange(ctx, opLogout, logoutURL, v.jar)
	if err != nil {
		c.logger.Warn("logout failed, session discarded", "error", err)
		return nil, err
	}

	reply, err := metadata.ParseLogout(resp.Body)
	if err != nil {
		c.logger.Warn("logout reply rejected, session discarded", "error", err)
		if reply != nil {
			return &LogoutResult{Text: reply.Text, Info: reply.Info}, err
		}
		return nil, err
	}

	c.logger.Info("logged out", "reply", reply.Text)
	return &LogoutResult{Text: reply.Text, Info: reply.Info}, nil
}

// connected returns the session snapshot of a Connected session, or a
// *NotConnectedError.
func (c *Client) connected() (sessionView, error) {
	if c.closed.Load() {
		return sessionView{}, ErrClientClosed
	}
	v := c.session.view()
	if v.state != StateConnected {
		return sessionView{}, &NotConnectedError{State: v.state}
	}
	return v, nil
}
