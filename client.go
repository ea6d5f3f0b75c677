package rets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Defaults applied by NewClient to zero Config fields.
const (
	DefaultUserAgent             = "pior-rets/1.0"
	DefaultRETSVersion           = "RETS/1.7.2"
	DefaultMaxConcurrentRequests = 8
	DefaultFanOutConcurrency     = 4
	DefaultHTTPTimeout           = 60 * time.Second
)

// Doer sends HTTP requests. *http.Client satisfies it.
//
// The client manages the RETS session cookie itself; a Doer must not carry
// its own cookie jar.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GetAllMode selects how the GetAll* operations fetch metadata.
type GetAllMode int

const (
	// FanOut enumerates the parent entities first, then fetches each child
	// with its own request, FanOutConcurrency at a time.
	FanOut GetAllMode = iota
	// Bulk issues a single request with the "*" ID and splits the reply.
	Bulk
)

func (m GetAllMode) String() string {
	switch m {
	case FanOut:
		return "fanout"
	case Bulk:
		return "bulk"
	default:
		return fmt.Sprintf("GetAllMode(%d)", int(m))
	}
}

// Config holds configuration for a RETS client.
type Config struct {
	// LoginURL is the absolute URL of the Login transaction.
	// Required.
	LoginURL string

	Username string
	Password string

	// UserAgent is sent with every request.
	// Default: DefaultUserAgent.
	UserAgent string

	// UserAgentPassword enables the RETS-UA-Authorization header.
	// Empty disables it.
	UserAgentPassword string

	// RETSVersion is sent in the RETS-Version header.
	// Default: DefaultRETSVersion.
	RETSVersion string

	// Auth selects HTTP authentication. Default: AuthDigest.
	Auth AuthMode

	// HTTPClient sends the requests.
	// If nil, an *http.Client with a DefaultHTTPTimeout timeout is used.
	HTTPClient Doer

	// MaxConcurrentRequests bounds the requests in flight at once.
	// Default: DefaultMaxConcurrentRequests.
	MaxConcurrentRequests int32

	// FanOutConcurrency bounds the child requests a GetAll* operation runs
	// at once in FanOut mode. Default: DefaultFanOutConcurrency.
	FanOutConcurrency int

	// GetAllMode selects how GetAll* operations fetch. Default: FanOut.
	GetAllMode GetAllMode

	// NewCircuitBreaker creates the circuit breaker guarding the RETS host.
	// Called once with the login URL host.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(host string) *gobreaker.CircuitBreaker[*RawResponse]

	// Events receives the outcome of every operation.
	// If nil, the client creates its own bus (see Client.Events).
	Events *EventBus

	// Logger receives structured logs. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is a RETS metadata client bound to a single session.
//
// All methods are safe for concurrent use. Metadata operations may run
// concurrently once the session is Connected; Login and Logout are
// serialized.
type Client struct {
	loginURL          *url.URL
	username          string
	userAgent         string
	userAgentPassword string
	retsVersion       string
	fanOutConcurrency int
	getAllMode        GetAllMode

	doer    Doer
	auth    *authenticator
	slots   *slotPool
	breaker *gobreaker.CircuitBreaker[*RawResponse] // nil if not configured
	session *session
	events  *EventBus
	logger  *slog.Logger
	stats   *clientStatsCollector
	closed  atomic.Bool
}

// NewClient creates a client. No request is sent until Login.
func NewClient(config Config) (*Client, error) {
	if config.LoginURL == "" {
		return nil, fmt.Errorf("rets: login URL is required")
	}
	loginURL, err := url.Parse(config.LoginURL)
	if err != nil {
		return nil, fmt.Errorf("rets: invalid login URL: %w", err)
	}
	if !loginURL.IsAbs() || loginURL.Host == "" {
		return nil, fmt.Errorf("rets: login URL must be absolute: %s", redactURL(loginURL))
	}
	if config.MaxConcurrentRequests < 0 {
		return nil, fmt.Errorf("rets: MaxConcurrentRequests must be >= 0, got %d", config.MaxConcurrentRequests)
	}
	if config.FanOutConcurrency < 0 {
		return nil, fmt.Errorf("rets: FanOutConcurrency must be >= 0, got %d", config.FanOutConcurrency)
	}

	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.RETSVersion == "" {
		config.RETSVersion = DefaultRETSVersion
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if config.MaxConcurrentRequests == 0 {
		config.MaxConcurrentRequests = DefaultMaxConcurrentRequests
	}
	if config.FanOutConcurrency == 0 {
		config.FanOutConcurrency = DefaultFanOutConcurrency
	}
	if config.Events == nil {
		config.Events = NewEventBus()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	slots, err := newSlotPool(config.MaxConcurrentRequests)
	if err != nil {
		return nil, err
	}

	client := &Client{
		loginURL:          loginURL,
		username:          config.Username,
		userAgent:         config.UserAgent,
		userAgentPassword: config.UserAgentPassword,
		retsVersion:       config.RETSVersion,
		fanOutConcurrency: config.FanOutConcurrency,
		getAllMode:        config.GetAllMode,
		doer:              config.HTTPClient,
		auth:              newAuthenticator(config.Auth, config.Username, config.Password),
		slots:             slots,
		session:           newSession(),
		events:            config.Events,
		logger:            config.Logger.With("component", "rets", "host", loginURL.Host),
		stats:             newClientStatsCollector(),
	}
	if config.NewCircuitBreaker != nil {
		client.breaker = config.NewCircuitBreaker(loginURL.Host)
	}
	return client, nil
}

// Connect creates a client and logs in. On login failure the client is closed
// and the error returned.
func Connect(ctx context.Context, config Config) (*Client, error) {
	client, err := NewClient(config)
	if err != nil {
		return nil, err
	}
	if _, err := client.Login(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Close releases the client's resources. It does not log out; call Logout
// first to end the server session.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.slots.close()
}

// Events returns the bus the client publishes operation outcomes on.
func (c *Client) Events() *EventBus {
	return c.events
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// TransportStats returns request-slot and circuit breaker statistics.
func (c *Client) TransportStats() TransportStats {
	stats := TransportStats{
		Host:  c.loginURL.Host,
		Slots: c.slots.stats(),
	}
	if c.breaker != nil {
		stats.CircuitBreakerState = c.breaker.State()
		stats.CircuitBreakerCounts = c.breaker.Counts()
	}
	return stats
}

// redactURL formats u without userinfo or query, for logs and errors.
func redactURL(u *url.URL) string {
	r := *u
	r.User = nil
	r.RawQuery = ""
	return r.String()
}
