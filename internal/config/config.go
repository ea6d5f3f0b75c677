// Package config loads the rets-metadata configuration file.
//
// The file is YAML. Environment variables are expanded before parsing
// (${VAR} or $VAR), so the password can stay out of the file:
//
//	server:
//	  loginURL: https://rets.example.com/rets/login
//	  username: agent
//	  password: ${RETS_PASSWORD}
//	  auth: digest
//
//	client:
//	  maxConcurrentRequests: 8
//	  fanOutConcurrency: 4
//	  getAllMode: fanout
//	  circuitBreaker:
//	    enabled: true
//
//	log:
//	  level: info
//
// See [Load] for loading configuration from a file.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pior/rets"
	"github.com/pior/rets/internal/logging"
)

// Config is the root configuration structure
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig identifies the RETS server and the account used on it
type ServerConfig struct {
	LoginURL string `yaml:"loginURL"`
	Username string `yaml:"username"`
	// Password may be left empty; the CLI then looks in the OS keychain.
	Password          string        `yaml:"password"`
	UserAgent         string        `yaml:"userAgent"`
	UserAgentPassword string        `yaml:"userAgentPassword"`
	RETSVersion       string        `yaml:"retsVersion"`
	Auth              string        `yaml:"auth"` // digest or basic
	Timeout           time.Duration `yaml:"timeout"`
}

// ClientConfig holds request scheduling settings
type ClientConfig struct {
	MaxConcurrentRequests int32                `yaml:"maxConcurrentRequests"`
	FanOutConcurrency     int                  `yaml:"fanOutConcurrency"`
	GetAllMode            string               `yaml:"getAllMode"` // fanout or bulk
	CircuitBreaker        CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// CircuitBreakerConfig holds the settings passed to rets.NewCircuitBreakerConfig
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRequests uint32        `yaml:"maxRequests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, completes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and no server.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Auth == "" {
		c.Server.Auth = rets.AuthDigest.String()
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = rets.DefaultHTTPTimeout
	}
	if c.Client.MaxConcurrentRequests == 0 {
		c.Client.MaxConcurrentRequests = rets.DefaultMaxConcurrentRequests
	}
	if c.Client.FanOutConcurrency == 0 {
		c.Client.FanOutConcurrency = rets.DefaultFanOutConcurrency
	}
	if c.Client.GetAllMode == "" {
		c.Client.GetAllMode = rets.FanOut.String()
	}
	if c.Client.CircuitBreaker.MaxRequests == 0 {
		c.Client.CircuitBreaker.MaxRequests = 1
	}
	if c.Client.CircuitBreaker.Interval == 0 {
		c.Client.CircuitBreaker.Interval = time.Minute
	}
	if c.Client.CircuitBreaker.Timeout == 0 {
		c.Client.CircuitBreaker.Timeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration. A missing login URL is accepted here;
// commands that talk to a server check it through rets.NewClient.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.LoginURL != "" {
		u, err := url.Parse(c.Server.LoginURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.loginURL must be an absolute URL: %q", c.Server.LoginURL))
		}
	}
	if _, err := parseAuth(c.Server.Auth); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}
	if c.Client.MaxConcurrentRequests < 0 {
		errs = append(errs, errors.New("client.maxConcurrentRequests must not be negative"))
	}
	if c.Client.FanOutConcurrency < 0 {
		errs = append(errs, errors.New("client.fanOutConcurrency must not be negative"))
	}
	if _, err := parseGetAllMode(c.Client.GetAllMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RETSConfig builds the client configuration. The caller sets Logger and
// Events, and may override Password.
func (c *Config) RETSConfig() (rets.Config, error) {
	auth, err := parseAuth(c.Server.Auth)
	if err != nil {
		return rets.Config{}, err
	}
	mode, err := parseGetAllMode(c.Client.GetAllMode)
	if err != nil {
		return rets.Config{}, err
	}

	config := rets.Config{
		LoginURL:              c.Server.LoginURL,
		Username:              c.Server.Username,
		Password:              c.Server.Password,
		UserAgent:             c.Server.UserAgent,
		UserAgentPassword:     c.Server.UserAgentPassword,
		RETSVersion:           c.Server.RETSVersion,
		Auth:                  auth,
		HTTPClient:            &http.Client{Timeout: c.Server.Timeout},
		MaxConcurrentRequests: c.Client.MaxConcurrentRequests,
		FanOutConcurrency:     c.Client.FanOutConcurrency,
		GetAllMode:            mode,
	}
	if cb := c.Client.CircuitBreaker; cb.Enabled {
		config.NewCircuitBreaker = rets.NewCircuitBreakerConfig(cb.MaxRequests, cb.Interval, cb.Timeout)
	}
	return config, nil
}

func parseAuth(s string) (rets.AuthMode, error) {
	switch strings.ToLower(s) {
	case rets.AuthDigest.String():
		return rets.AuthDigest, nil
	case rets.AuthBasic.String():
		return rets.AuthBasic, nil
	default:
		return 0, fmt.Errorf("server.auth must be digest or basic: %q", s)
	}
}

func parseGetAllMode(s string) (rets.GetAllMode, error) {
	switch strings.ToLower(s) {
	case rets.FanOut.String():
		return rets.FanOut, nil
	case rets.Bulk.String():
		return rets.Bulk, nil
	default:
		return 0, fmt.Errorf("client.getAllMode must be fanout or bulk: %q", s)
	}
}
