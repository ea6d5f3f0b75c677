package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pior/rets"
	"github.com/pior/rets/internal/config"
	"github.com/pior/rets/internal/keychain"
	"github.com/pior/rets/internal/logging"
)

// passwordEnv is read when neither the flag nor the config file has a password.
const passwordEnv = "RETS_PASSWORD"

// app holds the global flags and the state shared by subcommands.
type app struct {
	configPath string
	loginURL   string
	username   string
	password   string
	auth       string
	logLevel   string
	jsonOutput bool
	showStats  bool

	out    io.Writer
	errOut io.Writer

	// openKeychain is replaced in tests.
	openKeychain func() (*keychain.Store, error)
}

func newRootCommand() *cobra.Command {
	a := &app{
		out:          os.Stdout,
		errOut:       os.Stderr,
		openKeychain: keychain.Open,
	}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "rets-metadata",
		Short:         "Download and inspect RETS server metadata",
		Long:          `rets-metadata logs in to a RETS server and prints its metadata: system, resources, classes, tables, lookups and object types.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&a.loginURL, "login-url", "", "RETS login URL (overrides the config file)")
	flags.StringVarP(&a.username, "username", "u", "", "RETS username (overrides the config file)")
	flags.StringVarP(&a.password, "password", "p", "", "RETS password (default: config file, $"+passwordEnv+", then the OS keychain)")
	flags.StringVar(&a.auth, "auth", "", "HTTP authentication: digest or basic")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&a.jsonOutput, "json", false, "print JSON instead of tables")
	flags.BoolVar(&a.showStats, "stats", false, "print client statistics after the command")

	root.AddCommand(
		a.loginCommand(),
		a.systemCommand(),
		a.resourcesCommand(),
		a.classesCommand(),
		a.tablesCommand(),
		a.lookupsCommand(),
		a.lookupTypesCommand(),
		a.objectsCommand(),
		a.rawCommand(),
		a.credentialsCommand(),
	)
	return root
}

// loadConfig reads the config file, if any, and applies the flags on top.
func (a *app) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		cfg, err = config.Load(a.configPath)
		if err != nil {
			return nil, err
		}
	}

	if a.loginURL != "" {
		cfg.Server.LoginURL = a.loginURL
	}
	if a.username != "" {
		cfg.Server.Username = a.username
	}
	if a.auth != "" {
		cfg.Server.Auth = a.auth
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Server.LoginURL == "" {
		return nil, errors.New("no login URL: use --login-url or a config file")
	}
	return cfg, nil
}

func (a *app) newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(a.errOut, level), nil
}

// resolvePassword picks the password from the flag, the config file, the
// environment and finally the OS keychain.
func (a *app) resolvePassword(cfg *config.Config, logger *slog.Logger) string {
	if a.password != "" {
		return a.password
	}
	if cfg.Server.Password != "" {
		return cfg.Server.Password
	}
	if p := os.Getenv(passwordEnv); p != "" {
		return p
	}

	store, err := a.openKeychain()
	if err != nil {
		logger.Debug("keychain unavailable", "error", err)
		return ""
	}
	p, err := store.Password(cfg.Server.LoginURL, cfg.Server.Username)
	if err != nil && !errors.Is(err, keychain.ErrNotFound) {
		logger.Warn("keychain read failed", "error", err)
	}
	return p
}

// withClient logs in, runs fn and logs out.
func (a *app) withClient(ctx context.Context, fn func(*rets.Client) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	logger, err := a.newLogger(cfg)
	if err != nil {
		return err
	}

	retsConfig, err := cfg.RETSConfig()
	if err != nil {
		return err
	}
	retsConfig.Password = a.resolvePassword(cfg, logger)
	retsConfig.Logger = logger
	retsConfig.Events = rets.NewEventBus()
	retsConfig.Events.Subscribe("*", func(e rets.Event) {
		if e.Err != nil {
			logger.Debug("event", "topic", e.Topic, "error", e.Err)
			return
		}
		logger.Debug("event", "topic", e.Topic)
	})

	client, err := rets.Connect(ctx, retsConfig)
	if err != nil {
		return err
	}
	defer client.Close()

	runErr := fn(client)

	if _, err := client.Logout(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("logout failed", "error", err)
	}
	if a.showStats {
		a.printStats(client)
	}
	return runErr
}

func (a *app) printStats(client *rets.Client) {
	stats := client.Stats()
	transport := client.TransportStats()

	if a.jsonOutput {
		_ = a.printJSON(map[string]any{"client": stats, "transport": transport})
		return
	}
	fmt.Fprintf(a.errOut, "requests=%d errors=%d reply_code_errors=%d decode_errors=%d bytes=%d slots_created=%d breaker=%s\n",
		stats.Requests, stats.RequestErrors, stats.ReplyCodeErrors, stats.DecodeErrors, stats.BytesReceived,
		transport.Slots.CreatedSlots, transport.CircuitBreakerState)
}
