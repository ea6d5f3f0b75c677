package main

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func (a *app) credentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the password stored in the OS keychain",
	}
	cmd.AddCommand(a.credentialsSetCommand(), a.credentialsDeleteCommand())
	return cmd
}

func (a *app) credentialsSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store the account password in the OS keychain",
		Long:  `set stores the password given with --password, or asks for it, under the configured username and login host.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.Username == "" {
				return errors.New("no username: use --username or a config file")
			}

			password := a.password
			if password == "" {
				password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password for " + cfg.Server.Username)
				if err != nil {
					return err
				}
			}
			if password == "" {
				return errors.New("empty password")
			}

			store, err := a.openKeychain()
			if err != nil {
				return err
			}
			if err := store.SetPassword(cfg.Server.LoginURL, cfg.Server.Username, password); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Password stored for %s\n", cfg.Server.Username)
			return nil
		},
	}
}

func (a *app) credentialsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the account password from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			store, err := a.openKeychain()
			if err != nil {
				return err
			}
			if err := store.DeletePassword(cfg.Server.LoginURL, cfg.Server.Username); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Password removed for %s\n", cfg.Server.Username)
			return nil
		},
	}
}
