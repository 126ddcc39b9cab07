package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anaplan-sdk/anaplan-go/internal/auth"
	"github.com/anaplan-sdk/anaplan-go/internal/config"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate and verify credentials",
		Long: `Authenticate with the configured method.

For oauth, this runs the browser sign-in and, with persist_token set, stores
the refresh token in the OS keyring for later commands.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored OAuth refresh token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	c, err := newClient(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer c.Close()

	cc.Statusf("Authenticated with %s credentials.\n", cc.Cfg.Auth.Method)

	if cc.Cfg.Auth.Method == config.AuthOAuth && cc.Cfg.Auth.PersistToken {
		cc.Statusf("Refresh token saved to the OS keyring (%s).\n", auth.KeyringService)
	}

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := auth.NewKeyringStore().Delete(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	cc.Logger.Info("removed stored refresh token")
	cc.Statusf("Logged out.\n")

	return nil
}
