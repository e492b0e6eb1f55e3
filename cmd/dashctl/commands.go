package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/merchantdash/go-session-client/authclient"
	"github.com/merchantdash/go-session-client/credentials"
	"github.com/merchantdash/go-session-client/internal/config"
	"github.com/merchantdash/go-session-client/session"
	"github.com/merchantdash/go-session-client/storage"
	"github.com/merchantdash/go-session-client/storage/memstore"
	"github.com/merchantdash/go-session-client/storage/sqlitestore"
)

func newRootCmd(c config.Config, logger zerolog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Merchant dashboard session tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newLoginCmd(c, logger),
		newWhoamiCmd(c, logger),
		newStatusCmd(c, logger),
		newLogoutCmd(c, logger),
	)
	return root
}

// newManager is the composition root: sqlite durable tier, in-process
// ephemeral tier, HTTP credential client.
func newManager(c config.Config, logger zerolog.Logger) (*session.Manager, func(), error) {
	if err := os.MkdirAll(c.GetDataFolder(), 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "[newManager] data folder")
	}
	durable, err := sqlitestore.Open(filepath.Join(c.GetDataFolder(), "session.db"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "[newManager] open durable tier")
	}

	adapter, err := storage.NewAdapter(durable, memstore.New(), logger)
	if err != nil {
		_ = durable.Close()
		return nil, nil, err
	}
	credStore, err := credentials.NewStore(adapter, logger)
	if err != nil {
		_ = durable.Close()
		return nil, nil, err
	}

	client := authclient.NewHTTPClient(c.GetAuthBaseURL(), authclient.WithLogger(logger))
	manager, err := session.NewManager(client, credStore, session.Config{
		SessionTimeout:        c.GetSessionTimeout(),
		RefreshBuffer:         c.GetRefreshBuffer(),
		ActivityCheckInterval: c.GetActivityCheckInterval(),
		LoginMaxAttempts:      c.GetLoginMaxAttempts(),
		RenewMaxAttempts:      c.GetRenewMaxAttempts(),
		BackoffBaseDelay:      c.GetBackoffBaseDelay(),
	}, session.WithLogger(logger))
	if err != nil {
		_ = durable.Close()
		return nil, nil, err
	}

	cleanup := func() {
		manager.Dispose()
		_ = durable.Close()
	}
	return manager, cleanup, nil
}

func newLoginCmd(c config.Config, logger zerolog.Logger) *cobra.Command {
	var email, password string
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppName(c.GetAppName())
			manager, cleanup, err := newManager(c, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			profile, err := manager.Login(cmd.Context(), authclient.Credentials{Email: email, Password: password}, remember)
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (%s)\n", profile.DisplayName(), profile.Email)
			if !remember {
				fmt.Println("Session is ephemeral; pass --remember to survive restarts.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().BoolVar(&remember, "remember", false, "persist the session across restarts")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newWhoamiCmd(c config.Config, logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, cleanup, err := newManager(c, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			record := manager.RestoreOnLoad(cmd.Context())
			if record.User == nil {
				return errors.New("not logged in")
			}
			fmt.Printf("%s (%s)\n", record.User.DisplayName(), record.User.Email)
			return nil
		},
	}
}

func newStatusCmd(c config.Config, logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session expiry status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, cleanup, err := newManager(c, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			record := manager.RestoreOnLoad(cmd.Context())
			if record.User == nil {
				fmt.Println("No active session.")
				return nil
			}
			remaining, ok := manager.TimeUntilExpiry()
			if !ok {
				fmt.Println("Session has no recorded expiry.")
				return nil
			}
			fmt.Printf("User:            %s\n", record.User.DisplayName())
			fmt.Printf("Expires in:      %s\n", remaining.Round(time.Second))
			fmt.Printf("Expiring soon:   %v\n", manager.IsExpiringSoon())
			return nil
		},
	}
}

func newLogoutCmd(c config.Config, logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session everywhere",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, cleanup, err := newManager(c, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			manager.Logout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}
