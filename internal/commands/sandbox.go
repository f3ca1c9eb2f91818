package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewSandboxCommand creates the sandbox command
func NewSandboxCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sandbox",
		Short: "Serve a local token issuer and protected resource",
		Long: `Starts the sandbox server on sandbox.addr.

Routes:
  POST /token     client_credentials grant (HTTP basic client auth)
  GET  /resource  requires a current bearer token
  POST /expire    revokes every token issued so far
  GET  /stats     issued, served and rejected counters`,
		Example: `  # Serve on the default address
  authclient sandbox

  # Short-lived tokens
  AUTHCLIENT_SANDBOX__TOKEN_TTL=30s authclient sandbox`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.RunSandbox(ctx)
		},
	}
}
