// Package commands implements the authclient CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-bricks-authclient/app"
	"github.com/gaborage/go-bricks-authclient/config"
)

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	ConfigFile string
	appOptions []app.Option
}

// NewRootCommand creates the authclient command tree.
func NewRootCommand(version string, appOpts ...app.Option) *cobra.Command {
	opts := &RootOptions{appOptions: appOpts}

	cmd := &cobra.Command{
		Use:   "authclient",
		Short: "HTTP client with single-flight token refresh",
		Long: `authclient sends HTTP requests that carry bearer credentials. When the
server rejects an expired token, concurrent requests share one token refresh
and each is resent exactly once.

Configuration is read from authclient.yaml (or --config) and AUTHCLIENT_
environment variables, e.g. AUTHCLIENT_CLIENT__BASE_URL.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Config file (default: ./authclient.yaml when present)")

	cmd.AddCommand(
		NewSandboxCommand(opts),
		NewBurstCommand(opts),
		NewVersionCommand(version),
	)
	return cmd
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	var loadOpts []config.Option
	if o.ConfigFile != "" {
		loadOpts = append(loadOpts, config.WithFile(o.ConfigFile))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (o *RootOptions) newApp() (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, o.appOptions...)
}
