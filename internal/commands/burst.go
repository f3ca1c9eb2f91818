package commands

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-bricks-authclient/app"
	authhttp "github.com/gaborage/go-bricks-authclient/http"
)

// BurstOptions holds options for the burst command
type BurstOptions struct {
	app.BurstOptions
	Login      bool
	ExpirePath string
}

// NewBurstCommand creates the burst command
func NewBurstCommand(root *RootOptions) *cobra.Command {
	opts := &BurstOptions{}

	cmd := &cobra.Command{
		Use:   "burst",
		Short: "Send concurrent requests and report how refreshes were shared",
		Example: `  # Against a running sandbox: log in, revoke, then fire 50 requests
  authclient burst --n 50 --expire-path /expire`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runBurst(ctx, root, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.N, "n", "n", 10, "Number of requests")
	cmd.Flags().StringVarP(&opts.Path, "path", "p", "/resource", "Request path relative to client.base_url")
	cmd.Flags().StringVarP(&opts.Method, "method", "X", "GET", "HTTP method")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Maximum in-flight requests (0: all at once)")
	cmd.Flags().BoolVar(&opts.Login, "login", true, "Fetch a token before the burst")
	cmd.Flags().StringVar(&opts.ExpirePath, "expire-path", "", "POST this path after login to revoke the token")

	return cmd
}

func runBurst(ctx context.Context, root *RootOptions, opts *BurstOptions, out io.Writer) error {
	a, err := root.newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown() }()

	if opts.Login {
		if err := a.Login(ctx); err != nil {
			return err
		}
	}
	if opts.ExpirePath != "" {
		// sent without the shared credentials so it cannot trigger a refresh
		resp, err := authhttp.NewClient(a.Logger()).Post(ctx, &authhttp.Request{
			URL: a.Config().Client.BaseURL + opts.ExpirePath,
		})
		if err != nil {
			return fmt.Errorf("expire request failed: %w", err)
		}
		fmt.Fprintf(out, "expired tokens: %s\n", resp.Body)
	}

	report, err := a.Burst(ctx, opts.BurstOptions)
	if err != nil {
		return err
	}
	printReport(out, report)
	return nil
}

func printReport(out io.Writer, r app.BurstReport) {
	fmt.Fprintf(out, "requests:       %d\n", r.Requests)
	fmt.Fprintf(out, "succeeded:      %d\n", r.Succeeded)
	fmt.Fprintf(out, "failed:         %d\n", r.Failed())
	fmt.Fprintf(out, "retried:        %d\n", r.Retried)
	fmt.Fprintf(out, "refresh cycles: %d %v\n", len(r.Cycles), r.Cycles)
	fmt.Fprintf(out, "elapsed:        %s\n", r.Elapsed)
	for _, t := range slices.Sorted(maps.Keys(r.Errors)) {
		fmt.Fprintf(out, "errors[%s]: %d\n", t, r.Errors[t])
	}
}
