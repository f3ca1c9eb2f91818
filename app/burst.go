package app

import (
	"context"
	"errors"
	nethttp "net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	authhttp "github.com/gaborage/go-bricks-authclient/http"
)

// BurstOptions describes a fan-out of identical requests.
type BurstOptions struct {
	N      int
	Method string
	Path   string
	// Concurrency caps in-flight requests; zero sends all N at once
	Concurrency int
}

// BurstReport summarizes a burst.
type BurstReport struct {
	Requests  int
	Succeeded int
	Retried   int
	// Cycles lists the distinct refresh cycles the requests waited on
	Cycles  []uint64
	Errors  map[authhttp.ErrorType]int
	Elapsed time.Duration
}

// Failed is the number of requests that returned an error.
func (r BurstReport) Failed() int {
	return r.Requests - r.Succeeded
}

// Burst sends opts.N requests concurrently through the client and tallies
// their outcomes. Individual request failures are counted, not returned.
func (a *App) Burst(ctx context.Context, opts BurstOptions) (BurstReport, error) {
	if opts.N <= 0 {
		return BurstReport{}, errors.New("burst size must be positive")
	}
	method := opts.Method
	if method == "" {
		method = nethttp.MethodGet
	}

	var (
		mu     sync.Mutex
		report = BurstReport{Requests: opts.N, Errors: make(map[authhttp.ErrorType]int)}
		cycles = make(map[uint64]struct{})
	)

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	start := time.Now()
	for range opts.N {
		g.Go(func() error {
			resp, err := a.client.Do(ctx, method, &authhttp.Request{Path: opts.Path})

			mu.Lock()
			defer mu.Unlock()
			if resp != nil {
				if resp.Stats.Attempts > 1 {
					report.Retried++
				}
				if resp.Stats.RefreshCycle != 0 {
					cycles[resp.Stats.RefreshCycle] = struct{}{}
				}
			}
			if err != nil {
				report.Errors[errorType(err)]++
				return nil
			}
			report.Succeeded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Elapsed = time.Since(start)

	for c := range cycles {
		report.Cycles = append(report.Cycles, c)
	}
	slices.Sort(report.Cycles)

	a.logger.Info().
		Int("requests", report.Requests).
		Int("succeeded", report.Succeeded).
		Int("retried", report.Retried).
		Int("refresh_cycles", len(report.Cycles)).
		Dur("elapsed", report.Elapsed).
		Msg("Burst completed")

	return report, nil
}

func errorType(err error) authhttp.ErrorType {
	var ce authhttp.ClientError
	if errors.As(err, &ce) {
		return ce.Type()
	}
	return "unknown"
}
