package refresh

import (
	"github.com/gaborage/go-bricks-authclient/logger"
)

// Observer receives refresh lifecycle events. Implementations must return
// quickly; they are called synchronously and never influence coordination.
type Observer interface {
	CycleStarted(cycle uint64, sig Signal)
	FollowerJoined(cycle uint64, sig Signal)
	CycleCompleted(outcome Outcome)
	WaitAbandoned(cycle uint64, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) CycleStarted(uint64, Signal)   {}
func (NopObserver) FollowerJoined(uint64, Signal) {}
func (NopObserver) CycleCompleted(Outcome)        {}
func (NopObserver) WaitAbandoned(uint64, error)   {}

type multiObserver []Observer

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return NopObserver{}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiObserver) CycleStarted(cycle uint64, sig Signal) {
	for _, o := range m {
		o.CycleStarted(cycle, sig)
	}
}

func (m multiObserver) FollowerJoined(cycle uint64, sig Signal) {
	for _, o := range m {
		o.FollowerJoined(cycle, sig)
	}
}

func (m multiObserver) CycleCompleted(outcome Outcome) {
	for _, o := range m {
		o.CycleCompleted(outcome)
	}
}

func (m multiObserver) WaitAbandoned(cycle uint64, err error) {
	for _, o := range m {
		o.WaitAbandoned(cycle, err)
	}
}

// LogObserver writes refresh events to a structured logger.
type LogObserver struct {
	log logger.Logger
}

// NewLogObserver creates an observer logging through log.
func NewLogObserver(log logger.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) CycleStarted(cycle uint64, sig Signal) {
	o.log.Info().
		Uint64("cycle", cycle).
		Str("request_id", sig.RequestID).
		Str("method", sig.Method).
		Str("url", logger.RedactURL(sig.URL)).
		Int("status", sig.StatusCode).
		Msg("token refresh started")
}

func (o *LogObserver) FollowerJoined(cycle uint64, sig Signal) {
	o.log.Debug().
		Uint64("cycle", cycle).
		Str("request_id", sig.RequestID).
		Msg("waiting for token refresh in progress")
}

func (o *LogObserver) CycleCompleted(outcome Outcome) {
	if outcome.Err != nil {
		o.log.Warn().
			Err(outcome.Err).
			Uint64("cycle", outcome.Cycle).
			Int("waiters", outcome.Waiters).
			Dur("elapsed", outcome.Duration).
			Msg("token refresh failed")
		return
	}
	o.log.Info().
		Uint64("cycle", outcome.Cycle).
		Int("waiters", outcome.Waiters).
		Dur("elapsed", outcome.Duration).
		Msg("token refresh completed")
}

func (o *LogObserver) WaitAbandoned(cycle uint64, err error) {
	o.log.Warn().
		Err(err).
		Uint64("cycle", cycle).
		Msg("caller stopped waiting for token refresh")
}
