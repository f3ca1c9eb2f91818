// Package refresh coordinates access-token refreshes for a single client.
//
// When many requests fail with an expired token at the same time, each of them
// calls Coordinator.EnsureFresh. The first caller to find the coordinator idle
// becomes the leader of a refresh cycle and starts the refresh function; every
// caller arriving while that cycle is open becomes a follower and waits for the
// same outcome. The refresh function runs at most once per cycle.
//
// State machine:
//
//	idle --(first caller)--> refreshing --(refresh returns)--> idle
//
// On success the new headers are merged into the HeaderStore before any waiter
// is released, so a retry built after EnsureFresh returns always sees them.
// Failures are delivered to every waiter of the cycle and are not cached: the
// next caller after a failed cycle starts a new one.
//
// The refresh function runs on a context detached from the leader's
// cancellation. A caller whose context ends stops waiting and gets a
// *WaitError; the refresh keeps running for the remaining waiters.
package refresh
