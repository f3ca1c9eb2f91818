// Package http provides a small, composable HTTP client that keeps access
// tokens fresh.
//
// Token refresh
//   - A response whose status equals the configured expiry status (default 401)
//     makes the client ask its refresh.Coordinator for fresh credentials.
//   - Concurrent requests that hit the expiry status share one refresh; the
//     refresh function runs once per cycle.
//   - On success the request is resent exactly once, built from a snapshot
//     taken before the first attempt with the credential store's headers
//     written over it. The retry is never retried, even on another 401.
//   - On failure the original response is returned with a RefreshError.
//
// Header precedence
//   - First attempt, lowest first: default headers, credential store, per-call headers.
//   - Retry: the first attempt's headers, then the credential store on top.
//   - Names are canonicalized, so differently cased duplicates collide.
//   - Basic auth applies only when no Authorization header is present.
//
// Errors
//   - Transport failures are NetworkError or TimeoutError.
//   - Non-2xx responses come back together with an HTTPError.
//   - RefreshError, RetryError and WaitError distinguish the refresh outcomes.
//
// There are no other retries and no backoff.
package http
