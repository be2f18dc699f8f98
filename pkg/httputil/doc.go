// Package httputil provides retry helpers for registry clients.
//
// [Retry] re-runs an operation with exponential backoff, but only for
// errors wrapped with [Retryable] (network errors, 5xx and 429 responses).
// A 429 response may carry a Retry-After header; [RetryAfter] parses it and
// the delay is honoured through [RetryableError.After]:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := http.Get(url)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// Defaults: 3 attempts, 1 second initial delay, at most [MaxDelay] per wait.
package httputil
