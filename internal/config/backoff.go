package config

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"
)

// DoWithBackoff executes the request with exponential backoff and jitter.
//
// A transport error, a 429, or any 5xx response counts as a retryable
// failure. maxRetries limits the number of retries after the first
// attempt; zero means retry until the context is done. The request body,
// if any, is rewound via GetBody before each attempt.
func DoWithBackoff(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	backoffDelay := BASE_BACKOFF
	var lastErr error

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err == nil && !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if maxRetries > 0 && attempt >= maxRetries {
			return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
		}

		jitter := time.Duration(rand.Float64() * float64(backoffDelay) * JITTER_FACTOR)
		timer := time.NewTimer(backoffDelay + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoffDelay = calculateNewBackoffDelay(backoffDelay)
	}
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
