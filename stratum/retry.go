package stratum

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/smithy-go/logging"
)

// Doer executes a single HTTP request. *http.Client implements Doer.
// Implementations must honor the request context.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxErrorBody bounds how much of an error response body is retained for
// diagnostics.
const maxErrorBody = 4 * 1024

// RequestError is the terminal error of SendRetry: either the transport
// failed (Err non-nil) or the server answered with a non-success status
// after the retry policy was exhausted.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       []byte
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }

// HTTPStatusCode implements the optional interface consulted by the
// aws-sdk-go-v2 standard retryer's status-code retryable.
func (e *RequestError) HTTPStatusCode() int { return e.StatusCode }

// RetryableError marks server-side and throttling failures as retryable
// for retry policies that consult this optional interface. Transport
// failures carry no status; those are classified by their wrapped cause,
// so dropped connections and timeouts stay retryable.
func (e *RequestError) RetryableError() bool {
	if e.Err != nil {
		var conn retry.RetryableConnectionError
		return conn.IsErrorRetryable(e.Err) == aws.TrueTernary
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// SendRetry sends req through client, retrying per the retryer's policy.
//
// The retryer owns every retry decision: which failures are retryable, how
// many attempts are allowed, and how long to back off. SendRetry only
// supplies the mechanics. Transport failures and non-2xx responses are
// wrapped in *RequestError; the terminal one is returned once the policy
// gives up. Requests carrying a body must set GetBody so attempts after the
// first can rewind it (bytes-backed requests built with
// http.NewRequestWithContext do this automatically).
//
// The backoff wait respects ctx cancellation and never blocks a running
// request past its deadline.
func SendRetry(ctx context.Context, client Doer, retryer aws.Retryer, logger logging.Logger, req *http.Request) (*http.Response, error) {
	if logger == nil {
		logger = logging.Nop{}
	}

	maxAttempts := retryer.MaxAttempts()
	for attempt := 1; ; attempt++ {
		resp, attemptErr := send(ctx, client, req)
		if attemptErr == nil {
			return resp, nil
		}

		if maxAttempts > 0 && attempt >= maxAttempts {
			return nil, attemptErr
		}
		if !retryer.IsErrorRetryable(attemptErr) {
			return nil, attemptErr
		}
		if req.Body != nil && req.GetBody == nil {
			// Cannot rewind the body for another attempt.
			return nil, attemptErr
		}

		delay, err := retryer.RetryDelay(attempt, attemptErr)
		if err != nil {
			return nil, attemptErr
		}

		logger.Logf(logging.Debug, "retrying %s %s in %v (attempt %d of %d): %v",
			req.Method, req.URL, delay, attempt, maxAttempts, attemptErr)

		if err := sleep(ctx, delay); err != nil {
			return nil, attemptErr
		}
	}
}

func send(ctx context.Context, client Doer, req *http.Request) (*http.Response, error) {
	r := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, &RequestError{Method: req.Method, URL: req.URL.String(), Err: err}
		}
		r.Body = body
	}

	resp, err := client.Do(r)
	if err != nil {
		return nil, &RequestError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &RequestError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	return resp, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
