package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// RequestOptions describes one outbound call. Body is kept as bytes so the
// request can be rebuilt on every retry attempt.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	Body    []byte
}

// RetryOptions bounds the retry policy: MaxRetries additional attempts after
// the first, each attempt cut off by Timeout.
type RetryOptions struct {
	MaxRetries int
	Timeout    time.Duration
}

var DefaultRetryOptions = RetryOptions{
	MaxRetries: 2,
	Timeout:    60 * time.Second,
}

// httpDo is a package-level var so tests can mock the transport.
var httpDo = defaultHTTPDo

func defaultHTTPDo(req *http.Request) (*http.Response, error) {
	client := &http.Client{}
	return client.Do(req)
}

// Request performs an HTTP call with a per-attempt deadline and bounded
// backoff retry. A timed-out attempt is a terminal failure for that attempt
// and still counts against the retry budget; a cancelled parent context fails
// fast without further attempts. Non-2xx responses are returned as-is, status
// interpretation belongs to the caller. The final failure is returned
// verbatim.
func Request(ctx context.Context, url string, opts RequestOptions, retry RetryOptions) (*http.Response, error) {
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	if retry.Timeout <= 0 {
		retry.Timeout = DefaultRetryOptions.Timeout
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff: attempt index * 1s.
			delay := time.Duration(attempt) * time.Second
			log.Printf("Retrying request to %s in %v (attempt %d/%d): %v", url, delay, attempt, retry.MaxRetries, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := doAttempt(ctx, url, opts, retry.Timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Parent cancellation is the caller's total budget; stop immediately.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

func doAttempt(ctx context.Context, url string, opts RequestOptions, timeout time.Duration) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)

	var body *bytes.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(attemptCtx, opts.Method, url, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpDo(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("request to %s timed out after %v: %w", url, timeout, err)
		}
		return nil, err
	}

	// Tie the body's lifetime to the attempt context: cancel once the caller
	// closes the body.
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
