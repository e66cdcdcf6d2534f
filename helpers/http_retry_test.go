package helpers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"
)

func mockDo(responses []func(req *http.Request) (*http.Response, error)) (func(req *http.Request) (*http.Response, error), *int) {
	calls := 0
	return func(req *http.Request) (*http.Response, error) {
		idx := calls
		if idx >= len(responses) {
			idx = len(responses) - 1
		}
		calls++
		return responses[idx](req)
	}, &calls
}

func okResponse(body string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
		}, nil
	}
}

func failResponse(err error) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return nil, err
	}
}

func TestRequestSuccessFirstAttempt(t *testing.T) {
	orig := httpDo
	defer func() { httpDo = orig }()

	do, calls := mockDo([]func(req *http.Request) (*http.Response, error){okResponse("ok")})
	httpDo = do

	resp, err := Request(context.Background(), "https://example.com", RequestOptions{}, RetryOptions{MaxRetries: 3, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if *calls != 1 {
		t.Errorf("expected 1 attempt, got %d", *calls)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("unexpected body %q", string(body))
	}
}

func TestRequestRetriesThenSucceeds(t *testing.T) {
	orig := httpDo
	defer func() { httpDo = orig }()

	do, calls := mockDo([]func(req *http.Request) (*http.Response, error){
		failResponse(errors.New("connection refused")),
		okResponse("recovered"),
	})
	httpDo = do

	resp, err := Request(context.Background(), "https://example.com", RequestOptions{}, RetryOptions{MaxRetries: 2, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if *calls != 2 {
		t.Errorf("expected 2 attempts, got %d", *calls)
	}
}

func TestRequestExhaustsRetries(t *testing.T) {
	orig := httpDo
	defer func() { httpDo = orig }()

	wantErr := errors.New("boom")
	do, calls := mockDo([]func(req *http.Request) (*http.Response, error){failResponse(wantErr)})
	httpDo = do

	_, err := Request(context.Background(), "https://example.com", RequestOptions{}, RetryOptions{MaxRetries: 2, Timeout: time.Second})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	// Final failure is re-raised verbatim.
	if !errors.Is(err, wantErr) {
		t.Errorf("expected final error %v, got %v", wantErr, err)
	}
	if *calls != 3 { // 1 initial + 2 retries
		t.Errorf("expected 3 attempts, got %d", *calls)
	}
}

func TestRequestCancelledContextStopsRetrying(t *testing.T) {
	orig := httpDo
	defer func() { httpDo = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	do, calls := mockDo([]func(req *http.Request) (*http.Response, error){
		func(req *http.Request) (*http.Response, error) {
			cancel()
			return nil, errors.New("mid-flight failure")
		},
	})
	httpDo = do

	_, err := Request(ctx, "https://example.com", RequestOptions{}, RetryOptions{MaxRetries: 5, Timeout: time.Second})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if *calls != 1 {
		t.Errorf("expected no retries after cancellation, got %d attempts", *calls)
	}
}

func TestRequestDefaultsMethodToGet(t *testing.T) {
	orig := httpDo
	defer func() { httpDo = orig }()

	var method string
	httpDo = func(req *http.Request) (*http.Response, error) {
		method = req.Method
		return okResponse("")(req)
	}

	resp, err := Request(context.Background(), "https://example.com", RequestOptions{}, RetryOptions{Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if method != http.MethodGet {
		t.Errorf("expected GET, got %s", method)
	}
}
