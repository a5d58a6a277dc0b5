package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendAndParseWithRetryRecovers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("query param missing: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"value":"42"}`))
	}))
	defer srv.Close()

	var out struct {
		Value string `json:"value"`
	}
	err := NewClient(WithTimeout(time.Second)).SendAndParseWithRetry(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		QueryParams: map[string][]string{"limit": {"1"}},
	}, &out, 3, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value != "42" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("got %q after %d calls", out.Value, calls)
	}
}

func TestSendAndParseWithRetryStopsOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient().SendAndParseWithRetry(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil, 5, time.Millisecond)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}
