package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

func TestStatusErrorsAreClassified(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		kind    Kind
		message string
	}{
		{http.StatusNotFound, `{"detail":"Not Found"}`, KindNotFound, "Not Found"},
		{http.StatusUnprocessableEntity, `{"detail":[{"msg":"value is not a valid integer"}]}`, KindClient, `[{"msg":"value is not a valid integer"}]`},
		{http.StatusInternalServerError, `Internal Server Error`, KindServer, "Internal Server Error"},
		{http.StatusBadGateway, ``, KindServer, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec := &recorder{status: tt.status, body: tt.body}
			c := newTestClient(t, rec)

			_, err := c.GetBugGraph(context.Background(), "b1")
			if err == nil {
				t.Fatal("expected error")
			}
			var clientErr *Error
			if !errors.As(err, &clientErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if clientErr.Kind != tt.kind || clientErr.StatusCode != tt.status || clientErr.Message != tt.message {
				t.Errorf("got kind=%s status=%d message=%q", clientErr.Kind, clientErr.StatusCode, clientErr.Message)
			}
			if clientErr.Op != "get bug graph" {
				t.Errorf("op = %q", clientErr.Op)
			}
			rec.only(t)
		})
	}
}

func TestTransportFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("hijacking not supported")
		}
		conn, _, _ := hj.Hijack()
		conn.Close()
	}))
	defer server.Close()

	c := NewDashboardClient(server.URL, zap.NewNop(), WithHTTPClient(server.Client()))
	err := c.SetBugTag(context.Background(), "b1", "crash", "confirmed")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNetworkError(err) || IsTimeout(err) {
		t.Errorf("expected network error, got kind %s: %v", KindOf(err), err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("backend hit %d times, want 1", n)
	}
}

func TestConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := NewDashboardClient("http://"+addr, zap.NewNop())
	if _, err := c.ListRuns(context.Background()); !IsNetworkError(err) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewDashboardClient(server.URL, zap.NewNop(), WithTimeout(50*time.Millisecond))
	_, err := c.GetCurrentLog(context.Background())
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !IsNetworkError(err) {
		t.Error("timeouts count as network errors")
	}
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, &recorder{body: `not json`})
	_, err := c.GetHistoryCount(context.Background())
	if KindOf(err) != KindDecode {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	rec := &recorder{body: `{}`}
	c := newTestClient(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.StartRun(ctx, model.RunParams{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if len(rec.requests) != 0 {
		t.Errorf("cancelled call reached the backend")
	}
}

func TestPredicatesOnForeignErrors(t *testing.T) {
	err := errors.New("boom")
	if IsNotFound(err) || IsServerError(err) || IsNetworkError(err) || KindOf(err) != 0 || StatusCode(err) != 0 {
		t.Error("predicates must be false for non-client errors")
	}
	if KindOf(nil) != 0 {
		t.Error("KindOf(nil) must be 0")
	}
}
