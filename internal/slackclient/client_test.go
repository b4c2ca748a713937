package slackclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"github.com/mkhoudour/taskbridge/pkg/cerr"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	api := slack.New("test-token", slack.OptionAPIURL(srv.URL+"/"))
	return NewWithAPI(api), srv
}

func TestOpenTaskModalHonorsDeadline(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	})
	defer srv.Close()
	c.modalTimeout = 50 * time.Millisecond

	start := time.Now()
	err := c.OpenTaskModal(context.Background(), "trigger123", "C1")
	if err == nil {
		t.Fatalf("expected an error from a views.open slower than the deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("call took %v, want a prompt timeout", elapsed)
	}
}

func TestOpenTaskModalExpiredTrigger(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": false, "error": "expired_trigger_id"}`))
	})
	defer srv.Close()

	err := c.OpenTaskModal(context.Background(), "trigger123", "C1")
	if !cerr.IsCode(err, cerr.FailedPrecondition) {
		t.Errorf("error = %v, want FailedPrecondition for an expired trigger", err)
	}
}

func TestOpenTaskModalSuccess(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "view": {"id": "V1"}}`))
	})
	defer srv.Close()

	if err := c.OpenTaskModal(context.Background(), "trigger123", "C1"); err != nil {
		t.Errorf("OpenTaskModal failed: %v", err)
	}
}
