package callback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baitline/baitline/pkg/intel"
	"github.com/baitline/baitline/pkg/session"
)

func flaggedSession(messages int) *session.Session {
	s := session.NewSession("s1", session.Metadata{Channel: "sms"})
	s.Activate()
	for i := 0; i < messages; i++ {
		s.AppendInbound("send the fee", time.Now(), true)
	}
	return s
}

func TestBuildPayloadValidation(t *testing.T) {
	tests := []struct {
		name string
		sess *session.Session
	}{
		{"nil_session", nil},
		{"not_flagged", func() *session.Session {
			s := session.NewSession("s1", session.Metadata{})
			s.AppendInbound("hi", time.Now(), true)
			return s
		}()},
		{"no_messages", func() *session.Session {
			s := session.NewSession("s1", session.Metadata{})
			s.Activate()
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPayload(tt.sess, nil)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("BuildPayload err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestBuildPayloadContents(t *testing.T) {
	sess := flaggedSession(3)
	sess.Intel.Add(intel.CategoryPaymentHandle, "fraud@okaxis")
	sess.Intel.Add(intel.CategoryEmail, "a@b.com")
	sess.Intel.Recompute()
	sess.Terminate(session.ReasonIntelligence)

	payload, err := BuildPayload(sess, []string{"banking-fraud"})
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}

	if payload.SessionID != "s1" || !payload.ScamDetected || payload.TotalMessages != 3 {
		t.Errorf("payload header wrong: %+v", payload)
	}
	if got := payload.Intelligence["payment-handle"]; len(got) != 1 || got[0] != "fraud@okaxis" {
		t.Errorf("payment-handle = %v", got)
	}
	// Email is outside the reported subset.
	if _, ok := payload.Intelligence["email"]; ok {
		t.Error("email category leaked into the report")
	}
	if !strings.Contains(payload.Notes, "banking-fraud") {
		t.Errorf("notes missing tactics: %q", payload.Notes)
	}
	if !strings.Contains(payload.Notes, session.ReasonIntelligence) {
		t.Errorf("notes missing termination reason: %q", payload.Notes)
	}
}

func TestDeliverSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, 3, time.Millisecond, time.Second)
	payload, _ := BuildPayload(flaggedSession(2), nil)

	res := d.Deliver(context.Background(), payload)
	if !res.Delivered || res.Attempts != 1 || res.Err != nil {
		t.Errorf("Deliver = %+v, want first-attempt success", res)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("collector hit %d times, want 1", hits)
	}
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, 3, time.Millisecond, time.Second)
	payload, _ := BuildPayload(flaggedSession(2), nil)

	res := d.Deliver(context.Background(), payload)
	if !res.Delivered || res.Attempts != 3 {
		t.Errorf("Deliver = %+v, want success on attempt 3", res)
	}
}

func TestDeliverExhaustsRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	const retries = 4
	d := NewDispatcher(srv.URL, retries, time.Millisecond, time.Second)
	payload, _ := BuildPayload(flaggedSession(2), nil)

	res := d.Deliver(context.Background(), payload)
	if res.Delivered {
		t.Fatal("Deliver reported success against an always-failing collector")
	}
	if res.Attempts != retries {
		t.Errorf("attempts = %d, want exactly %d", res.Attempts, retries)
	}
	if got := atomic.LoadInt32(&hits); got != retries {
		t.Errorf("collector hit %d times, want %d", got, retries)
	}
	if res.Err == nil {
		t.Error("failed delivery carries no error")
	}
}

func TestDeliverTransportFailure(t *testing.T) {
	// A closed server address gives a connection error on every attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewDispatcher(srv.URL, 2, time.Millisecond, 100*time.Millisecond)
	payload, _ := BuildPayload(flaggedSession(1), nil)

	res := d.Deliver(context.Background(), payload)
	if res.Delivered || res.Attempts != 2 {
		t.Errorf("Deliver = %+v, want 2 failed attempts", res)
	}
}

func TestDeliverNilPayload(t *testing.T) {
	d := NewDispatcher("http://collector.invalid/report", 3, time.Millisecond, time.Second)
	res := d.Deliver(context.Background(), nil)
	if res.Attempts != 0 || !errors.Is(res.Err, ErrValidation) {
		t.Errorf("Deliver(nil) = %+v, want validation failure without attempts", res)
	}
}
