// Package callback delivers the final engagement report to the external
// evaluation collector with bounded retries.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/baitline/baitline/pkg/httputil"
	"github.com/baitline/baitline/pkg/intel"
	"github.com/baitline/baitline/pkg/session"
)

// ErrValidation marks a payload that must not be sent. It is never
// retried.
var ErrValidation = errors.New("callback validation failed")

// reportedCategories is the fixed subset of intelligence included in the
// outbound report.
var reportedCategories = []intel.Category{
	intel.CategoryFinancialAccount,
	intel.CategoryPaymentHandle,
	intel.CategoryPhoneNumber,
	intel.CategoryLink,
	intel.CategoryCardNumber,
	intel.CategoryRoutingCode,
}

// Payload is the report POSTed to the collector. Account and card values
// arrive already masked; the unmasked originals are never stored.
type Payload struct {
	SessionID     string              `json:"session_id"`
	ScamDetected  bool                `json:"scam_detected"`
	TotalMessages int                 `json:"total_messages"`
	Intelligence  map[string][]string `json:"intelligence"`
	RiskScore     int                 `json:"risk_score"`
	Notes         string              `json:"notes"`
	Timestamp     time.Time           `json:"timestamp"`
}

// BuildPayload validates a session and assembles its report. A missing
// id, an unflagged session, or an empty log yields ErrValidation.
func BuildPayload(sess *session.Session, tactics []string) (*Payload, error) {
	switch {
	case sess == nil || sess.ID == "":
		return nil, fmt.Errorf("%w: missing session id", ErrValidation)
	case !sess.ScamDetected:
		return nil, fmt.Errorf("%w: session %s not flagged as scam", ErrValidation, sess.ID)
	case len(sess.Messages) == 0:
		return nil, fmt.Errorf("%w: session %s has no messages", ErrValidation, sess.ID)
	}

	intelligence := make(map[string][]string, len(reportedCategories))
	for _, cat := range reportedCategories {
		if values := sess.Intel.Values(cat); len(values) > 0 {
			intelligence[string(cat)] = values
		}
	}

	return &Payload{
		SessionID:     sess.ID,
		ScamDetected:  sess.ScamDetected,
		TotalMessages: sess.InboundCount,
		Intelligence:  intelligence,
		RiskScore:     sess.Intel.RiskScore,
		Notes:         buildNotes(sess, tactics),
		Timestamp:     time.Now().UTC(),
	}, nil
}

// buildNotes summarizes the engagement for a human reader.
func buildNotes(sess *session.Session, tactics []string) string {
	var b strings.Builder

	if len(tactics) > 0 {
		sorted := append([]string(nil), tactics...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, "Observed tactics: %s. ", strings.Join(sorted, ", "))
	} else {
		b.WriteString("No distinct tactics recorded. ")
	}

	fmt.Fprintf(&b, "Engagement lasted %s across %d scammer messages.",
		sess.Duration().Round(time.Second), sess.InboundCount)

	if reason := sess.TerminationReason; reason != "" {
		fmt.Fprintf(&b, " Ended by %s.", reason)
	}
	return b.String()
}

// Result is the outcome of a delivery attempt series.
type Result struct {
	Delivered  bool
	Attempts   int
	StatusCode int
	Err        error
}

// Dispatcher posts payloads to the collector URL with a fixed retry
// budget and per-attempt timeout. Concurrent deliveries are bounded by a
// semaphore so a slow collector cannot pile up goroutines.
type Dispatcher struct {
	url        string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	sem        *httputil.Semaphore
}

// NewDispatcher creates a dispatcher for a collector URL.
func NewDispatcher(url string, maxRetries int, retryDelay, timeout time.Duration) *Dispatcher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Dispatcher{
		url:        url,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		timeout:    timeout,
		sem:        httputil.NewSemaphore(0),
	}
}

// Deliver posts a payload, retrying transport failures and non-2xx
// responses up to the configured budget. Exhausting the budget returns a
// failed Result; it never panics or propagates transport errors upward.
func (d *Dispatcher) Deliver(ctx context.Context, payload *Payload) Result {
	if payload == nil {
		return Result{Err: fmt.Errorf("%w: nil payload", ErrValidation)}
	}
	if d.url == "" {
		return Result{Err: fmt.Errorf("%w: no collector url configured", ErrValidation)}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrValidation, err)}
	}

	if err := d.sem.Acquire(ctx); err != nil {
		return Result{Err: fmt.Errorf("callback delivery: %w", err)}
	}
	defer d.sem.Release()

	result := Result{}
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		result.Attempts = attempt

		status, err := d.post(ctx, body)
		result.StatusCode = status
		if err == nil {
			result.Delivered = true
			result.Err = nil
			return result
		}
		result.Err = err

		if attempt < d.maxRetries {
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				result.Err = ctx.Err()
				return result
			}
		}
	}
	return result
}

// post performs one time-bounded attempt.
func (d *Dispatcher) post(ctx context.Context, body []byte) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.Client(d.timeout).Do(req)
	if err != nil {
		return 0, fmt.Errorf("callback transport: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := httputil.ReadResponseBody(resp.Body, 512)
		if len(snippet) > 0 {
			return resp.StatusCode, fmt.Errorf("collector returned %d: %s", resp.StatusCode, snippet)
		}
		return resp.StatusCode, fmt.Errorf("collector returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
