// Package session owns the per-engagement aggregate: the append-only
// message log, accumulated intelligence, activation state, and the rule
// deciding when an engagement has run its course.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/baitline/baitline/pkg/engage"
	"github.com/baitline/baitline/pkg/intel"
)

// Sender labels for log entries.
const (
	SenderScammer = "scammer"
	SenderAgent   = "agent"
)

// Termination reasons reported in status and callback notes.
const (
	ReasonMessageCap   = "message-cap"
	ReasonIntelligence = "intelligence-captured"
	ReasonIdleTimeout  = "idle-timeout"
	ReasonOperatorEnd  = "operator-end"
)

// Metadata describes the channel a conversation arrived on.
type Metadata struct {
	Channel  string `json:"channel"`
	Language string `json:"language"`
	Locale   string `json:"locale"`
}

// Message is one entry in a session's append-only log. Flagged records
// whether the detector classified an inbound message as scam, which
// later turns use as prior context.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Flagged   bool      `json:"flagged,omitempty"`
}

// Session is the per-engagement aggregate. All fields are mutated only
// while holding the session's store entry lock.
type Session struct {
	ID       string
	Metadata Metadata

	Messages     []Message
	InboundCount int

	AgentActive  bool
	ScamDetected bool

	Intel *intel.Intelligence

	CreatedAt    time.Time
	LastActivity time.Time
	ClosedAt     time.Time

	TerminationReason string
	CallbackSent      bool
}

// NewSession creates a session. An empty id gets a generated UUID.
func NewSession(id string, meta Metadata) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Session{
		ID:           id,
		Metadata:     meta,
		Intel:        intel.New(),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// State derives the engagement state from the aggregate.
func (s *Session) State() engage.State {
	switch {
	case !s.ClosedAt.IsZero():
		return engage.StateTerminated
	case s.AgentActive:
		return engage.StateEngaging
	default:
		return engage.StateDormant
	}
}

// Open reports whether the session has not yet terminated.
func (s *Session) Open() bool {
	return s.ClosedAt.IsZero()
}

// AppendInbound records a scammer message and bumps the inbound counter.
func (s *Session) AppendInbound(text string, ts time.Time, flagged bool) {
	if ts.IsZero() {
		ts = time.Now()
	}
	s.Messages = append(s.Messages, Message{Sender: SenderScammer, Text: text, Timestamp: ts, Flagged: flagged})
	s.InboundCount++
	s.LastActivity = time.Now()
}

// AppendReply records an agent reply.
func (s *Session) AppendReply(text string) {
	s.Messages = append(s.Messages, Message{Sender: SenderAgent, Text: text, Timestamp: time.Now()})
	s.LastActivity = time.Now()
}

// ScammerTexts returns the scammer-authored texts in log order.
func (s *Session) ScammerTexts() []string {
	texts := make([]string, 0, s.InboundCount)
	for _, m := range s.Messages {
		if m.Sender == SenderScammer {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// Activate marks the session scam-flagged and the agent engaged. The
// transition is monotonic; activation never reverts.
func (s *Session) Activate() {
	s.ScamDetected = true
	s.AgentActive = true
}

// Terminate closes the session with a reason. Idempotent.
func (s *Session) Terminate(reason string) {
	if !s.ClosedAt.IsZero() {
		return
	}
	s.ClosedAt = time.Now()
	s.TerminationReason = reason
}

// Duration is the engagement length so far, or total once closed.
func (s *Session) Duration() time.Duration {
	if !s.ClosedAt.IsZero() {
		return s.ClosedAt.Sub(s.CreatedAt)
	}
	return time.Since(s.CreatedAt)
}

// Rules bound an engagement's lifetime.
type Rules struct {
	MaxMessages      int
	MinIntelMessages int
	IdleWindow       time.Duration
}

// ShouldTerminate applies the termination rule. It is only meaningful
// while the agent is engaging; dormant and closed sessions never
// terminate through it.
func ShouldTerminate(s *Session, rules Rules, now time.Time) (string, bool) {
	if !s.AgentActive || !s.Open() {
		return "", false
	}

	if s.InboundCount >= rules.MaxMessages {
		return ReasonMessageCap, true
	}
	if s.InboundCount >= rules.MinIntelMessages {
		if s.Intel.HasAny(intel.CategoryFinancialAccount, intel.CategoryPaymentHandle, intel.CategoryLink) {
			return ReasonIntelligence, true
		}
		if len(s.Intel.Values(intel.CategoryPhoneNumber)) > 1 {
			return ReasonIntelligence, true
		}
	}
	if now.Sub(s.LastActivity) > rules.IdleWindow {
		return ReasonIdleTimeout, true
	}
	return "", false
}

// Status is the read-only outward projection of a session.
type Status struct {
	ID                string          `json:"session_id"`
	State             engage.State    `json:"state"`
	ScamDetected      bool            `json:"scam_detected"`
	MessageCount      int             `json:"message_count"`
	RiskScore         int             `json:"risk_score"`
	ArtifactCount     int             `json:"artifact_count"`
	Metadata          Metadata        `json:"metadata"`
	CreatedAt         time.Time       `json:"created_at"`
	LastActivity      time.Time       `json:"last_activity"`
	TerminationReason string          `json:"termination_reason,omitempty"`
	CallbackSent      bool            `json:"callback_sent"`
	DurationSeconds   float64         `json:"duration_seconds"`
}

// Snapshot builds the public projection; masked artifacts only, never
// the raw log.
func (s *Session) Snapshot() Status {
	return Status{
		ID:                s.ID,
		State:             s.State(),
		ScamDetected:      s.ScamDetected,
		MessageCount:      s.InboundCount,
		RiskScore:         s.Intel.RiskScore,
		ArtifactCount:     s.Intel.Count(),
		Metadata:          s.Metadata,
		CreatedAt:         s.CreatedAt,
		LastActivity:      s.LastActivity,
		TerminationReason: s.TerminationReason,
		CallbackSent:      s.CallbackSent,
		DurationSeconds:   s.Duration().Seconds(),
	}
}
