// Package agent orchestrates one conversation turn end to end: score the
// inbound message, engage when it is a scam, extract intelligence from
// the scammer's side of the log, and close the session with a final
// report when the engagement has run its course.
package agent

import (
	"context"
	"log"
	"time"

	"github.com/baitline/baitline/pkg/callback"
	"github.com/baitline/baitline/pkg/config"
	"github.com/baitline/baitline/pkg/detect"
	"github.com/baitline/baitline/pkg/engage"
	"github.com/baitline/baitline/pkg/intel"
	"github.com/baitline/baitline/pkg/session"
)

// Request is one inbound conversation turn.
type Request struct {
	SessionID           string           `json:"sessionId"`
	Message             InboundMessage   `json:"message"`
	ConversationHistory []HistoryEntry   `json:"conversationHistory"`
	Metadata            session.Metadata `json:"metadata"`
}

// InboundMessage is the scammer-authored message of a turn.
type InboundMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is prior conversation supplied by a stateless caller. It
// is only consulted when the session has no log of its own yet.
type HistoryEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Response is the outcome of a processed turn.
type Response struct {
	SessionID  string        `json:"session_id"`
	Detection  detect.Result `json:"detection"`
	Reply      string        `json:"reply,omitempty"`
	State      engage.State  `json:"state"`
	Terminated bool          `json:"terminated"`
	RiskScore  int           `json:"risk_score"`
}

// Agent wires the detection, engagement, extraction, session, and
// callback components together.
type Agent struct {
	cfg        *config.Config
	detector   *detect.Engine
	responder  *engage.Engine
	contexts   *engage.ContextStore
	sessions   *session.Store
	dispatcher *callback.Dispatcher
	rules      session.Rules
}

// New builds a fully wired agent from configuration. The session store's
// idle sweep reports abandoned engagements through the same callback
// path as rule-based termination.
func New(cfg *config.Config, detector *detect.Engine, responder *engage.Engine) *Agent {
	a := &Agent{
		cfg:       cfg,
		detector:  detector,
		responder: responder,
		contexts: engage.NewContextStore(
			engage.WithIdleWindow(cfg.ContextIdleWindow),
			engage.WithSweepInterval(cfg.ContextSweepInterval),
		),
		dispatcher: callback.NewDispatcher(
			cfg.CallbackURL, cfg.CallbackMaxRetries, cfg.CallbackRetryDelay, cfg.CallbackTimeout,
		),
		rules: session.Rules{
			MaxMessages:      cfg.MaxMessages,
			MinIntelMessages: cfg.MinIntelMessages,
			IdleWindow:       cfg.SessionIdleWindow,
		},
	}
	a.sessions = session.NewStore(
		session.WithIdleWindow(cfg.SessionIdleWindow),
		session.WithGracePeriod(cfg.SessionGracePeriod),
		session.WithSweepInterval(cfg.SessionSweepInterval),
		session.WithExpireHook(a.reportExpired),
	)
	return a
}

// Close stops the background sweeps.
func (a *Agent) Close() {
	a.sessions.Close()
	a.contexts.Close()
}

// ProcessMessage runs one conversation turn. It never fails the request
// for internal reasons; composition problems degrade to a safe fallback
// reply.
func (a *Agent) ProcessMessage(ctx context.Context, req Request) *Response {
	sess, release := a.sessions.Acquire(req.SessionID, req.Metadata)
	defer release()

	res := a.detector.Detect(req.Message.Text, a.historyTurns(sess, req.ConversationHistory))
	sess.AppendInbound(req.Message.Text, req.Message.Timestamp, res.IsScam)

	if res.IsScam && sess.Open() {
		sess.Activate()
	}

	resp := &Response{
		SessionID: sess.ID,
		Detection: res,
		State:     sess.State(),
	}

	if sess.State() != engage.StateEngaging {
		resp.RiskScore = sess.Intel.RiskScore
		return resp
	}

	convo := a.contexts.GetOrCreate(sess.ID)
	a.contexts.Touch(sess.ID)
	convo.MessageCount = sess.InboundCount
	if res.IsScam {
		convo.AddTactic(string(res.Intent))
	}

	resp.Reply = a.composeReply(convo, res, req.Message.Text)
	sess.AppendReply(resp.Reply)

	sess.Intel.Merge(intel.Extract(sess.ScammerTexts()))
	resp.RiskScore = sess.Intel.RiskScore

	if reason, ok := session.ShouldTerminate(sess, a.rules, time.Now()); ok {
		sess.Terminate(reason)
		resp.State = sess.State()
		resp.Terminated = true
		a.finishSession(sess, convo.Tactics)
	}
	return resp
}

// historyTurns prefers the session's own log; a fresh session falls back
// to caller-supplied history so the context detector is not blind on the
// first turn.
func (a *Agent) historyTurns(sess *session.Session, supplied []HistoryEntry) []detect.Turn {
	if len(sess.Messages) > 0 {
		turns := make([]detect.Turn, 0, sess.InboundCount)
		for _, m := range sess.Messages {
			if m.Sender == session.SenderScammer {
				turns = append(turns, detect.Turn{Text: m.Text, Scam: m.Flagged})
			}
		}
		return turns
	}

	turns := make([]detect.Turn, 0, len(supplied))
	for _, h := range supplied {
		if h.Sender != session.SenderAgent {
			turns = append(turns, detect.Turn{Text: h.Text})
		}
	}
	return turns
}

// composeReply shields the request from any failure inside reply
// composition; the persona must answer something on every turn.
func (a *Agent) composeReply(convo *engage.Context, res detect.Result, inbound string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] reply composition failed for session %s: %v", convo.SessionID, r)
			reply = engage.FallbackReply
		}
	}()
	return a.responder.Reply(convo, res.Intent, inbound, res.Indicators)
}

// finishSession launches the final report for a session terminated
// during a turn and drops its conversation context. Delivery runs in the
// background; the turn response does not wait on the collector.
func (a *Agent) finishSession(sess *session.Session, tactics []string) {
	a.contexts.Delete(sess.ID)

	payload, err := callback.BuildPayload(sess, tactics)
	if err != nil {
		log.Printf("[WARN] callback for session %s not sent: %v", sess.ID, err)
		return
	}

	id := sess.ID
	go func() {
		result := a.dispatcher.Deliver(context.Background(), payload)
		if result.Delivered {
			a.markCallbackSent(id)
		} else {
			log.Printf("[WARN] callback for session %s failed after %d attempts: %v",
				id, result.Attempts, result.Err)
		}
	}()
}

func (a *Agent) markCallbackSent(id string) {
	sess, release, err := a.sessions.Get(id)
	if err != nil {
		return
	}
	defer release()
	sess.CallbackSent = true
}

// reportExpired handles sessions the idle sweep closed. The session is
// already out of the table, so fields are safe to touch directly.
func (a *Agent) reportExpired(sess *session.Session) {
	var tactics []string
	if convo := a.contexts.Get(sess.ID); convo != nil {
		tactics = convo.Tactics
	}
	a.contexts.Delete(sess.ID)

	payload, err := callback.BuildPayload(sess, tactics)
	if err != nil {
		return
	}
	result := a.dispatcher.Deliver(context.Background(), payload)
	sess.CallbackSent = result.Delivered
	if !result.Delivered {
		log.Printf("[WARN] callback for expired session %s failed after %d attempts: %v",
			sess.ID, result.Attempts, result.Err)
	}
}

// DetectBatch scores independent texts with no history and no session
// side effects.
func (a *Agent) DetectBatch(texts []string) []detect.Result {
	results := make([]detect.Result, len(texts))
	for i, text := range texts {
		results[i] = a.detector.Detect(text, nil)
	}
	return results
}

// SessionStatus returns the public projection of a session.
func (a *Agent) SessionStatus(id string) (session.Status, error) {
	return a.sessions.Snapshot(id)
}

// EndSession closes a session on operator request and delivers (or
// re-delivers) its report synchronously. A session whose report already
// went out is returned as-is.
func (a *Agent) EndSession(ctx context.Context, id string) (session.Status, error) {
	sess, release, err := a.sessions.Get(id)
	if err != nil {
		return session.Status{}, err
	}
	defer release()

	if sess.Open() {
		sess.Terminate(session.ReasonOperatorEnd)
	}
	if sess.CallbackSent {
		return sess.Snapshot(), nil
	}

	var tactics []string
	if convo := a.contexts.Get(id); convo != nil {
		tactics = convo.Tactics
	}
	a.contexts.Delete(id)

	payload, err := callback.BuildPayload(sess, tactics)
	if err != nil {
		return sess.Snapshot(), err
	}
	result := a.dispatcher.Deliver(ctx, payload)
	sess.CallbackSent = result.Delivered
	if !result.Delivered {
		return sess.Snapshot(), result.Err
	}
	return sess.Snapshot(), nil
}

// Stats is the service-level counters exposed on the stats endpoint.
type Stats struct {
	Detector       detect.EngineStats `json:"detector"`
	ActiveSessions int                `json:"active_sessions"`
	ActiveContexts int                `json:"active_contexts"`
}

// Snapshot of the current counters.
func (a *Agent) Stats() Stats {
	return Stats{
		Detector:       a.detector.Stats(),
		ActiveSessions: a.sessions.Len(),
		ActiveContexts: a.contexts.Len(),
	}
}
