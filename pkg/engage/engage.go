// Package engage drives the honeypot side of a conversation: per turn it
// picks a strategy for the classified intent, composes a persona reply
// from the strategy's template pool, and tracks a rolling trust estimate.
package engage

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/baitline/baitline/pkg/detect"
)

// State is the engagement state of a session.
type State string

const (
	StateDormant    State = "dormant"
	StateEngaging   State = "engaging"
	StateTerminated State = "terminated"
)

// Phase buckets a conversation by cumulative message count.
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseMiddle  Phase = "middle"
	PhaseLate    Phase = "late"
)

// PhaseFor maps a cumulative message count to its phase.
func PhaseFor(messageCount int) Phase {
	switch {
	case messageCount <= 2:
		return PhaseInitial
	case messageCount <= 6:
		return PhaseMiddle
	default:
		return PhaseLate
	}
}

// FallbackReply is returned whenever reply composition cannot proceed.
// It stays in character so a failure never exposes the honeypot.
const FallbackReply = "Sorry, I did not understand. Can you please explain once more?"

const (
	quirkProbability     = 0.15
	fillerProbability    = 0.20
	ellipsisProbability  = 0.15
	transposeProbability = 0.03

	lowTrustFloor = 0.35

	trustQuestionDelta   = 0.05
	trustPolitenessDelta = 0.05
)

var fillerPrefixes = []string{"Hmm, ", "Okay, ", "Well, ", "Umm, "}

var concernCues = []string{"worried", "scary", "scared", "oh no", "oh god", "afraid"}

var politenessMarkers = []string{"please", "thank", "kindly", "sir", "madam", "ji"}

var credentialCues = []string{"otp", "password", "pin", "cvv", "card number", "card details"}

// commitmentSoftener rewrites firm phrasing when the trust estimate is low.
var commitmentSoftener = strings.NewReplacer(
	"I will", "I might",
	"i will", "i might",
	"definitely", "probably",
	"immediately", "soon",
)

// Engine composes replies. Randomness is injected so tests can pin a seed
// and assert membership in the configured pools.
type Engine struct {
	pack *Pack

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRand sets the randomness source.
func WithRand(rng *rand.Rand) EngineOption {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithClock sets the wall-clock source used for the late-hour check.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine over a strategy pack. A nil pack uses the
// built-in defaults.
func NewEngine(pack *Pack, opts ...EngineOption) *Engine {
	e := &Engine{
		pack: pack,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
	if e.pack == nil {
		e.pack = DefaultPack()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reply composes the next persona reply for an engaging session and
// updates the context's strategy and trust state. It never fails; any
// composition dead end yields FallbackReply.
func (e *Engine) Reply(ctx *Context, intent detect.Intent, inbound string, indicators []string) string {
	phase := PhaseFor(ctx.MessageCount)

	family := e.pack.family(string(intent), phase)
	if len(family) == 0 {
		e.updateTrust(ctx, inbound, FallbackReply)
		return FallbackReply
	}
	strategy := e.pick(family)
	ctx.LastStrategy = strategy

	pool := e.pack.Templates[strategy]
	if len(pool) == 0 {
		e.updateTrust(ctx, inbound, FallbackReply)
		return FallbackReply
	}
	pool = filterPool(pool, inbound, indicators)

	reply := e.pick(pool)
	reply = e.personalize(ctx, reply)
	reply = e.stylize(reply)

	e.updateTrust(ctx, inbound, reply)
	return reply
}

// filterPool narrows a template pool by the inbound message's pressure:
// credential requests get interrogative replies, threats get concerned
// ones. An empty narrowed pool falls back to the full one.
func filterPool(pool []string, inbound string, indicators []string) []string {
	lower := strings.ToLower(inbound)

	switch {
	case hasIndicator(indicators, "personal_info_request") || containsAny(lower, credentialCues):
		if narrowed := keep(pool, func(t string) bool { return strings.Contains(t, "?") }); len(narrowed) > 0 {
			return narrowed
		}
	case hasIndicator(indicators, "threat_language"):
		if narrowed := keep(pool, func(t string) bool { return containsAny(strings.ToLower(t), concernCues) }); len(narrowed) > 0 {
			return narrowed
		}
	}
	return pool
}

func (e *Engine) personalize(ctx *Context, reply string) string {
	if len(e.pack.Quirks) > 0 && e.chance(quirkProbability) {
		reply = reply + " " + e.pick(e.pack.Quirks)
	}
	if ctx.Trust < lowTrustFloor {
		reply = commitmentSoftener.Replace(reply)
	}
	if hour := e.now().Hour(); hour < 7 || hour >= 23 {
		reply = "Sorry for the late reply. " + reply
	}
	return reply
}

// stylize applies cosmetic variation only. Replies carry no extractable
// artifacts, so a rare transposition is harmless.
func (e *Engine) stylize(reply string) string {
	if e.chance(fillerProbability) {
		prefix := e.pick(fillerPrefixes)
		reply = prefix + strings.ToLower(reply[:1]) + reply[1:]
	}
	if e.chance(ellipsisProbability) && !strings.HasSuffix(reply, "?") {
		reply = strings.TrimRight(reply, ".") + "..."
	}
	if e.chance(transposeProbability) {
		reply = transposeOnce(e.rngIntn(len(reply)), reply)
	}
	return reply
}

func (e *Engine) updateTrust(ctx *Context, inbound, reply string) {
	if strings.Contains(reply, "?") {
		ctx.Trust -= trustQuestionDelta
	}
	if containsAny(strings.ToLower(inbound), politenessMarkers) {
		ctx.Trust += trustPolitenessDelta
	}
	if ctx.Trust < 0 {
		ctx.Trust = 0
	}
	if ctx.Trust > 1 {
		ctx.Trust = 1
	}
}

// transposeOnce swaps the first adjacent pair of lowercase letters at or
// after start, scanning forward. No pair means no change.
func transposeOnce(start int, s string) string {
	if len(s) < 3 {
		return s
	}
	if start > len(s)-2 {
		start = len(s) - 2
	}
	for i := start; i < len(s)-1; i++ {
		if isLowerLetter(s[i]) && isLowerLetter(s[i+1]) {
			b := []byte(s)
			b[i], b[i+1] = b[i+1], b[i]
			return string(b)
		}
	}
	return s
}

func isLowerLetter(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func (e *Engine) pick(from []string) string {
	return from[e.rngIntn(len(from))]
}

func (e *Engine) chance(p float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < p
}

func (e *Engine) rngIntn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

func hasIndicator(indicators []string, name string) bool {
	for _, ind := range indicators {
		if ind == name {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func keep(pool []string, pred func(string) bool) []string {
	out := make([]string, 0, len(pool))
	for _, t := range pool {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}
