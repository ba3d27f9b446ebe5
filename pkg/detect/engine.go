package detect

import (
	"sort"
	"sync"
	"unicode/utf8"
)

// Fixed fusion weights. The statistical weight applies even when the
// classifier is untrained and returns zero; the weights are deliberately
// not renormalized in that case.
const (
	WeightPattern     = 0.35
	WeightLinguistic  = 0.25
	WeightStatistical = 0.25
	WeightContext     = 0.15

	// DefaultScamThreshold is the single global classification threshold.
	DefaultScamThreshold = 0.65
)

// Engine fuses the four signal detectors into one confidence value and a
// single intent label. Safe for concurrent use; all detectors are pure.
type Engine struct {
	pattern     *PatternDetector
	linguistic  *LinguisticDetector
	statistical *BayesDetector
	context     *ContextDetector
	threshold   float64

	statsMu sync.RWMutex
	stats   EngineStats
}

// EngineStats counts detection outcomes since startup.
type EngineStats struct {
	TotalAnalyzed int64            `json:"total_analyzed"`
	ScamsDetected int64            `json:"scams_detected"`
	ByIntent      map[Intent]int64 `json:"by_intent"`
}

// NewEngine builds an engine with the given scam threshold; a non-positive
// threshold falls back to the default. The statistical classifier is trained
// here, once, from the fixed corpus.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultScamThreshold
	}
	return &Engine{
		pattern:     NewPatternDetector(),
		linguistic:  NewLinguisticDetector(),
		statistical: NewBayesDetector(),
		context:     NewContextDetector(),
		threshold:   threshold,
		stats:       EngineStats{ByIntent: make(map[Intent]int64)},
	}
}

// LoadPatternRules appends extra pattern rules from a YAML file.
func (e *Engine) LoadPatternRules(path string) error {
	return e.pattern.LoadRules(path)
}

// StatisticalReady reports whether the Bayes classifier has a model.
func (e *Engine) StatisticalReady() bool {
	return e.statistical.Trained()
}

// neutralResult is the safe fallback for malformed input: not a scam,
// zero confidence, generic intent.
func neutralResult() Result {
	return Result{Intent: IntentSuspicious}
}

// Detect scores one inbound message against the full exchange history.
// Malformed input degrades to a neutral non-scam result; it never fails.
func (e *Engine) Detect(text string, history []Turn) Result {
	if text == "" || !utf8.ValidString(text) {
		return neutralResult()
	}

	normalized := Normalize(text)

	signals := []struct {
		sig    Signal
		weight float64
	}{
		{e.pattern.Evaluate(normalized, history), WeightPattern},
		{e.linguistic.Evaluate(normalized, history), WeightLinguistic},
		{e.statistical.Evaluate(normalized, history), WeightStatistical},
		{e.context.Evaluate(normalized, history), WeightContext},
	}

	confidence := 0.0
	seen := make(map[string]struct{})
	var indicators []string
	for _, s := range signals {
		confidence += s.sig.Score * s.weight
		for _, ind := range s.sig.Indicators {
			if _, ok := seen[ind]; ok {
				continue
			}
			seen[ind] = struct{}{}
			indicators = append(indicators, ind)
		}
	}
	sort.Strings(indicators)
	confidence = clamp01(confidence)

	result := Result{
		IsScam:     confidence >= e.threshold,
		Confidence: confidence,
		Intent:     ClassifyIntent(normalized, indicators),
		Indicators: indicators,
	}

	e.recordStats(result)
	return result
}

func (e *Engine) recordStats(r Result) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.TotalAnalyzed++
	if r.IsScam {
		e.stats.ScamsDetected++
		e.stats.ByIntent[r.Intent]++
	}
}

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() EngineStats {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()

	out := EngineStats{
		TotalAnalyzed: e.stats.TotalAnalyzed,
		ScamsDetected: e.stats.ScamsDetected,
		ByIntent:      make(map[Intent]int64, len(e.stats.ByIntent)),
	}
	for k, v := range e.stats.ByIntent {
		out.ByIntent[k] = v
	}
	return out
}
