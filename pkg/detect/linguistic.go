package detect

import "strings"

// LinguisticDetector scores light stylistic signals: imperative-mood verbs,
// negative-sentiment terms, personal-information requests and short, choppy
// sentence structure. Each contributes an independent additive weight.
type LinguisticDetector struct{}

func NewLinguisticDetector() *LinguisticDetector {
	return &LinguisticDetector{}
}

const (
	imperativeWeight   = 0.15
	negativeWeight     = 0.12
	personalInfoWeight = 0.25
	choppyWeight       = 0.10
)

// Imperative verbs commonly opening scam demands. Matched at sentence start.
var imperativeVerbs = []string{
	"verify", "click", "send", "share", "call", "pay", "update", "confirm",
	"install", "download", "submit", "provide", "respond", "reply", "act",
	"claim", "complete",
}

var negativeTerms = []string{
	"blocked", "suspended", "failed", "problem", "issue", "risk", "danger",
	"warning", "alert", "unauthorized", "illegal", "fraud", "misuse",
	"penalty", "loss",
}

var personalInfoPhrases = []string{
	"otp", "password", "pin", "cvv", "card number", "account number",
	"aadhaar", "pan card", "date of birth", "mother's maiden",
	"net banking", "login", "user id", "ifsc",
}

// Evaluate scores normalized text. History is unused; this detector looks
// only at the current message.
func (d *LinguisticDetector) Evaluate(text string, _ []Turn) Signal {
	var sig Signal
	if strings.TrimSpace(text) == "" {
		return sig
	}

	score := 0.0
	sentences := splitSentences(text)

	if n := countImperatives(sentences); n > 0 {
		score += imperativeWeight * float64(min(n, 3))
		sig.Indicators = append(sig.Indicators, "imperative_mood")
	}
	if n := countTerms(text, negativeTerms); n > 0 {
		score += negativeWeight * float64(min(n, 3))
		sig.Indicators = append(sig.Indicators, "negative_sentiment")
	}
	if n := countTerms(text, personalInfoPhrases); n > 0 {
		score += personalInfoWeight * float64(min(n, 2))
		sig.Indicators = append(sig.Indicators, "personal_info_request")
	}
	if isChoppy(sentences) {
		score += choppyWeight
		sig.Indicators = append(sig.Indicators, "choppy_sentences")
	}

	sig.Score = clamp01(score)
	return sig
}

// splitSentences breaks text on terminal punctuation, dropping empties.
func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := raw[:0]
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// countImperatives counts sentences opening with a command verb.
func countImperatives(sentences []string) int {
	n := 0
	for _, s := range sentences {
		first, _, _ := strings.Cut(s, " ")
		for _, verb := range imperativeVerbs {
			if first == verb {
				n++
				break
			}
		}
	}
	return n
}

// isChoppy reports whether the message is mostly very short sentences:
// at least two sentences and an average under six words.
func isChoppy(sentences []string) bool {
	if len(sentences) < 2 {
		return false
	}
	words := 0
	for _, s := range sentences {
		words += len(strings.Fields(s))
	}
	return float64(words)/float64(len(sentences)) < 6
}
