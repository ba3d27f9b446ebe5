// Package detect implements the multi-signal scam-likelihood scorer and
// intent classifier. Four independent detectors each produce a bounded score
// and a set of indicator tags; the engine fuses them into a single confidence
// value and one intent label.
package detect

// Intent is the categorical scam archetype assigned to a message.
type Intent string

const (
	IntentBankingFraud Intent = "banking-fraud"
	IntentUPIFraud     Intent = "upi-fraud"
	IntentPhishing     Intent = "phishing"
	IntentLottery      Intent = "lottery"
	IntentJobScam      Intent = "job-scam"
	IntentKYCFraud     Intent = "kyc-fraud"
	IntentSuspicious   Intent = "suspicious"
)

// Turn is one prior message of the exchange as seen by the detectors.
// The context detector only needs the text and whether an earlier pass
// already flagged the turn as a scam.
type Turn struct {
	Text string
	Scam bool
}

// Result is the outcome of scoring one inbound message.
// Produced fresh per message; never persisted beyond the current turn.
type Result struct {
	IsScam     bool     `json:"is_scam"`
	Confidence float64  `json:"confidence"`
	Intent     Intent   `json:"intent"`
	Indicators []string `json:"indicators,omitempty"`
}

// Signal is one detector's contribution: a score in [0,1] plus the
// indicator tags that explain it.
type Signal struct {
	Score      float64
	Indicators []string
}

// clamp01 bounds a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
