package detect

import "strings"

// ContextDetector looks at prior messages in the same exchange: earlier scam
// flags, escalation vocabulary repeated across the history, and overall
// exchange length. It scores the current message's context, not its content.
type ContextDetector struct{}

func NewContextDetector() *ContextDetector {
	return &ContextDetector{}
}

const (
	priorFlagWeight  = 0.40
	escalationWeight = 0.12
	lengthWeight     = 0.05
)

// Escalation vocabulary that scammers repeat as a target stalls.
var escalationTerms = []string{
	"last warning", "final", "now or never", "immediately", "don't delay",
	"hurry", "right away", "last chance", "deadline",
}

// Evaluate scores the exchange context. The current message text is unused.
func (d *ContextDetector) Evaluate(_ string, history []Turn) Signal {
	var sig Signal
	if len(history) == 0 {
		return sig
	}

	score := 0.0

	flagged := 0
	for _, turn := range history {
		if turn.Scam {
			flagged++
		}
	}
	if flagged > 0 {
		score += priorFlagWeight
		sig.Indicators = append(sig.Indicators, "prior_scam_flags")
	}

	escalations := 0
	for _, turn := range history {
		lower := strings.ToLower(turn.Text)
		for _, term := range escalationTerms {
			if strings.Contains(lower, term) {
				escalations++
				break
			}
		}
	}
	if escalations >= 2 {
		score += escalationWeight * float64(min(escalations, 4))
		sig.Indicators = append(sig.Indicators, "repeated_escalation")
	}

	if len(history) >= 6 {
		score += lengthWeight * float64(min(len(history)/3, 4))
		sig.Indicators = append(sig.Indicators, "extended_exchange")
	}

	sig.Score = clamp01(score)
	return sig
}
