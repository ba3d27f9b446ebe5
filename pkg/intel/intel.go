// Package intel extracts structured artifacts from scammer-authored
// messages, normalizes and masks them, and scores the aggregate risk.
package intel

import "math"

// Category is one artifact kind the extractor tracks.
type Category string

const (
	CategoryFinancialAccount  Category = "financial-account"
	CategoryPaymentHandle     Category = "payment-handle"
	CategoryPhoneNumber       Category = "phone-number"
	CategoryLink              Category = "link"
	CategoryEmail             Category = "email"
	CategoryCardNumber        Category = "card-number"
	CategoryRoutingCode       Category = "routing-code"
	CategorySuspiciousKeyword Category = "suspicious-keyword"
	CategoryCredentialRequest Category = "credential-request"
)

// AllCategories lists every category in report order.
var AllCategories = []Category{
	CategoryFinancialAccount,
	CategoryPaymentHandle,
	CategoryPhoneNumber,
	CategoryLink,
	CategoryEmail,
	CategoryCardNumber,
	CategoryRoutingCode,
	CategorySuspiciousKeyword,
	CategoryCredentialRequest,
}

// riskWeights are the per-category contributions to the aggregate score.
var riskWeights = map[Category]float64{
	CategoryFinancialAccount:  0.15,
	CategoryPaymentHandle:     0.15,
	CategoryPhoneNumber:       0.10,
	CategoryLink:              0.20,
	CategoryEmail:             0.05,
	CategoryCardNumber:        0.20,
	CategoryRoutingCode:       0.10,
	CategorySuspiciousKeyword: 0.05,
	CategoryCredentialRequest: 0.25,
}

// maxOccurrences caps each category's contribution: diminishing returns
// after three occurrences' worth.
const maxOccurrences = 3

// Intelligence accumulates deduplicated normalized artifacts per category
// plus a risk score recomputed from the content. Artifacts are additive only;
// once recorded a value is never removed.
type Intelligence struct {
	Categories map[Category][]string `json:"categories"`
	RiskScore  int                   `json:"risk_score"`
}

// New returns an empty Intelligence.
func New() *Intelligence {
	return &Intelligence{Categories: make(map[Category][]string)}
}

// Add records a normalized value under a category if not already present.
// Returns true if the value was new. The caller recomputes the risk score
// after a batch of adds (see Recompute).
func (in *Intelligence) Add(cat Category, value string) bool {
	if value == "" {
		return false
	}
	for _, existing := range in.Categories[cat] {
		if existing == value {
			return false
		}
	}
	in.Categories[cat] = append(in.Categories[cat], value)
	return true
}

// Merge unions another Intelligence into this one, category by category,
// and recomputes the risk score from the merged content. Merging is
// idempotent and order-independent up to insertion order within a category.
func (in *Intelligence) Merge(other *Intelligence) {
	if other == nil {
		return
	}
	for cat, values := range other.Categories {
		for _, v := range values {
			in.Add(cat, v)
		}
	}
	in.Recompute()
}

// Recompute recalculates the risk score from current category contents.
// The score is always derived from content, never summed across merges.
func (in *Intelligence) Recompute() {
	sum := 0.0
	for cat, weight := range riskWeights {
		count := len(in.Categories[cat])
		if count == 0 {
			continue
		}
		contribution := float64(count) * weight
		if capped := weight * maxOccurrences; contribution > capped {
			contribution = capped
		}
		sum += contribution
	}

	score := int(math.Round(sum * 100))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	in.RiskScore = score
}

// Count returns the total number of artifacts across all categories.
func (in *Intelligence) Count() int {
	n := 0
	for _, values := range in.Categories {
		n += len(values)
	}
	return n
}

// Values returns the recorded values for a category (nil when empty).
func (in *Intelligence) Values(cat Category) []string {
	return in.Categories[cat]
}

// HasAny reports whether any of the given categories is non-empty.
func (in *Intelligence) HasAny(cats ...Category) bool {
	for _, cat := range cats {
		if len(in.Categories[cat]) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (in *Intelligence) Clone() *Intelligence {
	out := New()
	for cat, values := range in.Categories {
		out.Categories[cat] = append([]string(nil), values...)
	}
	out.RiskScore = in.RiskScore
	return out
}
