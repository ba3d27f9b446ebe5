package detect

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one weighted scam pattern.
type Rule struct {
	Name   string
	Regex  *regexp.Regexp
	Weight float64
}

// Sub-scorer weights. Each contributes independently; the final pattern
// score is clamped to 1.
const (
	urgencyWeight   = 0.12
	threatWeight    = 0.15
	financeWeight   = 0.30 // multiplied by financial-vocabulary density
	urlWeight       = 0.18
	phoneWeight     = 0.10
)

var urgencyTerms = []string{
	"immediately", "urgent", "urgently", "right now", "today", "within 24",
	"act now", "expire", "expires", "expiring", "last chance", "final notice",
	"asap", "jaldi", "turant",
}

var threatTerms = []string{
	"blocked", "block", "suspended", "suspend", "deactivated", "legal action",
	"police", "arrest", "penalty", "fine", "court", "frozen", "terminated",
	"seized", "lawsuit",
}

var financialTerms = []string{
	"bank", "account", "payment", "transfer", "upi", "card", "debit", "credit",
	"rupees", "rs", "amount", "balance", "transaction", "refund", "cashback",
	"wallet", "loan", "emi", "ifsc", "neft", "imps",
}

var (
	reEmbeddedURL   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s]+|\b[a-z0-9][a-z0-9-]*\.(?:com|in|net|org|xyz|tk|ml|info|co)\b[^\s]*`)
	reEmbeddedPhone = regexp.MustCompile(`(?:\+?91[\s-]?)?[6-9]\d{9}\b`)
)

// defaultRules are the built-in weighted scam phrasings. A YAML rules file
// can append to these at startup but never replaces them.
var defaultRules = []Rule{
	{"account_block_threat", regexp.MustCompile(`(?i)(?:account|a/c).{0,40}(?:block|suspend|deactivat|freez|clos)`), 0.40},
	{"verify_demand", regexp.MustCompile(`(?i)verify\s+(?:immediately|now|your|to)`), 0.30},
	{"otp_request", regexp.MustCompile(`(?i)(?:share|send|tell|give).{0,30}\botp\b|\botp\b.{0,30}(?:share|send|expir)`), 0.45},
	{"kyc_expiry", regexp.MustCompile(`(?i)kyc.{0,40}(?:expir|suspend|block|update|pending)`), 0.40},
	{"lottery_win", regexp.MustCompile(`(?i)(?:won|winner|congratulations).{0,50}(?:lottery|prize|lakh|crore|cash)`), 0.45},
	{"prize_claim_fee", regexp.MustCompile(`(?i)(?:claim|processing|registration)\s+(?:fee|charge|amount)`), 0.35},
	{"job_offer_bait", regexp.MustCompile(`(?i)(?:work from home|part.?time job|earn).{0,40}(?:daily|per day|weekly|guaranteed)`), 0.40},
	{"upi_collect", regexp.MustCompile(`(?i)(?:upi|gpay|phonepe|paytm).{0,40}(?:pin|request|collect|accept|approve)`), 0.40},
	{"remote_access_app", regexp.MustCompile(`(?i)(?:install|download).{0,30}(?:anydesk|teamviewer|quick\s?support)`), 0.50},
	{"card_detail_request", regexp.MustCompile(`(?i)(?:card\s+number|cvv|expiry).{0,40}(?:share|confirm|verify|provide)`), 0.45},
	{"refund_bait", regexp.MustCompile(`(?i)refund.{0,40}(?:pending|process|claim|initiate)`), 0.30},
	{"electricity_disconnect", regexp.MustCompile(`(?i)(?:electricity|power).{0,40}(?:disconnect|cut|bill)`), 0.35},
	{"customs_parcel", regexp.MustCompile(`(?i)(?:parcel|courier|package).{0,40}(?:customs|held|seized|illegal)`), 0.40},
}

// PatternDetector evaluates a table of (name, regex, weight) rules plus
// independent sub-scores for urgency language, threat language,
// financial-vocabulary density, embedded URLs and phone-shaped substrings.
type PatternDetector struct {
	rules []Rule
}

// NewPatternDetector returns a detector over the built-in rule table.
func NewPatternDetector() *PatternDetector {
	return &PatternDetector{rules: defaultRules}
}

// yamlRule mirrors a rule entry in a YAML rules file.
type yamlRule struct {
	Name    string  `yaml:"name"`
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
}

type rulesFile struct {
	Rules []yamlRule `yaml:"rules"`
}

// LoadRules appends extra rules from a YAML file to the built-in table.
// A malformed file leaves the built-ins intact.
func (d *PatternDetector) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var parsed rulesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}

	loaded := make([]Rule, 0, len(parsed.Rules))
	for _, r := range parsed.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
		if r.Weight <= 0 || r.Weight > 1 {
			return fmt.Errorf("rule %q: weight %.2f out of range", r.Name, r.Weight)
		}
		loaded = append(loaded, Rule{Name: r.Name, Regex: re, Weight: r.Weight})
	}

	d.rules = append(d.rules, loaded...)
	return nil
}

// Evaluate scores normalized text against the rule table and sub-scorers.
func (d *PatternDetector) Evaluate(text string, _ []Turn) Signal {
	var sig Signal
	if strings.TrimSpace(text) == "" {
		return sig
	}

	score := 0.0
	for _, rule := range d.rules {
		if rule.Regex.MatchString(text) {
			score += rule.Weight
			sig.Indicators = append(sig.Indicators, "pattern:"+rule.Name)
		}
	}

	if n := countTerms(text, urgencyTerms); n > 0 {
		score += urgencyWeight * float64(min(n, 3))
		sig.Indicators = append(sig.Indicators, "urgency_language")
	}
	if n := countTerms(text, threatTerms); n > 0 {
		score += threatWeight * float64(min(n, 3))
		sig.Indicators = append(sig.Indicators, "threat_language")
	}

	if density := financialDensity(text); density > 0 {
		score += financeWeight * density
		if density >= 0.1 {
			sig.Indicators = append(sig.Indicators, "financial_vocabulary")
		}
	}

	if reEmbeddedURL.MatchString(text) {
		score += urlWeight
		sig.Indicators = append(sig.Indicators, "embedded_url")
	}
	if reEmbeddedPhone.MatchString(text) {
		score += phoneWeight
		sig.Indicators = append(sig.Indicators, "embedded_phone")
	}

	sig.Score = clamp01(score)
	return sig
}

// countTerms counts how many distinct terms from the list occur in the text.
func countTerms(text string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			n++
		}
	}
	return n
}

// financialDensity is the fraction of tokens that are financial vocabulary.
func financialDensity(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range tokens {
		for _, term := range financialTerms {
			if tok == term {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(tokens))
}
