package detect

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPatternDetector_RuleMatches(t *testing.T) {
	d := NewPatternDetector()

	tests := []struct {
		name      string
		text      string
		indicator string
	}{
		{"account_block", "your account will be blocked soon", "pattern:account_block_threat"},
		{"otp_request", "please share your otp with the agent", "pattern:otp_request"},
		{"kyc_expiry", "your kyc will expire tomorrow", "pattern:kyc_expiry"},
		{"lottery", "congratulations you have won a lottery of 25 lakh", "pattern:lottery_win"},
		{"remote_access", "download anydesk to fix the issue", "pattern:remote_access_app"},
		{"url", "visit http://secure-verify.xyz/login", "embedded_url"},
		{"phone", "call 9876543210 for help", "embedded_phone"},
		{"urgency", "act now before it expires", "urgency_language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := d.Evaluate(Normalize(tt.text), nil)
			if sig.Score <= 0 {
				t.Fatalf("Expected positive score for %q", tt.text)
			}
			found := false
			for _, ind := range sig.Indicators {
				if ind == tt.indicator {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Expected indicator %q, got %v", tt.indicator, sig.Indicators)
			}
		})
	}
}

func TestPatternDetector_BenignTextScoresLow(t *testing.T) {
	d := NewPatternDetector()
	sig := d.Evaluate("see you at the cafe tomorrow afternoon", nil)
	if sig.Score > 0.2 {
		t.Errorf("Benign text scored %.3f, expected near zero", sig.Score)
	}
}

func TestPatternDetector_ScoreClamped(t *testing.T) {
	d := NewPatternDetector()
	text := Normalize("URGENT account blocked suspended share otp kyc expired you won lottery prize " +
		"claim fee work from home earn daily upi pin collect install anydesk card number cvv verify " +
		"refund pending electricity disconnect parcel customs http://bad.xyz 9876543210 immediately today final notice")
	sig := d.Evaluate(text, nil)
	if sig.Score != 1.0 {
		t.Errorf("Expected saturated score 1.0, got %f", sig.Score)
	}
}

func TestPatternDetector_LoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - name: gift_card_demand
    pattern: '(?i)pay with (?:google play|itunes|gift) cards?'
    weight: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	d := NewPatternDetector()
	before := len(d.rules)
	if err := d.LoadRules(path); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(d.rules) != before+1 {
		t.Fatalf("Expected %d rules, got %d", before+1, len(d.rules))
	}

	sig := d.Evaluate("you must pay with google play cards today", nil)
	found := false
	for _, ind := range sig.Indicators {
		if ind == "pattern:gift_card_demand" {
			found = true
		}
	}
	if !found {
		t.Errorf("Loaded rule did not fire, indicators: %v", sig.Indicators)
	}
}

func TestPatternDetector_LoadRules_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"bad_regex", "rules:\n  - name: broken\n    pattern: '(['\n    weight: 0.5\n"},
		{"bad_weight", "rules:\n  - name: heavy\n    pattern: 'x'\n    weight: 2.0\n"},
		{"bad_yaml", "rules: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			d := NewPatternDetector()
			before := len(d.rules)
			if err := d.LoadRules(path); err == nil {
				t.Error("Expected load error")
			}
			if len(d.rules) != before {
				t.Error("Failed load must leave built-in rules intact")
			}
		})
	}
}

func TestNormalize_FoldsUnicodeVariants(t *testing.T) {
	// Fullwidth "Ｖｅｒｉｆｙ" must fold to "verify".
	got := Normalize("Ｖｅｒｉｆｙ ｎｏｗ")
	if got != "verify now" {
		t.Errorf("Normalize fullwidth = %q, want %q", got, "verify now")
	}
}
