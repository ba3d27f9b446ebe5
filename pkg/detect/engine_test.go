package detect

import (
	"testing"
)

func TestDetect_BankingFraudMessage(t *testing.T) {
	e := NewEngine(DefaultScamThreshold)
	result := e.Detect("Your bank account will be blocked today. Verify immediately.", nil)

	if !result.IsScam {
		t.Errorf("Expected scam classification, got confidence %.3f", result.Confidence)
	}
	if result.Confidence < 0.65 {
		t.Errorf("Expected confidence >= 0.65, got %.3f", result.Confidence)
	}
	if result.Intent != IntentBankingFraud {
		t.Errorf("Expected intent %s, got %s", IntentBankingFraud, result.Intent)
	}
	if len(result.Indicators) == 0 {
		t.Error("Expected indicators for a flagged message")
	}
}

func TestDetect_LegitimateTransaction(t *testing.T) {
	e := NewEngine(DefaultScamThreshold)
	result := e.Detect("Your transaction of Rs. 500 was successful. Reference: 123456.", nil)

	if result.IsScam {
		t.Errorf("Expected legitimate classification, got scam with confidence %.3f", result.Confidence)
	}
}

func TestDetect_ScoreBounds(t *testing.T) {
	e := NewEngine(DefaultScamThreshold)

	inputs := []string{
		"",
		"hello",
		"URGENT: your account is blocked, suspended, frozen, share OTP, PIN, CVV, card number now, pay on UPI immediately, last chance, click http://scam.xyz/verify call 9876543210",
		"Just checking in about lunch plans.",
		"Verify. Pay. Send. Click. Call. Now.",
	}
	for _, text := range inputs {
		result := e.Detect(text, nil)
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Errorf("Confidence out of [0,1] for %q: %f", text, result.Confidence)
		}
	}
}

func TestDetect_EachSignalBounded(t *testing.T) {
	text := Normalize("URGENT your bank account blocked suspended share OTP PIN CVV pay UPI immediately http://bad.xyz 9876543210 verify now final notice last chance")
	history := []Turn{
		{Text: "last warning", Scam: true},
		{Text: "final deadline hurry", Scam: true},
		{Text: "now or never", Scam: true},
		{Text: "don't delay", Scam: true},
		{Text: "immediately", Scam: true},
		{Text: "last chance", Scam: true},
	}

	detectors := map[string]func(string, []Turn) Signal{
		"pattern":     NewPatternDetector().Evaluate,
		"linguistic":  NewLinguisticDetector().Evaluate,
		"statistical": NewBayesDetector().Evaluate,
		"context":     NewContextDetector().Evaluate,
	}
	for name, eval := range detectors {
		sig := eval(text, history)
		if sig.Score < 0 || sig.Score > 1 {
			t.Errorf("%s score out of [0,1]: %f", name, sig.Score)
		}
	}
}

func TestDetect_EmptyAndInvalidInput(t *testing.T) {
	e := NewEngine(DefaultScamThreshold)

	for _, text := range []string{"", string([]byte{0xff, 0xfe, 0xfd})} {
		result := e.Detect(text, nil)
		if result.IsScam {
			t.Errorf("Malformed input %q should degrade to non-scam", text)
		}
		if result.Confidence != 0 {
			t.Errorf("Malformed input %q should have zero confidence, got %f", text, result.Confidence)
		}
	}
}

func TestDetect_ContextRaisesScore(t *testing.T) {
	e := NewEngine(DefaultScamThreshold)
	text := "Please confirm the payment today."

	without := e.Detect(text, nil)
	with := e.Detect(text, []Turn{
		{Text: "Your account will be blocked, last chance", Scam: true},
		{Text: "This is your final warning, hurry", Scam: true},
	})

	if with.Confidence <= without.Confidence {
		t.Errorf("Prior scam context should raise confidence: %.3f <= %.3f",
			with.Confidence, without.Confidence)
	}
}

func TestDetect_UntrainedStatisticalContributesZero(t *testing.T) {
	d := NewUntrainedBayesDetector()
	sig := d.Evaluate("your bank account will be blocked verify immediately", nil)
	if sig.Score != 0 {
		t.Errorf("Untrained classifier must contribute zero, got %f", sig.Score)
	}
	if d.Trained() {
		t.Error("Untrained classifier reports trained")
	}
}

func TestDetect_StatsCounting(t *testing.T) {
	e := NewEngine(DefaultScamThreshold)
	e.Detect("Your bank account will be blocked today. Verify immediately.", nil)
	e.Detect("hello there", nil)

	stats := e.Stats()
	if stats.TotalAnalyzed != 2 {
		t.Errorf("Expected 2 analyzed, got %d", stats.TotalAnalyzed)
	}
	if stats.ScamsDetected != 1 {
		t.Errorf("Expected 1 scam detected, got %d", stats.ScamsDetected)
	}
	if stats.ByIntent[IntentBankingFraud] != 1 {
		t.Errorf("Expected 1 banking-fraud, got %d", stats.ByIntent[IntentBankingFraud])
	}
}

func TestDetect_ThresholdDefaulting(t *testing.T) {
	e := NewEngine(0)
	if e.threshold != DefaultScamThreshold {
		t.Errorf("Expected default threshold %f, got %f", DefaultScamThreshold, e.threshold)
	}
}
