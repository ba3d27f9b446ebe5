package detect

import "strings"

// ClassifyIntent assigns a scam archetype by keyword precedence over the
// normalized text. Order is significant: the first matching check wins, and
// the sequence must not be reordered or classifications stop being
// reproducible across versions.
func ClassifyIntent(normalized string, indicators []string) Intent {
	has := func(terms ...string) bool {
		for _, t := range terms {
			if strings.Contains(normalized, t) {
				return true
			}
		}
		return false
	}

	switch {
	case has("bank") && has("block", "suspend"):
		return IntentBankingFraud
	case has("upi", "payment"):
		return IntentUPIFraud
	case has("otp", "password", "pin"):
		return IntentPhishing
	case has("win", "prize", "lottery"):
		return IntentLottery
	case has("job", "employment"):
		return IntentJobScam
	case has("kyc", "verify", "update"):
		return IntentKYCFraud
	}

	for _, ind := range indicators {
		if ind == "embedded_url" {
			return IntentPhishing
		}
	}
	return IntentSuspicious
}
