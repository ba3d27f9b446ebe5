package intel

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractCategories(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		category Category
		want     []string
	}{
		{
			name:     "account_with_cue",
			text:     "transfer the fee to account number: 1234 5678 9012 today",
			category: CategoryFinancialAccount,
			want:     []string{"********9012"},
		},
		{
			name:     "account_slash_form",
			text:     "a/c no 987654321 belongs to our refund desk",
			category: CategoryFinancialAccount,
			want:     []string{"*****4321"},
		},
		{
			name:     "upi_handle",
			text:     "send 500 to refund.desk@okaxis right now",
			category: CategoryPaymentHandle,
			want:     []string{"refund.desk@okaxis"},
		},
		{
			name:     "phone_with_country_code",
			text:     "call our officer at +91-9876543210 immediately",
			category: CategoryPhoneNumber,
			want:     []string{"+919876543210"},
		},
		{
			name:     "phone_bare",
			text:     "whatsapp 8765432109 for the claim form",
			category: CategoryPhoneNumber,
			want:     []string{"+918765432109"},
		},
		{
			name:     "link_without_scheme",
			text:     "complete verification at bit.ly/kyc-update before noon",
			category: CategoryLink,
			want:     []string{"http://bit.ly/kyc-update"},
		},
		{
			name:     "link_with_scheme",
			text:     "visit https://Secure-Refunds.example.com/claim?id=7",
			category: CategoryLink,
			want:     []string{"https://secure-refunds.example.com/claim?id=7"},
		},
		{
			name:     "email",
			text:     "forward the receipt to claims@fake-bank.com",
			category: CategoryEmail,
			want:     []string{"claims@fake-bank.com"},
		},
		{
			name:     "card_luhn_valid",
			text:     "confirm the card 4111 1111 1111 1111 on file",
			category: CategoryCardNumber,
			want:     []string{"************1111"},
		},
		{
			name:     "routing_code",
			text:     "use IFSC sbin0001234 for the deposit",
			category: CategoryRoutingCode,
			want:     []string{"SBIN0001234"},
		},
		{
			name:     "credential_request_otp",
			text:     "please share the OTP sent to your phone",
			category: CategoryCredentialRequest,
			want:     []string{"otp"},
		},
		{
			name:     "suspicious_keywords",
			text:     "urgent: pay the processing fee or face penalty",
			category: CategorySuspiciousKeyword,
			want:     []string{"urgent", "penalty", "processing fee"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract([]string{tt.text}).Values(tt.category)
			if !sameSet(got, tt.want) {
				t.Errorf("Extract(%q) %s = %v, want %v", tt.text, tt.category, got, tt.want)
			}
		})
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}

func TestExtractRejectsInvalidCard(t *testing.T) {
	in := Extract([]string{"confirm the card 4111 1111 1111 1112 on file"})
	if got := in.Values(CategoryCardNumber); len(got) != 0 {
		t.Errorf("Luhn-invalid card recorded: %v", got)
	}
}

func TestExtractNeverStoresUnmaskedDigits(t *testing.T) {
	in := Extract([]string{
		"transfer to account number: 123456789012345 using card 4111 1111 1111 1111",
	})
	for _, cat := range []Category{CategoryFinancialAccount, CategoryCardNumber} {
		for _, v := range in.Values(cat) {
			if !strings.HasPrefix(v, "*") {
				t.Errorf("%s value %q stored unmasked", cat, v)
			}
			if digits := strings.TrimLeft(v, "*"); len(digits) > 4 {
				t.Errorf("%s value %q exposes more than four digits", cat, v)
			}
		}
	}
}

func TestHandleDoesNotCaptureEmailPrefix(t *testing.T) {
	in := Extract([]string{"write to claims@fake-bank.com for your prize"})
	if got := in.Values(CategoryPaymentHandle); len(got) != 0 {
		t.Errorf("email prefix recorded as payment handle: %v", got)
	}
	if got := in.Values(CategoryEmail); len(got) != 1 {
		t.Errorf("email not recorded, got %v", got)
	}
}

func TestMergeIdempotent(t *testing.T) {
	texts := []string{
		"send 500 to refund.desk@okaxis or call +91 9876543210",
		"complete verification at http://bit.ly/kyc now",
	}
	a := Extract(texts)
	before := a.Clone()

	a.Merge(Extract(texts))
	if !reflect.DeepEqual(a.Categories, before.Categories) {
		t.Errorf("self-merge changed categories: %v != %v", a.Categories, before.Categories)
	}
	if a.RiskScore != before.RiskScore {
		t.Errorf("self-merge changed risk score: %d != %d", a.RiskScore, before.RiskScore)
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	first := "call 9876543210 about your blocked account"
	second := "pay at refund.desk@okaxis via http://bit.ly/pay"

	ab := Extract([]string{first})
	ab.Merge(Extract([]string{second}))
	ba := Extract([]string{second})
	ba.Merge(Extract([]string{first}))

	if ab.RiskScore != ba.RiskScore {
		t.Errorf("risk score depends on merge order: %d != %d", ab.RiskScore, ba.RiskScore)
	}
	if ab.Count() != ba.Count() {
		t.Errorf("artifact count depends on merge order: %d != %d", ab.Count(), ba.Count())
	}
	for _, cat := range AllCategories {
		if !sameSet(ab.Values(cat), ba.Values(cat)) {
			t.Errorf("%s differs by merge order: %v != %v", cat, ab.Values(cat), ba.Values(cat))
		}
	}
}

func TestRiskScore(t *testing.T) {
	t.Run("weighted_sum", func(t *testing.T) {
		in := New()
		in.Add(CategoryLink, "http://bit.ly/a")
		in.Add(CategoryPhoneNumber, "+919876543210")
		in.Recompute()
		if in.RiskScore != 30 {
			t.Errorf("risk score = %d, want 30", in.RiskScore)
		}
	})

	t.Run("per_category_saturation", func(t *testing.T) {
		in := New()
		for _, link := range []string{"http://a.example", "http://b.example", "http://c.example", "http://d.example"} {
			in.Add(CategoryLink, link)
		}
		in.Recompute()
		if in.RiskScore != 60 {
			t.Errorf("risk score = %d, want 60 (link contribution capped)", in.RiskScore)
		}
	})

	t.Run("clamped_to_100", func(t *testing.T) {
		in := New()
		for _, cat := range AllCategories {
			for _, v := range []string{"one", "two", "three"} {
				in.Add(cat, v)
			}
		}
		in.Recompute()
		if in.RiskScore != 100 {
			t.Errorf("risk score = %d, want 100", in.RiskScore)
		}
	})

	t.Run("empty_is_zero", func(t *testing.T) {
		in := New()
		in.Recompute()
		if in.RiskScore != 0 {
			t.Errorf("risk score = %d, want 0", in.RiskScore)
		}
	})
}
