package intel

import (
	"net/url"
	"regexp"
	"strings"
)

// Account numbers are cue-anchored so that arbitrary digit runs in normal
// conversation do not pollute the financial-account category.
var accountRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\baccount\s*(?:no\.?|number|num|#)?\s*[:\-]?\s*([0-9][0-9\s\-]{7,22}[0-9])`),
	regexp.MustCompile(`(?i)\ba/c\s*(?:no\.?|number)?\s*[:\-]?\s*([0-9][0-9\s\-]{7,22}[0-9])`),
	regexp.MustCompile(`(?i)\bacct\s*[:\-]?\s*([0-9][0-9\s\-]{7,22}[0-9])`),
	regexp.MustCompile(`(?i)\btransfer\s+(?:to|into)\s+([0-9][0-9\s\-]{7,22}[0-9])`),
}

// Payment handles look like user@provider with no dot in the provider
// part, which keeps them distinct from email addresses.
var handleRe = regexp.MustCompile(`\b([a-zA-Z0-9._\-]{2,}@[a-zA-Z]{2,15})\b`)

var phoneRe = regexp.MustCompile(`(?:^|\D)(?:\+?91[\s\-]?)?([6-9]\d{9})\b`)

var linkRe = regexp.MustCompile(`(?i)\b(?:https?://[^\s<>"']+|www\.[^\s<>"']+|(?:bit\.ly|tinyurl\.com|t\.co|cutt\.ly|rb\.gy)/[^\s<>"']+)`)

var emailRe = regexp.MustCompile(`\b([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})\b`)

var cardRe = regexp.MustCompile(`\b(?:\d[ \-]?){13,19}\b`)

// IFSC-style bank routing codes.
var routingRe = regexp.MustCompile(`\b([A-Za-z]{4}0[A-Za-z0-9]{6})\b`)

var suspiciousKeywords = []string{
	"urgent", "verify", "blocked", "suspended", "lottery", "winner",
	"prize", "refund", "kyc", "customs", "penalty", "arrest",
	"anydesk", "teamviewer", "processing fee", "registration fee",
	"gift card", "bitcoin", "western union",
}

// Credential request families. Recording the family name, never a value,
// is the point: the scammer asking is itself the artifact.
var credentialRequests = []struct {
	family string
	re     *regexp.Regexp
}{
	{"otp", regexp.MustCompile(`(?i)\b(?:share|send|tell|give|enter|provide|read)\b[^.?!]{0,40}\botp\b|\botp\b[^.?!]{0,40}\b(?:share|send|tell|give|enter|provide)\b`)},
	{"password", regexp.MustCompile(`(?i)\b(?:share|send|tell|give|enter|provide|confirm)\b[^.?!]{0,40}\bpassword\b`)},
	{"pin", regexp.MustCompile(`(?i)\b(?:share|send|tell|give|enter|provide|confirm)\b[^.?!]{0,40}\b(?:pin|mpin)\b`)},
	{"cvv", regexp.MustCompile(`(?i)\bcvv\b`)},
	{"card-number", regexp.MustCompile(`(?i)\b(?:share|send|tell|give|enter|provide|confirm|read)\b[^.?!]{0,40}\bcard\s*(?:number|no\.?|details)\b`)},
}

var digitsOnly = regexp.MustCompile(`\D`)

// Extract runs every category extractor over the given scammer-authored
// texts and returns the accumulated Intelligence with its risk score set.
// Extraction over the same texts is idempotent.
func Extract(texts []string) *Intelligence {
	in := New()
	for _, text := range texts {
		ExtractInto(in, text)
	}
	in.Recompute()
	return in
}

// ExtractInto extracts from a single text into an existing Intelligence.
// The caller is responsible for calling Recompute after the batch.
func ExtractInto(in *Intelligence, text string) {
	if text == "" {
		return
	}
	lower := strings.ToLower(text)

	for _, re := range accountRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			digits := digitsOnly.ReplaceAllString(m[1], "")
			if len(digits) >= 9 && len(digits) <= 18 {
				in.Add(CategoryFinancialAccount, maskDigits(digits))
			}
		}
	}

	for _, idx := range handleRe.FindAllStringSubmatchIndex(text, -1) {
		// The provider part of a UPI handle has no dot or hyphen after it;
		// anything that continues into one is an email and handled below.
		if end := idx[3]; end < len(text) && (text[end] == '.' || text[end] == '-') {
			continue
		}
		in.Add(CategoryPaymentHandle, strings.ToLower(text[idx[2]:idx[3]]))
	}

	for _, m := range phoneRe.FindAllStringSubmatch(text, -1) {
		in.Add(CategoryPhoneNumber, "+91"+m[1])
	}

	for _, raw := range linkRe.FindAllString(text, -1) {
		if link := normalizeLink(raw); link != "" {
			in.Add(CategoryLink, link)
		}
	}

	for _, m := range emailRe.FindAllStringSubmatch(text, -1) {
		in.Add(CategoryEmail, strings.ToLower(m[1]))
	}

	for _, raw := range cardRe.FindAllString(text, -1) {
		digits := digitsOnly.ReplaceAllString(raw, "")
		if len(digits) >= 13 && len(digits) <= 19 && luhnValid(digits) {
			in.Add(CategoryCardNumber, maskDigits(digits))
		}
	}

	for _, m := range routingRe.FindAllStringSubmatch(text, -1) {
		in.Add(CategoryRoutingCode, strings.ToUpper(m[1]))
	}

	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			in.Add(CategorySuspiciousKeyword, kw)
		}
	}

	for _, cr := range credentialRequests {
		if cr.re.MatchString(text) {
			in.Add(CategoryCredentialRequest, cr.family)
		}
	}
}

// maskDigits keeps only the last four digits, replacing the rest with
// asterisks. Unmasked account and card numbers are never stored.
func maskDigits(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// normalizeLink lowercases the host, assumes http when no scheme is
// present, and drops anything url.Parse rejects.
func normalizeLink(raw string) string {
	raw = strings.TrimRight(raw, ".,;:!?)")
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// luhnValid reports whether the digit string passes the Luhn checksum.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
