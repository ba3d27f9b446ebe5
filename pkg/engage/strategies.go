package engage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pack holds the strategy families, template pools, and persona quirks
// the engine composes replies from. Families map an intent name to an
// ordered set of strategy names per phase; templates map a strategy name
// to its reply pool.
type Pack struct {
	Families  map[string]map[Phase][]string `yaml:"families"`
	Templates map[string][]string           `yaml:"templates"`
	Quirks    []string                      `yaml:"quirks"`
}

// defaultFamilyKey is used when an intent has no configured family.
const defaultFamilyKey = "default"

// DefaultPack returns the built-in strategy pack.
func DefaultPack() *Pack {
	return &Pack{
		Families: map[string]map[Phase][]string{
			"banking-fraud": {
				PhaseInitial: {"worried_account_holder", "confused_victim"},
				PhaseMiddle:  {"slow_complier", "document_fumbler"},
				PhaseLate:    {"almost_convinced", "second_thoughts"},
			},
			"upi-fraud": {
				PhaseInitial: {"confused_victim", "tech_struggler"},
				PhaseMiddle:  {"tech_struggler", "slow_complier"},
				PhaseLate:    {"almost_convinced", "second_thoughts"},
			},
			"phishing": {
				PhaseInitial: {"cautious_follower", "confused_victim"},
				PhaseMiddle:  {"cautious_follower", "tech_struggler"},
				PhaseLate:    {"second_thoughts", "almost_convinced"},
			},
			"lottery": {
				PhaseInitial: {"eager_winner"},
				PhaseMiddle:  {"fee_questioner", "document_fumbler"},
				PhaseLate:    {"almost_convinced", "fee_questioner"},
			},
			"job-scam": {
				PhaseInitial: {"hopeful_applicant"},
				PhaseMiddle:  {"hopeful_applicant", "document_fumbler"},
				PhaseLate:    {"second_thoughts", "almost_convinced"},
			},
			"kyc-fraud": {
				PhaseInitial: {"worried_account_holder", "cautious_follower"},
				PhaseMiddle:  {"document_fumbler", "slow_complier"},
				PhaseLate:    {"almost_convinced", "second_thoughts"},
			},
			defaultFamilyKey: {
				PhaseInitial: {"polite_inquiry", "confused_victim"},
				PhaseMiddle:  {"confused_victim", "slow_complier"},
				PhaseLate:    {"second_thoughts"},
			},
		},
		Templates: map[string][]string{
			"worried_account_holder": {
				"Oh no, is my account really blocked? I am so worried, what should I do?",
				"Oh god, my whole salary is in that account. How do I fix this?",
				"This is scary. Are you sure it is my account you are talking about?",
			},
			"confused_victim": {
				"Sorry, I don't understand. What happened exactly?",
				"I am confused, which account are you talking about?",
				"Wait, I think there is some mistake. What is this regarding?",
			},
			"slow_complier": {
				"Okay okay, I am trying. My phone is very slow, give me a minute.",
				"I am looking for my papers, one minute please.",
				"Which number should I use? I have two accounts.",
			},
			"document_fumbler": {
				"I cannot find my passbook right now. Can I send the details later today?",
				"My card is in the other room, please hold on.",
				"I wrote the number somewhere, let me check my diary first.",
			},
			"almost_convinced": {
				"Okay I think I understand now. Where exactly do I send it?",
				"Fine, I will do it. Can you tell me the account details once more?",
				"Alright, just tell me the steps one by one and I will follow.",
			},
			"second_thoughts": {
				"My son says I should not share this. Can you prove you are from the bank?",
				"Hmm, I am worried about this. Is there an office I can visit instead?",
				"Before I do anything, can you send me something official?",
			},
			"eager_winner": {
				"Really? I won? I never win anything! How do I claim it?",
				"That is wonderful news! What do I need to do?",
				"How much did I win exactly? Is it real money?",
			},
			"fee_questioner": {
				"Why do I have to pay a fee if I won? Can you cut it from the prize money?",
				"Which account do I pay the fee to? And how much is it?",
				"Is the fee refundable? I am a little worried about paying first.",
			},
			"hopeful_applicant": {
				"Yes, I am looking for work! What is the job exactly?",
				"What is the salary? And is it work from home?",
				"I can start immediately. What documents do you need?",
			},
			"cautious_follower": {
				"You want my OTP? Why do you need that? Nobody asked me before.",
				"I got a code just now. Are you sure it is safe to tell you?",
				"Should I click the link? My nephew told me to be careful with links.",
			},
			"tech_struggler": {
				"The page is not opening on my phone. What do I do now?",
				"It is asking for something called UPI pin, where do I find that?",
				"My internet is very slow today, can you tell me another way?",
			},
			"polite_inquiry": {
				"Hello, who is this please? What is this regarding?",
				"Sorry, I did not see your message earlier. Can you say it again?",
				"Namaste, how can I help you?",
			},
		},
		Quirks: []string{
			"Sorry, my English is not so good.",
			"I am still learning this smartphone.",
			"My grandson usually helps me with these things.",
		},
	}
}

// family returns the strategy names for an intent and phase, falling back
// to the default family for unrecognized intents.
func (p *Pack) family(intent string, phase Phase) []string {
	if phases, ok := p.Families[intent]; ok {
		if names := phases[phase]; len(names) > 0 {
			return names
		}
	}
	return p.Families[defaultFamilyKey][phase]
}

// LoadPack reads a YAML strategy pack and merges it over the defaults.
// Families and templates override per key; quirks replace wholesale when
// present. An invalid file returns an error and the defaults unchanged.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy pack: %w", err)
	}

	var loaded Pack
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse strategy pack: %w", err)
	}

	pack := DefaultPack()
	for intent, phases := range loaded.Families {
		if pack.Families[intent] == nil {
			pack.Families[intent] = make(map[Phase][]string)
		}
		for phase, names := range phases {
			if phase != PhaseInitial && phase != PhaseMiddle && phase != PhaseLate {
				return nil, fmt.Errorf("strategy pack: unknown phase %q for intent %q", phase, intent)
			}
			pack.Families[intent][phase] = names
		}
	}
	for strategy, templates := range loaded.Templates {
		if len(templates) == 0 {
			return nil, fmt.Errorf("strategy pack: empty template pool for %q", strategy)
		}
		pack.Templates[strategy] = templates
	}
	if len(loaded.Quirks) > 0 {
		pack.Quirks = loaded.Quirks
	}

	// Every strategy referenced by a family needs at least one template.
	for intent, phases := range pack.Families {
		for phase, names := range phases {
			for _, name := range names {
				if len(pack.Templates[name]) == 0 {
					return nil, fmt.Errorf("strategy pack: %s/%s references %q which has no templates", intent, phase, name)
				}
			}
		}
	}
	return pack, nil
}
