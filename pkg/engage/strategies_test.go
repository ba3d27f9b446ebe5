package engage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPackComplete(t *testing.T) {
	pack := DefaultPack()

	if pack.Families[defaultFamilyKey] == nil {
		t.Fatal("default pack has no fallback family")
	}
	for intent, phases := range pack.Families {
		for _, phase := range []Phase{PhaseInitial, PhaseMiddle, PhaseLate} {
			names := phases[phase]
			if len(names) == 0 {
				t.Errorf("%s has no strategies for phase %s", intent, phase)
			}
			for _, name := range names {
				if len(pack.Templates[name]) == 0 {
					t.Errorf("%s/%s references strategy %q with no templates", intent, phase, name)
				}
			}
		}
	}
}

func TestLoadPackMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	content := `
families:
  lottery:
    initial: [custom_winner]
templates:
  custom_winner:
    - "Is this really true? How do I claim?"
quirks:
  - "typing is hard for me"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	pack, err := LoadPack(path)
	if err != nil {
		t.Fatalf("LoadPack: %v", err)
	}

	if got := pack.Families["lottery"][PhaseInitial]; len(got) != 1 || got[0] != "custom_winner" {
		t.Errorf("lottery initial = %v, want [custom_winner]", got)
	}
	// Untouched phases keep their defaults.
	if got := pack.Families["lottery"][PhaseMiddle]; len(got) == 0 {
		t.Error("lottery middle lost its default strategies")
	}
	if got := pack.Families["banking-fraud"][PhaseInitial]; len(got) == 0 {
		t.Error("unrelated intent lost its defaults")
	}
	if len(pack.Quirks) != 1 || pack.Quirks[0] != "typing is hard for me" {
		t.Errorf("quirks = %v, want the override", pack.Quirks)
	}
}

func TestLoadPackRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "dangling_strategy",
			content: `
families:
  phishing:
    initial: [no_such_strategy]
`,
		},
		{
			name: "unknown_phase",
			content: `
families:
  phishing:
    opening: [cautious_follower]
`,
		},
		{
			name: "empty_pool",
			content: `
templates:
  cautious_follower: []
`,
		},
		{
			name:    "bad_yaml",
			content: `families: [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pack.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadPack(path); err == nil {
				t.Error("LoadPack accepted an invalid pack")
			}
		})
	}
}
