package services

import (
	"encoding/json"
	"testing"
)

func TestSkillsSignatureLengthAndStability(t *testing.T) {
	attacks := json.RawMessage(`[{"name":"でんきショック","damage":"20"}]`)

	a, err := SkillsSignature(nil, attacks)
	if err != nil {
		t.Fatalf("SkillsSignature returned error: %v", err)
	}
	if len(a) != SignatureLength {
		t.Errorf("len(SkillsSignature) = %d, want %d", len(a), SignatureLength)
	}

	b, err := SkillsSignature(json.RawMessage(`null`), attacks)
	if err != nil {
		t.Fatalf("SkillsSignature returned error: %v", err)
	}
	if a != b {
		t.Errorf("null abilities gave %q, missing abilities gave %q; want equal", b, a)
	}
}

func TestSkillsSignatureDistinguishesMechanics(t *testing.T) {
	tests := []struct {
		name      string
		abilities string
		attacks   string
	}{
		{"empty", `[]`, `[]`},
		{"one attack", `[]`, `[{"name":"たいあたり","damage":"10"}]`},
		{"more damage", `[]`, `[{"name":"たいあたり","damage":"20"}]`},
		{"ability only", `[{"name":"にげあし"}]`, `[]`},
	}

	seen := map[string]string{}
	for _, tt := range tests {
		sig, err := SkillsSignature(json.RawMessage(tt.abilities), json.RawMessage(tt.attacks))
		if err != nil {
			t.Fatalf("%s: SkillsSignature returned error: %v", tt.name, err)
		}
		if other, dup := seen[sig]; dup {
			t.Errorf("%s and %s share signature %q", tt.name, other, sig)
		}
		seen[sig] = tt.name
	}
}

func TestSkillsSignatureIgnoresWhitespace(t *testing.T) {
	a, _ := SkillsSignature(json.RawMessage(`[]`), json.RawMessage(`[{"name":"A","damage":"10"}]`))
	b, _ := SkillsSignature(json.RawMessage(` [ ] `), json.RawMessage("[\n  {\"name\": \"A\", \"damage\": \"10\"}\n]"))
	if a != b {
		t.Errorf("SkillsSignature differs by formatting: %q vs %q", a, b)
	}
}
