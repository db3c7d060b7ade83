package patterns

import "testing"

func TestDefaultBankLoadsCanonicalPatterns(t *testing.T) {
	bank := Default()
	if len(bank.Patterns()) != 7 {
		t.Fatalf("expected 7 canonical patterns, got %d", len(bank.Patterns()))
	}
}

func TestPatternMatch(t *testing.T) {
	bank := Default()
	var email *Pattern
	for _, p := range bank.Patterns() {
		if p.PiiType == "EMAIL" {
			email = p
		}
	}
	if email == nil {
		t.Fatal("expected an EMAIL pattern in the default bank")
	}
	if !email.Match("jane.doe@example.com") {
		t.Error("expected a well-formed email address to match")
	}
	if email.Match("not-an-email") {
		t.Error("expected a bare word not to match the email pattern")
	}
}

func TestPatternAppliesWithoutConditionAlwaysTrue(t *testing.T) {
	p := &Pattern{}
	if !p.Applies(map[string]interface{}{}) {
		t.Error("a pattern without a condition should always apply")
	}
}

func TestLoadYAMLCompilesConditionExpression(t *testing.T) {
	doc := []byte(`
patterns:
  - name: GATED
    regex: '^\d+$'
    pii_type: NUMERIC_ID
    base_score: 0.5
    condition: "distinctRatio > 0.5"
`)
	bank, err := LoadYAML(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := bank.Patterns()[0]
	if !p.Applies(map[string]interface{}{"distinctRatio": 0.9}) {
		t.Error("expected condition to be true when distinctRatio > 0.5")
	}
	if p.Applies(map[string]interface{}{"distinctRatio": 0.1}) {
		t.Error("expected condition to be false when distinctRatio <= 0.5")
	}
}

func TestLoadYAMLRejectsInvalidRegex(t *testing.T) {
	doc := []byte(`
patterns:
  - name: BROKEN
    regex: '['
    pii_type: X
    base_score: 0.5
`)
	if _, err := LoadYAML(doc); err == nil {
		t.Error("expected an error for an invalid regex pattern")
	}
}
