package transcript

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses whitespace", "  olá   mundo \n\n tudo\tbem ", "olá mundo tudo bem"},
		{"comma before e", "pão e leite", "pão, e leite"},
		{"comma before então", "esperei então desisti", "esperei, então desisti"},
		{"case insensitive", "liguei E ENTÃO desliguei", "liguei, E, ENTÃO desliguei"},
		{"existing comma kept", "pão, e leite", "pão, e leite"},
		{"leading connector untouched", "e depois", "e depois"},
		{"leading connector after blank lines", "\n\n  então tá", "então tá"},
		{"words containing e untouched", "ele e eu", "ele, e eu"},
		{"connector with punctuation", "fiquei e.", "fiquei, e."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"pão e leite e café",
		"(0:00) Bom dia e obrigado\n\n(0:04) então tá",
		"e e e",
		"   ",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestInsertConnectorCommas_DoesNotMutateInput(t *testing.T) {
	tokens := []string{"pão", "e", "leite"}
	_ = InsertConnectorCommas(tokens)
	if tokens[0] != "pão" {
		t.Errorf("input slice was modified: %v", tokens)
	}
}
