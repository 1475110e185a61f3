package sentiment

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		text     string
		expected Sentiment
	}{
		{"o atendimento foi ótimo e excelente", Positive},
		{"o atendimento foi péssimo", Negative},
		{"o atendimento foi normal", Neutral},
		{"", Neutral},
		{"bom mas ruim", Neutral},
		{"ÓTIMO, muito bom", Positive},
		{"(0:00) horrível e terrível\n\n(0:05) mas o produto é bom", Negative},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Classify(tt.text)
			if got != tt.expected {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.expected)
			}
		})
	}
}

func TestScore_ExactTokensOnly(t *testing.T) {
	sc := Score("ótimo, bom. bonzinho ruins nada ruim")
	if sc.Positive != 0 {
		t.Errorf("expected punctuated or partial words to not count, got %d positive", sc.Positive)
	}
	if sc.Negative != 1 {
		t.Errorf("expected 1 negative, got %d", sc.Negative)
	}
}

func TestScore_NoNegationHandling(t *testing.T) {
	if got := Classify("não foi bom"); got != Positive {
		t.Errorf("expected negation to be ignored, got %s", got)
	}
}

func TestSentiment_Labels(t *testing.T) {
	tests := []struct {
		s     Sentiment
		code  string
		label string
	}{
		{Positive, "positive", "Satisfeito"},
		{Negative, "negative", "Insatisfeito"},
		{Neutral, "neutral", "Neutro"},
	}

	for _, tt := range tests {
		if tt.s.String() != tt.code {
			t.Errorf("expected code %s, got %s", tt.code, tt.s.String())
		}
		if tt.s.Label() != tt.label {
			t.Errorf("expected label %s, got %s", tt.label, tt.s.Label())
		}
		b, err := tt.s.MarshalText()
		if err != nil || string(b) != tt.code {
			t.Errorf("MarshalText() = %q, %v", b, err)
		}
	}
}
