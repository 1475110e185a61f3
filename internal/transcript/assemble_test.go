package transcript

import (
	"errors"
	"testing"
)

func TestAssemble(t *testing.T) {
	segments := []Segment{
		{StartSeconds: 0, Text: " Bom dia, tudo bem? "},
		{StartSeconds: 4.2, Text: "Gostaria de falar sobre a fatura."},
		{StartSeconds: 65, Text: "  Obrigado  "},
	}

	got, err := Assemble(segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "(0:00) Bom dia, tudo bem?\n\n(0:04) Gostaria de falar sobre a fatura.\n\n(1:05) Obrigado"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestAssemble_Empty(t *testing.T) {
	got, err := Assemble(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
}

func TestAssemble_NegativeStart(t *testing.T) {
	_, err := Assemble([]Segment{{StartSeconds: -1, Text: "oi"}})
	if !errors.Is(err, ErrNegativeOffset) {
		t.Errorf("expected ErrNegativeOffset, got %v", err)
	}
}

func TestLines_PreservesOrder(t *testing.T) {
	segments := []Segment{
		{StartSeconds: 10, Text: "segundo"},
		{StartSeconds: 2, Text: "primeiro"},
	}

	lines, err := Lines(segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "segundo" || lines[1].Text != "primeiro" {
		t.Errorf("order not preserved: %+v", lines)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		wantErr  bool
	}{
		{"empty", nil, false},
		{"valid", []Segment{{StartSeconds: 0, Text: "oi"}, {StartSeconds: 1.5, Text: "tchau"}}, false},
		{"negative start", []Segment{{StartSeconds: -0.1, Text: "oi"}}, true},
		{"missing text", []Segment{{StartSeconds: 0, Text: ""}}, true},
		{"bad second segment", []Segment{{StartSeconds: 0, Text: "oi"}, {StartSeconds: -3, Text: "x"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.segments)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSegment) {
					t.Errorf("expected ErrInvalidSegment, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}
