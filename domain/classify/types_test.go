package classify

import (
	"testing"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"MICROLENSING", LabelMicrolensing, false},
		{"microlensing", LabelMicrolensing, false},
		{" cv ", LabelCV, false},
		{"RR_LYRAE", LabelRRLyrae, false},
		{"CONSTANT", LabelConstant, false},
		{"OTHER", LabelOther, false},
		{"QUASAR", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLabel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func uniformProbs() map[Label]float64 {
	probs := make(map[Label]float64, len(Labels()))
	for _, l := range Labels() {
		probs[l] = 0.2
	}
	return probs
}

func TestValidateProbabilities(t *testing.T) {
	if err := ValidateProbabilities(uniformProbs()); err != nil {
		t.Errorf("Uniform distribution should validate: %v", err)
	}

	probs := uniformProbs()
	delete(probs, LabelCV)
	if err := ValidateProbabilities(probs); err == nil {
		t.Error("Expected error for missing class")
	}

	probs = uniformProbs()
	probs[LabelOther] = -0.2
	if err := ValidateProbabilities(probs); err == nil {
		t.Error("Expected error for negative probability")
	}

	probs = uniformProbs()
	probs[LabelOther] = 0.5
	if err := ValidateProbabilities(probs); err == nil {
		t.Error("Expected error for sum far from 1")
	}

	// Sum within tolerance passes
	probs = uniformProbs()
	probs[LabelOther] = 0.2 + 5e-7
	if err := ValidateProbabilities(probs); err != nil {
		t.Errorf("Sum within tolerance should validate: %v", err)
	}
}

func TestLabelsOrderIsStable(t *testing.T) {
	want := []Label{LabelConstant, LabelCV, LabelRRLyrae, LabelMicrolensing, LabelOther}
	got := Labels()
	if len(got) != len(want) {
		t.Fatalf("Expected %d labels, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Label order changed at %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
