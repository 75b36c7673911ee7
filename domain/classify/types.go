// Package classify defines the classification domain: class labels,
// model output, confirmation fit attempts, and the final pipeline result.
package classify

import (
	"fmt"
	"math"
	"strings"

	"microlens/domain/core"
)

// Label is the closed set of source classes the pipeline can assign.
type Label string

const (
	LabelConstant     Label = "CONSTANT"
	LabelCV           Label = "CV"
	LabelRRLyrae      Label = "RR_LYRAE"
	LabelMicrolensing Label = "MICROLENSING"
	LabelOther        Label = "OTHER"
)

// Labels returns all class labels in their canonical order. The order is part
// of the model contract: probability vectors follow it.
func Labels() []Label {
	return []Label{LabelConstant, LabelCV, LabelRRLyrae, LabelMicrolensing, LabelOther}
}

// ParseLabel converts a string to a Label, case-insensitively.
func ParseLabel(s string) (Label, error) {
	switch Label(strings.ToUpper(strings.TrimSpace(s))) {
	case LabelConstant:
		return LabelConstant, nil
	case LabelCV:
		return LabelCV, nil
	case LabelRRLyrae:
		return LabelRRLyrae, nil
	case LabelMicrolensing:
		return LabelMicrolensing, nil
	case LabelOther:
		return LabelOther, nil
	}
	return "", fmt.Errorf("unknown class label %q", s)
}

func (l Label) String() string {
	return string(l)
}

// Valid reports whether l is one of the closed label set.
func (l Label) Valid() bool {
	_, err := ParseLabel(string(l))
	return err == nil
}

// Result is the validated output of the classification model.
type Result struct {
	Label         Label             `json:"label"`
	Probabilities map[Label]float64 `json:"probabilities"`
}

// ProbabilityTolerance is the allowed deviation of the probability sum from 1.
const ProbabilityTolerance = 1e-6

// ValidateProbabilities checks a probability map against the closed label set:
// every label present, values non-negative, sum within tolerance of 1.
func ValidateProbabilities(probs map[Label]float64) error {
	sum := 0.0
	for _, l := range Labels() {
		p, ok := probs[l]
		if !ok {
			return fmt.Errorf("missing probability for class %s", l)
		}
		if math.IsNaN(p) || p < 0 {
			return fmt.Errorf("invalid probability %g for class %s", p, l)
		}
		sum += p
	}
	if len(probs) != len(Labels()) {
		return fmt.Errorf("probability map has %d entries, expected %d", len(probs), len(Labels()))
	}
	if math.Abs(sum-1.0) > ProbabilityTolerance {
		return fmt.Errorf("probabilities sum to %g, expected 1.0", sum)
	}
	return nil
}

// FitMethod identifies which optimizer stage produced a fit attempt.
type FitMethod string

const (
	FitLocalGradient    FitMethod = "LOCAL_GRADIENT"
	FitGlobalStochastic FitMethod = "GLOBAL_STOCHASTIC"
)

// PSPLParams holds the point-source-point-lens parameters.
type PSPLParams struct {
	T0 float64 `json:"t0"` // epoch of peak magnification
	U0 float64 `json:"u0"` // minimum impact parameter
	TE float64 `json:"tE"` // event timescale, in time units of the lightcurve
}

// FitAttempt records one optimizer stage of the confirmation fit.
type FitAttempt struct {
	Method        FitMethod  `json:"method"`
	Params        PSPLParams `json:"params"`
	ReducedChiSq  float64    `json:"reduced_chi_square"`
	Converged     bool       `json:"converged"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// PipelineResult is the final, immutable output of one pipeline invocation.
type PipelineResult struct {
	RunID         core.RunID        `json:"run_id"`
	Label         Label             `json:"label"`
	Probabilities map[Label]float64 `json:"probabilities"`
	FitAttempts   []FitAttempt      `json:"fit_attempts,omitempty"`
	Confirmed     bool              `json:"confirmed"`
	CreatedAt     core.Timestamp    `json:"created_at"`
}
