// Package confirm re-examines microlensing candidates with a physical
// point-source-point-lens fit. The two-stage optimizer fallback is an
// explicit finite state machine, so every transition and its gating
// condition is independently testable.
package confirm

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"microlens/domain/classify"
	"microlens/domain/lightcurve"
	"microlens/internal/config"
	"microlens/ports"
)

// State enumerates the confirmation state machine.
type State string

const (
	StateCandidate State = "CANDIDATE"
	StateLocalFit  State = "LOCAL_FIT"
	StateGlobalFit State = "GLOBAL_FIT"
	StateAccepted  State = "ACCEPTED"
	StateRejected  State = "REJECTED"
)

// penaltyLoss is returned by the objective outside the parameter box; large
// enough to dominate any physical chi-square while staying finite for the
// optimizers.
const penaltyLoss = 1e8

// Outcome is the terminal result of one confirmation run.
type Outcome struct {
	Label      classify.Label
	Confirmed  bool
	Attempts   []classify.FitAttempt
	FinalState State
}

// Engine fits the PSPL model through the optimizer ports and applies the
// acceptance gates. Stateless across invocations.
type Engine struct {
	lens   ports.LensModel
	local  ports.LocalOptimizer
	global ports.GlobalOptimizer
	cfg    config.Pipeline
}

// NewEngine builds a confirmation engine around the lens-model and
// optimizer capabilities.
func NewEngine(lens ports.LensModel, local ports.LocalOptimizer, global ports.GlobalOptimizer, cfg config.Pipeline) *Engine {
	return &Engine{lens: lens, local: local, global: global, cfg: cfg}
}

// Confirm runs the state machine for a classified lightcurve. Curves not
// labeled MICROLENSING pass through untouched. A rejected candidate is
// relabeled OTHER: the physical fit is authoritative for this class.
func (e *Engine) Confirm(ctx context.Context, lc *lightcurve.LightCurve, result *classify.Result) Outcome {
	if result.Label != classify.LabelMicrolensing {
		return Outcome{Label: result.Label, FinalState: StateCandidate}
	}

	bounds := e.parameterBounds(lc)
	obj := e.objective(lc, bounds)

	outcome := Outcome{Label: classify.LabelMicrolensing}
	state := StateCandidate

	for {
		switch state {
		case StateCandidate:
			state = StateLocalFit

		case StateLocalFit:
			attempt := e.runLocal(ctx, obj, lc, bounds)
			outcome.Attempts = append(outcome.Attempts, attempt)
			if e.gate(attempt, lc, false) {
				state = StateAccepted
			} else {
				state = StateGlobalFit
			}

		case StateGlobalFit:
			attempt := e.runGlobal(ctx, obj, bounds)
			outcome.Attempts = append(outcome.Attempts, attempt)
			if e.gate(attempt, lc, true) {
				state = StateAccepted
			} else {
				state = StateRejected
			}

		case StateAccepted:
			outcome.Confirmed = true
			outcome.FinalState = StateAccepted
			return outcome

		case StateRejected:
			outcome.Label = classify.LabelOther
			outcome.Confirmed = false
			outcome.FinalState = StateRejected
			return outcome
		}
	}
}

// parameterBounds builds the search box from the observed span and the
// configured physical limits.
func (e *Engine) parameterBounds(lc *lightcurve.LightCurve) ports.Bounds {
	span := lc.Span()
	margin := e.cfg.T0MarginFrac * span
	return ports.Bounds{
		Lower: []float64{lc.Start() - margin, 1e-4, e.cfg.TEMin},
		Upper: []float64{lc.End() + margin, e.cfg.U0Max, e.cfg.TEMaxSpanFrac * span},
	}
}

// objective is the reduced chi-square of the PSPL prediction against the
// observed magnitudes, with a box penalty outside the bounds.
func (e *Engine) objective(lc *lightcurve.LightCurve, bounds ports.Bounds) ports.Objective {
	times := lc.Time()
	mags := lc.Mag()
	errs := lc.Err()
	baseline := baselineMag(mags)
	dof := float64(len(mags) - 3)
	if dof < 1 {
		dof = 1
	}

	return func(x []float64) float64 {
		for i := range x {
			if x[i] < bounds.Lower[i] || x[i] > bounds.Upper[i] || math.IsNaN(x[i]) {
				return penaltyLoss + boxDistance(x, bounds)
			}
		}
		pred := e.lens.Evaluate(x[0], x[1], x[2], baseline, times)
		chi2 := 0.0
		for i := range mags {
			r := (mags[i] - pred[i]) / errs[i]
			chi2 += r * r
		}
		return chi2 / dof
	}
}

func (e *Engine) runLocal(ctx context.Context, obj ports.Objective, lc *lightcurve.LightCurve, bounds ports.Bounds) classify.FitAttempt {
	init := e.initialGuess(lc, bounds)
	res, err := e.local.Minimize(ctx, obj, init, bounds)
	return e.toAttempt(classify.FitLocalGradient, res, err)
}

func (e *Engine) runGlobal(ctx context.Context, obj ports.Objective, bounds ports.Bounds) classify.FitAttempt {
	res, err := e.global.Minimize(ctx, obj, bounds)
	return e.toAttempt(classify.FitGlobalStochastic, res, err)
}

func (e *Engine) toAttempt(method classify.FitMethod, res ports.OptimizeResult, err error) classify.FitAttempt {
	attempt := classify.FitAttempt{Method: method}
	if err != nil {
		attempt.Converged = false
		attempt.ReducedChiSq = math.Inf(1)
		attempt.FailureReason = err.Error()
		return attempt
	}
	attempt.Converged = res.Converged
	attempt.ReducedChiSq = res.Loss
	if len(res.X) == 3 {
		attempt.Params = classify.PSPLParams{T0: res.X[0], U0: res.X[1], TE: res.X[2]}
	}
	return attempt
}

// initialGuess seeds the local stage from the brightening peak.
func (e *Engine) initialGuess(lc *lightcurve.LightCurve, bounds ports.Bounds) []float64 {
	guess := []float64{lc.PeakTime(), 0.5, lc.Span() / 10}
	for i := range guess {
		if guess[i] < bounds.Lower[i] {
			guess[i] = bounds.Lower[i]
		}
		if guess[i] > bounds.Upper[i] {
			guess[i] = bounds.Upper[i]
		}
	}
	return guess
}

// gate applies the acceptance criteria to one attempt. The chi-square gate
// is strict for the local stage; the global stage is clamped to exactly the
// threshold, since noisier data legitimately fits worse.
func (e *Engine) gate(attempt classify.FitAttempt, lc *lightcurve.LightCurve, clamped bool) bool {
	if !attempt.Converged {
		return false
	}
	span := lc.Span()
	margin := e.cfg.T0MarginFrac * span
	p := attempt.Params
	if p.T0 < lc.Start()-margin || p.T0 > lc.End()+margin {
		return false
	}
	if p.U0 <= 0 || p.U0 > e.cfg.U0Max {
		return false
	}
	if p.TE < e.cfg.TEMin || p.TE > e.cfg.TEMaxSpanFrac*span {
		return false
	}
	if clamped {
		return attempt.ReducedChiSq <= e.cfg.ChiSqThreshold
	}
	return attempt.ReducedChiSq < e.cfg.ChiSqThreshold
}

// baselineMag estimates the out-of-event brightness as the median magnitude.
func baselineMag(mags []float64) float64 {
	med, err := stats.Median(mags)
	if err != nil {
		return 0
	}
	return med
}

func boxDistance(x []float64, bounds ports.Bounds) float64 {
	d := 0.0
	for i := range x {
		if math.IsNaN(x[i]) {
			return math.MaxFloat64 / 4
		}
		if x[i] < bounds.Lower[i] {
			d += bounds.Lower[i] - x[i]
		}
		if x[i] > bounds.Upper[i] {
			d += x[i] - bounds.Upper[i]
		}
	}
	return d
}

// DescribeGate returns a human-readable reason the attempt failed its gate,
// for diagnostics; empty when the attempt passes.
func (e *Engine) DescribeGate(attempt classify.FitAttempt, lc *lightcurve.LightCurve, clamped bool) string {
	if e.gate(attempt, lc, clamped) {
		return ""
	}
	if !attempt.Converged {
		return "optimizer did not converge"
	}
	span := lc.Span()
	margin := e.cfg.T0MarginFrac * span
	p := attempt.Params
	switch {
	case p.T0 < lc.Start()-margin || p.T0 > lc.End()+margin:
		return fmt.Sprintf("t0=%.2f outside observed window", p.T0)
	case p.U0 <= 0 || p.U0 > e.cfg.U0Max:
		return fmt.Sprintf("u0=%.3f outside (0, %.2f]", p.U0, e.cfg.U0Max)
	case p.TE < e.cfg.TEMin || p.TE > e.cfg.TEMaxSpanFrac*span:
		return fmt.Sprintf("tE=%.2f outside [%.2f, %.2f]", p.TE, e.cfg.TEMin, e.cfg.TEMaxSpanFrac*span)
	default:
		return fmt.Sprintf("reduced chi-square %.3f above threshold %.2f", attempt.ReducedChiSq, e.cfg.ChiSqThreshold)
	}
}
