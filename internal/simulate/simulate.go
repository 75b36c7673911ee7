// Package simulate generates synthetic lightcurves for the five source
// classes. The generators draw physical parameters from per-class
// distributions, add a magnitude-dependent Gaussian photometric noise model,
// and enforce per-class quality checks so every emitted curve actually
// carries its class signature at the sampled cadence.
package simulate

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"microlens/domain/classify"
	"microlens/internal/errors"
)

// maxAttempts bounds the rejection-sampling loop for classes with a quality
// check. Exceeding it means the cadence cannot carry the signal.
const maxAttempts = 100

// Config sets the photometric regime shared by all generators.
type Config struct {
	MinMag    float64 // brightest allowed baseline
	MaxMag    float64 // faintest allowed baseline
	ZeroPoint float64 // noise-model zero point, fainter than MaxMag
	MLMinIn   int     // minimum epochs inside t0 ± tE
	CVMinIn   int     // minimum epochs inside at least one outburst
}

// DefaultConfig mirrors a ground-based survey at roughly 1% photometry on
// the bright end.
func DefaultConfig() Config {
	return Config{
		MinMag:    14,
		MaxMag:    21,
		ZeroPoint: 24,
		MLMinIn:   7,
		CVMinIn:   7,
	}
}

// Curve is one simulated lightcurve with its generating truth attached.
type Curve struct {
	Label classify.Label
	Time  []float64
	Mag   []float64
	Err   []float64
	Event *EventParams // set for MICROLENSING only
}

// EventParams records the microlensing truth used to generate a curve.
type EventParams struct {
	Baseline   float64
	T0         float64
	U0         float64
	TE         float64
	BlendRatio float64
}

// Generator produces curves from a single seeded source, so a fixed seed
// reproduces the whole training set.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator validates the config and seeds the random source.
func NewGenerator(cfg Config, seed uint64) (*Generator, error) {
	if cfg.MinMag >= cfg.MaxMag {
		return nil, errors.InvalidInput("simulation requires MinMag < MaxMag")
	}
	if cfg.ZeroPoint <= cfg.MaxMag {
		return nil, errors.InvalidInput("noise zero point must be fainter than MaxMag")
	}
	if seed == 0 {
		seed = 1
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

// Timestamps builds a survey-like cadence: n epochs at the given cadence
// with uniform jitter of half a cadence step.
func (g *Generator) Timestamps(n int, start, cadence float64) []float64 {
	times := make([]float64, n)
	for i := range times {
		times[i] = start + float64(i)*cadence + g.rng.Float64()*cadence/2
	}
	return times
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) baseline() float64 {
	return g.uniform(g.cfg.MinMag, g.cfg.MaxMag)
}

// Constant simulates a non-variable source: baseline plus noise only.
func (g *Generator) Constant(times []float64) Curve {
	base := g.baseline()
	mags := make([]float64, len(times))
	for i := range mags {
		mags[i] = base
	}
	mags, errs := g.addNoise(mags)
	return Curve{Label: classify.LabelConstant, Time: times, Mag: mags, Err: errs}
}

// RRLyrae simulates a short-period pulsator: fundamental sinusoid plus a
// second harmonic that sharpens the rising branch.
func (g *Generator) RRLyrae(times []float64) Curve {
	base := g.baseline()
	amplitude := g.uniform(0.3, 1.0)
	period := g.uniform(0.2, 0.9)
	phase := g.uniform(0, 2*math.Pi)

	mags := make([]float64, len(times))
	for i, t := range times {
		omega := 2 * math.Pi * t / period
		mags[i] = base +
			amplitude*math.Sin(omega+phase) +
			0.35*amplitude*math.Sin(2*omega+phase+0.4)
	}
	mags, errs := g.addNoise(mags)
	return Curve{Label: classify.LabelRRLyrae, Time: times, Mag: mags, Err: errs}
}

// CV simulates a dwarf-nova outburst train: linear rise, plateau, linear
// decline, repeating at a drawn recurrence time. Rejection-samples until
// enough epochs land inside an outburst.
func (g *Generator) CV(times []float64) (Curve, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		base := g.baseline()
		amplitude := g.uniform(0.5, 3.0)
		rise := g.uniform(0.5, 2.0)
		plateau := g.uniform(3.0, 10.0)
		decline := g.uniform(1.0, 4.0)
		recurrence := g.uniform(20, 80)
		offset := g.uniform(0, recurrence)

		start, end := times[0], times[len(times)-1]
		var bursts [][2]float64
		for t := start - recurrence + offset; t < end; t += recurrence {
			bursts = append(bursts, [2]float64{t, t + rise + plateau + decline})
		}

		mags := make([]float64, len(times))
		for i, t := range times {
			mags[i] = base - amplitude*burstProfile(t, bursts, rise, plateau, decline)
		}

		if countInWindows(times, bursts) < g.cfg.CVMinIn {
			continue
		}
		mags, errs := g.addNoise(mags)
		return Curve{Label: classify.LabelCV, Time: times, Mag: mags, Err: errs}, nil
	}
	return Curve{}, errors.InternalError("cadence too sparse to carry a CV outburst")
}

// Microlensing simulates a blended point-source point-lens event and
// rejection-samples until the event is actually sampled: enough epochs
// inside t0 ± tE and a detectable peak brightening.
func (g *Generator) Microlensing(times []float64) (Curve, error) {
	start, end := times[0], times[len(times)-1]
	span := end - start

	for attempt := 0; attempt < maxAttempts; attempt++ {
		base := g.baseline()
		t0 := g.uniform(start+0.1*span, end-0.1*span)
		u0 := g.uniform(0.05, 1.0)
		tE := g.uniform(2.0, span/4)
		blend := g.uniform(0, 1)

		mags := make([]float64, len(times))
		for i, t := range times {
			tau := (t - t0) / tE
			u := math.Sqrt(u0*u0 + tau*tau)
			amp := (u*u + 2) / (u * math.Sqrt(u*u+4))
			mags[i] = base - 2.5*math.Log10((amp+blend)/(1+blend))
		}

		inside := 0
		for _, t := range times {
			if math.Abs(t-t0) < tE {
				inside++
			}
		}
		if inside < g.cfg.MLMinIn {
			continue
		}

		noisy, errs := g.addNoise(mags)
		if !detectablePeak(noisy, errs, base) {
			continue
		}
		return Curve{
			Label: classify.LabelMicrolensing,
			Time:  times,
			Mag:   noisy,
			Err:   errs,
			Event: &EventParams{Baseline: base, T0: t0, U0: u0, TE: tE, BlendRatio: blend},
		}, nil
	}
	return Curve{}, errors.InternalError("cadence too sparse to carry a microlensing event")
}

// Other simulates an irregular variable as a bounded red-noise walk, the
// catch-all class for curves that are variable but fit no template.
func (g *Generator) Other(times []float64) Curve {
	base := g.baseline()
	sigma := g.uniform(0.05, 0.3)
	walk := distuv.Normal{Mu: 0, Sigma: sigma, Src: g.rng}

	mags := make([]float64, len(times))
	level := 0.0
	for i := range times {
		level = 0.9*level + walk.Rand()
		// reflect drifts beyond one magnitude back toward the baseline
		if level > 1 {
			level = 2 - level
		}
		if level < -1 {
			level = -2 - level
		}
		mags[i] = base + level
	}
	mags, errs := g.addNoise(mags)
	return Curve{Label: classify.LabelOther, Time: times, Mag: mags, Err: errs}
}

// Simulate dispatches on label. CONSTANT, RR_LYRAE and OTHER cannot fail.
func (g *Generator) Simulate(label classify.Label, times []float64) (Curve, error) {
	switch label {
	case classify.LabelConstant:
		return g.Constant(times), nil
	case classify.LabelRRLyrae:
		return g.RRLyrae(times), nil
	case classify.LabelCV:
		return g.CV(times)
	case classify.LabelMicrolensing:
		return g.Microlensing(times)
	case classify.LabelOther:
		return g.Other(times), nil
	default:
		return Curve{}, errors.InvalidInput("unknown simulation class " + label.String())
	}
}

// addNoise applies the photon-limited Gaussian noise model: the error grows
// exponentially toward the zero point, floored at millimag precision.
func (g *Generator) addNoise(mags []float64) ([]float64, []float64) {
	noisy := make([]float64, len(mags))
	errs := make([]float64, len(mags))
	for i, m := range mags {
		flux := math.Pow(10, -0.4*(m-g.cfg.ZeroPoint))
		sigma := 1.0857 / math.Sqrt(flux)
		if sigma < 0.001 {
			sigma = 0.001
		}
		dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: g.rng}
		noisy[i] = m + dist.Rand()
		errs[i] = sigma
	}
	return noisy, errs
}

// burstProfile is the unit-amplitude outburst shape at epoch t.
func burstProfile(t float64, bursts [][2]float64, rise, plateau, decline float64) float64 {
	for _, b := range bursts {
		if t < b[0] || t > b[1] {
			continue
		}
		dt := t - b[0]
		switch {
		case dt < rise:
			return dt / rise
		case dt < rise+plateau:
			return 1
		default:
			return 1 - (dt-rise-plateau)/decline
		}
	}
	return 0
}

func countInWindows(times []float64, windows [][2]float64) int {
	best := 0
	for _, w := range windows {
		n := 0
		for _, t := range times {
			if t >= w[0] && t <= w[1] {
				n++
			}
		}
		if n > best {
			best = n
		}
	}
	return best
}

// detectablePeak requires the brightest epoch to sit at least three sigma
// above baseline, so the noise did not wash the event out.
func detectablePeak(mags, errs []float64, baseline float64) bool {
	for i := range mags {
		if baseline-mags[i] > 3*errs[i] {
			return true
		}
	}
	return false
}
