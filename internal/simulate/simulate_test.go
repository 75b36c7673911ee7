package simulate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microlens/domain/classify"
	"microlens/domain/lightcurve"
)

func newTestGenerator(t *testing.T, seed uint64) *Generator {
	t.Helper()
	g, err := NewGenerator(DefaultConfig(), seed)
	require.NoError(t, err)
	return g
}

func TestNewGeneratorValidatesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinMag = 22
	_, err := NewGenerator(cfg, 1)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.ZeroPoint = cfg.MaxMag
	_, err = NewGenerator(cfg, 1)
	assert.Error(t, err)
}

func TestTimestampsAreOrderedAndJittered(t *testing.T) {
	g := newTestGenerator(t, 3)
	times := g.Timestamps(200, 0, 1.0)

	require.Len(t, times, 200)
	for i := 1; i < len(times); i++ {
		assert.Greater(t, times[i], times[i-1])
	}
}

func TestEveryClassProducesValidCurves(t *testing.T) {
	g := newTestGenerator(t, 7)
	times := g.Timestamps(150, 0, 1.0)

	for _, label := range classify.Labels() {
		curve, err := g.Simulate(label, times)
		require.NoError(t, err, "class %s", label)

		assert.Equal(t, label, curve.Label)
		require.Len(t, curve.Mag, len(times))
		require.Len(t, curve.Err, len(times))
		for i := range curve.Mag {
			assert.False(t, math.IsNaN(curve.Mag[i]))
			assert.Greater(t, curve.Err[i], 0.0)
		}

		// every simulated curve must pass ingestion validation
		_, err = lightcurve.New(curve.Time, curve.Mag, curve.Err, 30)
		require.NoError(t, err, "class %s", label)
	}
}

func TestMicrolensingCarriesEventTruth(t *testing.T) {
	g := newTestGenerator(t, 11)
	times := g.Timestamps(200, 0, 1.0)

	curve, err := g.Microlensing(times)
	require.NoError(t, err)
	require.NotNil(t, curve.Event)

	e := curve.Event
	assert.Greater(t, e.U0, 0.0)
	assert.LessOrEqual(t, e.U0, 1.0)
	assert.Greater(t, e.TE, 0.0)
	assert.Greater(t, e.T0, times[0])
	assert.Less(t, e.T0, times[len(times)-1])

	// enough epochs sampled inside the event window
	inside := 0
	for _, tt := range curve.Time {
		if math.Abs(tt-e.T0) < e.TE {
			inside++
		}
	}
	assert.GreaterOrEqual(t, inside, DefaultConfig().MLMinIn)
}

func TestConstantCurveIsQuiet(t *testing.T) {
	g := newTestGenerator(t, 5)
	times := g.Timestamps(100, 0, 1.0)
	curve := g.Constant(times)

	// chi-square-like scatter check: residuals should match reported errors
	sum := 0.0
	mean := 0.0
	for _, m := range curve.Mag {
		mean += m
	}
	mean /= float64(len(curve.Mag))
	for i := range curve.Mag {
		r := (curve.Mag[i] - mean) / curve.Err[i]
		sum += r * r
	}
	reduced := sum / float64(len(curve.Mag)-1)
	assert.Greater(t, reduced, 0.5)
	assert.Less(t, reduced, 2.0)
}

func TestRRLyraeOscillatesAboutBaseline(t *testing.T) {
	g := newTestGenerator(t, 9)
	times := g.Timestamps(300, 0, 0.05)
	curve := g.RRLyrae(times)

	min, max := curve.Mag[0], curve.Mag[0]
	for _, m := range curve.Mag {
		min = math.Min(min, m)
		max = math.Max(max, m)
	}
	assert.Greater(t, max-min, 0.3, "pulsation amplitude should be visible")
}

func TestSeededGeneratorIsReproducible(t *testing.T) {
	a := newTestGenerator(t, 42)
	b := newTestGenerator(t, 42)

	ta := a.Timestamps(100, 0, 1.0)
	tb := b.Timestamps(100, 0, 1.0)
	ca := a.RRLyrae(ta)
	cb := b.RRLyrae(tb)

	require.Equal(t, ta, tb)
	assert.Equal(t, ca.Mag, cb.Mag)
	assert.Equal(t, ca.Err, cb.Err)
}

func TestSimulateRejectsUnknownClass(t *testing.T) {
	g := newTestGenerator(t, 1)
	_, err := g.Simulate(classify.Label("NOVA"), g.Timestamps(50, 0, 1.0))
	assert.Error(t, err)
}
