package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microlens/domain/lightcurve"
)

func mustCurve(t *testing.T, times, mags, errs []float64) *lightcurve.LightCurve {
	t.Helper()
	lc, err := lightcurve.New(times, mags, errs, 30)
	require.NoError(t, err)
	return lc
}

// noisyCurve builds a deterministic pseudo-noisy series; no RNG so extraction
// tests stay bit-for-bit reproducible.
func noisyCurve(t *testing.T, n int) *lightcurve.LightCurve {
	times := make([]float64, n)
	mags := make([]float64, n)
	errs := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i) * 1.5
		mags[i] = 17.0 + 0.1*math.Sin(float64(i)*0.7) + 0.03*math.Cos(float64(i)*2.3)
		errs[i] = 0.05 + 0.01*math.Abs(math.Sin(float64(i)))
	}
	return mustCurve(t, times, mags, errs)
}

func TestExtractIsComplete(t *testing.T) {
	v := NewEngine().Extract(noisyCurve(t, 60))

	assert.Len(t, v, Count())
	for _, name := range Names() {
		val, ok := v.Get(name)
		require.True(t, ok, "missing feature %s", name)
		assert.False(t, math.IsNaN(val), "feature %s is NaN", name)
		assert.False(t, math.IsInf(val, 0), "feature %s is Inf", name)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	engine := NewEngine()
	lc := noisyCurve(t, 80)

	a := engine.Extract(lc)
	b := engine.Extract(lc)

	for _, name := range Names() {
		av, _ := a.Get(name)
		bv, _ := b.Get(name)
		assert.Equal(t, av, bv, "feature %s not deterministic", name)
	}
}

func TestExtractConstantCurveSentinels(t *testing.T) {
	n := 50
	times := make([]float64, n)
	mags := make([]float64, n)
	errs := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i)
		mags[i] = 18.0
		errs[i] = 0.1
	}
	v := NewEngine().Extract(mustCurve(t, times, mags, errs))

	// No statistic may leak NaN/Inf out of a zero-variance series.
	for _, name := range Names() {
		val, _ := v.Get(name)
		require.False(t, math.IsNaN(val) || math.IsInf(val, 0), "feature %s = %g", name, val)
	}

	// Variance-based statistics resolve to their documented sentinels.
	for _, name := range []string{
		FeatStd, FeatSkewness, FeatKurtosis, FeatAutoCorrelation,
		FeatCusum, FeatEta, FeatAbove1, FeatBelow1, FeatCon,
		FeatWeightedStd, FeatStetsonK, FeatChi2Reduced,
	} {
		val, _ := v.Get(name)
		assert.Zero(t, val, "feature %s should be sentinel 0", name)
	}

	mean, _ := v.Get(FeatMean)
	assert.Equal(t, 18.0, mean)
	wmean, _ := v.Get(FeatWeightedMean)
	assert.InDelta(t, 18.0, wmean, 1e-12)
}

func TestExtractKnownValues(t *testing.T) {
	n := 40
	times := make([]float64, n)
	mags := make([]float64, n)
	errs := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i)
		errs[i] = 0.1
		mags[i] = 17.0
		if i%2 == 1 {
			mags[i] = 17.2
		}
	}
	v := NewEngine().Extract(mustCurve(t, times, mags, errs))

	mean, _ := v.Get(FeatMean)
	assert.InDelta(t, 17.1, mean, 1e-9)
	amp, _ := v.Get(FeatAmplitude)
	assert.InDelta(t, 0.1, amp, 1e-9)
	mac, _ := v.Get(FeatMeanAbsChange)
	assert.InDelta(t, 0.2, mac, 1e-9)
	// Alternating series crosses its median every step
	crossings, _ := v.Get(FeatMedianCrossings)
	assert.InDelta(t, 1.0, crossings, 1e-9)
	// Equal errors make the weighted mean the plain mean
	wmean, _ := v.Get(FeatWeightedMean)
	assert.InDelta(t, 17.1, wmean, 1e-9)
	// chi2 about the mean: residuals all |0.1|/0.1 = 1, n/(n-1)
	chi2, _ := v.Get(FeatChi2Reduced)
	assert.InDelta(t, float64(n)/float64(n-1), chi2, 1e-9)
}

func TestVectorSliceFollowsCatalogOrder(t *testing.T) {
	v := NewEngine().Extract(noisyCurve(t, 45))

	slice, err := v.Slice()
	require.NoError(t, err)
	require.Len(t, slice, Count())

	for i, name := range Names() {
		want, _ := v.Get(name)
		assert.Equal(t, want, slice[i], "slot %d (%s)", i, name)
	}
}

func TestVectorSliceMissingFeature(t *testing.T) {
	v := Vector{FeatMean: 17.0}
	_, err := v.Slice()
	assert.Error(t, err)
}

func TestChi2SeparatesConstantFromVariable(t *testing.T) {
	engine := NewEngine()

	n := 60
	times := make([]float64, n)
	flat := make([]float64, n)
	bump := make([]float64, n)
	errs := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i)
		errs[i] = 0.1
		jitter := 0.02 * math.Sin(float64(i)*1.3)
		flat[i] = 16.0 + jitter
		bump[i] = 16.0 + jitter
		// smooth brightening centered mid-span
		d := (float64(i) - 30) / 8
		bump[i] -= 1.5 * math.Exp(-d*d/2)
	}

	flatChi2, _ := engine.Extract(mustCurve(t, times, flat, errs)).Get(FeatChi2Reduced)
	bumpChi2, _ := engine.Extract(mustCurve(t, times, bump, errs)).Get(FeatChi2Reduced)

	assert.Less(t, flatChi2, 1.0)
	assert.Greater(t, bumpChi2, 10.0)
}
