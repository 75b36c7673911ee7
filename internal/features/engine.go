package features

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"microlens/domain/lightcurve"
)

// Engine extracts the versioned feature catalogue from a validated
// lightcurve. It is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine creates a feature extraction engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Extract computes every catalogue statistic. It cannot fail for input that
// passed lightcurve validation: degenerate statistics resolve to their
// sentinels, and the returned vector always contains every catalogue name.
func (e *Engine) Extract(lc *lightcurve.LightCurve) Vector {
	t := lc.Time()
	m := lc.Mag()
	merr := lc.Err()
	n := len(m)
	nf := float64(n)

	v := make(Vector, Count())

	mean := orZero(stats.Mean(m))
	median := orZero(stats.Median(m))
	std := orZero(stats.StandardDeviationSample(m))
	min := orZero(stats.Min(m))
	max := orZero(stats.Max(m))
	amplitude := (max - min) / 2

	v[FeatMean] = mean
	v[FeatMedian] = median
	v[FeatStd] = std
	v[FeatMedianAbsDev] = orZero(stats.MedianAbsoluteDeviation(m))
	v[FeatIQR] = orZero(stats.InterQuartileRange(m))
	v[FeatAmplitude] = amplitude

	// Moments are undefined at zero variance; the catalogue pins them to 0.
	if std > 0 {
		v[FeatSkewness] = finiteOr(stat.Skew(m, nil), 0)
		v[FeatKurtosis] = finiteOr(stat.ExKurtosis(m, nil), 0)
	} else {
		v[FeatSkewness] = 0
		v[FeatKurtosis] = 0
	}

	v[FeatPercentAmplitude] = safeDiv(math.Max(math.Abs(max-median), math.Abs(min-median)), math.Abs(median))
	p5 := orZero(stats.Percentile(m, 5))
	p95 := orZero(stats.Percentile(m, 95))
	v[FeatPercentDiffFluxPct] = safeDiv(p95-p5, math.Abs(median))
	v[FeatMedianBufferRange] = fractionWithin(m, median, amplitude/10)
	q3 := orZero(stats.Percentile(m, 3))
	q97 := orZero(stats.Percentile(m, 97))
	v[FeatGSkew] = q3 + q97 - 2*median
	v[FeatHalfMagAmpRatio] = halfMagAmplitudeRatio(m, median)

	v[FeatAbove1] = fractionBeyond(m, median, std, 1, false)
	v[FeatAbove3] = fractionBeyond(m, median, std, 3, false)
	v[FeatAbove5] = fractionBeyond(m, median, std, 5, false)
	v[FeatBelow1] = fractionBeyond(m, median, std, 1, true)
	v[FeatBelow3] = fractionBeyond(m, median, std, 3, true)
	v[FeatBelow5] = fractionBeyond(m, median, std, 5, true)

	wmean, wstd := weightedMoments(m, merr)
	v[FeatWeightedMean] = wmean
	v[FeatWeightedStd] = wstd
	v[FeatBeyond1Std] = fractionOutside(m, wmean, wstd)

	v[FeatAutoCorrelation] = lagOneAutocorrelation(m, mean, std)
	v[FeatCon] = consecutiveOutliers(m, median, std, 3)
	v[FeatCon2] = consecutiveOutliers(m, median, std, 2)
	v[FeatCusum] = cusumRange(m, mean, std)
	v[FeatMaxSlope] = maxSlope(t, m)

	diffs := make([]float64, n-1)
	absSum := 0.0
	sum := 0.0
	sqSum := 0.0
	for i := 1; i < n; i++ {
		d := m[i] - m[i-1]
		diffs[i-1] = d
		absSum += math.Abs(d)
		sum += d
		sqSum += d * d
	}
	v[FeatMeanAbsChange] = absSum / float64(n-1)
	v[FeatMeanChange] = sum / float64(n-1)
	v[FeatMeanSecondDeriv] = meanSecondDerivative(m)
	v[FeatPairSlopeTrend] = pairSlopeTrend(diffs)
	v[FeatFirstLocMax] = float64(argMin(m)) / nf // brightest = minimum magnitude
	v[FeatFirstLocMin] = float64(argMax(m)) / nf
	v[FeatLongestStrikeAbove] = float64(longestStrike(m, median, false)) / nf
	v[FeatLongestStrikeBelow] = float64(longestStrike(m, median, true)) / nf
	v[FeatMedianCrossings] = medianCrossings(m, median)
	v[FeatComplexityCID] = math.Sqrt(sqSum)
	v[FeatAbsEnergy] = dot(m, m)
	v[FeatAbsSumChanges] = absSum
	variance := std * std
	v[FeatEta] = safeDiv(sqSum/float64(n-1), variance)

	v[FeatChi2Reduced] = reducedChiSquare(m, merr, wmean)
	j, k := stetsonJK(m, merr, wmean)
	v[FeatStetsonJ] = j
	v[FeatStetsonK] = k
	v[FeatStetsonL] = j * k / 0.798
	v[FeatExcessVariance] = excessVariance(m, merr, wmean, variance)
	v[FeatSignalToNoise] = safeDiv(amplitude, orZero(stats.Median(merr)))

	return v
}

// orZero collapses a montanaflynn error return into the 0 sentinel.
func orZero(val float64, err error) float64 {
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	return val
}

func finiteOr(val, fallback float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fallback
	}
	return val
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finiteOr(num/den, 0)
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func argMin(m []float64) int {
	best := 0
	for i := range m {
		if m[i] < m[best] {
			best = i
		}
	}
	return best
}

func argMax(m []float64) int {
	best := 0
	for i := range m {
		if m[i] > m[best] {
			best = i
		}
	}
	return best
}

// fractionBeyond counts epochs more than k*std from the median, on one side.
// Zero std makes the band empty on both sides: sentinel 0.
func fractionBeyond(m []float64, median, std float64, k float64, below bool) float64 {
	if std == 0 {
		return 0
	}
	count := 0
	threshold := k * std
	for _, x := range m {
		d := x - median
		if below {
			d = -d
		}
		if d > threshold {
			count++
		}
	}
	return float64(count) / float64(len(m))
}

func fractionWithin(m []float64, center, width float64) float64 {
	if width <= 0 {
		return 0
	}
	count := 0
	for _, x := range m {
		if math.Abs(x-center) < width {
			count++
		}
	}
	return float64(count) / float64(len(m))
}

func fractionOutside(m []float64, center, width float64) float64 {
	if width <= 0 {
		return 0
	}
	count := 0
	for _, x := range m {
		if math.Abs(x-center) > width {
			count++
		}
	}
	return float64(count) / float64(len(m))
}

// halfMagAmplitudeRatio compares the squared scatter of epochs brighter than
// the median against those fainter. Values far from 1 flag asymmetric
// variability such as eclipses or outbursts.
func halfMagAmplitudeRatio(m []float64, median float64) float64 {
	var bright, faint float64
	var nb, nfaint int
	for _, x := range m {
		d := x - median
		if x <= median {
			bright += d * d
			nb++
		} else {
			faint += d * d
			nfaint++
		}
	}
	if nb == 0 || nfaint == 0 || faint == 0 {
		return 0
	}
	return (bright / float64(nb)) / (faint / float64(nfaint))
}

func lagOneAutocorrelation(m []float64, mean, std float64) float64 {
	if std == 0 || len(m) < 2 {
		return 0
	}
	num := 0.0
	for i := 1; i < len(m); i++ {
		num += (m[i] - mean) * (m[i-1] - mean)
	}
	den := 0.0
	for _, x := range m {
		den += (x - mean) * (x - mean)
	}
	return safeDiv(num, den)
}

// consecutiveOutliers counts runs of `runLen` consecutive epochs brighter
// than median - 2*std, normalized by the number of windows. Brightening is a
// magnitude decrease.
func consecutiveOutliers(m []float64, median, std float64, runLen int) float64 {
	if std == 0 || len(m) < runLen {
		return 0
	}
	threshold := median - 2*std
	count := 0
	run := 0
	for _, x := range m {
		if x < threshold {
			run++
			if run == runLen {
				count++
			}
		} else {
			run = 0
		}
	}
	return float64(count) / float64(len(m)-runLen+1)
}

func cusumRange(m []float64, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	nf := float64(len(m))
	c := 0.0
	lo, hi := 0.0, 0.0
	for _, x := range m {
		c += (x - mean) / (std * nf)
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	return hi - lo
}

func maxSlope(t, m []float64) float64 {
	best := 0.0
	for i := 1; i < len(m); i++ {
		dt := t[i] - t[i-1]
		if dt <= 0 {
			continue
		}
		s := math.Abs((m[i] - m[i-1]) / dt)
		if s > best {
			best = s
		}
	}
	return best
}

func meanSecondDerivative(m []float64) float64 {
	if len(m) < 3 {
		return 0
	}
	sum := 0.0
	for i := 2; i < len(m); i++ {
		sum += (m[i] - 2*m[i-1] + m[i-2]) / 2
	}
	return sum / float64(len(m)-2)
}

// pairSlopeTrend is the signed fraction of rising pairs among the most
// recent 30 consecutive differences.
func pairSlopeTrend(diffs []float64) float64 {
	window := 30
	if len(diffs) < window {
		window = len(diffs)
	}
	if window == 0 {
		return 0
	}
	pos, neg := 0, 0
	for _, d := range diffs[len(diffs)-window:] {
		if d > 0 {
			pos++
		} else if d < 0 {
			neg++
		}
	}
	return float64(pos-neg) / float64(window)
}

func longestStrike(m []float64, median float64, below bool) int {
	best, run := 0, 0
	for _, x := range m {
		above := x > median
		if below {
			above = x < median
		}
		if above {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

func medianCrossings(m []float64, median float64) float64 {
	if len(m) < 2 {
		return 0
	}
	crossings := 0
	prev := m[0] > median
	for _, x := range m[1:] {
		cur := x > median
		if cur != prev {
			crossings++
		}
		prev = cur
	}
	return float64(crossings) / float64(len(m)-1)
}

// weightedMoments computes the inverse-variance weighted mean and the
// weighted standard deviation about it.
func weightedMoments(m, merr []float64) (mean, std float64) {
	var wsum, msum float64
	for i := range m {
		w := 1.0 / (merr[i] * merr[i])
		wsum += w
		msum += w * m[i]
	}
	if wsum == 0 {
		return 0, 0
	}
	mean = msum / wsum
	var dev float64
	for i := range m {
		w := 1.0 / (merr[i] * merr[i])
		d := m[i] - mean
		dev += w * d * d
	}
	std = math.Sqrt(dev / wsum)
	return mean, std
}

func reducedChiSquare(m, merr []float64, wmean float64) float64 {
	if len(m) < 2 {
		return 0
	}
	chi2 := 0.0
	for i := range m {
		r := (m[i] - wmean) / merr[i]
		chi2 += r * r
	}
	return chi2 / float64(len(m)-1)
}

// stetsonJK computes the Stetson J and K variability indices from
// error-normalized residuals of adjacent epoch pairs.
func stetsonJK(m, merr []float64, wmean float64) (j, k float64) {
	n := len(m)
	if n < 2 {
		return 0, 0
	}
	nf := float64(n)
	delta := make([]float64, n)
	scale := math.Sqrt(nf / (nf - 1))
	for i := range m {
		delta[i] = scale * (m[i] - wmean) / merr[i]
	}

	for i := 0; i < n-1; i++ {
		p := delta[i] * delta[i+1]
		j += sign(p) * math.Sqrt(math.Abs(p))
	}
	j /= float64(n - 1)

	var absSum, sqSum float64
	for _, d := range delta {
		absSum += math.Abs(d)
		sqSum += d * d
	}
	if sqSum == 0 {
		return j, 0
	}
	k = (absSum / nf) / math.Sqrt(sqSum/nf)
	return j, k
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// excessVariance measures variability in excess of the measurement noise,
// normalized by the squared weighted mean.
func excessVariance(m, merr []float64, wmean, variance float64) float64 {
	if wmean == 0 {
		return 0
	}
	meanErrSq := 0.0
	for _, e := range merr {
		meanErrSq += e * e
	}
	meanErrSq /= float64(len(merr))
	return (variance - meanErrSq) / (wmean * wmean)
}
