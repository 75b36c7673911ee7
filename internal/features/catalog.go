// Package features computes the fixed catalogue of lightcurve statistics
// consumed by the classification model. Extraction is a deterministic, pure
// function of a validated lightcurve: it never fails, and every statistic
// with a zero-division condition resolves to a documented sentinel instead
// of NaN.
package features

import "fmt"

// CatalogVersion identifies the retained feature set. The downstream model
// is contract-bound to this version's naming and ordering; bump it whenever
// the catalogue changes.
//
// v1 additionally carried Anderson-Darling, Shapiro-Wilk, Lomb-Scargle
// periodogram peaks, and the duplicate-value checks. Those underperformed in
// class separation and are excluded from v2; the engine computes only the
// retained set.
const CatalogVersion = "lc-stats-v2"

// Feature names, grouped by family. Sentinel policy is noted where a
// statistic has a degenerate case; "sentinel 0" means the statistic returns
// exactly 0.0 when its denominator vanishes.
const (
	// Robust dispersion / shape
	FeatMean               = "mean"
	FeatMedian             = "median"
	FeatStd                = "std"                  // sample standard deviation
	FeatSkewness           = "skewness"             // sentinel 0 at zero variance
	FeatKurtosis           = "kurtosis"             // excess kurtosis, sentinel 0 at zero variance
	FeatMedianAbsDev       = "median_abs_deviation" // MAD about the median
	FeatIQR                = "interquartile_range"
	FeatAmplitude          = "amplitude" // (max-min)/2
	FeatPercentAmplitude   = "percent_amplitude"   // sentinel 0 at zero median
	FeatPercentDiffFluxPct = "percent_diff_flux_percentile" // (p95-p5)/|median|, sentinel 0
	FeatMedianBufferRange  = "median_buffer_range_pct" // fraction within amplitude/10 of median
	FeatGSkew              = "gskew"                   // q3 + q97 - 2*median
	FeatHalfMagAmpRatio    = "half_mag_amplitude_ratio" // sentinel 0 when faint half is flat

	// Temporal variability
	FeatAbove1             = "above_1" // fraction of epochs > median + 1 std, sentinel 0 at zero std
	FeatAbove3             = "above_3"
	FeatAbove5             = "above_5"
	FeatBelow1             = "below_1"
	FeatBelow3             = "below_3"
	FeatBelow5             = "below_5"
	FeatBeyond1Std         = "beyond_1_std" // fraction beyond 1 weighted std of weighted mean
	FeatAutoCorrelation    = "auto_correlation" // lag-1, sentinel 0 at zero variance
	FeatCon                = "con"  // normalized count of 3 consecutive bright outliers
	FeatCon2               = "con2" // normalized count of 2 consecutive bright outliers
	FeatCusum              = "cusum" // range of standardized cumulative sum, sentinel 0
	FeatMaxSlope           = "max_slope" // max |dm/dt|, duplicate epochs skipped
	FeatMeanAbsChange      = "mean_abs_change"
	FeatMeanChange         = "mean_change"
	FeatMeanSecondDeriv    = "mean_second_derivative"
	FeatPairSlopeTrend     = "pair_slope_trend" // signed fraction of rising pairs in the last 30
	FeatFirstLocMax        = "first_loc_max" // relative location of brightest epoch
	FeatFirstLocMin        = "first_loc_min" // relative location of faintest epoch
	FeatLongestStrikeAbove = "longest_strike_above" // longest run above median / n
	FeatLongestStrikeBelow = "longest_strike_below"
	FeatMedianCrossings    = "median_crossings" // median-crossing rate of the residual sign
	FeatComplexityCID      = "complexity_cid"   // sqrt(sum of squared consecutive changes)
	FeatAbsEnergy          = "abs_energy"
	FeatAbsSumChanges      = "abs_sum_changes"
	FeatEta                = "eta" // von Neumann ratio, sentinel 0 at zero variance

	// Error-weighted
	FeatWeightedMean   = "weighted_mean" // inverse-variance weighted
	FeatWeightedStd    = "weighted_std"
	FeatChi2Reduced    = "chi2_reduced" // about the weighted mean
	FeatStetsonJ       = "stetson_j"
	FeatStetsonK       = "stetson_k" // sentinel 0 when residuals vanish
	FeatStetsonL       = "stetson_l"
	FeatExcessVariance = "excess_variance" // sentinel 0 at zero weighted mean
	FeatSignalToNoise  = "signal_to_noise" // amplitude over median error
)

// catalogOrder is the versioned feature ordering. The same name must always
// occupy the same slot; append-only within a version.
var catalogOrder = []string{
	FeatMean,
	FeatMedian,
	FeatStd,
	FeatSkewness,
	FeatKurtosis,
	FeatMedianAbsDev,
	FeatIQR,
	FeatAmplitude,
	FeatPercentAmplitude,
	FeatPercentDiffFluxPct,
	FeatMedianBufferRange,
	FeatGSkew,
	FeatHalfMagAmpRatio,
	FeatAbove1,
	FeatAbove3,
	FeatAbove5,
	FeatBelow1,
	FeatBelow3,
	FeatBelow5,
	FeatBeyond1Std,
	FeatAutoCorrelation,
	FeatCon,
	FeatCon2,
	FeatCusum,
	FeatMaxSlope,
	FeatMeanAbsChange,
	FeatMeanChange,
	FeatMeanSecondDeriv,
	FeatPairSlopeTrend,
	FeatFirstLocMax,
	FeatFirstLocMin,
	FeatLongestStrikeAbove,
	FeatLongestStrikeBelow,
	FeatMedianCrossings,
	FeatComplexityCID,
	FeatAbsEnergy,
	FeatAbsSumChanges,
	FeatEta,
	FeatWeightedMean,
	FeatWeightedStd,
	FeatChi2Reduced,
	FeatStetsonJ,
	FeatStetsonK,
	FeatStetsonL,
	FeatExcessVariance,
	FeatSignalToNoise,
}

// Names returns the catalogue feature names in their fixed order.
func Names() []string {
	return append([]string(nil), catalogOrder...)
}

// Count returns the number of retained features.
func Count() int {
	return len(catalogOrder)
}

// Vector maps feature name to value. A Vector produced by the Engine always
// contains every catalogue name with a finite value.
type Vector map[string]float64

// Get returns the named feature value.
func (v Vector) Get(name string) (float64, bool) {
	val, ok := v[name]
	return val, ok
}

// Slice lays the vector out in the catalogue order.
func (v Vector) Slice() ([]float64, error) {
	out := make([]float64, len(catalogOrder))
	for i, name := range catalogOrder {
		val, ok := v[name]
		if !ok {
			return nil, fmt.Errorf("feature vector missing %q", name)
		}
		out[i] = val
	}
	return out, nil
}
