package lightcurve

import (
	"math"
	"testing"

	"microlens/internal/errors"
)

func validArrays(n int) (times, mags, errs []float64) {
	times = make([]float64, n)
	mags = make([]float64, n)
	errs = make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i)
		mags[i] = 17.0 + 0.01*float64(i%5)
		errs[i] = 0.05
	}
	return times, mags, errs
}

func TestNewRejectsShortSeries(t *testing.T) {
	times, mags, errs := validArrays(10)
	_, err := New(times, mags, errs, 30)
	if err == nil {
		t.Fatal("Expected error for short series")
	}
	if !errors.HasCode(err, errors.CodeInsufficientData) {
		t.Errorf("Expected INSUFFICIENT_DATA, got %s", errors.GetCode(err))
	}
}

func TestNewRejectsMalformedSeries(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(times, mags, errs []float64) ([]float64, []float64, []float64)
	}{
		{"length mismatch", func(ts, ms, es []float64) ([]float64, []float64, []float64) {
			return ts[:len(ts)-1], ms, es
		}},
		{"NaN magnitude", func(ts, ms, es []float64) ([]float64, []float64, []float64) {
			ms[3] = math.NaN()
			return ts, ms, es
		}},
		{"Inf time", func(ts, ms, es []float64) ([]float64, []float64, []float64) {
			ts[0] = math.Inf(1)
			return ts, ms, es
		}},
		{"zero error", func(ts, ms, es []float64) ([]float64, []float64, []float64) {
			es[7] = 0
			return ts, ms, es
		}},
		{"negative error", func(ts, ms, es []float64) ([]float64, []float64, []float64) {
			es[7] = -0.1
			return ts, ms, es
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times, mags, errs := tt.mutate(validArrays(40))
			_, err := New(times, mags, errs, 30)
			if err == nil {
				t.Fatal("Expected error for malformed series")
			}
			if !errors.HasCode(err, errors.CodeMalformedSeries) {
				t.Errorf("Expected MALFORMED_SERIES, got %s", errors.GetCode(err))
			}
		})
	}
}

func TestNewSortsByTime(t *testing.T) {
	times, mags, errs := validArrays(40)
	// Shuffle a few epochs out of order and tag them via magnitude
	times[0], times[10] = times[10], times[0]
	mags[0], mags[10] = 20.0, 10.0

	lc, err := New(times, mags, errs, 30)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := lc.Time()
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("Time not sorted at index %d: %g < %g", i, got[i], got[i-1])
		}
	}
	// mag 10.0 was attached to epoch 0, so it must now sit at index 0
	if lc.Mag()[0] != 10.0 {
		t.Errorf("Expected magnitude 10.0 at first epoch, got %g", lc.Mag()[0])
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	times, mags, errs := validArrays(40)
	lc, err := New(times, mags, errs, 30)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	m := lc.Mag()
	m[0] = -999
	if lc.Mag()[0] == -999 {
		t.Error("Mutating the returned slice must not affect the lightcurve")
	}
}

func TestSpanAndPeakTime(t *testing.T) {
	times, mags, errs := validArrays(40)
	mags[25] = 12.0 // brightest epoch
	lc, err := New(times, mags, errs, 30)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if lc.Span() != 39 {
		t.Errorf("Expected span 39, got %g", lc.Span())
	}
	if lc.PeakTime() != 25 {
		t.Errorf("Expected peak at t=25, got %g", lc.PeakTime())
	}
}

func TestNewDefaultsMinSamples(t *testing.T) {
	times, mags, errs := validArrays(MinSamplesDefault - 1)
	if _, err := New(times, mags, errs, 0); err == nil {
		t.Error("Expected default minimum to reject series below MinSamplesDefault")
	}

	times, mags, errs = validArrays(MinSamplesDefault)
	if _, err := New(times, mags, errs, 0); err != nil {
		t.Errorf("Unexpected error at exactly MinSamplesDefault: %v", err)
	}
}
