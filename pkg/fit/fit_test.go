/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package fit

/*****************************************************************************************************************/

import (
	"math"
	"math/rand"
	"testing"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	stats "github.com/thespacedoctor/soxs-pipeline/pkg/statistics"
)

/*****************************************************************************************************************/

// buildObservedLines evaluates a known polynomial over a synthetic grid of
// (order, wavelength, slit_position) rows, giving noise-free observed_x/y.
// Orders are whole numbers, and the first two rows sit at the lower and upper
// corners of bounds, so the bounds Fit derives from the table equal bounds.
func buildObservedLines(degrees chebyshev.Degrees, bounds chebyshev.NormalisationBounds, cx, cy []float64, rng *rand.Rand, n int) ([]ObservedLine, error) {
	rows := make([]chebyshev.Row, n)

	for i := range rows {
		rows[i] = chebyshev.Row{
			M: math.Round(bounds.M.Min + rng.Float64()*(bounds.M.Max-bounds.M.Min)),
			L: bounds.L.Min + rng.Float64()*(bounds.L.Max-bounds.L.Min),
			S: bounds.S.Min + rng.Float64()*(bounds.S.Max-bounds.S.Min),
		}
	}

	rows[0] = chebyshev.Row{M: bounds.M.Min, L: bounds.L.Min, S: bounds.S.Min}
	rows[1] = chebyshev.Row{M: bounds.M.Max, L: bounds.L.Max, S: bounds.S.Max}

	xs, err := chebyshev.Evaluate(degrees, cx, bounds, rows)
	if err != nil {
		return nil, err
	}

	ys, err := chebyshev.Evaluate(degrees, cy, bounds, rows)
	if err != nil {
		return nil, err
	}

	lines := make([]ObservedLine, n)

	for i, r := range rows {
		lines[i] = ObservedLine{
			Order:        int(math.Round(r.M)),
			Wavelength:   r.L,
			SlitPosition: r.S,
			ObservedX:    xs[i],
			ObservedY:    ys[i],
		}
	}

	return lines, nil
}

/*****************************************************************************************************************/

// TestFitConvergesWithoutClippingOnNoiseFreeData is scenario 1
// carried through the full iterative fitter: with no outliers present, the
// loop must stop after its first no-clip iteration and keep every row.
func TestFitConvergesWithoutClippingOnNoiseFreeData(t *testing.T) {
	degrees := chebyshev.Degrees{M: 2, L: 2, S: 1}

	bounds := chebyshev.NormalisationBounds{
		M: chebyshev.Bounds{Min: 1, Max: 30},
		L: chebyshev.Bounds{Min: 3000, Max: 3500},
		S: chebyshev.Bounds{Min: -5, Max: 5},
	}

	rng := rand.New(rand.NewSource(7))

	n := degrees.NumCoefficients()

	cx := make([]float64, n)
	cy := make([]float64, n)

	for i := range cx {
		cx[i] = rng.Float64()*10 - 5
		cy[i] = rng.Float64()*10 - 5
	}

	lines, err := buildObservedLines(degrees, bounds, cx, cy, rng, 120)
	if err != nil {
		t.Fatalf("buildObservedLines() error = %v", err)
	}

	result, err := Fit(degrees, config.ClippingConfig{Sigma: 5, MaxIters: 10}, lines)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if result.QC.NClipped != 0 {
		t.Errorf("NClipped = %d, want 0 on noise-free data", result.QC.NClipped)
	}

	if result.QC.NSurviving != len(lines) {
		t.Errorf("NSurviving = %d, want %d", result.QC.NSurviving, len(lines))
	}

	for i := range cx {
		if math.Abs(result.Cx[i]-cx[i]) > 1e-8 {
			t.Errorf("Cx[%d] = %.12f, want %.12f", i, result.Cx[i], cx[i])
		}

		if math.Abs(result.Cy[i]-cy[i]) > 1e-8 {
			t.Errorf("Cy[%d] = %.12f, want %.12f", i, result.Cy[i], cy[i])
		}
	}

	if result.QC.CombinedStd > 1e-6 {
		t.Errorf("CombinedStd = %f, want ~0", result.QC.CombinedStd)
	}
}

/*****************************************************************************************************************/

// TestFitClipsGrossOutliers checks that a handful of rows perturbed far off
// the true polynomial get sigma-clipped away (steps 2-4), leaving
// the recovered coefficients close to the unperturbed truth.
func TestFitClipsGrossOutliers(t *testing.T) {
	degrees := chebyshev.Degrees{M: 1, L: 1, S: 1}

	bounds := chebyshev.NormalisationBounds{
		M: chebyshev.Bounds{Min: 1, Max: 30},
		L: chebyshev.Bounds{Min: 3000, Max: 3500},
		S: chebyshev.Bounds{Min: -5, Max: 5},
	}

	rng := rand.New(rand.NewSource(11))

	n := degrees.NumCoefficients()

	cx := make([]float64, n)
	cy := make([]float64, n)

	for i := range cx {
		cx[i] = rng.Float64()*10 - 5
		cy[i] = rng.Float64()*10 - 5
	}

	lines, err := buildObservedLines(degrees, bounds, cx, cy, rng, 200)
	if err != nil {
		t.Fatalf("buildObservedLines() error = %v", err)
	}

	// Perturb a handful of rows far off the true surface:
	outlierIdx := []int{0, 50, 100, 150}
	for _, idx := range outlierIdx {
		lines[idx].ObservedX += 500
		lines[idx].ObservedY -= 500
	}

	result, err := Fit(degrees, config.ClippingConfig{Sigma: 5, MaxIters: 10}, lines)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if result.QC.NClipped < len(outlierIdx) {
		t.Errorf("NClipped = %d, want >= %d", result.QC.NClipped, len(outlierIdx))
	}

	for i := range cx {
		if math.Abs(result.Cx[i]-cx[i]) > 1e-3 {
			t.Errorf("Cx[%d] = %.6f, want ~%.6f after clipping", i, result.Cx[i], cx[i])
		}
	}
}

/*****************************************************************************************************************/

// TestFitToleratesGaussianCentroidNoise is scenario 2: 0.1 px centroid noise
// injected into every line must still converge with a bounded combined
// residual spread and without clipping away a significant fraction of lines.
func TestFitToleratesGaussianCentroidNoise(t *testing.T) {
	rand.Seed(23)

	degrees := chebyshev.Degrees{M: 2, L: 2, S: 1}

	bounds := chebyshev.NormalisationBounds{
		M: chebyshev.Bounds{Min: 1, Max: 30},
		L: chebyshev.Bounds{Min: 3000, Max: 3500},
		S: chebyshev.Bounds{Min: -5, Max: 5},
	}

	rng := rand.New(rand.NewSource(23))

	n := degrees.NumCoefficients()

	cx := make([]float64, n)
	cy := make([]float64, n)

	for i := range cx {
		cx[i] = rng.Float64()*10 - 5
		cy[i] = rng.Float64()*10 - 5
	}

	lines, err := buildObservedLines(degrees, bounds, cx, cy, rng, 200)
	if err != nil {
		t.Fatalf("buildObservedLines() error = %v", err)
	}

	for i := range lines {
		lines[i].ObservedX += stats.NormalDistributedRandomNumber(0, 0.1)
		lines[i].ObservedY += stats.NormalDistributedRandomNumber(0, 0.1)
	}

	result, err := Fit(degrees, config.ClippingConfig{Sigma: 5, MaxIters: 10}, lines)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if result.QC.NClipped > len(lines)/10 {
		t.Errorf("NClipped = %d, want no more than 10%% of %d lines", result.QC.NClipped, len(lines))
	}

	if result.QC.CombinedStd > 0.15 {
		t.Errorf("CombinedStd = %f, want <= 0.15px under 0.1px centroid noise", result.QC.CombinedStd)
	}
}

/*****************************************************************************************************************/

func TestFitRejectsNaNInput(t *testing.T) {
	degrees := chebyshev.Degrees{M: 1, L: 1, S: 1}

	lines := []ObservedLine{
		{Order: 1, Wavelength: math.NaN(), SlitPosition: 0, ObservedX: 1, ObservedY: 1},
	}

	if _, err := Fit(degrees, config.ClippingConfig{Sigma: 5, MaxIters: 10}, lines); err == nil {
		t.Fatal("expected InvalidInput error for NaN wavelength, got nil")
	}
}

/*****************************************************************************************************************/

func TestFitEmptyTable(t *testing.T) {
	degrees := chebyshev.Degrees{M: 1, L: 1, S: 1}

	if _, err := Fit(degrees, config.ClippingConfig{Sigma: 5, MaxIters: 10}, nil); err == nil {
		t.Fatal("expected an error for an empty observed-line table")
	}
}

/*****************************************************************************************************************/
