/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package raster

/*****************************************************************************************************************/

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	"github.com/thespacedoctor/soxs-pipeline/pkg/format"
)

/*****************************************************************************************************************/

// linearMap returns degree-(0,1,1) coefficients for P_x(m, λ, s) = x0 + kλ·λ̂
// and P_y(m, λ, s) = y0 + ks·λ̂·ŝ (the T_1(λ̂)T_1(ŝ) term), a simple
// non-degenerate forward map over a single order spanning the whole
// detector.
func linearMap(x0, kLambda, y0, kSlit float64) (chebyshev.Degrees, chebyshev.NormalisationBounds, []float64, []float64) {
	degrees := chebyshev.Degrees{M: 0, L: 1, S: 1}

	bounds := chebyshev.NormalisationBounds{
		M: chebyshev.Bounds{Min: 1, Max: 1},
		L: chebyshev.Bounds{Min: 4000, Max: 5000},
		S: chebyshev.Bounds{Min: -1, Max: 1},
	}

	// Coefficient order per Degrees.Index(i,j,k): i in [0,0], j in [0,1], k in [0,1].
	cx := make([]float64, degrees.NumCoefficients())
	cy := make([]float64, degrees.NumCoefficients())

	cx[degrees.Index(0, 0, 0)] = x0
	cx[degrees.Index(0, 1, 0)] = kLambda

	cy[degrees.Index(0, 0, 0)] = y0
	cy[degrees.Index(0, 1, 1)] = kSlit

	return degrees, bounds, cx, cy
}

/*****************************************************************************************************************/

func testDetector() config.DetectorProfile {
	return config.DetectorProfile{
		Arm:           "UVB",
		ScienceRowMin: 0,
		ScienceRowMax: 199,
		ScienceColMin: 0,
		ScienceColMax: 199,
		SlitLength:    10,
		MidSlitIndex:  5,
	}
}

/*****************************************************************************************************************/

// TestRunRasterRoundTrip is scenario 5: pick random in-order pixels
// and check that evaluating the forward map at their assigned (m, W, S)
// reproduces (x+0.5, y+0.5) within the configured threshold.
func TestRunRasterRoundTrip(t *testing.T) {
	degrees, bounds, cx, cy := linearMap(100, 80, 100, 80)

	orders := []format.OrderLimits{{Order: 1, Min: 4000, Max: 5000}}

	cfg := config.RasterConfig{
		GridResWavelength:     2,
		GridResSlit:           0.2,
		ZoomGridSize:          9,
		DisplacementThreshold: 0.05,
		IterationLimit:        20,
		OrderTimeout:          10 * time.Second,
	}

	r, err := Run(context.Background(), orders, degrees, bounds, cx, cy, testDetector(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rng := rand.New(rand.NewSource(3))

	checked := 0

	for attempt := 0; attempt < 2000 && checked < 200; attempt++ {
		x := testDetector().ScienceColMin + rng.Intn(testDetector().ScienceColMax-testDetector().ScienceColMin+1)
		y := testDetector().ScienceRowMin + rng.Intn(testDetector().ScienceRowMax-testDetector().ScienceRowMin+1)

		w, s, order := r.At(x, y)
		if math.IsNaN(w) {
			continue
		}

		row := chebyshev.Row{M: order, L: w, S: s}

		fx, err := chebyshev.Evaluate(degrees, cx, bounds, []chebyshev.Row{row})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}

		fy, err := chebyshev.Evaluate(degrees, cy, bounds, []chebyshev.Row{row})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}

		if math.Abs(fx[0]-(float64(x)+0.5)) > cfg.DisplacementThreshold+1e-6 {
			t.Errorf("pixel (%d,%d): forward x = %f, want ~%f", x, y, fx[0], float64(x)+0.5)
		}

		if math.Abs(fy[0]-(float64(y)+0.5)) > cfg.DisplacementThreshold+1e-6 {
			t.Errorf("pixel (%d,%d): forward y = %f, want ~%f", x, y, fy[0], float64(y)+0.5)
		}

		checked++
	}

	if checked == 0 {
		t.Fatal("no assigned pixel found to verify round-trip on")
	}
}

/*****************************************************************************************************************/

// TestNaNSymmetry checks that Wavelength, Slit and Order are NaN together at
// every pixel.
func TestNaNSymmetry(t *testing.T) {
	degrees, bounds, cx, cy := linearMap(100, 80, 100, 80)

	orders := []format.OrderLimits{{Order: 1, Min: 4000, Max: 5000}}

	cfg := config.RasterConfig{
		GridResWavelength:     2,
		GridResSlit:           0.2,
		ZoomGridSize:          9,
		DisplacementThreshold: 0.05,
		IterationLimit:        20,
		OrderTimeout:          10 * time.Second,
	}

	r, err := Run(context.Background(), orders, degrees, bounds, cx, cy, testDetector(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := range r.Wavelength {
		wNaN := math.IsNaN(r.Wavelength[i])
		sNaN := math.IsNaN(r.Slit[i])
		oNaN := math.IsNaN(r.Order[i])

		if wNaN != sNaN || sNaN != oNaN {
			t.Fatalf("pixel %d: NaN symmetry violated: W=%v S=%v Order=%v", i, wNaN, sNaN, oNaN)
		}
	}
}

/*****************************************************************************************************************/

// TestOrderTimeoutLeavesOnlyNaNs is scenario 6: with iterationLimit=1
// and a degenerate order (the forward map sends every sample to the corner
// (50, 50) of one pixel, so that pixel's best residual is ~0.707 px and never
// under the threshold), that order's raster contains only NaNs and no error
// escalates from a mere iteration cap. The map has a slit degree of 1 with a
// zero slit coefficient, since Run rejects an S-degree-0 map outright.
func TestOrderTimeoutLeavesOnlyNaNs(t *testing.T) {
	degrees := chebyshev.Degrees{M: 0, L: 0, S: 1}

	bounds := chebyshev.NormalisationBounds{
		M: chebyshev.Bounds{Min: 1, Max: 1},
		L: chebyshev.Bounds{Min: 4000, Max: 5000},
		S: chebyshev.Bounds{Min: -1, Max: 1},
	}

	cx := []float64{50.0, 0}
	cy := []float64{50.0, 0}

	orders := []format.OrderLimits{{Order: 1, Min: 4000, Max: 5000}}

	cfg := config.RasterConfig{
		GridResWavelength:     2,
		GridResSlit:           0.2,
		ZoomGridSize:          9,
		DisplacementThreshold: 1e-9,
		IterationLimit:        1,
		OrderTimeout:          10 * time.Second,
	}

	r, err := Run(context.Background(), orders, degrees, bounds, cx, cy, testDetector(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := range r.Wavelength {
		if !math.IsNaN(r.Wavelength[i]) {
			t.Fatalf("pixel %d: expected NaN, got wavelength=%f", i, r.Wavelength[i])
		}
	}
}

/*****************************************************************************************************************/

func TestRunEmptyOrdersIsInvalidInput(t *testing.T) {
	degrees, bounds, cx, cy := linearMap(100, 80, 100, 80)

	cfg := config.RasterConfig{IterationLimit: 1, OrderTimeout: time.Second}

	_, err := Run(context.Background(), nil, degrees, bounds, cx, cy, testDetector(), cfg)
	if !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput error, got %v", err)
	}
}

/*****************************************************************************************************************/
