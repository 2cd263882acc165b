/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package fit implements the robust global fitter: an iterative
// fit/residual/sigma-clip loop over the two independent Chebyshev
// polynomials Cx and Cy, using the median absolute deviation as the scale
// estimator. Grounded on original_source/.../create_dispersion_map.py's
// sigma_clip/mad_std convergence loop, reimplemented over gonum/stat plus a
// direct MAD computation (gonum/stat has no mad_std equivalent).
package fit

/*****************************************************************************************************************/

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
)

/*****************************************************************************************************************/

// ObservedLine is one row of the table the fitter consumes: a detected arc
// line with its predicted (order, wavelength, slit_position) and its
// centroided pixel position.
type ObservedLine struct {
	Order        int
	Wavelength   float64
	SlitPosition float64
	ObservedX    float64
	ObservedY    float64
}

/*****************************************************************************************************************/

// QC is the aggregate quality-control summary computed after the final
// iteration (step 5).
type QC struct {
	Iterations  int
	NInitial    int
	NSurviving  int
	NClipped    int
	XMin        float64
	XMax        float64
	XStd        float64
	YMin        float64
	YMax        float64
	YStd        float64
	CombinedMin float64
	CombinedMax float64
	CombinedStd float64
}

/*****************************************************************************************************************/

// Result is the outcome of a converged (or iteration-capped) robust fit.
type Result struct {
	Degrees   chebyshev.Degrees
	Bounds    chebyshev.NormalisationBounds
	Cx        []float64
	Cy        []float64
	Surviving []ObservedLine
	QC        QC
}

/*****************************************************************************************************************/

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

/*****************************************************************************************************************/

// madSigma returns the median absolute deviation scaled by 1.4826 so that it
// approximates the standard deviation for normally distributed residuals
// (step 3).
func madSigma(values []float64) float64 {
	med := median(values)

	deviations := make([]float64, len(values))

	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}

	return median(deviations) * 1.4826
}

/*****************************************************************************************************************/

func minMaxStd(values []float64) (min, max, std float64) {
	min, max = values[0], values[0]

	for _, v := range values {
		if v < min {
			min = v
		}

		if v > max {
			max = v
		}
	}

	std = stat.StdDev(values, nil)

	return min, max, std
}

/*****************************************************************************************************************/

func rowsOf(lines []ObservedLine) []chebyshev.Row {
	rows := make([]chebyshev.Row, len(lines))

	for i, l := range lines {
		rows[i] = chebyshev.Row{M: float64(l.Order), L: l.Wavelength, S: l.SlitPosition}
	}

	return rows
}

/*****************************************************************************************************************/

func validate(lines []ObservedLine) error {
	for i, l := range lines {
		values := []float64{l.Wavelength, l.SlitPosition, l.ObservedX, l.ObservedY}

		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errs.New(errs.InvalidInput, "fit.Fit", "row contains NaN or Inf", nil)
			}
		}

		_ = i
	}

	return nil
}

/*****************************************************************************************************************/

// Fit runs the iterative sigma-clipped least-squares fit. The
// polynomial normalisation bounds are derived once from the full initial
// table and held fixed across clipping iterations, so that a coefficient
// vector always means the same thing regardless of how many rows survived.
func Fit(degrees chebyshev.Degrees, clip config.ClippingConfig, lines []ObservedLine) (*Result, error) {
	n := len(lines)

	if n == 0 {
		return nil, errs.New(errs.InvalidInput, "fit.Fit", "empty observed-line table", nil)
	}

	if err := validate(lines); err != nil {
		return nil, err
	}

	allRows := rowsOf(lines)
	bounds := chebyshev.BoundsFromRows(allRows)

	surviving := make([]int, n)
	for i := range surviving {
		surviving[i] = i
	}

	required := degrees.NumCoefficients()

	var (
		cx, cy       []float64
		rx, ry, rxy  []float64
		iter         int
	)

	for {
		iter++

		rows := make([]chebyshev.Row, len(surviving))
		targetX := make([]float64, len(surviving))
		targetY := make([]float64, len(surviving))

		for i, idx := range surviving {
			rows[i] = allRows[idx]
			targetX[i] = lines[idx].ObservedX
			targetY[i] = lines[idx].ObservedY
		}

		var err error

		cx, err = chebyshev.Fit(degrees, bounds, rows, targetX, nil)
		if err != nil {
			return nil, err
		}

		cy, err = chebyshev.Fit(degrees, bounds, rows, targetY, nil)
		if err != nil {
			return nil, err
		}

		rx, err = chebyshev.Residuals(degrees, cx, bounds, rows, targetX)
		if err != nil {
			return nil, err
		}

		ry, err = chebyshev.Residuals(degrees, cy, bounds, rows, targetY)
		if err != nil {
			return nil, err
		}

		rxy = make([]float64, len(surviving))
		for i := range rxy {
			rxy[i] = math.Hypot(rx[i], ry[i])
		}

		sigma := madSigma(rxy)
		if sigma == 0 {
			break
		}

		threshold := clip.Sigma * sigma

		kept := make([]int, 0, len(surviving))
		clippedAny := false

		for i, idx := range surviving {
			if rxy[i] > threshold {
				clippedAny = true
				continue
			}

			kept = append(kept, idx)
		}

		if !clippedAny {
			break
		}

		if len(kept) < required {
			return nil, errs.New(errs.UnderdeterminedFit, "fit.Fit", "clipping would leave fewer rows than coefficients", nil)
		}

		surviving = kept

		if iter >= clip.MaxIters {
			break
		}
	}

	absRx := make([]float64, len(rx))
	absRy := make([]float64, len(ry))

	for i := range rx {
		absRx[i] = math.Abs(rx[i])
		absRy[i] = math.Abs(ry[i])
	}

	qc := QC{
		Iterations: iter,
		NInitial:   n,
		NSurviving: len(surviving),
		NClipped:   n - len(surviving),
	}

	qc.XMin, qc.XMax, qc.XStd = minMaxStd(absRx)
	qc.YMin, qc.YMax, qc.YStd = minMaxStd(absRy)
	qc.CombinedMin, qc.CombinedMax, qc.CombinedStd = minMaxStd(rxy)

	survivingLines := make([]ObservedLine, len(surviving))
	for i, idx := range surviving {
		survivingLines[i] = lines[idx]
	}

	return &Result{
		Degrees:   degrees,
		Bounds:    bounds,
		Cx:        cx,
		Cy:        cy,
		Surviving: survivingLines,
		QC:        qc,
	}, nil
}

/*****************************************************************************************************************/
