/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package shift implements the prior-map residual shift estimator: when
// fitting the multi-pinhole map using the single-pinhole solution as a
// first guess, it evaluates the prior forward map, detects observed
// positions over the mid-slit subset, and absorbs the median rigid offset
// into every predicted guess before the caller re-runs detection.
package shift

/*****************************************************************************************************************/

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/vptree"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/catalogue"
	"github.com/thespacedoctor/soxs-pipeline/pkg/centroid"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	"github.com/thespacedoctor/soxs-pipeline/pkg/frame"
)

/*****************************************************************************************************************/

// PriorMap is the already-fitted dispersion solution used as the first guess
// for a shift-corrected re-fit.
type PriorMap struct {
	Degrees chebyshev.Degrees
	Bounds  chebyshev.NormalisationBounds
	Cx, Cy  []float64
}

/*****************************************************************************************************************/

// Delta is the rigid pixel offset absorbed between the prior exposure and the
// current one.
type Delta struct {
	DX, DY float64
}

/*****************************************************************************************************************/

// guess is one prior-evaluated predicted position, indexed back into the
// originating catalogue slice. It satisfies vptree.Comparable exactly as
// pkg/spatial/quad.go's Quad does for asterism matching.
type guess struct {
	x, y float64
	idx  int
}

func (g guess) Distance(other vptree.Comparable) float64 {
	o := other.(guess)

	return math.Hypot(g.x-o.x, g.y-o.y)
}

/*****************************************************************************************************************/

func inDomain(v float64, b chebyshev.Bounds) bool {
	return v >= b.Min && v <= b.Max
}

/*****************************************************************************************************************/

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

/*****************************************************************************************************************/

// Estimate evaluates prior at every predicted row, detects observed
// positions over the mid-slit subset only, computes the median residual,
// and returns the shifted catalogue (every row's guess offset by the
// elementwise delta) ready for re-detection. Rows
// whose (order, wavelength, slit) falls outside the prior's fitted domain
// have no prior evaluation and are dropped.
func Estimate(
	f *frame.Frame,
	lines []catalogue.PredictedLine,
	prior PriorMap,
	midSlitIndex int,
	cfg config.CentroidConfig,
) (Delta, []catalogue.PredictedLine, error) {
	if len(lines) == 0 {
		return Delta{}, nil, errs.New(errs.InvalidInput, "shift.Estimate", "empty catalogue", nil)
	}

	rows := make([]chebyshev.Row, len(lines))

	for i, l := range lines {
		rows[i] = chebyshev.Row{M: float64(l.Order), L: l.Wavelength, S: l.SlitPosition}
	}

	xhat, err := chebyshev.Evaluate(prior.Degrees, prior.Cx, prior.Bounds, rows)
	if err != nil {
		return Delta{}, nil, err
	}

	yhat, err := chebyshev.Evaluate(prior.Degrees, prior.Cy, prior.Bounds, rows)
	if err != nil {
		return Delta{}, nil, err
	}

	guesses := make([]guess, 0, len(lines))

	for i, r := range rows {
		if !inDomain(r.M, prior.Bounds.M) || !inDomain(r.L, prior.Bounds.L) || !inDomain(r.S, prior.Bounds.S) {
			continue
		}

		guesses = append(guesses, guess{x: xhat[i], y: yhat[i], idx: i})
	}

	if len(guesses) == 0 {
		return Delta{}, nil, errs.New(errs.NoDetections, "shift.Estimate", "no row within the prior map domain", nil)
	}

	comparables := make([]vptree.Comparable, len(guesses))

	for i, g := range guesses {
		comparables[i] = g
	}

	tree, err := vptree.New(comparables, 1, nil)
	if err != nil {
		return Delta{}, nil, errs.New(errs.InvalidInput, "shift.Estimate", "failed to build nearest-guess index", err)
	}

	var dxs, dys []float64

	for _, l := range lines {
		if l.SlitIndex != midSlitIndex {
			continue
		}

		result := centroid.Line(f, l.GuessX, l.GuessY, cfg)
		if !result.Detected {
			continue
		}

		nearest, _ := tree.Nearest(guess{x: result.X, y: result.Y})

		np, ok := nearest.(guess)
		if !ok {
			continue
		}

		dxs = append(dxs, result.X-xhat[np.idx])
		dys = append(dys, result.Y-yhat[np.idx])
	}

	if len(dxs) == 0 {
		return Delta{}, nil, errs.New(errs.NoDetections, "shift.Estimate", "no mid-slit detections to derive a shift", nil)
	}

	delta := Delta{DX: median(dxs), DY: median(dys)}

	shifted := make([]catalogue.PredictedLine, 0, len(guesses))

	for _, g := range guesses {
		l := lines[g.idx]
		l.GuessX += delta.DX
		l.GuessY += delta.DY
		shifted = append(shifted, l)
	}

	return delta, shifted, nil
}

/*****************************************************************************************************************/
