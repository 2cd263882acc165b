/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package raster implements the inverse rasteriser: per echelle
// order, an oversampled forward-evaluated grid is integer-binned onto
// detector pixels, fringe pixels are dropped, well-centred pixels are
// accepted directly, and the rest are refined with progressively finer local
// grids until no pixel is newly constrained or the iteration cap is hit.
//
// Per-order scratch (the candidate-sample slices rebuilt every iteration) is
// owned entirely by that order's goroutine and discarded when it returns,
// without a shared allocator, since Go's garbage collector already
// reclaims a goroutine-local slice the instant it goes out of scope.
package raster

/*****************************************************************************************************************/

import (
	"math"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	"github.com/thespacedoctor/soxs-pipeline/pkg/format"
)

/*****************************************************************************************************************/

// Raster holds the three detector-sized images the rasteriser produces:
// per-pixel wavelength, slit position, and owning order. Unassigned pixels
// carry NaN in all three.
type Raster struct {
	Width, Height int
	ColOffset     int
	RowOffset     int
	Wavelength    []float64
	Slit          []float64
	Order         []float64
}

/*****************************************************************************************************************/

func newRaster(detector config.DetectorProfile) *Raster {
	width := detector.ScienceColMax - detector.ScienceColMin + 1
	height := detector.ScienceRowMax - detector.ScienceRowMin + 1

	r := &Raster{
		Width:     width,
		Height:    height,
		ColOffset: detector.ScienceColMin,
		RowOffset: detector.ScienceRowMin,
		Wavelength: make([]float64, width*height),
		Slit:       make([]float64, width*height),
		Order:      make([]float64, width*height),
	}

	for i := range r.Wavelength {
		r.Wavelength[i] = math.NaN()
		r.Slit[i] = math.NaN()
		r.Order[i] = math.NaN()
	}

	return r
}

/*****************************************************************************************************************/

func (r *Raster) index(x, y int) (int, bool) {
	cx := x - r.ColOffset
	cy := y - r.RowOffset

	if cx < 0 || cx >= r.Width || cy < 0 || cy >= r.Height {
		return 0, false
	}

	return cy*r.Width + cx, true
}

/*****************************************************************************************************************/

// At returns the (wavelength, slit, order) triple at detector pixel (x, y).
func (r *Raster) At(x, y int) (wavelength, slit, order float64) {
	i, ok := r.index(x, y)
	if !ok {
		return math.NaN(), math.NaN(), math.NaN()
	}

	return r.Wavelength[i], r.Slit[i], r.Order[i]
}

/*****************************************************************************************************************/

// sample is one (λ, s) forward-evaluated grid member.
type sample struct {
	lambda, s     float64
	fitX, fitY    float64
	pixelX, pixelY int
	residual      float64
}

/*****************************************************************************************************************/

// orderRaster is the sparse, order-local scratch assignment map built by
// rasterOrder before being merged into the shared Raster by the driver.
type orderRaster struct {
	order       int
	assignments map[[2]int]sample
}

/*****************************************************************************************************************/

func buildInitialGrid(limits format.OrderLimits, slitLength float64, cfg config.RasterConfig) []sample {
	lambdaMin := limits.Min - 20
	lambdaMax := limits.Max + 20

	sMin := -slitLength / 2 * 1.1
	sMax := slitLength / 2 * 1.1

	var lambdas, slits []float64

	for l := lambdaMin; l <= lambdaMax; l += cfg.GridResWavelength {
		lambdas = append(lambdas, l)
	}

	for s := sMin; s <= sMax; s += cfg.GridResSlit {
		slits = append(slits, s)
	}

	samples := make([]sample, 0, len(lambdas)*len(slits))

	for _, l := range lambdas {
		for _, s := range slits {
			samples = append(samples, sample{lambda: l, s: s})
		}
	}

	return samples
}

/*****************************************************************************************************************/

func evaluateSamples(order int, degrees chebyshev.Degrees, bounds chebyshev.NormalisationBounds, cx, cy []float64, samples []sample) ([]sample, error) {
	rows := make([]chebyshev.Row, len(samples))

	for i, sm := range samples {
		rows[i] = chebyshev.Row{M: float64(order), L: sm.lambda, S: sm.s}
	}

	fx, err := chebyshev.Evaluate(degrees, cx, bounds, rows)
	if err != nil {
		return nil, err
	}

	fy, err := chebyshev.Evaluate(degrees, cy, bounds, rows)
	if err != nil {
		return nil, err
	}

	out := make([]sample, len(samples))

	for i, sm := range samples {
		px := int(math.Floor(fx[i]))
		py := int(math.Floor(fy[i]))

		dx := fx[i] - float64(px) - 0.5
		dy := fy[i] - float64(py) - 0.5

		out[i] = sample{
			lambda: sm.lambda,
			s:      sm.s,
			fitX:   fx[i],
			fitY:   fy[i],
			pixelX: px,
			pixelY: py,
			residual: math.Hypot(dx, dy),
		}
	}

	return out, nil
}

/*****************************************************************************************************************/

func groupByPixel(samples []sample) map[[2]int][]sample {
	groups := make(map[[2]int][]sample)

	for _, sm := range samples {
		key := [2]int{sm.pixelX, sm.pixelY}
		groups[key] = append(groups[key], sm)
	}

	return groups
}

/*****************************************************************************************************************/

func meanOf(values []float64) float64 {
	var sum float64

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

/*****************************************************************************************************************/

func stdOf(values []float64, mean float64) float64 {
	var sumSq float64

	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(values)))
}

/*****************************************************************************************************************/

func bestOf(members []sample) sample {
	best := members[0]

	for _, m := range members[1:] {
		if m.residual < best.residual {
			best = m
		}
	}

	return best
}

/*****************************************************************************************************************/
