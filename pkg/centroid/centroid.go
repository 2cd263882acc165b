/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package centroid implements the line centroider: stamp
// extraction, sigma-clipped background statistics, a 2D Gaussian peak
// search, and sub-pixel refinement.
package centroid

/*****************************************************************************************************************/

import (
	"math"
	"sort"

	"github.com/observerly/iris/pkg/photometry"
	"gonum.org/v1/gonum/stat"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/pkg/frame"
	"github.com/thespacedoctor/soxs-pipeline/pkg/geometry"
)

/*****************************************************************************************************************/

// Result is an observed centroid, or a not-detected marker.
type Result struct {
	X, Y     float64
	Detected bool
}

/*****************************************************************************************************************/

// stampWidth returns w = 2*floor(W/2)+1, always odd (step 1).
func stampWidth(w int) int {
	return 2*(w/2) + 1
}

/*****************************************************************************************************************/

// backgroundStats performs an iterative sigma-clip to convergence, returning
// mean, median and std of the surviving pixels (step 2).
func backgroundStats(values []float64, sigma float64, maxIters int) (mean, median, std float64) {
	surviving := append([]float64(nil), values...)

	for iter := 0; iter < maxIters; iter++ {
		sorted := append([]float64(nil), surviving...)
		sort.Float64s(sorted)

		median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		mean = stat.Mean(surviving, nil)
		std = stat.StdDev(surviving, nil)

		if std == 0 {
			break
		}

		kept := surviving[:0]

		for _, v := range surviving {
			if math.Abs(v-median) <= sigma*std {
				kept = append(kept, v)
			}
		}

		if len(kept) == len(surviving) {
			surviving = kept
			break
		}

		surviving = kept

		if len(surviving) < 2 {
			break
		}
	}

	return mean, median, std
}

/*****************************************************************************************************************/

// extractStamp pulls a w x w stamp from f centred on (guessX, guessY),
// clipped to frame bounds. ok is false if the stamp is smaller than w on
// either axis (step 1).
func extractStamp(f *frame.Frame, guessX, guessY float64, w int) (values []float32, width, height, originX, originY int, ok bool) {
	half := w / 2

	cx := int(math.Round(guessX))
	cy := int(math.Round(guessY))

	x0 := cx - half
	y0 := cy - half
	x1 := cx + half
	y1 := cy + half

	if x0 < 0 {
		x0 = 0
	}

	if y0 < 0 {
		y0 = 0
	}

	if x1 > f.Width-1 {
		x1 = f.Width - 1
	}

	if y1 > f.Height-1 {
		y1 = f.Height - 1
	}

	width = x1 - x0 + 1
	height = y1 - y0 + 1

	if width < w || height < w {
		return nil, 0, 0, 0, 0, false
	}

	values = make([]float32, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			values[y*width+x] = float32(f.At(x0+x, y0+y))
		}
	}

	return values, width, height, x0, y0, true
}

/*****************************************************************************************************************/

// shapeStatistics computes DAOStarFinder-style sharpness and roundness for
// the pixel at (px, py): sharpness compares the peak to the mean of its
// immediate 8 neighbours, and roundness compares the curvature of the
// horizontal and vertical marginal profiles through the peak (step 3). ok is
// false when the peak sits too close to the stamp edge to have a full 3x3
// neighbourhood, or when the peak itself is at or below background.
func shapeStatistics(values []float32, width, height int, median float64, px, py int) (roundness, sharpness float64, ok bool) {
	if px < 1 || py < 1 || px >= width-1 || py >= height-1 {
		return 0, 0, false
	}

	at := func(x, y int) float64 {
		return float64(values[y*width+x]) - median
	}

	peak := at(px, py)
	if peak <= 0 {
		return 0, 0, false
	}

	left, right := at(px-1, py), at(px+1, py)
	top, bottom := at(px, py-1), at(px, py+1)

	hx := 2*peak - left - right
	hy := 2*peak - top - bottom

	if hx+hy != 0 {
		roundness = (hx - hy) / (hx + hy)
	}

	topLeft, topRight := at(px-1, py-1), at(px+1, py-1)
	bottomLeft, bottomRight := at(px-1, py+1), at(px+1, py+1)

	neighbourMean := (left + right + top + bottom + topLeft + topRight + bottomLeft + bottomRight) / 8

	sharpness = (peak - neighbourMean) / peak

	return roundness, sharpness, true
}

/*****************************************************************************************************************/

// refineCentroid computes an intensity-weighted first-moment centroid
// (relative to the stamp origin) in a small window around (px, py), the
// integer pixel of the extracted candidate nearest the stamp centre.
func refineCentroid(values []float32, width, height int, median float64, px, py, radius int) (x, y float64) {
	var sum, sumX, sumY float64

	for dy := -radius; dy <= radius; dy++ {
		yy := py + dy

		if yy < 0 || yy >= height {
			continue
		}

		for dx := -radius; dx <= radius; dx++ {
			xx := px + dx

			if xx < 0 || xx >= width {
				continue
			}

			w := float64(values[yy*width+xx]) - median

			if w <= 0 {
				continue
			}

			sum += w
			sumX += w * float64(xx)
			sumY += w * float64(yy)
		}
	}

	if sum == 0 {
		return float64(px), float64(py)
	}

	return sumX / sum, sumY / sum
}

/*****************************************************************************************************************/

// Line runs the centroider for one predicted line.
func Line(f *frame.Frame, guessX, guessY float64, cfg config.CentroidConfig) Result {
	w := stampWidth(cfg.PixelWindowSize)

	values, width, height, originX, originY, ok := extractStamp(f, guessX, guessY, w)
	if !ok {
		return Result{Detected: false}
	}

	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = float64(v)
	}

	_, median, std := backgroundStats(floats, cfg.BackgroundSigma, cfg.MaxClipIterations)

	sexp := photometry.NewStarsExtractor(values, width, height, float32(cfg.GaussianFWHM), 65535)
	sexp.Threshold = float32(median + cfg.DetectionSigma*std)

	candidates := sexp.GetBrightPixels()

	if len(candidates) == 0 {
		return Result{Detected: false}
	}

	roundLimit := cfg.RoundnessLimit
	sharpLimit := cfg.SharpnessLimit

	stars := candidates[:0]

	for _, s := range candidates {
		roundness, sharpness, ok := shapeStatistics(values, width, height, median, int(s.X), int(s.Y))
		if !ok {
			continue
		}

		if roundness < -roundLimit || roundness > roundLimit {
			continue
		}

		if sharpness < -sharpLimit || sharpness > sharpLimit {
			continue
		}

		stars = append(stars, s)
	}

	if len(stars) == 0 {
		return Result{Detected: false}
	}

	centreX := float64(width) / 2
	centreY := float64(height) / 2

	best := stars[0]
	bestDist := geometry.DistanceBetweenTwoCartesianPoints(float64(best.X), float64(best.Y), centreX, centreY)

	for _, s := range stars[1:] {
		d := geometry.DistanceBetweenTwoCartesianPoints(float64(s.X), float64(s.Y), centreX, centreY)

		if d < bestDist {
			best = s
			bestDist = d
		}
	}

	radius := int(math.Ceil(cfg.GaussianFWHM))

	rx, ry := refineCentroid(values, width, height, median, int(best.X), int(best.Y), radius)

	return Result{
		X:        float64(originX) + rx,
		Y:        float64(originY) + ry,
		Detected: true,
	}
}

/*****************************************************************************************************************/
