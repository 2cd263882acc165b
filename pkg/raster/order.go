/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package raster

/*****************************************************************************************************************/

import (
	"context"
	"math"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	"github.com/thespacedoctor/soxs-pipeline/pkg/format"
)

/*****************************************************************************************************************/

// rClosest is the pixel-space radius within which the group's mean forward
// position is trusted as the refinement guess rather than falling back to
// the closest grid row's (λ, s). Its value is left open by name alone, so
// this reuses the configured accept-centred displacement threshold as the
// one scale already meaningful at pixel resolution, rather than inventing a
// second unconfigured constant.
func rClosest(cfg config.RasterConfig) float64 {
	return cfg.DisplacementThreshold
}

/*****************************************************************************************************************/

// rasterOrder runs the per-order rasterisation algorithm to completion (or
// to ctx's deadline / the configured iteration cap) and returns every pixel
// it managed to constrain.
func rasterOrder(
	ctx context.Context,
	limits format.OrderLimits,
	degrees chebyshev.Degrees,
	bounds chebyshev.NormalisationBounds,
	cx, cy []float64,
	detector config.DetectorProfile,
	cfg config.RasterConfig,
) (*orderRaster, error) {
	result := &orderRaster{order: limits.Order, assignments: map[[2]int]sample{}}

	samples, err := evaluateSamples(limits.Order, degrees, bounds, cx, cy, buildInitialGrid(limits, detector.SlitLength, cfg))
	if err != nil {
		return nil, err
	}

	floor := cfg.DisplacementThreshold / 100

	for iteration := 1; iteration <= cfg.IterationLimit; iteration++ {
		select {
		case <-ctx.Done():
			return nil, errs.New(errs.OrderTimeout, "raster.rasterOrder", ctx.Err().Error(), ctx.Err())
		default:
		}

		groups := groupByPixel(samples)

		var next []sample

		newlyAssigned := false

		for key, members := range groups {
			if len(members) < 3 {
				continue // fringe pixel: insufficient sampling (step 3)
			}

			if inBounds := key[0] >= detector.ScienceColMin && key[0] <= detector.ScienceColMax &&
				key[1] >= detector.ScienceRowMin && key[1] <= detector.ScienceRowMax; !inBounds {
				continue
			}

			if _, already := result.assignments[key]; already {
				continue // Assigned is terminal
			}

			best := bestOf(members)

			if best.residual < cfg.DisplacementThreshold {
				result.assignments[key] = best
				newlyAssigned = true

				continue
			}

			fitXs := make([]float64, len(members))
			fitYs := make([]float64, len(members))
			lambdas := make([]float64, len(members))
			slits := make([]float64, len(members))

			for i, m := range members {
				fitXs[i] = m.fitX
				fitYs[i] = m.fitY
				lambdas[i] = m.lambda
				slits[i] = m.s
			}

			meanX := meanOf(fitXs)
			meanY := meanOf(fitYs)
			meanLambda := meanOf(lambdas)
			meanSlit := meanOf(slits)

			sigmaLambda := math.Max(stdOf(lambdas, meanLambda), floor)
			sigmaSlit := math.Max(stdOf(slits, meanSlit), floor)

			sigmaX := stdOf(fitXs, meanX)
			sigmaY := stdOf(fitYs, meanY)
			sigmaXY := math.Hypot(sigmaX, sigmaY)

			offset := math.Hypot(meanX-float64(key[0])-0.5, meanY-float64(key[1])-0.5)

			var guessLambda, guessSlit float64

			if offset <= rClosest(cfg) {
				guessLambda = meanLambda
				guessSlit = meanSlit
			} else {
				guessLambda = best.lambda
				guessSlit = best.s
			}

			var halfLambda, halfSlit float64

			if sigmaXY == 0 {
				halfLambda = sigmaLambda
				halfSlit = sigmaSlit
			} else {
				halfLambda = best.residual / sigmaXY * sigmaLambda
				halfSlit = best.residual / sigmaXY * sigmaSlit
			}

			size := cfg.ZoomGridSize
			if size < 2 {
				size = 2
			}

			for iL := 0; iL < size; iL++ {
				for iS := 0; iS < size; iS++ {
					lambda := guessLambda - halfLambda + 2*halfLambda*float64(iL)/float64(size-1)
					slit := guessSlit - halfSlit + 2*halfSlit*float64(iS)/float64(size-1)

					next = append(next, sample{lambda: lambda, s: slit})
				}
			}
		}

		if !newlyAssigned {
			break // step 6: no pixel newly constrained this iteration
		}

		if len(next) == 0 {
			break
		}

		refined, err := evaluateSamples(limits.Order, degrees, bounds, cx, cy, next)
		if err != nil {
			return nil, err
		}

		samples = refined
	}

	return result, nil
}

/*****************************************************************************************************************/
