/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package raster

/*****************************************************************************************************************/

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	"github.com/thespacedoctor/soxs-pipeline/pkg/format"
)

/*****************************************************************************************************************/

// Run is the concurrency driver: one worker per order, each
// bounded by a hard per-order timeout, reassembled by slice index so the
// final raster is bitwise-identical regardless of completion order or
// worker-pool size. A worker failure of any kind — including a timed-out
// order — aborts the whole run; there is no partial recovery.
func Run(
	ctx context.Context,
	orders []format.OrderLimits,
	degrees chebyshev.Degrees,
	bounds chebyshev.NormalisationBounds,
	cx, cy []float64,
	detector config.DetectorProfile,
	cfg config.RasterConfig,
) (*Raster, error) {
	if len(orders) == 0 {
		return nil, errs.New(errs.InvalidInput, "raster.Run", "empty spectral format table", nil)
	}

	if degrees.S == 0 {
		return nil, errs.New(errs.InvalidInput, "raster.Run", "degrees.S == 0", fmt.Errorf("a single-pinhole (S-degree-0) map has no slit dependence and cannot be rasterised"))
	}

	results := make([]*orderRaster, len(orders))

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WorkerPoolSize > 0 {
		g.SetLimit(cfg.WorkerPoolSize)
	}

	for i, limits := range orders {
		i, limits := i, limits

		g.Go(func() error {
			octx, cancel := context.WithTimeout(gctx, cfg.OrderTimeout)
			defer cancel()

			res, err := rasterOrder(octx, limits, degrees, bounds, cx, cy, detector, cfg)
			if err != nil {
				if errs.Is(err, errs.OrderTimeout) || octx.Err() == context.DeadlineExceeded {
					return errs.New(errs.OrderTimeout, "raster.Run", fmt.Sprintf("order %d", limits.Order), err)
				}

				return err
			}

			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := newRaster(detector)

	for _, res := range results {
		if res == nil {
			continue
		}

		mergeInto(out, res)
	}

	return out, nil
}

/*****************************************************************************************************************/

// mergeInto commits one order's assignments into the shared raster.
// Assignment is never overwritten: the first order to claim a pixel (in
// slice order, independent of goroutine completion order) keeps it.
func mergeInto(raster *Raster, res *orderRaster) {
	for key, sm := range res.assignments {
		i, ok := raster.index(key[0], key[1])
		if !ok {
			continue
		}

		if !isNaN(raster.Order[i]) {
			continue
		}

		raster.Wavelength[i] = sm.lambda
		raster.Slit[i] = sm.s
		raster.Order[i] = float64(res.order)
	}
}

/*****************************************************************************************************************/

func isNaN(v float64) bool {
	return v != v
}

/*****************************************************************************************************************/
