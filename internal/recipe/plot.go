/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package recipe

/*****************************************************************************************************************/

import (
	"context"
	"math"

	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	"github.com/thespacedoctor/soxs-pipeline/pkg/fit"
	"github.com/thespacedoctor/soxs-pipeline/pkg/frame"
	"github.com/thespacedoctor/soxs-pipeline/pkg/qcsink"
)

/*****************************************************************************************************************/

// cmdContext is the root context both recipes run their rasterisation pass
// under. Neither recipe currently threads a caller-supplied context (both
// are synchronous CLI entry points), so this is the single construction
// site context.Background would otherwise be repeated at.
func cmdContext() context.Context {
	return context.Background()
}

/*****************************************************************************************************************/

// writeResidualPlot builds the four-panel PDF artefact from a converged
// fit.Result: detected centroids and post-fit-predicted positions over the
// frame, and the (rx, ry)/rxy residual panels.
func writeResidualPlot(path string, f *frame.Frame, observed []fit.ObservedLine, result *fit.Result) error {
	detected := make([]qcsink.Point2D, len(observed))

	for i, o := range observed {
		detected[i] = qcsink.Point2D{X: o.ObservedX, Y: o.ObservedY}
	}

	rows := make([]chebyshev.Row, len(result.Surviving))
	targetsX := make([]float64, len(result.Surviving))
	targetsY := make([]float64, len(result.Surviving))

	for i, line := range result.Surviving {
		rows[i] = chebyshev.Row{M: float64(line.Order), L: line.Wavelength, S: line.SlitPosition}
		targetsX[i] = line.ObservedX
		targetsY[i] = line.ObservedY
	}

	predictedX, err := chebyshev.Evaluate(result.Degrees, result.Cx, result.Bounds, rows)
	if err != nil {
		return err
	}

	predictedY, err := chebyshev.Evaluate(result.Degrees, result.Cy, result.Bounds, rows)
	if err != nil {
		return err
	}

	predictedPoints := make([]qcsink.Point2D, len(rows))
	rx := make([]float64, len(rows))
	ry := make([]float64, len(rows))
	rxy := make([]float64, len(rows))

	for i := range rows {
		predictedPoints[i] = qcsink.Point2D{X: predictedX[i], Y: predictedY[i]}
		rx[i] = predictedX[i] - targetsX[i]
		ry[i] = predictedY[i] - targetsY[i]
		rxy[i] = math.Hypot(rx[i], ry[i])
	}

	return qcsink.WritePDF(path, qcsink.ResidualPlot{
		Frame:     f,
		Detected:  detected,
		Predicted: predictedPoints,
		Rx:        rx,
		Ry:        ry,
		Rxy:       rxy,
	})
}

/*****************************************************************************************************************/
