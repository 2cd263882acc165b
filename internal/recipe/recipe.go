/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package recipe wires the dispersion-solution core's components into the
// two end-to-end recipes: a single-pinhole "disp-solution" that
// produces a first-guess 2D map, and a multi-pinhole "spat-solution" that
// absorbs the residual shift against that first guess and fits the full 3D
// map. Grounded on cmd/root.go + internal/solver/solver.go's
// flag-to-Params-to-Run pattern: a cobra command with package-level flag
// variables populates a plain Params struct, which a Run function consumes.
package recipe

/*****************************************************************************************************************/

import (
	"fmt"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/internal/diagnostic"
	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/catalogue"
	"github.com/thespacedoctor/soxs-pipeline/pkg/centroid"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	"github.com/thespacedoctor/soxs-pipeline/pkg/dispersion"
	"github.com/thespacedoctor/soxs-pipeline/pkg/fit"
	"github.com/thespacedoctor/soxs-pipeline/pkg/frame"
	"github.com/thespacedoctor/soxs-pipeline/pkg/qcsink"
)

/*****************************************************************************************************************/

// Params is the full set of filesystem inputs/outputs and detector geometry
// a recipe run needs. Both commands share this shape; spat-solution alone
// reads PriorMapLocation.
type Params struct {
	FrameLocation         string
	CatalogueLocation     string
	SpectralFormatLocation string
	PriorMapLocation      string
	OutputMapLocation     string
	OutputWavelengthMapLocation string
	OutputSlitMapLocation string
	QCDatabaseLocation    string
	PlotLocation          string

	Detector config.DetectorProfile
	Config   config.Config
}

/*****************************************************************************************************************/

// degreesOf converts the flat config.PolynomialDegrees a flag set populates
// into the three-variable chebyshev.Degrees the polynomial kernel consumes,
// with s forced to zero for a single-pinhole (2D) fit.
func degreesOf(d config.PolynomialDegrees, multiPinhole bool) chebyshev.Degrees {
	degrees := chebyshev.Degrees{M: d.OrderDeg, L: d.WavelengthDeg}

	if multiPinhole {
		degrees.S = d.SlitDeg
	}

	return degrees
}

/*****************************************************************************************************************/

// sourceHeaderOf builds the cleanable header map pkg/dispersion.Write
// expects out of the fields the frame reader actually retains.
func sourceHeaderOf(f *frame.Frame) map[string]string {
	return map[string]string{
		"ESO SEQ ARM":       f.Arm,
		"INSTRUME":          f.Instrument,
		"DATE-OBS":          f.ObservationUTC,
		"ESO DET WIN1 BINX": fmt.Sprintf("%d", f.BinningX),
		"ESO DET WIN1 BINY": fmt.Sprintf("%d", f.BinningY),
		"ESO DPR TECH":      f.Technique,
	}
}

/*****************************************************************************************************************/

// detectLines centroids every predicted line against f, dropping lines the
// centroider never locates: those are recorded as not-detected and
// excluded from the fit rather than aborting the run.
func detectLines(f *frame.Frame, lines []catalogue.PredictedLine, cfg config.CentroidConfig, diag *diagnostic.Channel) []fit.ObservedLine {
	observed := make([]fit.ObservedLine, 0, len(lines))

	for _, line := range lines {
		result := centroid.Line(f, line.GuessX, line.GuessY, cfg)

		if !result.Detected {
			if diag != nil {
				diag.Debugf("recipe.detectLines", map[string]any{
					"order": line.Order, "wavelength": line.Wavelength, "slitIndex": line.SlitIndex,
				}, "line not detected")
			}

			continue
		}

		observed = append(observed, fit.ObservedLine{
			Order:        line.Order,
			Wavelength:   line.Wavelength,
			SlitPosition: line.SlitPosition,
			ObservedX:    result.X,
			ObservedY:    result.Y,
		})
	}

	return observed
}

/*****************************************************************************************************************/

// qcEntriesOf projects a fit.QC summary into the generic metric rows both
// pkg/dispersion.Write (header propagation) and pkg/qcsink (the append-only
// sink) consume: one entry per measured quantity, named directly from the
// QC table population the spec's metric families (NLINE, PLINE, XYRES*) are
// drawn from. Only NLINE, PLINE and the per-axis and combined RMS values are
// propagated into the header; the min/max values and the iteration and
// clipped counts are retained in the sink only, to keep the header small.
func qcEntriesOf(surviving int, q fit.QC) []dispersion.QCEntry {
	pline := float64(surviving) / float64(max(q.NInitial, 1))

	return []dispersion.QCEntry{
		{Name: "NLINE", Value: float64(q.NInitial), Unit: "count", Comment: "lines detected before clipping", PropagateToHeader: true},
		{Name: "PLINE", Value: pline, Unit: "fraction", Comment: "fraction of lines surviving clipping", PropagateToHeader: true},
		{Name: "ITERATIONS", Value: float64(q.Iterations), Unit: "count", Comment: "sigma-clipping iterations run"},
		{Name: "NCLIPPED", Value: float64(q.NClipped), Unit: "count", Comment: "lines rejected by sigma clipping"},
		{Name: "XRESMIN", Value: q.XMin, Unit: "px", Comment: "x-axis residual minimum"},
		{Name: "XRESMAX", Value: q.XMax, Unit: "px", Comment: "x-axis residual maximum"},
		{Name: "XRESRMS", Value: q.XStd, Unit: "px", Comment: "x-axis residual RMS", PropagateToHeader: true},
		{Name: "YRESMIN", Value: q.YMin, Unit: "px", Comment: "y-axis residual minimum"},
		{Name: "YRESMAX", Value: q.YMax, Unit: "px", Comment: "y-axis residual maximum"},
		{Name: "YRESRMS", Value: q.YStd, Unit: "px", Comment: "y-axis residual RMS", PropagateToHeader: true},
		{Name: "XYRESMIN", Value: q.CombinedMin, Unit: "px", Comment: "combined residual minimum"},
		{Name: "XYRESMAX", Value: q.CombinedMax, Unit: "px", Comment: "combined residual maximum"},
		{Name: "XYRESRMS", Value: q.CombinedStd, Unit: "px", Comment: "combined residual RMS", PropagateToHeader: true},
	}
}

// qcRecordsOf flattens a QC entry set into the append-only sink's row shape,
// stamping every row with the recipe name and the run's observation and
// reduction timestamps.
func qcRecordsOf(recipeName, observationUTC, reductionUTC string, entries []dispersion.QCEntry) []qcsink.Record {
	records := make([]qcsink.Record, len(entries))

	for i, e := range entries {
		records[i] = qcsink.Record{
			RecipeName:        recipeName,
			MetricName:        e.Name,
			Value:             e.Value,
			Unit:              e.Unit,
			Comment:           e.Comment,
			ObservationUTC:    observationUTC,
			ReductionUTC:      reductionUTC,
			PropagateToHeader: e.PropagateToHeader,
		}
	}

	return records
}

/*****************************************************************************************************************/

// requireNonEmpty is a small validation helper shared by both commands'
// flag-driven entry points (InvalidInput covers missing required
// filesystem locations the same way it covers malformed tables).
func requireNonEmpty(component, name, value string) error {
	if value == "" {
		return errs.New(errs.InvalidInput, component, name, fmt.Errorf("%s is required", name))
	}

	return nil
}

/*****************************************************************************************************************/
