/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package recipe

/*****************************************************************************************************************/

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/internal/diagnostic"
	"github.com/thespacedoctor/soxs-pipeline/pkg/catalogue"
	"github.com/thespacedoctor/soxs-pipeline/pkg/dispersion"
	"github.com/thespacedoctor/soxs-pipeline/pkg/fit"
	"github.com/thespacedoctor/soxs-pipeline/pkg/format"
	"github.com/thespacedoctor/soxs-pipeline/pkg/frame"
	"github.com/thespacedoctor/soxs-pipeline/pkg/qcsink"
	"github.com/thespacedoctor/soxs-pipeline/pkg/raster"
)

/*****************************************************************************************************************/

var dispSolutionParams Params

/*****************************************************************************************************************/

// DispSolutionCommand is the single-pinhole recipe: a first-guess 2D
// (order, wavelength) -> (x, y) map fitted from the mid-slit subset of the
// predicted-line catalogue, with no prior shift step (there is no earlier
// map yet to shift against).
var DispSolutionCommand = &cobra.Command{
	Use:   "disp-solution",
	Short: "fit a first-guess 2D dispersion map from a single-pinhole arc exposure",
	Long:  "fit a first-guess 2D dispersion map from a single-pinhole arc exposure",
	Run: func(cmd *cobra.Command, args []string) {
		if err := RunDispSolution(dispSolutionParams, diagnostic.New(nil)); err != nil {
			fmt.Printf("Error: %v\n", err)
			cmd.Usage()
		}
	},
}

/*****************************************************************************************************************/

func init() {
	dispSolutionParams.Config = config.Default()

	flags := DispSolutionCommand.Flags()

	flags.StringVarP(&dispSolutionParams.FrameLocation, "input", "i", "", "the pinhole frame FITS file")
	flags.StringVar(&dispSolutionParams.CatalogueLocation, "catalogue", "", "the predicted-line catalogue FITS table")
	flags.StringVar(&dispSolutionParams.SpectralFormatLocation, "spectral-format", "", "the spectral format table path")
	flags.StringVarP(&dispSolutionParams.OutputMapLocation, "output", "o", "", "the output dispersion map FITS table")
	flags.StringVar(&dispSolutionParams.OutputWavelengthMapLocation, "output-wavelength-map", "", "the output wavelength raster FITS image")
	flags.StringVar(&dispSolutionParams.OutputSlitMapLocation, "output-slit-map", "", "the output slit-position raster FITS image")
	flags.StringVar(&dispSolutionParams.QCDatabaseLocation, "qc-db", "", "the append-only QC record database")
	flags.StringVar(&dispSolutionParams.PlotLocation, "plot", "", "the residual-plot PDF output path")

	flags.StringVar(&dispSolutionParams.Detector.Arm, "arm", "", "the instrument arm name")
	flags.IntVar(&dispSolutionParams.Detector.ScienceRowMin, "science-row-min", 0, "first science-pixel row")
	flags.IntVar(&dispSolutionParams.Detector.ScienceRowMax, "science-row-max", 0, "last science-pixel row")
	flags.IntVar(&dispSolutionParams.Detector.ScienceColMin, "science-col-min", 0, "first science-pixel column")
	flags.IntVar(&dispSolutionParams.Detector.ScienceColMax, "science-col-max", 0, "last science-pixel column")
	flags.Float64Var(&dispSolutionParams.Detector.SlitLength, "slit-length", 0, "slit length in pixels")
	flags.IntVar(&dispSolutionParams.Detector.MidSlitIndex, "mid-slit-index", 0, "the mid-slit catalogue index")

	flags.IntVar(&dispSolutionParams.Config.Degrees.OrderDeg, "order-degree", 3, "Chebyshev order-axis degree")
	flags.IntVar(&dispSolutionParams.Config.Degrees.WavelengthDeg, "wavelength-degree", 4, "Chebyshev wavelength-axis degree")

	DispSolutionCommand.MarkFlagRequired("input")
	DispSolutionCommand.MarkFlagRequired("catalogue")
	DispSolutionCommand.MarkFlagRequired("output")
}

/*****************************************************************************************************************/

// RunDispSolution executes the disp-solution recipe end to end: load frame
// and catalogue, centroid every mid-slit predicted line, fit the robust
// global 2D map, write it, and record QC. When a spectral format and both
// raster outputs are given it also calls raster.Run, which rejects this
// S-degree-0 map with InvalidInput, so the run returns that error after the
// map and QC are written and no raster is produced.
func RunDispSolution(params Params, diag *diagnostic.Channel) error {
	if err := requireNonEmpty("recipe.RunDispSolution", "input", params.FrameLocation); err != nil {
		return err
	}

	if err := requireNonEmpty("recipe.RunDispSolution", "catalogue", params.CatalogueLocation); err != nil {
		return err
	}

	if err := requireNonEmpty("recipe.RunDispSolution", "output", params.OutputMapLocation); err != nil {
		return err
	}

	diag.Progressf("recipe.disp-solution", nil, "loading frame %s", params.FrameLocation)

	f, err := frame.Load(params.FrameLocation)
	if err != nil {
		return err
	}

	lines, err := catalogue.Load(params.CatalogueLocation, catalogue.SinglePinhole, params.Detector.MidSlitIndex)
	if err != nil {
		return err
	}

	diag.Progressf("recipe.disp-solution", map[string]any{"nLine": len(lines)}, "centroiding predicted lines")

	observed := detectLines(f, lines, params.Config.Centroid, diag)

	degrees := degreesOf(params.Config.Degrees, false)

	result, err := fit.Fit(degrees, params.Config.Clipping, observed)
	if err != nil {
		return err
	}

	diag.Progressf("recipe.disp-solution", map[string]any{
		"iterations": result.QC.Iterations, "nSurviving": result.QC.NSurviving, "nClipped": result.QC.NClipped,
	}, "global fit converged")

	dispMap := dispersion.New(result.Degrees, result.Bounds, result.Cx, result.Cy, params.Detector.Arm)

	entries := qcEntriesOf(result.QC.NSurviving, result.QC)

	if err := dispersion.Write(params.OutputMapLocation, dispMap, sourceHeaderOf(f), entries); err != nil {
		return err
	}

	if params.QCDatabaseLocation != "" {
		sink, err := qcsink.Open(params.QCDatabaseLocation)
		if err != nil {
			return err
		}

		defer sink.Close()

		records := qcRecordsOf("disp-solution", f.ObservationUTC, time.Now().UTC().Format(time.RFC3339), entries)

		if err := sink.AppendAll(records); err != nil {
			return err
		}
	}

	if params.SpectralFormatLocation != "" && params.OutputWavelengthMapLocation != "" && params.OutputSlitMapLocation != "" {
		orders, err := format.Load(params.SpectralFormatLocation)
		if err != nil {
			return err
		}

		diag.Progressf("recipe.disp-solution", map[string]any{"nOrder": len(orders)}, "rasterising orders")

		r, err := raster.Run(cmdContext(), orders, result.Degrees, result.Bounds, result.Cx, result.Cy, params.Detector, params.Config.Raster)
		if err != nil {
			return err
		}

		if err := raster.WriteFITS(params.OutputWavelengthMapLocation, params.OutputSlitMapLocation, r); err != nil {
			return err
		}
	}

	if params.PlotLocation != "" {
		if err := writeResidualPlot(params.PlotLocation, f, observed, result); err != nil {
			return err
		}
	}

	diag.Progressf("recipe.disp-solution", nil, "wrote dispersion map to %s", params.OutputMapLocation)

	return nil
}

/*****************************************************************************************************************/
