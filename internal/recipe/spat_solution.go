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
	"github.com/thespacedoctor/soxs-pipeline/pkg/shift"
)

/*****************************************************************************************************************/

var spatSolutionParams Params

/*****************************************************************************************************************/

// SpatSolutionCommand is the multi-pinhole recipe: starting from the
// first-guess 2D map a prior disp-solution run produced, it absorbs the
// rigid residual shift, re-centroids every slit position, and fits the
// full 3D (order, wavelength, slit) -> (x, y) map.
var SpatSolutionCommand = &cobra.Command{
	Use:   "spat-solution",
	Short: "fit the full 3D dispersion map from a multi-pinhole arc exposure",
	Long:  "fit the full 3D dispersion map from a multi-pinhole arc exposure",
	Run: func(cmd *cobra.Command, args []string) {
		if err := RunSpatSolution(spatSolutionParams, diagnostic.New(nil)); err != nil {
			fmt.Printf("Error: %v\n", err)
			cmd.Usage()
		}
	},
}

/*****************************************************************************************************************/

func init() {
	spatSolutionParams.Config = config.Default()

	flags := SpatSolutionCommand.Flags()

	flags.StringVarP(&spatSolutionParams.FrameLocation, "input", "i", "", "the multi-pinhole frame FITS file")
	flags.StringVar(&spatSolutionParams.CatalogueLocation, "catalogue", "", "the predicted-line catalogue FITS table")
	flags.StringVar(&spatSolutionParams.PriorMapLocation, "prior-map", "", "the first-guess dispersion map from a prior disp-solution run")
	flags.StringVar(&spatSolutionParams.SpectralFormatLocation, "spectral-format", "", "the spectral format table path")
	flags.StringVarP(&spatSolutionParams.OutputMapLocation, "output", "o", "", "the output dispersion map FITS table")
	flags.StringVar(&spatSolutionParams.OutputWavelengthMapLocation, "output-wavelength-map", "", "the output wavelength raster FITS image")
	flags.StringVar(&spatSolutionParams.OutputSlitMapLocation, "output-slit-map", "", "the output slit-position raster FITS image")
	flags.StringVar(&spatSolutionParams.QCDatabaseLocation, "qc-db", "", "the append-only QC record database")
	flags.StringVar(&spatSolutionParams.PlotLocation, "plot", "", "the residual-plot PDF output path")

	flags.StringVar(&spatSolutionParams.Detector.Arm, "arm", "", "the instrument arm name")
	flags.IntVar(&spatSolutionParams.Detector.ScienceRowMin, "science-row-min", 0, "first science-pixel row")
	flags.IntVar(&spatSolutionParams.Detector.ScienceRowMax, "science-row-max", 0, "last science-pixel row")
	flags.IntVar(&spatSolutionParams.Detector.ScienceColMin, "science-col-min", 0, "first science-pixel column")
	flags.IntVar(&spatSolutionParams.Detector.ScienceColMax, "science-col-max", 0, "last science-pixel column")
	flags.Float64Var(&spatSolutionParams.Detector.SlitLength, "slit-length", 0, "slit length in pixels")
	flags.IntVar(&spatSolutionParams.Detector.MidSlitIndex, "mid-slit-index", 0, "the mid-slit catalogue index")

	flags.IntVar(&spatSolutionParams.Config.Degrees.OrderDeg, "order-degree", 3, "Chebyshev order-axis degree")
	flags.IntVar(&spatSolutionParams.Config.Degrees.WavelengthDeg, "wavelength-degree", 4, "Chebyshev wavelength-axis degree")
	flags.IntVar(&spatSolutionParams.Config.Degrees.SlitDeg, "slit-degree", 2, "Chebyshev slit-axis degree")

	SpatSolutionCommand.MarkFlagRequired("input")
	SpatSolutionCommand.MarkFlagRequired("catalogue")
	SpatSolutionCommand.MarkFlagRequired("prior-map")
	SpatSolutionCommand.MarkFlagRequired("output")
}

/*****************************************************************************************************************/

// RunSpatSolution executes the spat-solution recipe end to end: load frame,
// catalogue and prior map, absorb the residual shift, centroid every
// slit position against the shifted guesses, fit the full 3D map, write it,
// rasterise every order, and record QC.
func RunSpatSolution(params Params, diag *diagnostic.Channel) error {
	if err := requireNonEmpty("recipe.RunSpatSolution", "input", params.FrameLocation); err != nil {
		return err
	}

	if err := requireNonEmpty("recipe.RunSpatSolution", "catalogue", params.CatalogueLocation); err != nil {
		return err
	}

	if err := requireNonEmpty("recipe.RunSpatSolution", "prior-map", params.PriorMapLocation); err != nil {
		return err
	}

	if err := requireNonEmpty("recipe.RunSpatSolution", "output", params.OutputMapLocation); err != nil {
		return err
	}

	diag.Progressf("recipe.spat-solution", nil, "loading frame %s", params.FrameLocation)

	f, err := frame.Load(params.FrameLocation)
	if err != nil {
		return err
	}

	priorMap, err := dispersion.Load(params.PriorMapLocation)
	if err != nil {
		return err
	}

	lines, err := catalogue.Load(params.CatalogueLocation, catalogue.MultiPinhole, params.Detector.MidSlitIndex)
	if err != nil {
		return err
	}

	prior := shift.PriorMap{Degrees: priorMap.Degrees, Bounds: priorMap.Bounds, Cx: priorMap.Cx, Cy: priorMap.Cy}

	delta, shiftedLines, err := shift.Estimate(f, lines, prior, params.Detector.MidSlitIndex, params.Config.Centroid)
	if err != nil {
		return err
	}

	diag.Progressf("recipe.spat-solution", map[string]any{"dx": delta.DX, "dy": delta.DY}, "absorbed residual shift")

	diag.Progressf("recipe.spat-solution", map[string]any{"nLine": len(shiftedLines)}, "centroiding predicted lines")

	observed := detectLines(f, shiftedLines, params.Config.Centroid, diag)

	degrees := degreesOf(params.Config.Degrees, true)

	result, err := fit.Fit(degrees, params.Config.Clipping, observed)
	if err != nil {
		return err
	}

	diag.Progressf("recipe.spat-solution", map[string]any{
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

		records := qcRecordsOf("spat-solution", f.ObservationUTC, time.Now().UTC().Format(time.RFC3339), entries)

		if err := sink.AppendAll(records); err != nil {
			return err
		}
	}

	if params.SpectralFormatLocation != "" && params.OutputWavelengthMapLocation != "" && params.OutputSlitMapLocation != "" {
		orders, err := format.Load(params.SpectralFormatLocation)
		if err != nil {
			return err
		}

		diag.Progressf("recipe.spat-solution", map[string]any{"nOrder": len(orders)}, "rasterising orders")

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

	diag.Progressf("recipe.spat-solution", nil, "wrote dispersion map to %s", params.OutputMapLocation)

	return nil
}

/*****************************************************************************************************************/
