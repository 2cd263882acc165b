/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package raster

/*****************************************************************************************************************/

import (
	"os"

	"github.com/observerly/iris/pkg/fits"

	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
)

/*****************************************************************************************************************/

// writePlane writes one detector-sized raster plane to path as a single-HDU
// FITS image, following the same fits.NewFITSImage(bitpix, bzero, bscale,
// datamax) + WriteToBuffer construction pkg/frame.Load reads back and
// internal/solver/solver.go writes WCS-solved FITS files with — the write
// side of a pattern this module otherwise only exercises for reading.
func writePlane(path string, width, height int, values []float64) error {
	image := fits.NewFITSImage(2, 0, 0, 65535)

	image.Header.Set("NAXIS1", width, "length of wavelength/slit raster axis 1")
	image.Header.Set("NAXIS2", height, "length of wavelength/slit raster axis 2")

	data := make([]float32, len(values))

	for i, v := range values {
		data[i] = float32(v)
	}

	image.Data = data

	buf, err := image.WriteToBuffer()
	if err != nil {
		return errs.New(errs.WriteFailure, "raster.writePlane", path, err)
	}

	outputFile, err := os.Create(path)
	if err != nil {
		return errs.New(errs.WriteFailure, "raster.writePlane", path, err)
	}

	defer outputFile.Close()

	if _, err := buf.WriteTo(outputFile); err != nil {
		return errs.New(errs.WriteFailure, "raster.writePlane", path, err)
	}

	return nil
}

/*****************************************************************************************************************/

// WriteFITS writes the wavelength and slit-position rasters as two
// detector-sized FITS images giving (λ, s) per pixel. The owning-order
// raster is run-internal bookkeeping only and is not part of this output
// pair.
func WriteFITS(wavelengthPath, slitPath string, r *Raster) error {
	if err := writePlane(wavelengthPath, r.Width, r.Height, r.Wavelength); err != nil {
		return err
	}

	return writePlane(slitPath, r.Width, r.Height, r.Slit)
}

/*****************************************************************************************************************/
