/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package frame models the calibrated pinhole exposure the core consumes.
// Frame preparation itself (overscan trim, gain, bad-pixel mask,
// uncertainty map) is out of scope: the core only ever receives an
// already-prepared Frame. Load is a thin convenience
// constructor for the common case of a single-HDU science image with no
// separate mask/uncertainty extensions, built directly on
// github.com/observerly/iris/pkg/fits exactly as pkg/solver/solver.go and
// examples/solve/main.go read pinhole/science frames.
package frame

/*****************************************************************************************************************/

import (
	"os"

	"github.com/observerly/iris/pkg/fits"

	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
)

/*****************************************************************************************************************/

// Frame is a 2D detector image with per-pixel uncertainty and a bad-pixel
// mask.
type Frame struct {
	Width, Height int
	Data          []float64 // science data, row-major, length Width*Height
	Err           []float64 // per-pixel uncertainty, >= 0
	Mask          []bool    // true == bad pixel
	Arm           string
	Instrument    string
	ObservationUTC string
	BinningX      int
	BinningY      int
	Technique     string // "ECHELLE,PINHOLE" or "ECHELLE,MULTI-PINHOLE"
}

/*****************************************************************************************************************/

// At returns the pixel value at (x, y) in the frame's science-pixel frame.
func (f *Frame) At(x, y int) float64 {
	return f.Data[y*f.Width+x]
}

/*****************************************************************************************************************/

// IsBad reports whether (x, y) is masked bad or lies outside the frame.
func (f *Frame) IsBad(x, y int) bool {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return true
	}

	return f.Mask[y*f.Width+x]
}

/*****************************************************************************************************************/

// Load reads a pinhole frame from a single-HDU FITS file with no separate
// mask/uncertainty extensions (Err defaults to 1.0 everywhere, Mask to all
// good). Callers with a fully prepared frame (mask + uncertainty map from an
// upstream calibration step) should construct Frame directly instead.
func Load(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.InvalidInput, "frame.Load", path, err)
	}
	defer file.Close()

	fit := fits.NewFITSImage(2, 0, 0, 65535)

	if err := fit.Read(file); err != nil {
		return nil, errs.New(errs.InvalidInput, "frame.Load", path, err)
	}

	width := int(fit.Header.Naxis1)
	height := int(fit.Header.Naxis2)

	data := make([]float64, width*height)
	for i, v := range fit.Data {
		data[i] = float64(v)
	}

	errMap := make([]float64, width*height)
	for i := range errMap {
		errMap[i] = 1.0
	}

	f := &Frame{
		Width:  width,
		Height: height,
		Data:   data,
		Err:    errMap,
		Mask:   make([]bool, width*height),
	}

	if arm, ok := fit.Header.Strings["ESO SEQ ARM"]; ok {
		f.Arm = arm.Value
	}

	if inst, ok := fit.Header.Strings["INSTRUME"]; ok {
		f.Instrument = inst.Value
	}

	if dateObs, ok := fit.Header.Strings["DATE-OBS"]; ok {
		f.ObservationUTC = dateObs.Value
	}

	if tech, ok := fit.Header.Strings["ESO DPR TECH"]; ok {
		f.Technique = tech.Value
	}

	if bx, ok := fit.Header.Floats["ESO DET WIN1 BINX"]; ok {
		f.BinningX = int(bx.Value)
	}

	if by, ok := fit.Header.Floats["ESO DET WIN1 BINY"]; ok {
		f.BinningY = int(by.Value)
	}

	if f.BinningX == 0 {
		f.BinningX = 1
	}

	if f.BinningY == 0 {
		f.BinningY = 1
	}

	return f, nil
}

/*****************************************************************************************************************/
