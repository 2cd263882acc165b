/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package catalogue implements the predicted-line catalogue reader: a
// pre-computed table keyed by (binning, pinhole mode, arm), filtered to the
// mid-slit subset in single-pinhole mode before any downstream step.
//
// Column-name canonicalisation (case-insensitive lookup, lower-casing of
// "order"/"wavelength") follows pkg/catalog/base.go's struct-tag-per-field
// pattern, generalised to a dynamic column set via pkg/fitstable.
package catalogue

/*****************************************************************************************************************/

import (
	"fmt"

	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/fitstable"
)

/*****************************************************************************************************************/

// PinholeMode distinguishes single- from multi-pinhole catalogues.
type PinholeMode int

/*****************************************************************************************************************/

const (
	SinglePinhole PinholeMode = iota
	MultiPinhole
)

/*****************************************************************************************************************/

// PredictedLine is one anticipated arc-line position.
type PredictedLine struct {
	Order      int
	Wavelength float64
	SlitIndex  int
	SlitPosition float64
	GuessX     float64
	GuessY     float64
}

/*****************************************************************************************************************/

const (
	colOrder      = "order"
	colWavelength = "wavelength"
	colSlitIndex  = "slit_index"
	colSlitPos    = "slit_position"
	colDetectorX  = "detector_x"
	colDetectorY  = "detector_y"
)

/*****************************************************************************************************************/

// ColumnSpec is the required FITS-table column layout. Binning
// and mode select the catalogue file to load; the caller (detector profile)
// resolves binning/mode to a path.
func ColumnSpec() []fitstable.Column {
	return []fitstable.Column{
		{Name: colOrder, Type: fitstable.Int64},
		{Name: colWavelength, Type: fitstable.Float64},
		{Name: colSlitIndex, Type: fitstable.Int64},
		{Name: colSlitPos, Type: fitstable.Float64},
		{Name: colDetectorX, Type: fitstable.Float64},
		{Name: colDetectorY, Type: fitstable.Float64},
	}
}

/*****************************************************************************************************************/

// Load reads the predicted-line catalogue at path. In SinglePinhole mode,
// only rows with slit_index == midSlitIndex are retained, applied before any
// downstream step (invariant).
func Load(path string, mode PinholeMode, midSlitIndex int) ([]PredictedLine, error) {
	table, err := fitstable.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.InvalidInput, "catalogue.Load", path, err)
	}

	required := []string{colOrder, colWavelength, colSlitIndex, colSlitPos, colDetectorX, colDetectorY}

	for _, name := range required {
		found := false

		for _, c := range table.Columns {
			if c.Name == name {
				found = true
				break
			}
		}

		if !found {
			return nil, errs.New(errs.InvalidInput, "catalogue.Load", path, fmt.Errorf("missing required column %q", name))
		}
	}

	lines := make([]PredictedLine, 0, table.NumRows())

	for row := 0; row < table.NumRows(); row++ {
		order, _ := table.Int64(colOrder, row)
		wavelength, _ := table.Float64(colWavelength, row)
		slitIndex, _ := table.Int64(colSlitIndex, row)
		slitPos, _ := table.Float64(colSlitPos, row)
		x, _ := table.Float64(colDetectorX, row)
		y, _ := table.Float64(colDetectorY, row)

		if mode == SinglePinhole && int(slitIndex) != midSlitIndex {
			continue
		}

		lines = append(lines, PredictedLine{
			Order:        int(order),
			Wavelength:   wavelength,
			SlitIndex:    int(slitIndex),
			SlitPosition: slitPos,
			GuessX:       x,
			GuessY:       y,
		})
	}

	return lines, nil
}

/*****************************************************************************************************************/
