/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package format implements the spectral format table reader: per order,
// the wavelength limits (λ_min, λ_max) consumed by the inverse rasteriser's
// per-order grid span. Grounded on original_source/.../toolkit.py's
// read_spectral_format.
package format

/*****************************************************************************************************************/

import (
	"fmt"

	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/fitstable"
)

/*****************************************************************************************************************/

// OrderLimits is the wavelength span of one echelle order.
type OrderLimits struct {
	Order int
	Min   float64
	Max   float64
}

/*****************************************************************************************************************/

const (
	colOrder = "order"
	colMin   = "wlminfull"
	colMax   = "wlmaxfull"
)

/*****************************************************************************************************************/

// ColumnSpec is the required column layout of the spectral format table.
func ColumnSpec() []fitstable.Column {
	return []fitstable.Column{
		{Name: colOrder, Type: fitstable.Int64},
		{Name: colMin, Type: fitstable.Float64},
		{Name: colMax, Type: fitstable.Float64},
	}
}

/*****************************************************************************************************************/

// Load reads the spectral format table at path, one row per order.
func Load(path string) ([]OrderLimits, error) {
	table, err := fitstable.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.InvalidInput, "format.Load", path, err)
	}

	for _, name := range []string{colOrder, colMin, colMax} {
		found := false

		for _, c := range table.Columns {
			if c.Name == name {
				found = true
				break
			}
		}

		if !found {
			return nil, errs.New(errs.InvalidInput, "format.Load", path, fmt.Errorf("missing required column %q", name))
		}
	}

	limits := make([]OrderLimits, table.NumRows())

	for row := 0; row < table.NumRows(); row++ {
		order, _ := table.Int64(colOrder, row)
		min, _ := table.Float64(colMin, row)
		max, _ := table.Float64(colMax, row)

		limits[row] = OrderLimits{Order: int(order), Min: min, Max: max}
	}

	return limits, nil
}

/*****************************************************************************************************************/
