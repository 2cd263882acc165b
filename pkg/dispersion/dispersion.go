/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package dispersion implements the DispersionMap type and its map
// serialiser: two Chebyshev coefficient vectors, their shared
// normalisation bounds, and a cleaned provenance header, round-tripped
// through pkg/fitstable. Built on observerly/iris/pkg/fits's header map
// idiom (fit.Header.Floats/.Strings) and github.com/oklog/ulid for the
// run-provenance identifier.
package dispersion

/*****************************************************************************************************************/

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid"

	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
	"github.com/thespacedoctor/soxs-pipeline/pkg/fitstable"
)

/*****************************************************************************************************************/

// Axis names one of the two fitted surfaces.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

/*****************************************************************************************************************/

// QCEntry is one measured quality metric produced by pkg/fit: a name, value
// and unit, with an optional human-readable comment, optionally propagated
// into the written header as an "ESO QC <name>" key.
type QCEntry struct {
	Name              string
	Value             float64
	Unit              string
	Comment           string
	PropagateToHeader bool
}

/*****************************************************************************************************************/

// DispersionMap is the fitted (order, wavelength, slit) -> (x, y) mapping,
// ready for rasterisation or for re-evaluation as a shift-estimator prior.
type DispersionMap struct {
	Degrees chebyshev.Degrees
	Bounds  chebyshev.NormalisationBounds
	Cx      []float64
	Cy      []float64
	Arm     string
	RunID   string
}

/*****************************************************************************************************************/

// New constructs a DispersionMap, stamping it with a fresh ULID provenance
// identifier.
func New(degrees chebyshev.Degrees, bounds chebyshev.NormalisationBounds, cx, cy []float64, arm string) *DispersionMap {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)

	return &DispersionMap{
		Degrees: degrees,
		Bounds:  bounds,
		Cx:      cx,
		Cy:      cy,
		Arm:     arm,
		RunID:   id.String(),
	}
}

/*****************************************************************************************************************/

// Technique reports the second technique header key: a
// degree-0 slit axis means the map was fitted from a single-pinhole
// exposure.
func (m *DispersionMap) Technique() string {
	if m.Degrees.S == 0 {
		return "ECHELLE,PINHOLE"
	}

	return "ECHELLE,MULTI-PINHOLE"
}

/*****************************************************************************************************************/

// strippedAmplifierKeys are per-amplifier electronic keys removed from the
// written header regardless of whether they are present.
var strippedAmplifierKeys = []string{"DET_READ_SPEED", "CONAD", "GAIN", "RON"}

/*****************************************************************************************************************/

// CleanHeader returns a copy of src with exposure-category keys (DPR_*
// prefix) and per-amplifier electronic keys removed.
func CleanHeader(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))

	for k, v := range src {
		if strings.HasPrefix(k, "DPR_") {
			continue
		}

		out[k] = v
	}

	for _, k := range strippedAmplifierKeys {
		delete(out, k)
	}

	return out
}

/*****************************************************************************************************************/

func coefficientColumnName(degrees chebyshev.Degrees, idx int) string {
	for i := 0; i <= degrees.M; i++ {
		for j := 0; j <= degrees.L; j++ {
			for k := 0; k <= degrees.S; k++ {
				if degrees.Index(i, j, k) == idx {
					return fmt.Sprintf("c%d%d%d", i, j, k)
				}
			}
		}
	}

	return fmt.Sprintf("c%d", idx)
}

/*****************************************************************************************************************/

func columnSpec(degrees chebyshev.Degrees) []fitstable.Column {
	cols := []fitstable.Column{
		{Name: "axis", Type: fitstable.String, Width: 1},
		{Name: "order-deg", Type: fitstable.Int64},
		{Name: "wavelength-deg", Type: fitstable.Int64},
		{Name: "slit-deg", Type: fitstable.Int64},
		{Name: "m-min", Type: fitstable.Float64},
		{Name: "m-max", Type: fitstable.Float64},
		{Name: "l-min", Type: fitstable.Float64},
		{Name: "l-max", Type: fitstable.Float64},
		{Name: "s-min", Type: fitstable.Float64},
		{Name: "s-max", Type: fitstable.Float64},
	}

	for i := 0; i < degrees.NumCoefficients(); i++ {
		cols = append(cols, fitstable.Column{Name: coefficientColumnName(degrees, i), Type: fitstable.Float64})
	}

	return cols
}

/*****************************************************************************************************************/

// Write serialises m to path: primary unit with one row per axis, and a
// cleaned provenance header carrying the product category, the technique
// key, the run ID, and any QC entries marked propagate-to-header.
func Write(path string, m *DispersionMap, sourceHeader map[string]string, qc []QCEntry) error {
	table := fitstable.New(columnSpec(m.Degrees))

	cleaned := CleanHeader(sourceHeader)

	keys := make([]string, 0, len(cleaned))
	for k := range cleaned {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		table.SetHeader(k, cleaned[k])
	}

	table.SetHeader("PRODCATG", fmt.Sprintf("DISP_TAB_%s", m.Arm))
	table.SetHeader("ESO DPR TECH", m.Technique())
	table.SetHeader("PROV RUNID", m.RunID)

	for _, entry := range qc {
		if !entry.PropagateToHeader {
			continue
		}

		table.SetHeader(fmt.Sprintf("ESO QC %s", entry.Name), strconv.FormatFloat(entry.Value, 'g', -1, 64))
	}

	for _, row := range []struct {
		axis   Axis
		coeffs []float64
	}{
		{AxisX, m.Cx},
		{AxisY, m.Cy},
	} {
		values := []any{
			string(row.axis),
			int64(m.Degrees.M),
			int64(m.Degrees.L),
			int64(m.Degrees.S),
			m.Bounds.M.Min, m.Bounds.M.Max,
			m.Bounds.L.Min, m.Bounds.L.Max,
			m.Bounds.S.Min, m.Bounds.S.Max,
		}

		for _, c := range row.coeffs {
			values = append(values, c)
		}

		if err := table.AppendRow(values...); err != nil {
			return errs.New(errs.WriteFailure, "dispersion.Write", path, err)
		}
	}

	if err := fitstable.WriteFile(path, table); err != nil {
		return errs.New(errs.WriteFailure, "dispersion.Write", path, err)
	}

	return nil
}

/*****************************************************************************************************************/

// Load deserialises a DispersionMap previously written with Write.
func Load(path string) (*DispersionMap, error) {
	table, err := fitstable.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.InvalidInput, "dispersion.Load", path, err)
	}

	if table.NumRows() != 2 {
		return nil, errs.New(errs.InvalidInput, "dispersion.Load", path, fmt.Errorf("expected 2 rows, got %d", table.NumRows()))
	}

	orderDeg, _ := table.Int64("order-deg", 0)
	wavelengthDeg, _ := table.Int64("wavelength-deg", 0)
	slitDeg, _ := table.Int64("slit-deg", 0)

	degrees := chebyshev.Degrees{M: int(orderDeg), L: int(wavelengthDeg), S: int(slitDeg)}

	mMin, _ := table.Float64("m-min", 0)
	mMax, _ := table.Float64("m-max", 0)
	lMin, _ := table.Float64("l-min", 0)
	lMax, _ := table.Float64("l-max", 0)
	sMin, _ := table.Float64("s-min", 0)
	sMax, _ := table.Float64("s-max", 0)

	bounds := chebyshev.NormalisationBounds{
		M: chebyshev.Bounds{Min: mMin, Max: mMax},
		L: chebyshev.Bounds{Min: lMin, Max: lMax},
		S: chebyshev.Bounds{Min: sMin, Max: sMax},
	}

	n := degrees.NumCoefficients()

	m := &DispersionMap{Degrees: degrees, Bounds: bounds, Cx: make([]float64, n), Cy: make([]float64, n)}

	for row := 0; row < 2; row++ {
		axis, _ := table.String("axis", row)

		coeffs := make([]float64, n)

		for i := 0; i < n; i++ {
			v, err := table.Float64(coefficientColumnName(degrees, i), row)
			if err != nil {
				return nil, errs.New(errs.InvalidInput, "dispersion.Load", path, err)
			}

			coeffs[i] = v
		}

		switch Axis(axis) {
		case AxisX:
			m.Cx = coeffs
		case AxisY:
			m.Cy = coeffs
		default:
			return nil, errs.New(errs.InvalidInput, "dispersion.Load", path, fmt.Errorf("unknown axis %q", axis))
		}
	}

	if runID, ok := table.Header("PROV RUNID"); ok {
		m.RunID = runID
	}

	return m, nil
}

/*****************************************************************************************************************/
