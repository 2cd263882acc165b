/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package recipe

/*****************************************************************************************************************/

import (
	"testing"

	"github.com/thespacedoctor/soxs-pipeline/internal/config"
	"github.com/thespacedoctor/soxs-pipeline/pkg/dispersion"
	"github.com/thespacedoctor/soxs-pipeline/pkg/fit"
	"github.com/thespacedoctor/soxs-pipeline/pkg/frame"
)

/*****************************************************************************************************************/

func TestDegreesOfForcesZeroSlitDegreeForSinglePinhole(t *testing.T) {
	d := config.PolynomialDegrees{OrderDeg: 3, WavelengthDeg: 4, SlitDeg: 2}

	got := degreesOf(d, false)

	if got.M != 3 || got.L != 4 || got.S != 0 {
		t.Errorf("degreesOf(single-pinhole) = %+v, want {M:3 L:4 S:0}", got)
	}
}

/*****************************************************************************************************************/

func TestDegreesOfKeepsSlitDegreeForMultiPinhole(t *testing.T) {
	d := config.PolynomialDegrees{OrderDeg: 3, WavelengthDeg: 4, SlitDeg: 2}

	got := degreesOf(d, true)

	if got.M != 3 || got.L != 4 || got.S != 2 {
		t.Errorf("degreesOf(multi-pinhole) = %+v, want {M:3 L:4 S:2}", got)
	}
}

/*****************************************************************************************************************/

func TestSourceHeaderOfMapsFrameFieldsToHeaderKeys(t *testing.T) {
	f := &frame.Frame{
		Arm:            "UVB",
		Instrument:     "SOXS",
		ObservationUTC: "2026-01-01T00:00:00",
		BinningX:       1,
		BinningY:       2,
		Technique:      "ECHELLE,PINHOLE",
	}

	header := sourceHeaderOf(f)

	want := map[string]string{
		"ESO SEQ ARM":       "UVB",
		"INSTRUME":          "SOXS",
		"DATE-OBS":          "2026-01-01T00:00:00",
		"ESO DET WIN1 BINX": "1",
		"ESO DET WIN1 BINY": "2",
		"ESO DPR TECH":      "ECHELLE,PINHOLE",
	}

	for k, v := range want {
		if header[k] != v {
			t.Errorf("header[%q] = %q, want %q", k, header[k], v)
		}
	}
}

/*****************************************************************************************************************/

func TestQCEntriesOfComputesPLineWithoutDividingByZero(t *testing.T) {
	entries := qcEntriesOf(90, fit.QC{
		NInitial: 100, Iterations: 3,
		XMin: -1, XMax: 1, XStd: 0.1,
		YMin: -2, YMax: 2, YStd: 0.2,
		CombinedMin: -2, CombinedMax: 2, CombinedStd: 0.15,
	})

	byName := map[string]dispersion.QCEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}

	if byName["NLINE"].Value != 100 {
		t.Errorf("NLINE = %f, want 100", byName["NLINE"].Value)
	}

	if byName["PLINE"].Value != 0.9 {
		t.Errorf("PLINE = %f, want 0.9", byName["PLINE"].Value)
	}

	if byName["XRESRMS"].Value != 0.1 || byName["YRESRMS"].Value != 0.2 || byName["XYRESRMS"].Value != 0.15 {
		t.Errorf("residual RMS stats = (%f, %f, %f), want (0.1, 0.2, 0.15)", byName["XRESRMS"].Value, byName["YRESRMS"].Value, byName["XYRESRMS"].Value)
	}

	empty := qcEntriesOf(0, fit.QC{NInitial: 0})

	for _, e := range empty {
		if e.Name == "PLINE" && e.Value != 0 {
			t.Errorf("PLINE = %f, want 0 when no lines were detected", e.Value)
		}
	}
}

/*****************************************************************************************************************/

func TestQCEntriesOfPropagatesOnlyTopLevelAndRMSMetrics(t *testing.T) {
	q := fit.QC{NInitial: 50, NSurviving: 42, XStd: 0.1, YStd: 0.2, CombinedStd: 0.15, XMin: -1, XMax: 1}

	entries := qcEntriesOf(42, q)

	propagated := map[string]bool{}

	for _, e := range entries {
		propagated[e.Name] = e.PropagateToHeader
	}

	if !propagated["NLINE"] || !propagated["PLINE"] || !propagated["XRESRMS"] || !propagated["YRESRMS"] || !propagated["XYRESRMS"] {
		t.Errorf("expected NLINE/PLINE/XRESRMS/YRESRMS/XYRESRMS to propagate to the header, got %+v", entries)
	}

	if propagated["XRESMIN"] || propagated["XRESMAX"] || propagated["ITERATIONS"] {
		t.Errorf("expected per-axis min/max and iteration count to stay sink-only, got %+v", entries)
	}
}

/*****************************************************************************************************************/

func TestQCRecordsOfStampsRecipeAndTimestamps(t *testing.T) {
	entries := qcEntriesOf(10, fit.QC{NInitial: 10})

	records := qcRecordsOf("disp-solution", "2026-01-01T00:00:00", "2026-01-02T00:00:00", entries)

	if len(records) != len(entries) {
		t.Fatalf("len(records) = %d, want %d", len(records), len(entries))
	}

	for i, r := range records {
		if r.RecipeName != "disp-solution" {
			t.Errorf("records[%d].RecipeName = %q, want disp-solution", i, r.RecipeName)
		}

		if r.ObservationUTC != "2026-01-01T00:00:00" || r.ReductionUTC != "2026-01-02T00:00:00" {
			t.Errorf("records[%d] timestamps = (%q, %q), want (2026-01-01T00:00:00, 2026-01-02T00:00:00)", i, r.ObservationUTC, r.ReductionUTC)
		}

		if r.MetricName != entries[i].Name || r.Value != entries[i].Value {
			t.Errorf("records[%d] = (%q, %f), want (%q, %f)", i, r.MetricName, r.Value, entries[i].Name, entries[i].Value)
		}
	}
}

/*****************************************************************************************************************/

func TestRequireNonEmptyRejectsBlankValue(t *testing.T) {
	if err := requireNonEmpty("recipe.Test", "input", ""); err == nil {
		t.Error("expected an error for an empty required value")
	}
}

/*****************************************************************************************************************/

func TestRequireNonEmptyAcceptsNonBlankValue(t *testing.T) {
	if err := requireNonEmpty("recipe.Test", "input", "frame.fits"); err != nil {
		t.Errorf("requireNonEmpty() error = %v, want nil", err)
	}
}

/*****************************************************************************************************************/

func TestRunDispSolutionRejectsMissingInput(t *testing.T) {
	params := Params{CatalogueLocation: "catalogue.fits", OutputMapLocation: "out.fits"}

	if err := RunDispSolution(params, nil); err == nil {
		t.Error("expected an error when FrameLocation is empty")
	}
}

/*****************************************************************************************************************/

func TestRunSpatSolutionRejectsMissingPriorMap(t *testing.T) {
	params := Params{
		FrameLocation:     "frame.fits",
		CatalogueLocation: "catalogue.fits",
		OutputMapLocation: "out.fits",
	}

	if err := RunSpatSolution(params, nil); err == nil {
		t.Error("expected an error when PriorMapLocation is empty")
	}
}
