/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package dispersion

/*****************************************************************************************************************/

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/thespacedoctor/soxs-pipeline/pkg/chebyshev"
)

/*****************************************************************************************************************/

func TestTechniqueKey(t *testing.T) {
	single := New(chebyshev.Degrees{M: 3, L: 3, S: 0}, chebyshev.NormalisationBounds{}, []float64{1}, []float64{1}, "UVB")
	if got := single.Technique(); got != "ECHELLE,PINHOLE" {
		t.Errorf("Technique() = %q, want ECHELLE,PINHOLE", got)
	}

	multi := New(chebyshev.Degrees{M: 3, L: 3, S: 2}, chebyshev.NormalisationBounds{}, []float64{1}, []float64{1}, "UVB")
	if got := multi.Technique(); got != "ECHELLE,MULTI-PINHOLE" {
		t.Errorf("Technique() = %q, want ECHELLE,MULTI-PINHOLE", got)
	}
}

/*****************************************************************************************************************/

func TestCleanHeaderStripsExcludedKeys(t *testing.T) {
	src := map[string]string{
		"DPR_CATG":       "CALIB",
		"DPR_TYPE":       "LAMP,FMTCHK",
		"DET_READ_SPEED": "400kHz",
		"CONAD":          "1.8",
		"GAIN":           "2.1",
		"RON":            "3.0",
		"INSTRUME":       "SOXS",
	}

	cleaned := CleanHeader(src)

	for _, k := range []string{"DPR_CATG", "DPR_TYPE", "DET_READ_SPEED", "CONAD", "GAIN", "RON"} {
		if _, ok := cleaned[k]; ok {
			t.Errorf("CleanHeader() retained excluded key %q", k)
		}
	}

	if v, ok := cleaned["INSTRUME"]; !ok || v != "SOXS" {
		t.Errorf("CleanHeader() dropped or mutated unrelated key INSTRUME, got %q, %v", v, ok)
	}
}

/*****************************************************************************************************************/

func TestWriteLoadRoundTrip(t *testing.T) {
	degrees := chebyshev.Degrees{M: 2, L: 2, S: 1}
	bounds := chebyshev.NormalisationBounds{
		M: chebyshev.Bounds{Min: 1, Max: 30},
		L: chebyshev.Bounds{Min: 3000, Max: 3500},
		S: chebyshev.Bounds{Min: -5, Max: 5},
	}

	n := degrees.NumCoefficients()

	cx := make([]float64, n)
	cy := make([]float64, n)

	for i := 0; i < n; i++ {
		cx[i] = float64(i) + 0.5
		cy[i] = -float64(i) - 0.25
	}

	m := New(degrees, bounds, cx, cy, "UVB")

	qc := []QCEntry{
		{Name: "XYRESMEAN", Value: 0.012, PropagateToHeader: true},
		{Name: "INTERNAL_ONLY", Value: 42, PropagateToHeader: false},
	}

	source := map[string]string{
		"DPR_CATG": "CALIB",
		"INSTRUME": "SOXS",
	}

	path := filepath.Join(t.TempDir(), "disp_tab.bin")

	if err := Write(path, m, source, qc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Degrees != degrees {
		t.Errorf("Degrees = %+v, want %+v", loaded.Degrees, degrees)
	}

	for i := range cx {
		if math.Abs(loaded.Cx[i]-cx[i]) > 1e-12 {
			t.Errorf("Cx[%d] = %f, want %f", i, loaded.Cx[i], cx[i])
		}

		if math.Abs(loaded.Cy[i]-cy[i]) > 1e-12 {
			t.Errorf("Cy[%d] = %f, want %f", i, loaded.Cy[i], cy[i])
		}
	}

	if loaded.RunID != m.RunID {
		t.Errorf("RunID = %q, want %q", loaded.RunID, m.RunID)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if len(raw) == 0 {
		t.Error("expected a non-empty serialised file")
	}
}

/*****************************************************************************************************************/
