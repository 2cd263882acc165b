/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package chebyshev implements the polynomial kernel: the
// tensor product of univariate Chebyshev polynomials of the first kind,
//
//	P(m, λ, s) = Σ c_{ijk} T_i(m̂) T_j(λ̂) T_k(ŝ)
//
// evaluated, fitted and differenced against observed targets. Coefficient
// ordering is fixed: the flattened index of c_{ijk} is
// i·(d_λ+1)(d_s+1) + j·(d_s+1) + k, generalising
// pkg/transform/sip.go's flat power-map idea into an explicit, ordered
// coefficient vector.
package chebyshev

/*****************************************************************************************************************/

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
)

/*****************************************************************************************************************/

// Degrees are the three polynomial degrees (order, wavelength, slit).
type Degrees struct {
	M, L, S int
}

/*****************************************************************************************************************/

// NumCoefficients returns (d_m+1)(d_λ+1)(d_s+1).
func (d Degrees) NumCoefficients() int {
	return (d.M + 1) * (d.L + 1) * (d.S + 1)
}

/*****************************************************************************************************************/

// Index returns the flattened coefficient index of c_{ijk}.
func (d Degrees) Index(i, j, k int) int {
	return i*(d.L+1)*(d.S+1) + j*(d.S+1) + k
}

/*****************************************************************************************************************/

// Bounds records the affine [min, max] → [-1, 1] rescaling applied to one
// variable. Bounds are recorded at fit time and reused at evaluation time to
// preserve bit-level determinism.
type Bounds struct {
	Min, Max float64
}

/*****************************************************************************************************************/

// Normalise maps v in [b.Min, b.Max] to [-1, 1].
func (b Bounds) Normalise(v float64) float64 {
	if b.Max == b.Min {
		return 0
	}

	return 2*(v-b.Min)/(b.Max-b.Min) - 1
}

/*****************************************************************************************************************/

// NormalisationBounds holds the per-variable Bounds used to rescale (m, λ, s)
// rows into [-1, 1] before evaluation or fitting.
type NormalisationBounds struct {
	M, L, S Bounds
}

/*****************************************************************************************************************/

// BoundsFromRows derives min/max affine bounds from a table of rows.
func BoundsFromRows(rows []Row) NormalisationBounds {
	nb := NormalisationBounds{
		M: Bounds{Min: math.Inf(1), Max: math.Inf(-1)},
		L: Bounds{Min: math.Inf(1), Max: math.Inf(-1)},
		S: Bounds{Min: math.Inf(1), Max: math.Inf(-1)},
	}

	for _, r := range rows {
		nb.M.Min, nb.M.Max = math.Min(nb.M.Min, r.M), math.Max(nb.M.Max, r.M)
		nb.L.Min, nb.L.Max = math.Min(nb.L.Min, r.L), math.Max(nb.L.Max, r.L)
		nb.S.Min, nb.S.Max = math.Min(nb.S.Min, r.S), math.Max(nb.S.Max, r.S)
	}

	return nb
}

/*****************************************************************************************************************/

// Row is one (order, wavelength, slit) sample in raw (un-normalised) units.
type Row struct {
	M, L, S float64
}

/*****************************************************************************************************************/

// chebyshevBasis returns [T_0(x), T_1(x), ..., T_n(x)] using the standard
// recurrence T_0=1, T_1=x, T_{n}=2x·T_{n-1} - T_{n-2}.
func chebyshevBasis(x float64, n int) []float64 {
	t := make([]float64, n+1)

	t[0] = 1

	if n == 0 {
		return t
	}

	t[1] = x

	for i := 2; i <= n; i++ {
		t[i] = 2*x*t[i-1] - t[i-2]
	}

	return t
}

/*****************************************************************************************************************/

// designRow returns the |coeffs| basis-function values for one normalised
// (m̂, λ̂, ŝ) sample, ordered per Degrees.Index.
func designRow(degrees Degrees, mHat, lHat, sHat float64) []float64 {
	tm := chebyshevBasis(mHat, degrees.M)
	tl := chebyshevBasis(lHat, degrees.L)
	ts := chebyshevBasis(sHat, degrees.S)

	row := make([]float64, degrees.NumCoefficients())

	for i := 0; i <= degrees.M; i++ {
		for j := 0; j <= degrees.L; j++ {
			for k := 0; k <= degrees.S; k++ {
				row[degrees.Index(i, j, k)] = tm[i] * tl[j] * ts[k]
			}
		}
	}

	return row
}

/*****************************************************************************************************************/

// Evaluate returns the polynomial value at every row, given an ordered
// coefficient vector. Rows are pre-normalised to [-1, 1] using bounds.
func Evaluate(degrees Degrees, coeffs []float64, bounds NormalisationBounds, rows []Row) ([]float64, error) {
	if len(coeffs) != degrees.NumCoefficients() {
		return nil, errs.New(errs.DegreeMismatch, "chebyshev.Evaluate", fmt.Sprintf("got %d coefficients, want %d", len(coeffs), degrees.NumCoefficients()), nil)
	}

	values := make([]float64, len(rows))

	for idx, r := range rows {
		basis := designRow(degrees, bounds.M.Normalise(r.M), bounds.L.Normalise(r.L), bounds.S.Normalise(r.S))

		var v float64

		for i, b := range basis {
			v += b * coeffs[i]
		}

		values[idx] = v
	}

	return values, nil
}

/*****************************************************************************************************************/

// Fit performs a linear least-squares fit of the polynomial to targets.
// weights is optional (nil means uniform weighting); when supplied it must
// have one entry per row.
func Fit(degrees Degrees, bounds NormalisationBounds, rows []Row, targets []float64, weights []float64) ([]float64, error) {
	n := degrees.NumCoefficients()

	if len(rows) != len(targets) {
		return nil, errs.New(errs.InvalidInput, "chebyshev.Fit", "rows/targets length mismatch", nil)
	}

	if len(rows) < n {
		return nil, errs.New(errs.UnderdeterminedFit, "chebyshev.Fit", fmt.Sprintf("%d rows, need >= %d", len(rows), n), nil)
	}

	a := mat.NewDense(len(rows), n, nil)
	b := mat.NewVecDense(len(rows), nil)

	for idx, r := range rows {
		basis := designRow(degrees, bounds.M.Normalise(r.M), bounds.L.Normalise(r.L), bounds.S.Normalise(r.S))

		w := 1.0

		if weights != nil {
			w = weights[idx]
		}

		for col, v := range basis {
			a.Set(idx, col, v*math.Sqrt(w))
		}

		b.SetVec(idx, targets[idx]*math.Sqrt(w))
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)

	var atb mat.VecDense
	atb.MulVec(a.T(), b)

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(&ata, &atb); err != nil {
		return nil, errs.New(errs.SingularSystem, "chebyshev.Fit", "normal equations A^T A are rank-deficient", err)
	}

	out := make([]float64, n)

	for i := 0; i < n; i++ {
		out[i] = coeffs.AtVec(i)
	}

	return out, nil
}

/*****************************************************************************************************************/

// Residuals returns P(row; coeffs) - target for every row.
func Residuals(degrees Degrees, coeffs []float64, bounds NormalisationBounds, rows []Row, targets []float64) ([]float64, error) {
	values, err := Evaluate(degrees, coeffs, bounds, rows)
	if err != nil {
		return nil, err
	}

	residuals := make([]float64, len(rows))

	for i := range rows {
		residuals[i] = values[i] - targets[i]
	}

	return residuals, nil
}

/*****************************************************************************************************************/
