/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package config collects every tunable of the dispersion-solution core into
// one explicit record, replacing the reference implementation's ambient
// settings object. No module-level mutable state is used anywhere in this
// module: every component constructor takes a Config (or one of its
// sub-records) by value.
package config

/*****************************************************************************************************************/

import "time"

/*****************************************************************************************************************/

// Axis names a physical detector axis.
type Axis int

/*****************************************************************************************************************/

const (
	AxisX Axis = iota
	AxisY
)

/*****************************************************************************************************************/

// DetectorProfile is the fixed per-arm geometry and science-pixel window.
// Loaded once per run.
type DetectorProfile struct {
	Arm               string
	ScienceRowMin     int
	ScienceRowMax     int
	ScienceColMin     int
	ScienceColMax     int
	SlitLength        float64
	MidSlitIndex      int
	DispersionAxis    Axis // which axis is dispersion (SOXS: y, XSHOOTER: x — see SPEC_FULL.md)
	SpatialAxis       Axis
	CataloguePathFunc func(binningX, binningY int, multiPinhole bool) string
	SpectralFormatPath string
}

/*****************************************************************************************************************/

// PolynomialDegrees are the three Chebyshev degrees of the dispersion map.
type PolynomialDegrees struct {
	OrderDeg      int
	WavelengthDeg int
	SlitDeg       int
}

/*****************************************************************************************************************/

// NumCoefficients returns (d_m+1)(d_λ+1)(d_s+1), the size of a coefficient
// vector for these degrees.
func (d PolynomialDegrees) NumCoefficients() int {
	return (d.OrderDeg + 1) * (d.WavelengthDeg + 1) * (d.SlitDeg + 1)
}

/*****************************************************************************************************************/

// CentroidConfig configures the line centroider.
type CentroidConfig struct {
	PixelWindowSize    int // stamp side in pixels before rounding to odd
	BackgroundSigma    float64
	GaussianFWHM       float64
	DetectionSigma     float64
	RoundnessLimit     float64
	SharpnessLimit     float64
	MaxClipIterations  int
}

/*****************************************************************************************************************/

// ClippingConfig configures the robust global fitter.
type ClippingConfig struct {
	Sigma       float64 // poly-fitting-residual-clipping-sigma
	MaxIters    int     // poly-clipping-iteration-limit
}

/*****************************************************************************************************************/

// RasterConfig configures the inverse rasteriser.
type RasterConfig struct {
	GridResWavelength        float64
	GridResSlit              float64
	ZoomGridSize             int
	DisplacementThreshold    float64
	IterationLimit           int
	OrderTimeout             time.Duration
	WorkerPoolSize           int
}

/*****************************************************************************************************************/

// Config aggregates every tunable passed explicitly into the pipeline
// (generalises pkg/sky.Params and pkg/solver.Params into one record).
type Config struct {
	Detector   DetectorProfile
	Degrees    PolynomialDegrees
	Centroid   CentroidConfig
	Clipping   ClippingConfig
	Raster     RasterConfig
}

/*****************************************************************************************************************/

// Default returns the reference defaults for centroiding, clipping and
// rasterisation. Degrees is left zero; the recipe flags supply its defaults.
func Default() Config {
	return Config{
		Centroid: CentroidConfig{
			PixelWindowSize:   9,
			BackgroundSigma:   3.0,
			GaussianFWHM:      2.0,
			DetectionSigma:    5.0,
			RoundnessLimit:    3.0,
			SharpnessLimit:    3.0,
			MaxClipIterations: 20,
		},
		Clipping: ClippingConfig{
			Sigma:    5.0,
			MaxIters: 10,
		},
		Raster: RasterConfig{
			GridResWavelength:     0.1,
			GridResSlit:           0.1,
			ZoomGridSize:          9,
			DisplacementThreshold: 0.01,
			IterationLimit:        20,
			OrderTimeout:          3600 * time.Second,
			WorkerPoolSize:        0, // 0 == no limit: one goroutine per order
		},
	}
}

/*****************************************************************************************************************/
