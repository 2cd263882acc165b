/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package qcsink

/*****************************************************************************************************************/

import (
	"math"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"

	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
	"github.com/thespacedoctor/soxs-pipeline/pkg/frame"
)

/*****************************************************************************************************************/

// Point2D is a plain (x, y) pixel position, used both for detected-line and
// post-fit-predicted scatter panels.
type Point2D struct {
	X, Y float64
}

/*****************************************************************************************************************/

// ResidualPlot is everything internal/recipe's writeResidualPlot hands the
// sink to render the four residual-plot panels.
type ResidualPlot struct {
	Frame     *frame.Frame
	Detected  []Point2D
	Predicted []Point2D
	Rx, Ry    []float64
	Rxy       []float64
}

/*****************************************************************************************************************/

const (
	panelSize = 260.0
	panelGap  = 20.0
	greyGrid  = 64 // underlay resolution: greyGrid x greyGrid blocks per panel
)

/*****************************************************************************************************************/

// WritePDF renders the residual-plot PDF: detected-line scatter
// and post-fit-predicted positions each over a coarse grey frame underlay,
// an (rx, ry) scatter, and an rxy histogram, as four panels on one page.
//
// The frame underlay is a greyGrid x greyGrid downsampled block grid rather
// than an embedded raster image: the PDF image-XObject API isn't exercised
// here, while the fill-rectangle sequence is the same one
// seehuhn-go-render/testcases/genpdf/main.go uses.
func WritePDF(path string, rp ResidualPlot) error {
	pageWidth := 2*panelSize + 3*panelGap
	pageHeight := 2*panelSize + 3*panelGap

	paper := &pdf.Rectangle{URx: pageWidth, URy: pageHeight}

	page, err := document.CreateSinglePage(path, paper, pdf.V1_7, nil)
	if err != nil {
		return errs.New(errs.WriteFailure, "qcsink.WritePDF", path, err)
	}

	page.SetFillColor(color.DeviceGray(1))
	page.Rectangle(0, 0, pageWidth, pageHeight)
	page.Fill()

	originA := [2]float64{panelGap, panelGap + panelSize + panelGap}
	originB := [2]float64{panelGap + panelSize + panelGap, panelGap + panelSize + panelGap}
	originC := [2]float64{panelGap, panelGap}
	originD := [2]float64{panelGap + panelSize + panelGap, panelGap}

	drawFrameUnderlay(page, rp.Frame, originA[0], originA[1])
	drawMarkers(page, rp.Detected, rp.Frame, originA[0], originA[1], 1, 0.2, 0.2)

	drawFrameUnderlay(page, rp.Frame, originB[0], originB[1])
	drawMarkers(page, rp.Predicted, rp.Frame, originB[0], originB[1], 0.2, 0.4, 1)

	drawScatter(page, rp.Rx, rp.Ry, originC[0], originC[1])

	drawHistogram(page, rp.Rxy, originD[0], originD[1])

	if err := page.Close(); err != nil {
		return errs.New(errs.WriteFailure, "qcsink.WritePDF", path, err)
	}

	return nil
}

/*****************************************************************************************************************/

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

/*****************************************************************************************************************/

// drawFrameUnderlay paints a greyGrid x greyGrid downsampled grey block grid
// of f into a panelSize x panelSize square at (x0, y0), normalised to [0, 1]
// over f's own data range (the grayscale normalisation idiom of
// examples/solve/main.go's imgGray construction, here rendered as fill
// rectangles instead of per-pixel image bytes).
func drawFrameUnderlay(page *document.Page, f *frame.Frame, x0, y0 float64) {
	if f == nil || f.Width == 0 || f.Height == 0 {
		page.SetFillColor(color.DeviceGray(0.5))
		page.Rectangle(x0, y0, panelSize, panelSize)
		page.Fill()

		return
	}

	min, max := f.Data[0], f.Data[0]

	for _, v := range f.Data {
		if v < min {
			min = v
		}

		if v > max {
			max = v
		}
	}

	if max == min {
		max = min + 1
	}

	blockW := float64(f.Width) / float64(greyGrid)
	blockH := float64(f.Height) / float64(greyGrid)

	cellW := panelSize / float64(greyGrid)
	cellH := panelSize / float64(greyGrid)

	for by := 0; by < greyGrid; by++ {
		for bx := 0; bx < greyGrid; bx++ {
			px0 := int(float64(bx) * blockW)
			py0 := int(float64(by) * blockH)
			px1 := int(float64(bx+1) * blockW)
			py1 := int(float64(by+1) * blockH)

			if px1 <= px0 {
				px1 = px0 + 1
			}

			if py1 <= py0 {
				py1 = py0 + 1
			}

			var sum float64
			var n int

			for y := py0; y < py1 && y < f.Height; y++ {
				for x := px0; x < px1 && x < f.Width; x++ {
					sum += f.At(x, y)
					n++
				}
			}

			level := 0.5
			if n > 0 {
				level = clamp01((sum/float64(n) - min) / (max - min))
			}

			page.SetFillColor(color.DeviceGray(level))
			page.Rectangle(x0+float64(bx)*cellW, y0+float64(by)*cellH, cellW, cellH)
			page.Fill()
		}
	}
}

/*****************************************************************************************************************/

// drawMarkers plots points as small crosses over a panel previously painted
// by drawFrameUnderlay, scaling frame pixel coordinates into panel space.
func drawMarkers(page *document.Page, points []Point2D, f *frame.Frame, x0, y0 float64, r, g, b float64) {
	if f == nil || f.Width == 0 || f.Height == 0 {
		return
	}

	scaleX := panelSize / float64(f.Width)
	scaleY := panelSize / float64(f.Height)

	const armLength = 3.0

	page.SetStrokeColor(color.DeviceRGB(r, g, b))
	page.SetLineWidth(1)

	for _, p := range points {
		px := x0 + p.X*scaleX
		py := y0 + p.Y*scaleY

		page.MoveTo(px-armLength, py)
		page.LineTo(px+armLength, py)
		page.MoveTo(px, py-armLength)
		page.LineTo(px, py+armLength)
		page.Stroke()
	}
}

/*****************************************************************************************************************/

// drawScatter plots (rx, ry) residuals centred in a panel at (x0, y0), axes
// auto-scaled to the largest absolute residual present.
func drawScatter(page *document.Page, rx, ry []float64, x0, y0 float64) {
	page.SetFillColor(color.DeviceGray(0.95))
	page.Rectangle(x0, y0, panelSize, panelSize)
	page.Fill()

	if len(rx) == 0 {
		return
	}

	maxAbs := 1e-9

	for i := range rx {
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(rx[i]), math.Abs(ry[i])))
	}

	cx := x0 + panelSize/2
	cy := y0 + panelSize/2

	scale := (panelSize / 2) / maxAbs

	page.SetStrokeColor(color.DeviceGray(0.7))
	page.SetLineWidth(0.5)
	page.MoveTo(x0, cy)
	page.LineTo(x0+panelSize, cy)
	page.MoveTo(cx, y0)
	page.LineTo(cx, y0+panelSize)
	page.Stroke()

	page.SetStrokeColor(color.DeviceRGB(0.8, 0.2, 0.2))

	const armLength = 1.5

	for i := range rx {
		px := cx + rx[i]*scale
		py := cy + ry[i]*scale

		page.MoveTo(px-armLength, py)
		page.LineTo(px+armLength, py)
		page.MoveTo(px, py-armLength)
		page.LineTo(px, py+armLength)
		page.Stroke()
	}
}

/*****************************************************************************************************************/

// drawHistogram bins rxy into 20 bars spanning [0, max(rxy)] in a panel at
// (x0, y0).
func drawHistogram(page *document.Page, rxy []float64, x0, y0 float64) {
	page.SetFillColor(color.DeviceGray(0.95))
	page.Rectangle(x0, y0, panelSize, panelSize)
	page.Fill()

	if len(rxy) == 0 {
		return
	}

	const bins = 20

	max := rxy[0]

	for _, v := range rxy {
		if v > max {
			max = v
		}
	}

	if max == 0 {
		max = 1
	}

	counts := make([]int, bins)

	for _, v := range rxy {
		idx := int(v / max * bins)
		if idx >= bins {
			idx = bins - 1
		}

		if idx < 0 {
			idx = 0
		}

		counts[idx]++
	}

	maxCount := 1

	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	barWidth := panelSize / float64(bins)

	page.SetFillColor(color.DeviceRGB(0.2, 0.4, 0.8))

	for i, c := range counts {
		barHeight := panelSize * float64(c) / float64(maxCount)

		page.Rectangle(x0+float64(i)*barWidth, y0, barWidth*0.9, barHeight)
		page.Fill()
	}
}

/*****************************************************************************************************************/
