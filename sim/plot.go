package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg/draw"
)

// NewAttitudePlot creates a plot of true against estimated Euler angles
// from two histories in the (t, roll, pitch, yaw) row layout produced by
// Run. Truth is drawn as lines, estimates as scatter points.
// It returns error if either matrix is nil, they disagree in size, or they
// do not have 4 columns.
func NewAttitudePlot(truth, estimated *mat.Dense) (*plot.Plot, error) {
	if truth == nil || estimated == nil {
		return nil, fmt.Errorf("invalid data supplied")
	}

	rt, ct := truth.Dims()
	re, ce := estimated.Dims()
	if ct != 4 || ce != 4 || rt != re {
		return nil, fmt.Errorf("invalid data dimensions: [%d x %d] vs [%d x %d]", rt, ct, re, ce)
	}

	p := plot.New()

	p.Title.Text = "Attitude"
	p.X.Label.Text = "t [s]"
	p.Y.Label.Text = "angle [rad]"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	names := []string{"roll", "pitch", "yaw"}
	colors := []color.RGBA{
		{R: 255, B: 128, A: 255},
		{G: 180, A: 255},
		{B: 255, A: 255},
	}

	for col := 1; col < 4; col++ {
		line, err := plotter.NewLine(makePoints(truth, col))
		if err != nil {
			return nil, fmt.Errorf("failed to create line: %v", err)
		}
		line.Color = colors[col-1]

		p.Add(line)
		p.Legend.Add(names[col-1], line)

		scatter, err := plotter.NewScatter(makePoints(estimated, col))
		if err != nil {
			return nil, fmt.Errorf("failed to create scatter: %v", err)
		}
		scatter.GlyphStyle.Color = colors[col-1]
		scatter.Shape = draw.CrossGlyph{}

		p.Add(scatter)
		p.Legend.Add(names[col-1]+" est", scatter)
	}

	return p, nil
}

func makePoints(m *mat.Dense, col int) plotter.XYs {
	rows, _ := m.Dims()
	pts := make(plotter.XYs, rows)
	for i := 0; i < rows; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, col)
	}

	return pts
}
