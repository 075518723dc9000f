package trajectory

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotPNG draws the x-y path of samples, marking keyframes and failed steps, and saves it to
// path. The image format follows the file extension.
func PlotPNG(samples []Sample, title, path string) error {
	if len(samples) == 0 {
		return errors.New("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(plotter.NewGrid())

	var route, keyframes, failed plotter.XYs
	for _, s := range samples {
		pt := plotter.XY{X: s.Pose.X, Y: s.Pose.Y}
		route = append(route, pt)
		switch {
		case s.Keyframe:
			keyframes = append(keyframes, pt)
		case !s.Valid:
			failed = append(failed, pt)
		}
	}

	line, err := plotter.NewLine(route)
	if err != nil {
		return errors.Wrap(err, "failed to create path line")
	}
	line.Color = color.RGBA{B: 200, A: 255}
	line.LineStyle.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("path", line)

	if len(keyframes) > 0 {
		scatter, err := plotter.NewScatter(keyframes)
		if err != nil {
			return errors.Wrap(err, "failed to create keyframe markers")
		}
		scatter.GlyphStyle.Color = color.RGBA{G: 160, A: 255}
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add("keyframes", scatter)
	}
	if len(failed) > 0 {
		scatter, err := plotter.NewScatter(failed)
		if err != nil {
			return errors.Wrap(err, "failed to create failure markers")
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		scatter.GlyphStyle.Shape = draw.CrossGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("failed matches", scatter)
	}
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", path)
	}
	return nil
}
