package visualization

import (
	"image"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"declump/internal/models"
)

// curvatureChart plots the curvature profile along the boundary of every
// object, one line per label, with the zero line for reference
func curvatureChart(points []models.BoundaryPoint, width, height int) (image.Image, error) {
	p := plot.New()
	p.Title.Text = "Curvature along the boundary"
	p.X.Label.Text = "boundary index"
	p.Y.Label.Text = "curvature (1/px)"
	p.Add(plotter.NewGrid())

	profiles := make(map[int]plotter.XYs)
	for _, bp := range points {
		xy := plotter.XY{X: float64(len(profiles[bp.Label])), Y: bp.Curvature}
		profiles[bp.Label] = append(profiles[bp.Label], xy)
	}
	labels := make([]int, 0, len(profiles))
	for label := range profiles {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	for _, label := range labels {
		line, err := plotter.NewLine(profiles[label])
		if err != nil {
			return nil, err
		}
		line.Color = labelColor(label)
		line.Width = vg.Points(1)
		p.Add(line)
	}

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(zero)

	c := vgimg.NewWith(vgimg.UseWH(vg.Points(float64(width)), vg.Points(float64(height))), vgimg.UseDPI(72))
	p.Draw(draw.New(c))
	return c.Image(), nil
}
