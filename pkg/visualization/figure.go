// Package visualization renders the diagnostic figure of a declump run:
// one row of panels per cutting pass, followed by the output mask.
package visualization

import (
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"

	"declump/internal/models"
	"declump/pkg/config"
	"declump/pkg/contour"
	"declump/pkg/morphology"
	"declump/pkg/separation"
)

var font *truetype.Font

// init parses the caption font
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// FigureEmitter draws pass histories with a fixed layout
type FigureEmitter struct {
	layout config.Diagnostics
}

// NewFigureEmitter creates an emitter with the given layout
func NewFigureEmitter(layout config.Diagnostics) *FigureEmitter {
	return &FigureEmitter{layout: layout}
}

// outlineTolerance is the Douglas-Peucker tolerance of fragment outlines, in pixels
const outlineTolerance = 1.5

type panel struct {
	title string
	img   image.Image
}

// Emit renders the history. In selection mode only the working mask and the
// classification of the first pass are shown; perimeter mode adds the
// boundary descriptors and a curvature chart. Otherwise every pass gets a
// full row and the output mask closes the figure.
func (e *FigureEmitter) Emit(history []models.PassRecord, output models.Mask, mode models.Mode) (image.Image, error) {
	var rows [][]panel
	for _, rec := range history {
		row := []panel{
			{title: passTitle(rec, "working mask"), img: maskImage(rec.WorkingMask, foreground)},
			{title: passTitle(rec, "clumps / non-clumps"), img: selectionImage(rec)},
		}
		if mode != models.ModeSelection {
			row = append(row,
				panel{title: passTitle(rec, "perimeters"), img: perimeterImage(rec)},
			)
		}
		if mode == models.ModeNone {
			row = append(row,
				panel{title: passTitle(rec, "cut lines"), img: cutImage(rec)},
			)
		}
		rows = append(rows, row)
	}
	if mode == models.ModeNone && len(output.Pix) > 0 {
		rows = append(rows, []panel{{title: "output", img: labelsImage(morphology.Label(output))}})
	}

	var chart image.Image
	if mode == models.ModePerimeter && len(history) > 0 {
		var err error
		chart, err = curvatureChart(history[0].Perimeters, e.chartWidth(rows), e.layout.PanelSize)
		if err != nil {
			return nil, errors.Wrap(err, "curvature chart")
		}
	}

	return e.compose(rows, chart), nil
}

func passTitle(rec models.PassRecord, what string) string {
	return "pass " + strconv.Itoa(rec.Index) + ": " + what
}

func (e *FigureEmitter) chartWidth(rows [][]panel) int {
	cols := 1
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return cols*(e.layout.PanelSize+e.layout.Gap) - e.layout.Gap
}

// compose lays the panels out on a grid with captions above each panel
func (e *FigureEmitter) compose(rows [][]panel, chart image.Image) image.Image {
	ps, gap, th := e.layout.PanelSize, e.layout.Gap, e.layout.TitleHeight
	width := e.chartWidth(rows) + 2*gap
	height := gap + len(rows)*(th+ps+gap)
	if chart != nil {
		height += chart.Bounds().Dy() + gap
	}
	if len(rows) == 0 && chart == nil {
		height += th + gap
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.RGBA{R: 24, G: 24, B: 24, A: 255})
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: float64(th) * 0.7}))

	if len(rows) == 0 && chart == nil {
		dc.SetColor(foreground)
		dc.DrawString("no passes", float64(gap), float64(gap+th)*0.8)
	}

	y := gap
	for _, row := range rows {
		x := gap
		for _, p := range row {
			dc.SetColor(foreground)
			dc.DrawString(p.title, float64(x), float64(y)+float64(th)*0.75)
			if p.img != nil {
				img := e.fit(p.img)
				b := img.Bounds()
				dc.DrawImage(img, x+(ps-b.Dx())/2, y+th+(ps-b.Dy())/2)
			}
			x += ps + gap
		}
		y += th + ps + gap
	}
	if chart != nil {
		dc.DrawImage(chart, gap, y)
	}
	return dc.Image()
}

// fit downsamples a panel image and shrinks it to the panel size
func (e *FigureEmitter) fit(img image.Image) image.Image {
	b := img.Bounds()
	if ds := e.layout.Downsample; ds > 0 && ds < 1 {
		w := int(float64(b.Dx()) * ds)
		if w < 1 {
			w = 1
		}
		img = imaging.Resize(img, w, 0, imaging.Box)
	}
	return imaging.Fit(img, e.layout.PanelSize, e.layout.PanelSize, imaging.NearestNeighbor)
}

func maskImage(m models.Mask, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				img.Set(x, y, c)
			} else {
				img.Set(x, y, background)
			}
		}
	}
	return img
}

func selectionImage(rec models.PassRecord) *image.RGBA {
	img := maskImage(rec.NonClumps, nonClumpColor)
	for y := 0; y < rec.SelectedClumps.Height; y++ {
		for x := 0; x < rec.SelectedClumps.Width; x++ {
			if rec.SelectedClumps.At(x, y) {
				img.Set(x, y, clumpColor)
			}
		}
	}
	return img
}

// perimeterImage colours boundary points by concavity and marks the anchor
// of every concave region
func perimeterImage(rec models.PassRecord) image.Image {
	if rec.CleanedClumps == nil {
		return nil
	}
	img := maskImage(rec.CleanedClumps.Mask(), cleanedColor)
	for _, p := range rec.Perimeters {
		switch p.Concavity {
		case models.Concave:
			img.Set(p.Position.X, p.Position.Y, concaveColor)
		case models.Convex:
			img.Set(p.Position.X, p.Position.Y, convexColor)
		default:
			img.Set(p.Position.X, p.Position.Y, flatColor)
		}
	}

	dc := gg.NewContextForRGBA(img)
	dc.SetColor(anchorColor)
	regions := separation.Regions(rec.Perimeters)
	for _, label := range rec.CleanedClumps.Labels() {
		for _, r := range regions[label] {
			dc.DrawCircle(float64(r.Anchor.X)+0.5, float64(r.Anchor.Y)+0.5, 2.5)
			dc.Fill()
		}
	}
	return dc.Image()
}

// cutImage shows the separated fragments with their simplified outlines and
// the cut lines in white
func cutImage(rec models.PassRecord) image.Image {
	fragments := morphology.Label(rec.SeparatedClumps)
	img := labelsImage(fragments)
	for y := 0; y < rec.CutMask.Height; y++ {
		for x := 0; x < rec.CutMask.Width; x++ {
			if rec.CutMask.At(x, y) {
				img.Set(x, y, foreground)
			}
		}
	}

	dc := gg.NewContextForRGBA(img)
	dc.SetColor(outlineColor)
	dc.SetLineWidth(1)
	contours := contour.TraceAll(fragments)
	for _, label := range fragments.Labels() {
		ring := contour.Outline(contours[label], outlineTolerance)
		if len(ring) < 4 {
			continue
		}
		for i, p := range ring {
			if i == 0 {
				dc.MoveTo(p[0], p[1])
			} else {
				dc.LineTo(p[0], p[1])
			}
		}
		dc.ClosePath()
		dc.Stroke()
	}
	return dc.Image()
}

func labelsImage(l *models.LabelImage) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	colors := make(map[int]color.Color)
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			v := l.At(x, y)
			if v == 0 {
				img.Set(x, y, background)
				continue
			}
			c, ok := colors[v]
			if !ok {
				c = labelColor(v)
				colors[v] = c
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// SavePNG writes a figure to path
func SavePNG(path string, img image.Image) error {
	if img == nil {
		return errors.New("no figure to save")
	}
	return errors.Wrapf(gg.SavePNG(path, img), "saving figure to %s", path)
}
