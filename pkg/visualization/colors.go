package visualization

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// goldenAngle spreads consecutive hues as far apart as possible
const goldenAngle = 137.50776405

var (
	background   = color.RGBA{A: 255}
	foreground   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	cleanedColor = color.RGBA{R: 80, G: 80, B: 80, A: 255}

	clumpColor    = colorful.Hsv(30, 0.85, 1).Clamped()
	nonClumpColor = colorful.Hsv(210, 0.6, 0.9).Clamped()
	convexColor   = colorful.Hsv(120, 0.7, 0.9).Clamped()
	concaveColor  = colorful.Hsv(0, 0.85, 1).Clamped()
	flatColor     = colorful.Hsv(55, 0.7, 0.9).Clamped()
	anchorColor   = colorful.Hsv(300, 0.8, 1).Clamped()
	outlineColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// labelColor returns a stable colour for a label; neighbouring labels get
// well separated hues
func labelColor(label int) color.Color {
	hue := math.Mod(float64(label)*goldenAngle, 360)
	return colorful.Hsv(hue, 0.65, 0.95).Clamped()
}
