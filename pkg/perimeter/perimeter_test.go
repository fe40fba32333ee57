package perimeter

import (
	"image"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declump/internal/models"
	"declump/internal/synth"
	"declump/pkg/morphology"
)

// regionAngles sums the turning angle of every concave region of one object
func regionAngles(points []models.BoundaryPoint, label int) map[int]float64 {
	angles := make(map[int]float64)
	for _, p := range points {
		if p.Label == label && p.Region > 0 {
			angles[p.Region] += p.Turn
		}
	}
	return angles
}

func TestAnalyzeDiskTurnsOnce(t *testing.T) {
	labels := morphology.Label(synth.DiskMask(120, 120, 60, 60, 40))
	points, err := Analyzer{}.Analyze(labels, 9)
	require.NoError(t, err)
	require.NotEmpty(t, points)

	total := 0.0
	concave := 0
	for _, p := range points {
		assert.Equal(t, 1, p.Label)
		total += p.Turn
		if p.Concavity == models.Concave {
			concave++
		}
	}
	assert.InDelta(t, 2*math.Pi, total, 1e-6)
	assert.Less(t, float64(concave), 0.3*float64(len(points)))

	for region, angle := range regionAngles(points, 1) {
		assert.Greater(t, angle, -0.5, "region %d", region)
	}
}

func TestAnalyzeDumbbellFindsNeckCorners(t *testing.T) {
	labels := morphology.Label(synth.Dumbbell(200, 120, 32, 80, 12))
	points, err := Analyzer{}.Analyze(labels, 9)
	require.NoError(t, err)

	sharp := 0
	for region, angle := range regionAngles(points, 1) {
		if angle > -0.5 {
			continue
		}
		sharp++
		// the region lies where the neck meets a lobe
		for _, p := range points {
			if p.Region == region {
				assert.InDelta(t, 100, p.Position.X, 20, "region %d at %v", region, p.Position)
			}
		}
	}
	assert.Equal(t, 4, sharp)
}

func TestAnalyzeCurvatureSign(t *testing.T) {
	l := models.NewLabelImage(40, 40)
	for y := 5; y < 35; y++ {
		for x := 5; x < 35; x++ {
			l.Set(x, y, 3)
		}
	}
	points, err := Analyzer{}.Analyze(l, 5)
	require.NoError(t, err)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Curvature, -1e-9, "square has no concave point at %v", p.Position)
	}
}

func TestAnalyzeRejectsHoles(t *testing.T) {
	m := models.NewMask(40, 40)
	synth.Rect(m, image.Rect(5, 5, 35, 35))
	m.Set(20, 20, false)

	_, err := Analyzer{}.Analyze(morphology.Label(m), 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHoles))
}

func TestAnalyzeValidatesInput(t *testing.T) {
	_, err := Analyzer{}.Analyze(nil, 9)
	assert.Error(t, err)

	_, err = Analyzer{}.Analyze(models.NewLabelImage(10, 10), 0)
	assert.Error(t, err)

	points, err := Analyzer{}.Analyze(models.NewLabelImage(10, 10), 9)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestNumberRegionsWrapsAround(t *testing.T) {
	c, f := models.Concave, models.Flat
	points := make([]models.BoundaryPoint, 6)
	for i, v := range []models.Concavity{c, f, c, c, f, c} {
		points[i].Concavity = v
	}
	numberRegions(points)

	got := make([]int, len(points))
	for i, p := range points {
		got[i] = p.Region
	}
	assert.Equal(t, []int{2, 0, 1, 1, 0, 2}, got)
}
