package visualization

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declump/internal/models"
	"declump/internal/synth"
	"declump/pkg/config"
	"declump/pkg/morphology"
	"declump/pkg/perimeter"
	"declump/pkg/separation"
)

func testLayout() config.Diagnostics {
	return config.Diagnostics{PanelSize: 64, Downsample: 1, Gap: 4, TitleHeight: 12}
}

// dumbbellPass builds the record of one pass over a dumbbell with every pixel
// selected as a clump
func dumbbellPass(t *testing.T, index int) models.PassRecord {
	t.Helper()
	working := synth.Dumbbell(200, 120, 32, 80, 12)
	cleaned := morphology.Label(working)
	points, err := perimeter.Analyzer{}.Analyze(cleaned, 9)
	require.NoError(t, err)
	c := separation.Criteria{MaxRadius: 30, MinAngle: 6 * math.Pi / 180, MinCutArea: 2000, MaxNumRegions: 30}
	cut, err := separation.NewSeparator().Separate(cleaned, models.NewIntensityImage(200, 120), points, c)
	require.NoError(t, err)

	return models.PassRecord{
		Index:           index,
		WorkingMask:     working,
		SelectedClumps:  working.Clone(),
		NonClumps:       models.NewMask(200, 120),
		CleanedClumps:   cleaned,
		Perimeters:      points,
		CutMask:         cut,
		SeparatedClumps: cleaned.Erase(cut).Mask(),
	}
}

func TestEmitFullFigureLayout(t *testing.T) {
	history := []models.PassRecord{dumbbellPass(t, 1), dumbbellPass(t, 2)}
	fig, err := NewFigureEmitter(testLayout()).Emit(history, history[1].SeparatedClumps, models.ModeNone)
	require.NoError(t, err)

	// four panels per pass, one row per pass plus the output row
	assert.Equal(t, image.Rect(0, 0, 4*68-4+8, 4+3*80), fig.Bounds())
}

func TestEmitSelectionMode(t *testing.T) {
	history := []models.PassRecord{dumbbellPass(t, 1)}
	fig, err := NewFigureEmitter(testLayout()).Emit(history, models.Mask{}, models.ModeSelection)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2*68-4+8, 4+80), fig.Bounds())
}

func TestEmitPerimeterModeAddsChart(t *testing.T) {
	history := []models.PassRecord{dumbbellPass(t, 1)}
	fig, err := NewFigureEmitter(testLayout()).Emit(history, models.Mask{}, models.ModePerimeter)
	require.NoError(t, err)
	assert.Equal(t, 3*68-4+8, fig.Bounds().Dx())
	assert.InDelta(t, 4+80+64+4, fig.Bounds().Dy(), 1)
}

func TestEmitWithoutPasses(t *testing.T) {
	fig, err := NewFigureEmitter(testLayout()).Emit(nil, models.Mask{}, models.ModeSelection)
	require.NoError(t, err)
	require.NotNil(t, fig)
	assert.Equal(t, 72, fig.Bounds().Dx())
}

func TestEmitIsPureAndDeterministic(t *testing.T) {
	history := []models.PassRecord{dumbbellPass(t, 1)}
	before := history[0].WorkingMask.Clone()
	points := append([]models.BoundaryPoint(nil), history[0].Perimeters...)

	e := NewFigureEmitter(testLayout())
	first, err := e.Emit(history, history[0].SeparatedClumps, models.ModeNone)
	require.NoError(t, err)
	second, err := e.Emit(history, history[0].SeparatedClumps, models.ModeNone)
	require.NoError(t, err)

	a, ok := first.(*image.RGBA)
	require.True(t, ok)
	b, ok := second.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, a.Pix, b.Pix)

	assert.True(t, before.Equal(history[0].WorkingMask))
	assert.Equal(t, points, history[0].Perimeters)
}

func TestDownsampleKeepsPanelSize(t *testing.T) {
	layout := testLayout()
	layout.Downsample = 0.25
	history := []models.PassRecord{dumbbellPass(t, 1)}
	fig, err := NewFigureEmitter(layout).Emit(history, models.Mask{}, models.ModeSelection)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2*68-4+8, 4+80), fig.Bounds())
}

func TestLabelColorsAreStable(t *testing.T) {
	assert.Equal(t, labelColor(3), labelColor(3))
	assert.NotEqual(t, labelColor(1), labelColor(2))
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figure.png")
	fig, err := NewFigureEmitter(testLayout()).Emit(nil, models.Mask{}, models.ModeNone)
	require.NoError(t, err)
	require.NoError(t, SavePNG(path, fig))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, SavePNG(path, nil))
}

func TestCutImageStrokesFragmentOutlines(t *testing.T) {
	rec := dumbbellPass(t, 1)
	plain := labelsImage(morphology.Label(rec.SeparatedClumps))
	img := cutImage(rec)
	require.Equal(t, plain.Bounds(), img.Bounds())

	changed := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rec.CutMask.At(x, y) {
				continue
			}
			if img.At(x, y) != plain.At(x, y) {
				changed++
			}
		}
	}
	assert.Greater(t, changed, 0)
	assert.Equal(t, plain.At(0, 0), img.At(0, 0))
}
