package declump

import (
	"image"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declump/internal/models"
	"declump/internal/synth"
	"declump/pkg/config"
	"declump/pkg/morphology"
	"declump/pkg/perimeter"
	"declump/pkg/separation"
	"declump/pkg/shape"
)

type countingClassifier struct {
	calls int
}

func (c *countingClassifier) Classify(mask models.Mask, criteria SelectionCriteria) (models.Mask, models.Mask, error) {
	c.calls++
	return shape.Classifier{}.Classify(mask, criteria)
}

type recordingSeparator struct {
	calls    int
	criteria []CutCriteria
}

func (s *recordingSeparator) Separate(labels *models.LabelImage, intensity *models.IntensityImage, points []models.BoundaryPoint, c CutCriteria) (models.Mask, error) {
	s.calls++
	s.criteria = append(s.criteria, c)
	return separation.NewSeparator().Separate(labels, intensity, points, c)
}

type countingAnalyzer struct {
	calls int
	err   error
}

func (a *countingAnalyzer) Analyze(labels *models.LabelImage, window int) ([]models.BoundaryPoint, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return perimeter.Analyzer{}.Analyze(labels, window)
}

type countingFilter struct {
	calls int
}

func (f *countingFilter) Filter(labels *models.LabelImage, minArea int) (*models.LabelImage, error) {
	f.calls++
	return morphology.AreaFilter{}.Filter(labels, minArea)
}

type recordingEmitter struct {
	calls   int
	mode    Mode
	history []models.PassRecord
}

func (e *recordingEmitter) Emit(history []models.PassRecord, output models.Mask, mode Mode) (image.Image, error) {
	e.calls++
	e.mode = mode
	e.history = history
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

// overlappingClassifier reports every object as both clump and non-clump
type overlappingClassifier struct{}

func (overlappingClassifier) Classify(mask models.Mask, _ SelectionCriteria) (models.Mask, models.Mask, error) {
	return mask.Clone(), mask.Clone(), nil
}

type fakes struct {
	classifier *countingClassifier
	filter     *countingFilter
	analyzer   *countingAnalyzer
	separator  *recordingSeparator
	emitter    *recordingEmitter
}

func (f fakes) invocations() int {
	return f.classifier.calls + f.filter.calls + f.analyzer.calls + f.separator.calls + f.emitter.calls
}

func newWithFakes(cfg *config.Config, opts ...Option) (*Declumper, fakes) {
	f := fakes{
		classifier: &countingClassifier{},
		filter:     &countingFilter{},
		analyzer:   &countingAnalyzer{},
		separator:  &recordingSeparator{},
		emitter:    &recordingEmitter{},
	}
	opts = append([]Option{
		WithClassifier(f.classifier),
		WithFilter(f.filter),
		WithAnalyzer(f.analyzer),
		WithSeparator(f.separator),
		WithEmitter(f.emitter),
	}, opts...)
	return New(cfg, opts...), f
}

func dumbbellInputs() (*image.Gray, *image.Gray) {
	return synth.GrayFromMask(synth.Dumbbell(200, 120, 32, 80, 12), 255), synth.FlatGray(200, 120, 128)
}

func TestEmptyMaskShortCircuits(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Modes.Plot = true
	d, f := newWithFakes(cfg)

	res, err := d.Run(synth.GrayFromMask(models.NewMask(100, 100), 255), synth.FlatGray(100, 100, 7))
	require.NoError(t, err)
	assert.False(t, res.Halted())
	assert.Equal(t, 100, res.Mask.Width)
	assert.Equal(t, 100, res.Mask.Height)
	assert.False(t, res.Mask.Any())
	assert.Empty(t, res.History)
	assert.Nil(t, res.Figure)
	assert.Zero(t, f.invocations())
}

func TestSingleDiskIsNotCut(t *testing.T) {
	disk := synth.DiskMask(200, 200, 100, 100, 45)
	d, f := newWithFakes(config.DefaultConfig())

	res, err := d.Run(synth.GrayFromMask(disk, 255), synth.FlatGray(200, 200, 50))
	require.NoError(t, err)
	require.Len(t, res.History, 2)

	assert.True(t, res.History[0].NonClumps.Equal(disk))
	assert.False(t, res.History[0].SelectedClumps.Any())
	assert.False(t, res.History[0].CutMask.Any())

	expected := morphology.Open(disk, morphology.Disk(2))
	assert.True(t, res.Mask.Equal(expected))
	assert.Equal(t, 2, f.classifier.calls)
}

func TestDumbbellIsCutThroughTheNeck(t *testing.T) {
	mask, img := dumbbellInputs()
	d := New(config.DefaultConfig())

	res, err := d.Run(mask, img)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.History, 2)

	first := res.History[0]
	assert.True(t, first.SelectedClumps.Any())
	assert.True(t, first.CutMask.Any())
	assert.Len(t, morphology.Label(first.SeparatedClumps).Labels(), 2)

	// the fragments are too small to be clumps in the second pass
	second := res.History[1]
	assert.False(t, second.SelectedClumps.Any())
	assert.True(t, second.NonClumps.Equal(first.SeparatedClumps))

	fragments := morphology.Label(res.Mask).Areas()
	require.Len(t, fragments, 2)
	for label, area := range fragments {
		assert.GreaterOrEqual(t, area, 2000, "fragment %d", label)
	}
	assert.True(t, res.Accounting.Balanced())
	assert.Positive(t, res.Accounting.CutLines)
}

func TestExtraPassesChangeNothingOnceCut(t *testing.T) {
	mask, img := dumbbellInputs()

	cfg := config.DefaultConfig()
	two, err := New(cfg).Run(mask, img)
	require.NoError(t, err)

	cfg3 := config.DefaultConfig()
	cfg3.Cutting.Passes = 3
	three, err := New(cfg3).Run(mask, img)
	require.NoError(t, err)

	require.Len(t, three.History, 3)
	assert.True(t, two.Mask.Equal(three.Mask))
}

func TestRunIsDeterministic(t *testing.T) {
	mask, img := dumbbellInputs()
	d := New(config.DefaultConfig())

	a, err := d.Run(mask, img)
	require.NoError(t, err)
	b, err := d.Run(mask, img)
	require.NoError(t, err)

	assert.Equal(t, a.Mask, b.Mask)
	assert.Equal(t, a.History, b.History)
}

func TestEveryPassPartitionsTheWorkingMask(t *testing.T) {
	mask, img := dumbbellInputs()
	cfg := config.DefaultConfig()
	cfg.Cutting.Passes = 3

	res, err := New(cfg).Run(mask, img)
	require.NoError(t, err)
	for i, rec := range res.History {
		assert.Equal(t, i+1, rec.Index)
		assert.True(t, rec.SelectedClumps.Disjoint(rec.NonClumps), "pass %d", rec.Index)
		union, err := rec.SelectedClumps.Union(rec.NonClumps)
		require.NoError(t, err)
		assert.True(t, union.Equal(rec.WorkingMask), "pass %d", rec.Index)
		if i > 0 {
			assert.True(t, rec.WorkingMask.Equal(res.History[i-1].SeparatedClumps), "pass %d", rec.Index)
		}
		assert.True(t, rec.SeparatedClumps.SubsetOf(rec.CleanedClumps.Mask()), "pass %d", rec.Index)
	}
}

func TestOutputNeverAddsPixels(t *testing.T) {
	m := synth.Dumbbell(200, 120, 32, 80, 12)
	synth.Disk(m, 30, 20, 8)
	m.Set(60, 60, false) // a hole, filled before the first pass
	filled := morphology.FillHoles(m)

	res, err := New(config.DefaultConfig()).Run(synth.GrayFromMask(m, 1), synth.RampGray16(200, 120))
	require.NoError(t, err)
	assert.True(t, res.Mask.SubsetOf(filled))
	assert.True(t, res.History[0].WorkingMask.Equal(filled))
}

func TestSeparatorGetsMinAngleInRadians(t *testing.T) {
	mask, img := dumbbellInputs()
	cfg := config.DefaultConfig()
	cfg.Cutting.Passes = 3
	cfg.Cutting.MinAngle = 6
	d, f := newWithFakes(cfg)

	_, err := d.Run(mask, img)
	require.NoError(t, err)
	require.Len(t, f.separator.criteria, 3)
	for _, c := range f.separator.criteria {
		assert.InDelta(t, 6*math.Pi/180, c.MinAngle, 1e-15)
		assert.Equal(t, 30, c.MaxNumRegions)
		assert.Equal(t, 2000, c.MinCutArea)
	}
}

func TestBothTestModesFailBeforeTouchingInputs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Modes.SelectionTestMode = true
	cfg.Modes.PerimeterTestMode = true
	cfg.Modes.Plot = true
	cfg.Cutting.Passes = -4
	d, f := newWithFakes(cfg)

	_, err := d.Run(nil, nil)
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, err.Error(), "mutually exclusive")

	_, err = d.RunMask(models.Mask{}, nil)
	assert.True(t, errors.As(err, &cerr))
	assert.Zero(t, f.invocations())
}

func TestTestModeRequiresPlot(t *testing.T) {
	for _, mode := range []string{"selection", "perimeter"} {
		cfg := config.DefaultConfig()
		cfg.Modes.SelectionTestMode = mode == "selection"
		cfg.Modes.PerimeterTestMode = mode == "perimeter"

		_, err := New(cfg).Run(nil, nil)
		var cerr *ConfigurationError
		require.True(t, errors.As(err, &cerr), mode)
		assert.Contains(t, err.Error(), "requires plot", mode)
	}
}

func TestInvalidParametersAreConfigurationErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cutting.MaxRadius = 0
	cfg.Selection.MaxArea = 10

	_, err := New(cfg).Run(nil, nil)
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, err.Error(), "max_radius")
	assert.Contains(t, err.Error(), "max_area")
}

func TestSelectionTestModeHaltsAfterFirstPass(t *testing.T) {
	mask, img := dumbbellInputs()
	cfg := config.DefaultConfig()
	cfg.Cutting.Passes = 3
	cfg.Modes.SelectionTestMode = true
	cfg.Modes.Plot = true
	d, f := newWithFakes(cfg)

	res, err := d.Run(mask, img)
	require.NoError(t, err)
	assert.True(t, res.Halted())
	assert.Equal(t, StatusCalibrationHalt, res.Status)
	assert.Equal(t, ModeSelection, res.Mode)
	require.Len(t, res.History, 1)
	assert.NotNil(t, res.Figure)
	assert.Empty(t, res.Mask.Pix)

	assert.Equal(t, 1, f.classifier.calls)
	assert.Equal(t, 1, f.emitter.calls)
	assert.Equal(t, ModeSelection, f.emitter.mode)
	assert.Len(t, f.emitter.history, 1)
}

func TestPerimeterTestModeWithoutPasses(t *testing.T) {
	mask, img := dumbbellInputs()
	cfg := config.DefaultConfig()
	cfg.Cutting.Passes = 0
	cfg.Modes.PerimeterTestMode = true
	cfg.Modes.Plot = true
	d, f := newWithFakes(cfg)

	res, err := d.Run(mask, img)
	require.NoError(t, err)
	assert.True(t, res.Halted())
	assert.Equal(t, ModePerimeter, res.Mode)
	assert.Empty(t, res.History)
	assert.Equal(t, 1, f.emitter.calls)
	assert.Zero(t, f.classifier.calls)
}

func TestZeroPassesOpensTheFilledInput(t *testing.T) {
	m := synth.Dumbbell(200, 120, 32, 80, 12)
	cfg := config.DefaultConfig()
	cfg.Cutting.Passes = 0
	d, f := newWithFakes(cfg)

	res, err := d.Run(synth.GrayFromMask(m, 255), synth.FlatGray(200, 120, 0))
	require.NoError(t, err)
	assert.Empty(t, res.History)
	assert.True(t, res.Mask.Equal(morphology.Open(m, morphology.Disk(2))))
	assert.Zero(t, f.invocations())
}

func TestPlotProducesFigure(t *testing.T) {
	mask, img := dumbbellInputs()
	cfg := config.DefaultConfig()
	cfg.Modes.Plot = true
	cfg.Diagnostics.PanelSize = 32

	res, err := New(cfg).Run(mask, img)
	require.NoError(t, err)
	require.NotNil(t, res.Figure)
	assert.Positive(t, res.Figure.Bounds().Dx())
}

func TestTypeErrors(t *testing.T) {
	d := New(config.DefaultConfig())
	var terr *TypeError

	_, err := d.Run(image.NewRGBA(image.Rect(0, 0, 10, 10)), synth.FlatGray(10, 10, 1))
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "mask", terr.Input)

	notBinary := synth.FlatGray(10, 10, 0)
	notBinary.Pix[3] = 100
	notBinary.Pix[4] = 200
	_, err = d.Run(notBinary, synth.FlatGray(10, 10, 1))
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, terr.Reason, "not binary")

	_, err = d.Run(synth.FlatGray(10, 10, 255), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "image", terr.Input)

	_, err = d.Run(synth.FlatGray(10, 10, 255), synth.FlatGray(12, 10, 1))
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, terr.Reason, "12x10")
}

func TestCollaboratorFailureIsRunError(t *testing.T) {
	mask, img := dumbbellInputs()
	boom := errors.New("boom")
	analyzer := &countingAnalyzer{err: boom}

	_, err := New(config.DefaultConfig(), WithAnalyzer(analyzer)).Run(mask, img)
	var rerr *RunError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 1, rerr.Pass)
	assert.Equal(t, StagePerimeter, rerr.Stage)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, "declump: pass 1: perimeter: boom", err.Error())
}

func TestBrokenPartitionIsRunError(t *testing.T) {
	mask, img := dumbbellInputs()

	_, err := New(config.DefaultConfig(), WithClassifier(overlappingClassifier{})).Run(mask, img)
	var rerr *RunError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, StageClassify, rerr.Stage)
	assert.Contains(t, err.Error(), "overlap")
}

func TestRunLogsEveryStep(t *testing.T) {
	mask, img := dumbbellInputs()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := New(config.DefaultConfig(), WithLogger(logger)).Run(mask, img)
	require.NoError(t, err)

	messages := make(map[string]int)
	for _, entry := range hook.AllEntries() {
		messages[entry.Message]++
	}
	assert.Equal(t, 1, messages["Step 1: Prepared input mask"])
	assert.Equal(t, 2, messages["Step 2: Classified objects"])
	assert.Equal(t, 2, messages["Step 6: Applied cut lines"])
	assert.Equal(t, 1, messages["Step 7: Combined passes into output mask"])
	assert.Equal(t, 1, messages["Partition of the input foreground"])

	for _, entry := range hook.AllEntries() {
		if entry.Message == "Step 2: Classified objects" {
			assert.Contains(t, entry.Data, "pass")
		}
	}
}
