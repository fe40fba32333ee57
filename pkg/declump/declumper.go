// Package declump separates clumped objects in a binary mask by cutting them
// along intensity-guided paths between concave boundary regions, over a fixed
// number of passes.
package declump

import (
	"fmt"
	"image"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"declump/internal/models"
	"declump/pkg/config"
	"declump/pkg/morphology"
	"declump/pkg/perimeter"
	"declump/pkg/separation"
	"declump/pkg/shape"
	"declump/pkg/smoothing"
	"declump/pkg/visualization"
)

// Status tells how a run ended
type Status int

const (
	// StatusCompleted means every pass ran and Result.Mask holds the output
	StatusCompleted Status = iota

	// StatusCalibrationHalt means a test mode stopped the run after the first pass
	StatusCalibrationHalt
)

func (s Status) String() string {
	if s == StatusCalibrationHalt {
		return "calibration halt"
	}
	return "completed"
}

// Result is the outcome of a run
type Result struct {
	Status Status

	// Mask is the output mask; it is empty after a calibration halt
	Mask models.Mask

	// History holds one record per pass that ran
	History []models.PassRecord

	// Mode is the calibration mode of the run
	Mode Mode

	// Figure is the diagnostic figure, nil unless plotting was requested
	Figure image.Image

	// Accounting is the pixel partition of a completed run
	Accounting Accounting
}

// Halted reports whether the run stopped for calibration
func (r *Result) Halted() bool {
	return r.Status == StatusCalibrationHalt
}

// Declumper runs the cutting passes with a fixed configuration
type Declumper struct {
	cfg *config.Config
	log logrus.FieldLogger

	classifier ClumpClassifier
	filter     SmallObjectFilter
	analyzer   PerimeterAnalyzer
	separator  ClumpSeparator
	emitter    DiagnosticsEmitter
}

// Option customises a Declumper
type Option func(*Declumper)

// WithLogger sets the logger; by default nothing is logged
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Declumper) { d.log = log }
}

func WithClassifier(c ClumpClassifier) Option {
	return func(d *Declumper) { d.classifier = c }
}

func WithFilter(f SmallObjectFilter) Option {
	return func(d *Declumper) { d.filter = f }
}

func WithAnalyzer(a PerimeterAnalyzer) Option {
	return func(d *Declumper) { d.analyzer = a }
}

func WithSeparator(s ClumpSeparator) Option {
	return func(d *Declumper) { d.separator = s }
}

func WithEmitter(e DiagnosticsEmitter) Option {
	return func(d *Declumper) { d.emitter = e }
}

// New creates a Declumper. A nil configuration means config.DefaultConfig.
// The configuration is validated by Run, not here.
func New(cfg *config.Config, opts ...Option) *Declumper {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	d := &Declumper{
		cfg:        cfg,
		log:        quiet,
		classifier: shape.Classifier{},
		filter:     morphology.AreaFilter{},
		analyzer:   perimeter.Analyzer{},
		separator:  separation.NewSeparator(),
		emitter:    visualization.NewFigureEmitter(cfg.Diagnostics),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run declumps mask, guided by the gray image img.
// Configuration errors are reported before either image is examined.
func (d *Declumper) Run(mask, img image.Image) (*Result, error) {
	mode, err := d.checkConfig()
	if err != nil {
		return nil, err
	}
	m, err := MaskFromImage(mask)
	if err != nil {
		return nil, err
	}
	intensity, err := IntensityFromImage(img)
	if err != nil {
		return nil, err
	}
	return d.run(m, intensity, mode)
}

// RunMask is Run for inputs that are already converted. The intensity
// samples are expected in [0, 1].
func (d *Declumper) RunMask(mask models.Mask, intensity *models.IntensityImage) (*Result, error) {
	mode, err := d.checkConfig()
	if err != nil {
		return nil, err
	}
	if len(mask.Pix) != mask.Width*mask.Height {
		return nil, &TypeError{Input: "mask", Reason: "malformed mask"}
	}
	return d.run(mask, intensity, mode)
}

func (d *Declumper) checkConfig() (Mode, error) {
	modes := d.cfg.Modes
	if modes.SelectionTestMode && modes.PerimeterTestMode {
		return ModeNone, &ConfigurationError{Err: errors.New("selection_test_mode and perimeter_test_mode are mutually exclusive")}
	}
	mode := ModeNone
	switch {
	case modes.SelectionTestMode:
		mode = ModeSelection
	case modes.PerimeterTestMode:
		mode = ModePerimeter
	}
	if mode != ModeNone && !modes.Plot {
		return ModeNone, &ConfigurationError{Err: errors.Errorf("%s test mode requires plot", mode)}
	}
	if err := d.cfg.Validate(); err != nil {
		return ModeNone, &ConfigurationError{Err: err}
	}
	return mode, nil
}

// pipeline holds what is prepared once and reused by every pass
type pipeline struct {
	se        morphology.StructuringElement
	intensity *models.IntensityImage
	selection SelectionCriteria
	cut       CutCriteria
}

func (d *Declumper) run(mask models.Mask, intensity *models.IntensityImage, mode Mode) (*Result, error) {
	if intensity.Width() != mask.Width || intensity.Height() != mask.Height {
		return nil, &TypeError{Input: "image", Reason: fmt.Sprintf("image is %dx%d, mask is %dx%d",
			intensity.Width(), intensity.Height(), mask.Width, mask.Height)}
	}

	if !mask.Any() {
		d.log.Info("Mask is empty, nothing to declump")
		return &Result{
			Status: StatusCompleted,
			Mask:   models.NewMask(mask.Width, mask.Height),
			Mode:   mode,
		}, nil
	}

	// Step 1: Prepare inputs shared by all passes
	cfg := d.cfg
	filled := morphology.FillHoles(mask)
	p := pipeline{
		se:        morphology.Disk(cfg.FilterRadius()),
		intensity: smoothing.Gaussian(intensity, cfg.Cutting.IntensitySmoothing),
		selection: SelectionCriteria{
			MaxSolidity:   cfg.Selection.MaxSolidity,
			MinFormFactor: cfg.Selection.MinFormFactor,
			MinArea:       cfg.Selection.MinArea,
			MaxArea:       cfg.Selection.MaxArea,
		},
		cut: CutCriteria{
			MaxRadius:     cfg.Cutting.MaxRadius,
			MinAngle:      cfg.MinAngleRadians(),
			MinCutArea:    cfg.Cutting.MinCutArea,
			MaxNumRegions: cfg.Cutting.MaxNumRegions,
		},
	}
	d.log.WithFields(logrus.Fields{
		"passes":     cfg.Cutting.Passes,
		"foreground": filled.Count(),
		"holes":      filled.Count() - mask.Count(),
		"mode":       mode.String(),
	}).Info("Step 1: Prepared input mask")

	history := make([]models.PassRecord, 0, cfg.Cutting.Passes)
	if mode != ModeNone && cfg.Cutting.Passes == 0 {
		return d.halt(history, mode)
	}

	working := filled
	for i := 1; i <= cfg.Cutting.Passes; i++ {
		rec, err := d.pass(i, working, p)
		if err != nil {
			return nil, err
		}
		history = append(history, rec)
		working = rec.SeparatedClumps
		if mode != ModeNone {
			return d.halt(history, mode)
		}
	}

	// Step 7: Combine the passes
	output, err := Combine(filled, history, p.se)
	if err != nil {
		return nil, &RunError{Stage: StageCombine, Err: err}
	}
	acc := Account(filled, history, output)
	d.log.WithFields(logrus.Fields{
		"input":          acc.Input,
		"never_selected": acc.NeverSelected,
		"separated":      acc.Separated,
		"cut_lines":      acc.CutLines,
		"dropped":        acc.Dropped,
		"shaved":         acc.Shaved,
		"balanced":       acc.Balanced(),
	}).Debug("Partition of the input foreground")
	d.log.WithField("output", output.Count()).Info("Step 7: Combined passes into output mask")

	res := &Result{
		Status:     StatusCompleted,
		Mask:       output,
		History:    history,
		Mode:       mode,
		Accounting: acc,
	}
	if cfg.Modes.Plot {
		fig, err := d.emitter.Emit(history, output, ModeNone)
		if err != nil {
			return nil, &RunError{Stage: StageDiagnostics, Err: err}
		}
		res.Figure = fig
	}
	return res, nil
}

// pass runs one cutting pass on the working mask
func (d *Declumper) pass(i int, working models.Mask, p pipeline) (models.PassRecord, error) {
	rec := models.PassRecord{Index: i, WorkingMask: working}
	log := d.log.WithField("pass", i)

	// Step 2: Classify objects
	clumps, nonClumps, err := d.classifier.Classify(working, p.selection)
	if err != nil {
		return rec, &RunError{Pass: i, Stage: StageClassify, Err: err}
	}
	if err := checkPartition(working, clumps, nonClumps); err != nil {
		return rec, &RunError{Pass: i, Stage: StageClassify, Err: err}
	}
	rec.SelectedClumps, rec.NonClumps = clumps, nonClumps
	log.WithFields(logrus.Fields{
		"clump_pixels":     clumps.Count(),
		"non_clump_pixels": nonClumps.Count(),
	}).Info("Step 2: Classified objects")

	// Step 3: Smooth clump boundaries and drop small objects
	// an opening can pinch off background inside an object
	opened := morphology.FillHoles(morphology.Open(clumps, p.se))
	cleaned, err := d.filter.Filter(morphology.Label(opened), d.cfg.Selection.MinArea)
	if err != nil {
		return rec, &RunError{Pass: i, Stage: StageFilter, Err: err}
	}
	rec.CleanedClumps = cleaned
	log.WithField("clumps", len(cleaned.Labels())).Info("Step 3: Cleaned clumps")

	// Step 4: Analyze perimeters
	points, err := d.analyzer.Analyze(cleaned, d.cfg.Cutting.SlidingWindowSize)
	if err != nil {
		return rec, &RunError{Pass: i, Stage: StagePerimeter, Err: err}
	}
	rec.Perimeters = points
	log.WithField("boundary_points", len(points)).Info("Step 4: Analyzed perimeters")

	// Step 5: Find cut lines
	cut, err := d.separator.Separate(cleaned, p.intensity, points, p.cut)
	if err != nil {
		return rec, &RunError{Pass: i, Stage: StageSeparate, Err: err}
	}
	if !cut.SameSize(working) {
		return rec, &RunError{Pass: i, Stage: StageSeparate, Err: errors.Errorf("cut mask is %dx%d, expected %dx%d",
			cut.Width, cut.Height, working.Width, working.Height)}
	}
	rec.CutMask = cut

	// Step 6: Apply cut lines
	rec.SeparatedClumps = cleaned.Erase(cut).Mask()
	log.WithFields(logrus.Fields{
		"cut_pixels": cut.Count(),
		"separated":  rec.SeparatedClumps.Count(),
	}).Info("Step 6: Applied cut lines")

	return rec, nil
}

func (d *Declumper) halt(history []models.PassRecord, mode Mode) (*Result, error) {
	fig, err := d.emitter.Emit(history, models.Mask{}, mode)
	if err != nil {
		pass := 0
		if len(history) > 0 {
			pass = history[len(history)-1].Index
		}
		return nil, &RunError{Pass: pass, Stage: StageDiagnostics, Err: err}
	}
	d.log.WithField("mode", mode.String()).Info("Stopped for calibration")
	return &Result{
		Status:  StatusCalibrationHalt,
		History: history,
		Mode:    mode,
		Figure:  fig,
	}, nil
}

// checkPartition verifies that clumps and non-clumps split the working foreground exactly
func checkPartition(working, clumps, nonClumps models.Mask) error {
	if !clumps.SameSize(working) || !nonClumps.SameSize(working) {
		return errors.New("classifier returned masks of the wrong size")
	}
	if !clumps.Disjoint(nonClumps) {
		return errors.New("clumps and non-clumps overlap")
	}
	union, err := clumps.Union(nonClumps)
	if err != nil {
		return err
	}
	if !union.Equal(working) {
		return errors.New("clumps and non-clumps do not cover the working mask")
	}
	return nil
}
