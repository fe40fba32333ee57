package declump

import (
	"image"

	"declump/internal/models"
	"declump/pkg/separation"
	"declump/pkg/shape"
)

// SelectionCriteria are the shape thresholds handed to the classifier
type SelectionCriteria = shape.Criteria

// CutCriteria are the geometric thresholds handed to the separator
type CutCriteria = separation.Criteria

// Mode selects the calibration view a run stops on
type Mode = models.Mode

const (
	ModeNone      = models.ModeNone
	ModeSelection = models.ModeSelection
	ModePerimeter = models.ModePerimeter
)

// ClumpClassifier splits the objects of a mask into clumps and non-clumps.
// Every foreground pixel must land in exactly one of the two masks.
type ClumpClassifier interface {
	Classify(mask models.Mask, c SelectionCriteria) (clumps, nonClumps models.Mask, err error)
}

// SmallObjectFilter zeroes objects smaller than minArea
type SmallObjectFilter interface {
	Filter(labels *models.LabelImage, minArea int) (*models.LabelImage, error)
}

// PerimeterAnalyzer describes the boundary of every object.
// It fails on objects that enclose holes.
type PerimeterAnalyzer interface {
	Analyze(labels *models.LabelImage, windowSize int) ([]models.BoundaryPoint, error)
}

// ClumpSeparator returns the cut lines for a label image, at most one per object
type ClumpSeparator interface {
	Separate(labels *models.LabelImage, intensity *models.IntensityImage, points []models.BoundaryPoint, c CutCriteria) (models.Mask, error)
}

// DiagnosticsEmitter renders the pass history. It must not modify its arguments.
type DiagnosticsEmitter interface {
	Emit(history []models.PassRecord, output models.Mask, mode Mode) (image.Image, error)
}
