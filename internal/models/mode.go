package models

// Mode selects which calibration view, if any, a run stops on
type Mode int

const (
	// ModeNone runs every pass
	ModeNone Mode = iota

	// ModeSelection stops after the first classification to tune the shape thresholds
	ModeSelection

	// ModePerimeter stops after the first perimeter analysis to tune the curvature thresholds
	ModePerimeter
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeSelection:
		return "selection"
	case ModePerimeter:
		return "perimeter"
	}
	return "unknown"
}
