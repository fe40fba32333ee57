package declump

import (
	"github.com/pkg/errors"

	"declump/internal/models"
	"declump/pkg/morphology"
)

// Combine merges a pass history into the output mask: the separated clumps of
// the last pass together with every object that was classified as a non-clump
// in some pass, smoothed by one opening. Without passes the hole-filled input
// takes the place of the separated clumps.
func Combine(filled models.Mask, history []models.PassRecord, se morphology.StructuringElement) (models.Mask, error) {
	never, err := neverSelected(filled, history)
	if err != nil {
		return models.Mask{}, err
	}

	last := filled
	if len(history) > 0 {
		last = history[len(history)-1].SeparatedClumps
	}
	out, err := last.Union(never)
	if err != nil {
		return models.Mask{}, errors.Wrap(err, "separated clumps")
	}
	return morphology.Open(out, se), nil
}

func neverSelected(filled models.Mask, history []models.PassRecord) (models.Mask, error) {
	never := models.NewMask(filled.Width, filled.Height)
	for _, rec := range history {
		var err error
		if never, err = never.Union(rec.NonClumps); err != nil {
			return models.Mask{}, errors.Wrapf(err, "non-clumps of pass %d", rec.Index)
		}
	}
	return never, nil
}

// Accounting tracks where the foreground pixels of the hole-filled input went
type Accounting struct {
	// Input is the foreground of the hole-filled input mask
	Input int

	// NeverSelected were classified as non-clumps in some pass
	NeverSelected int

	// Separated are in the separated clumps of the last pass
	Separated int

	// CutLines were removed by cut lines
	CutLines int

	// Dropped were removed by the opening or the small-object filter inside a pass
	Dropped int

	// Shaved were removed by the final opening
	Shaved int
}

// Balanced reports whether every input pixel is accounted for exactly once
func (a Accounting) Balanced() bool {
	return a.Input == a.NeverSelected+a.Separated+a.CutLines+a.Dropped
}

// Account computes the partition of the input foreground over the history
func Account(filled models.Mask, history []models.PassRecord, output models.Mask) Accounting {
	a := Accounting{Input: filled.Count(), Separated: filled.Count()}
	for _, rec := range history {
		a.NeverSelected += rec.NonClumps.Count()

		cleaned := rec.CleanedClumps.Mask()
		a.Dropped += rec.SelectedClumps.Count() - cleaned.Count()
		if cut, err := cleaned.Intersect(rec.CutMask); err == nil {
			a.CutLines += cut.Count()
		}
		a.Separated = rec.SeparatedClumps.Count()
	}
	a.Shaved = a.NeverSelected + a.Separated - output.Count()
	return a
}
