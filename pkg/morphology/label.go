package morphology

import (
	"github.com/pkg/errors"
	"github.com/theodesp/unionfind"

	"declump/internal/models"
)

// Label assigns 8-connected foreground components consecutive ids starting at 1,
// numbered in raster order of their first pixel.
//
// Two-pass labelling: the first pass hands out provisional ids and records
// equivalences between them, the second pass replaces every provisional id by
// its root.
func Label(m models.Mask) *models.LabelImage {
	w, h := m.Width, m.Height
	out := models.NewLabelImage(w, h)
	fg := m.Count()
	if fg == 0 {
		return out
	}

	// Every foreground pixel can open at most one provisional id
	uf := unionfind.NewThreadSafeUnionFind(fg + 1)
	provisional := out.Pix
	next := 1

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.Pix[y*w+x] {
				continue
			}

			// Already visited neighbours in raster order: W, NW, N, NE
			assigned := 0
			for _, n := range [4][2]int{{x - 1, y}, {x - 1, y - 1}, {x, y - 1}, {x + 1, y - 1}} {
				v := out.At(n[0], n[1])
				if v == 0 {
					continue
				}
				if assigned == 0 {
					assigned = v
					continue
				}
				if v != assigned {
					uf.Union(assigned, v)
				}
			}

			if assigned == 0 {
				assigned = next
				next++
			}
			provisional[y*w+x] = assigned
		}
	}

	// Reconcile provisional ids and renumber roots in order of appearance
	final := make(map[int]int)
	for i, v := range provisional {
		if v == 0 {
			continue
		}
		root := uf.Root(v)
		if root < 0 {
			root = v
		}
		id, ok := final[root]
		if !ok {
			id = len(final) + 1
			final[root] = id
		}
		provisional[i] = id
	}

	return out
}

// RemoveSmallObjects zeroes every component whose area is below minArea
func RemoveSmallObjects(l *models.LabelImage, minArea int) *models.LabelImage {
	out := l.Clone()
	if minArea <= 0 {
		return out
	}
	areas := l.Areas()
	for i, v := range out.Pix {
		if v > 0 && areas[v] < minArea {
			out.Pix[i] = 0
		}
	}
	return out
}

// AreaFilter removes small components from a label image
type AreaFilter struct{}

// Filter zeroes components with area below minArea
func (AreaFilter) Filter(labels *models.LabelImage, minArea int) (*models.LabelImage, error) {
	if labels == nil {
		return nil, errors.New("label image is nil")
	}
	if len(labels.Pix) != labels.Width*labels.Height {
		return nil, errors.Errorf("malformed label image: %d samples for %dx%d", len(labels.Pix), labels.Width, labels.Height)
	}
	return RemoveSmallObjects(labels, minArea), nil
}
