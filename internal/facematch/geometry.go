package facematch

import "sort"

// BBox is an axis-aligned box [x1, y1, x2, y2].
type BBox [4]float64

// NewBBox converts a detector box slice, returning false unless it has four coordinates.
func NewBBox(v []float64) (BBox, bool) {
	if len(v) != 4 {
		return BBox{}, false
	}
	return BBox{v[0], v[1], v[2], v[3]}, true
}

// Area returns the box area, 0 for degenerate boxes.
func (b BBox) Area() float64 {
	w, h := b[2]-b[0], b[3]-b[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection over union of two boxes in the same coordinate system.
func (b BBox) IoU(o BBox) float64 {
	inter := BBox{max(b[0], o[0]), max(b[1], o[1]), min(b[2], o[2]), min(b[3], o[3])}.Area()
	if inter == 0 {
		return 0
	}
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Relative converts a pixel box to 0-1 coordinates of a width x height image.
func (b BBox) Relative(width, height int) BBox {
	if width <= 0 || height <= 0 {
		return b
	}
	w, h := float64(width), float64(height)
	return BBox{b[0] / w, b[1] / h, b[2] / w, b[3] / h}
}

// DedupeFaces drops detections that overlap a more confident detection by
// at least iouThreshold. The result keeps the detector's original order.
func DedupeFaces(faces []Face, iouThreshold float64) []Face {
	if len(faces) < 2 {
		return faces
	}

	order := make([]int, len(faces))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return faces[order[i]].DetScore > faces[order[j]].DetScore
	})

	kept := make([]bool, len(faces))
	var keptIdx []int
	for _, i := range order {
		suppressed := false
		for _, k := range keptIdx {
			if faces[i].BBox.IoU(faces[k].BBox) >= iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept[i] = true
			keptIdx = append(keptIdx, i)
		}
	}

	result := make([]Face, 0, len(keptIdx))
	for i, f := range faces {
		if kept[i] {
			result = append(result, f)
		}
	}
	return result
}
