// Package yolo turns the raw output tensor of an ultralytics YOLOv8/11
// detection model into labelled boxes.
package yolo

// Box is an axis-aligned rectangle in network input pixels.
type Box struct {
	X1, Y1, X2, Y2 float32
}

// Area of the box; degenerate boxes have zero area.
func (b Box) Area() float32 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection over union of two boxes.
func (b Box) IoU(o Box) float32 {
	x1 := max(b.X1, o.X1)
	y1 := max(b.Y1, o.Y1)
	x2 := min(b.X2, o.X2)
	y2 := min(b.Y2, o.Y2)

	inter := Box{x1, y1, x2, y2}.Area()
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Candidate is a scored box before or after suppression.
type Candidate struct {
	ClassID int
	Score   float32
	Box     Box
}

// Decode reads an output laid out as [4+numClasses][numAnchors] (the
// ultralytics export layout with the batch dimension dropped). Rows 0-3 hold
// cx, cy, w, h; the remaining rows hold per-class scores. Anchors whose best
// class score is below conf are dropped.
func Decode(output []float32, numClasses, numAnchors int, conf float32) []Candidate {
	if numClasses <= 0 || numAnchors <= 0 || len(output) < (4+numClasses)*numAnchors {
		return nil
	}

	var candidates []Candidate
	for i := 0; i < numAnchors; i++ {
		classID, score := 0, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := output[(4+c)*numAnchors+i]; s > score {
				score = s
				classID = c
			}
		}
		if score < conf {
			continue
		}

		cx := output[i]
		cy := output[numAnchors+i]
		w := output[2*numAnchors+i]
		h := output[3*numAnchors+i]

		candidates = append(candidates, Candidate{
			ClassID: classID,
			Score:   score,
			Box:     Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2},
		})
	}

	return candidates
}
