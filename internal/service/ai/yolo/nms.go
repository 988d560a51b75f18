package yolo

import "sort"

// NMS performs class-aware greedy non-maximum suppression: a box is dropped
// when a higher scoring box of the same class overlaps it by more than iou.
// The result is ordered by descending score.
func NMS(candidates []Candidate, iou float32) []Candidate {
	boxes := make([]Candidate, len(candidates))
	copy(boxes, candidates)
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Score > boxes[j].Score
	})

	suppressed := make([]bool, len(boxes))
	var kept []Candidate
	for i := range boxes {
		if suppressed[i] {
			continue
		}
		kept = append(kept, boxes[i])

		for j := i + 1; j < len(boxes); j++ {
			if suppressed[j] || boxes[j].ClassID != boxes[i].ClassID {
				continue
			}
			if boxes[i].Box.IoU(boxes[j].Box) > iou {
				suppressed[j] = true
			}
		}
	}

	return kept
}
