package classify

import "sort"

// Label is one outcome class. The activity-quality data uses A through E but
// nothing here depends on that.
type Label string

// String returns the string representation
func (l Label) String() string { return string(l) }

// ClassesOf returns the distinct labels in sorted order. Sorting fixes the
// class ordering so matrices and vote tallies are reproducible.
func ClassesOf(labels []Label) []Label {
	seen := make(map[Label]bool, 8)
	out := make([]Label, 0, 8)
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MajorityLabel returns the most frequent label, breaking ties toward the
// lexicographically smallest.
func MajorityLabel(labels []Label) Label {
	counts := make(map[Label]int, 8)
	for _, l := range labels {
		counts[l]++
	}
	var best Label
	bestCount := -1
	for _, class := range ClassesOf(labels) {
		if counts[class] > bestCount {
			best = class
			bestCount = counts[class]
		}
	}
	return best
}

// MajorityShare returns the fraction of rows carrying the most frequent label
func MajorityShare(labels []Label) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[Label]int, 8)
	max := 0
	for _, l := range labels {
		counts[l]++
		if counts[l] > max {
			max = counts[l]
		}
	}
	return float64(max) / float64(len(labels))
}
