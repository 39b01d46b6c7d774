package rows

import "slices"

// Remap returns where position p ends up after the row at oldIndex is moved
// to newIndex and every row in between shifts by one slot.
func Remap(p, oldIndex, newIndex int) int {
	switch {
	case p == oldIndex:
		return newIndex
	case oldIndex < newIndex && p > oldIndex && p <= newIndex:
		return p - 1
	case oldIndex > newIndex && p >= newIndex && p < oldIndex:
		return p + 1
	default:
		return p
	}
}

// RemapPositions applies Remap to every position and returns them sorted.
func RemapPositions(positions []int, oldIndex, newIndex int) []int {
	out := make([]int, len(positions))
	for i, p := range positions {
		out[i] = Remap(p, oldIndex, newIndex)
	}
	slices.Sort(out)
	return out
}

// MoveIndex returns a copy of items with the element at oldIndex moved to
// newIndex. Out-of-range indexes return an unchanged copy.
func MoveIndex[T any](items []T, oldIndex, newIndex int) []T {
	out := slices.Clone(items)
	if oldIndex == newIndex || oldIndex < 0 || newIndex < 0 || oldIndex >= len(out) || newIndex >= len(out) {
		return out
	}
	moved := out[oldIndex]
	out = slices.Delete(out, oldIndex, oldIndex+1)
	return slices.Insert(out, newIndex, moved)
}
