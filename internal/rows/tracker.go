package rows

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// PendingState is an immutable view of the tracked positions, each slice
// sorted ascending.
type PendingState struct {
	Modified []int `json:"modified"`
	New      []int `json:"new"`
}

// Empty reports whether nothing is pending.
func (p PendingState) Empty() bool {
	return len(p.Modified) == 0 && len(p.New) == 0
}

// Len returns the number of distinct tracked positions.
func (p PendingState) Len() int {
	return len(p.Union())
}

// Union returns the sorted, de-duplicated positions of both sets.
func (p PendingState) Union() []int {
	out := make([]int, 0, len(p.Modified)+len(p.New))
	out = append(out, p.Modified...)
	out = append(out, p.New...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Tracker classifies row positions as modified or new. Positions always
// refer to the current collection, so every structural change to the
// collection must go through RemoveAt, InsertAt or Move.
type Tracker struct {
	modified mapset.Set[int]
	added    mapset.Set[int]
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		modified: mapset.NewThreadUnsafeSet[int](),
		added:    mapset.NewThreadUnsafeSet[int](),
	}
}

// TrackerFrom rebuilds a tracker from a persisted view.
func TrackerFrom(state PendingState) *Tracker {
	t := NewTracker()
	for _, p := range state.Modified {
		t.modified.Add(p)
	}
	for _, p := range state.New {
		t.added.Add(p)
	}
	return t
}

// MarkModified tracks pos as modified. It reports whether the state changed.
func (t *Tracker) MarkModified(pos int) bool {
	return t.modified.Add(pos)
}

// MarkNew tracks pos as newly added. It reports whether the state changed.
func (t *Tracker) MarkNew(pos int) bool {
	return t.added.Add(pos)
}

// Clear drops pos from both sets.
func (t *Tracker) Clear(pos int) {
	t.modified.Remove(pos)
	t.added.Remove(pos)
}

// Reset drops every tracked position.
func (t *Tracker) Reset() {
	t.modified.Clear()
	t.added.Clear()
}

func (t *Tracker) IsModified(pos int) bool { return t.modified.Contains(pos) }
func (t *Tracker) IsNew(pos int) bool      { return t.added.Contains(pos) }

// IsPending reports whether pos is in either set.
func (t *Tracker) IsPending(pos int) bool {
	return t.modified.Contains(pos) || t.added.Contains(pos)
}

// Empty reports whether both sets are empty.
func (t *Tracker) Empty() bool {
	return t.modified.Cardinality() == 0 && t.added.Cardinality() == 0
}

// State returns a sorted copy of both sets.
func (t *Tracker) State() PendingState {
	return PendingState{
		Modified: sortedPositions(t.modified),
		New:      sortedPositions(t.added),
	}
}

// Move remaps both sets through a reorder of one row from oldIndex to
// newIndex.
func (t *Tracker) Move(oldIndex, newIndex int) {
	t.modified = remapSet(t.modified, oldIndex, newIndex)
	t.added = remapSet(t.added, oldIndex, newIndex)
}

// RemoveAt forgets pos and shifts every later position down by one, in
// step with deleting the row at pos.
func (t *Tracker) RemoveAt(pos int) {
	t.modified = shiftSet(t.modified, pos, -1)
	t.added = shiftSet(t.added, pos, -1)
}

// InsertAt shifts every position at or after pos up by one, in step with
// inserting a row at pos. The inserted slot itself is left untracked.
func (t *Tracker) InsertAt(pos int) {
	t.modified = shiftSet(t.modified, pos, +1)
	t.added = shiftSet(t.added, pos, +1)
}

func remapSet(set mapset.Set[int], oldIndex, newIndex int) mapset.Set[int] {
	out := mapset.NewThreadUnsafeSetWithSize[int](set.Cardinality())
	set.Each(func(p int) bool {
		out.Add(Remap(p, oldIndex, newIndex))
		return false
	})
	return out
}

func shiftSet(set mapset.Set[int], pos, delta int) mapset.Set[int] {
	out := mapset.NewThreadUnsafeSetWithSize[int](set.Cardinality())
	set.Each(func(p int) bool {
		switch {
		case delta < 0 && p == pos:
			// removed row takes its tracking with it
		case delta < 0 && p > pos:
			out.Add(p - 1)
		case delta > 0 && p >= pos:
			out.Add(p + 1)
		default:
			out.Add(p)
		}
		return false
	})
	return out
}

func sortedPositions(set mapset.Set[int]) []int {
	out := set.ToSlice()
	slices.Sort(out)
	return out
}
