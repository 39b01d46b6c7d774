package rows

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge_PendingRowsKeepLocalContent(t *testing.T) {
	local := []testRow{
		{UID: "a", ID: 1, Label: "local-a", Amount: 10},
		{UID: "b", ID: 2, Label: "local-b", Amount: 20},
		{UID: "c", Label: "draft"},
	}
	server := []testRow{
		{ID: 1, Label: "server-a", Amount: 11},
		{ID: 2, Label: "server-b", Amount: 21},
		{ID: 3, Label: "server-c", Amount: 31},
	}
	pending := PendingState{Modified: []int{0}, New: []int{2}}

	got := Merge(server, local, pending, seqUIDs("n"))
	want := []testRow{
		{UID: "a", ID: 1, Label: "local-a", Amount: 10},
		{UID: "b", ID: 2, Label: "server-b", Amount: 21},
		{UID: "c", Label: "draft"},
		{UID: "n1", ID: 3, Label: "server-c", Amount: 31},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_NewRowWithIDConsumesServerCopy(t *testing.T) {
	local := []testRow{{UID: "a", ID: 7, Label: "mine"}}
	server := []testRow{{ID: 7, Label: "theirs"}}

	got := Merge(server, local, PendingState{New: []int{0}}, seqUIDs("n"))
	if len(got) != 1 || got[0].Label != "mine" {
		t.Fatalf("Merge = %#v, want single local row", got)
	}
}

func TestMerge_UntrackedRowMissingOnServerIsKept(t *testing.T) {
	local := []testRow{{UID: "a", ID: 1}, {UID: "b", ID: 2, Label: "gone"}}
	server := []testRow{{ID: 1, Label: "fresh"}}

	got := Merge(server, local, PendingState{Modified: []int{0}}, seqUIDs("n"))
	if diff := cmp.Diff([]string{"", "gone"}, labels(got)); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_ServerExtrasAppendedInServerOrder(t *testing.T) {
	local := []testRow{{UID: "a", ID: 1, Label: "edited"}}
	server := []testRow{{ID: 9, Label: "x"}, {ID: 1}, {ID: 8, Label: "y"}}

	got := Merge(server, local, PendingState{Modified: []int{0}}, seqUIDs("n"))
	if diff := cmp.Diff([]string{"edited", "x", "y"}, labels(got)); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
	if got[1].UID != "n1" || got[2].UID != "n2" {
		t.Fatalf("appended uids = %q,%q want n1,n2", got[1].UID, got[2].UID)
	}
}

func TestReplace_KeepsUIDsByID(t *testing.T) {
	local := []testRow{{UID: "a", ID: 1}, {UID: "b", ID: 2}}
	server := []testRow{{ID: 2, Label: "two"}, {ID: 3, Label: "three"}}

	got := Replace(server, local, seqUIDs("n"))
	want := []testRow{{UID: "b", ID: 2, Label: "two"}, {UID: "n1", ID: 3, Label: "three"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Replace mismatch (-want +got):\n%s", diff)
	}
}

func TestReplace_RepeatedServerIDGetsFreshUID(t *testing.T) {
	local := []testRow{{UID: "a", ID: 5}}
	server := []testRow{{ID: 5, Label: "first"}, {ID: 5, Label: "second"}}

	got := Replace(server, local, seqUIDs("n"))
	want := []testRow{{UID: "a", ID: 5, Label: "first"}, {UID: "n1", ID: 5, Label: "second"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Replace mismatch (-want +got):\n%s", diff)
	}
}

// Rows at pending positions never change content, whatever the server sends.
func TestMerge_PropertyPendingRowsUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(8)
		local := make([]testRow, n)
		for i := range local {
			local[i] = testRow{UID: string(rune('a' + i)), Amount: rng.Intn(100)}
			if rng.Intn(4) > 0 {
				local[i].ID = int64(rng.Intn(10) + 1)
			}
		}
		server := make([]testRow, rng.Intn(8))
		for i := range server {
			server[i] = testRow{ID: int64(rng.Intn(12) + 1), Amount: 1000 + rng.Intn(100)}
		}
		var pending PendingState
		for i := 0; i < n; i++ {
			switch rng.Intn(3) {
			case 0:
				pending.Modified = append(pending.Modified, i)
			case 1:
				pending.New = append(pending.New, i)
			}
		}

		got := Merge(server, local, pending, seqUIDs("n"))
		if len(got) < len(local) {
			t.Fatalf("iteration %d: merged %d rows, fewer than %d local", iter, len(got), len(local))
		}
		for _, p := range pending.Union() {
			if diff := cmp.Diff(local[p], got[p]); diff != "" {
				t.Fatalf("iteration %d: pending row %d changed (-want +got):\n%s", iter, p, diff)
			}
		}
	}
}

func TestReconcile_ScenarioWholesaleReplaceWhenClean(t *testing.T) {
	f := newFixture(t, []testRow{{ID: 5, Amount: 100}})
	uid := f.table.Rows()[0].UID

	f.table.Reconcile([]testRow{{ID: 5, Amount: 150}})

	rows := f.table.Rows()
	if len(rows) != 1 || rows[0].Amount != 150 {
		t.Fatalf("rows = %#v, want amount 150", rows)
	}
	if rows[0].UID != uid {
		t.Fatalf("uid = %q, want stable %q", rows[0].UID, uid)
	}
}

func TestReconcile_ScenarioLocalEditWins(t *testing.T) {
	f := newFixture(t, []testRow{{ID: 5, Amount: 100}})
	if err := f.table.Edit(0, "amount", "120"); err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}

	f.table.Reconcile([]testRow{{ID: 5, Amount: 150}})

	rows := f.table.Rows()
	if len(rows) != 1 || rows[0].Amount != 120 {
		t.Fatalf("rows = %#v, want amount 120", rows)
	}
	if !f.table.IsModified(0) {
		t.Fatalf("position 0 no longer modified: %#v", f.table.Pending())
	}
}

func TestReconcile_UnsavedOrderIsPreserved(t *testing.T) {
	f := newFixture(t, []testRow{{ID: 1, Label: "a"}, {ID: 2, Label: "b"}})
	rows := f.table.Rows()
	if _, err := f.table.Move(rows[0].UID, rows[1].UID); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}

	f.table.Reconcile([]testRow{{ID: 1, Label: "a2"}, {ID: 2, Label: "b2"}})

	if diff := cmp.Diff([]string{"b2", "a2"}, labels(f.table.Rows())); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}
