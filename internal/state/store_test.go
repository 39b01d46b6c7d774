package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/quotedesk/internal/quote"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	shock := &quote.Shock{ID: 7, Label: "Rear door"}
	supplies := []quote.SupplyLine{{ID: 1}, {ID: 2}}
	workforce := []quote.WorkforceLine{{ID: 5}}

	before := time.Now()
	s.Update(shock, supplies, workforce, nil)

	snap := s.Snapshot()
	if !snap.HasShock || snap.Shock.ID != 7 {
		t.Fatalf("snapshot shock = %#v, want id=7 HasShock=true", snap.Shock)
	}
	if len(snap.Supplies) != 2 || snap.Supplies[0].ID != 1 {
		t.Fatalf("snapshot supplies = %#v, want 2 lines", snap.Supplies)
	}
	if len(snap.Workforce) != 1 {
		t.Fatalf("snapshot workforce = %#v, want 1 line", snap.Workforce)
	}
	if snap.Revision != 1 {
		t.Fatalf("Revision = %d, want 1", snap.Revision)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Supplies[0].ID = 999
	supplies[1].ID = 888
	snap2 := s.Snapshot()
	if snap2.Supplies[0].ID != 1 || snap2.Supplies[1].ID != 2 {
		t.Fatalf("Snapshot should clone lines; got %#v", snap2.Supplies)
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update(&quote.Shock{ID: 1}, []quote.SupplyLine{{ID: 1}}, nil, nil)
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.Update(nil, nil, nil, origErr)

	snap := s.Snapshot()
	if snap.HasShock != prev.HasShock || snap.Shock.ID != prev.Shock.ID {
		t.Fatalf("shock changed on error: got %#v want %#v", snap.Shock, prev.Shock)
	}
	if len(snap.Supplies) != 1 || snap.Supplies[0].ID != 1 {
		t.Fatalf("supplies changed on error: got %#v want %#v", snap.Supplies, prev.Supplies)
	}
	if snap.Revision != prev.Revision {
		t.Fatalf("Revision = %d, want unchanged %d", snap.Revision, prev.Revision)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store = %+v, want online with 0 failures", snap)
	}

	for i := 1; i <= 3; i++ {
		s.Update(nil, nil, nil, errors.New("fail"))
		snap := s.Snapshot()
		if snap.ConsecutiveFailures != i {
			t.Fatalf("ConsecutiveFailures = %d, want %d", snap.ConsecutiveFailures, i)
		}
		if snap.IsOffline() != (i >= 2) {
			t.Fatalf("IsOffline() = %v after %d failures", snap.IsOffline(), i)
		}
	}

	// Success resets counter
	s.Update(nil, nil, nil, nil)
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("after success = %+v, want online", snap)
	}
	if s.Revision() != 1 {
		t.Fatalf("Revision = %d, want 1", s.Revision())
	}
}
