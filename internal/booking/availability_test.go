package booking

import "testing"

func contains(slots []string, s string) bool {
	for _, x := range slots {
		if x == s {
			return true
		}
	}
	return false
}

func TestAvailabilityEmptyDay(t *testing.T) {
	slots := Availability(30, nil)
	if len(slots) != 18 {
		t.Fatalf("slots = %d, want 18 half-hour slots between 09:00 and 18:00", len(slots))
	}
	if slots[0] != "09:00" || slots[len(slots)-1] != "17:30" {
		t.Fatalf("range = %s..%s", slots[0], slots[len(slots)-1])
	}
}

func TestAvailabilityExcludesOverlaps(t *testing.T) {
	busy := []Slot{{Time: "10:00", DurationMinutes: 60}}
	slots := Availability(30, busy)
	if contains(slots, "10:00") || contains(slots, "10:30") {
		t.Fatalf("busy window offered: %v", slots)
	}
	if !contains(slots, "09:30") || !contains(slots, "11:00") {
		t.Fatalf("free edges missing: %v", slots)
	}
}

func TestAvailabilityLongServiceCollidesEarlier(t *testing.T) {
	// A 60-minute booking at 10:00 blocks a 90-minute request starting 09:00
	// (it would run 09:00-10:30, overlapping 10:00-11:00).
	busy := []Slot{{Time: "10:00", DurationMinutes: 60}}
	slots := Availability(90, busy)
	if contains(slots, "09:00") || contains(slots, "09:30") {
		t.Fatalf("overlapping start offered: %v", slots)
	}
	if !contains(slots, "11:00") {
		t.Fatalf("11:00 should be free: %v", slots)
	}
}

func TestAvailabilityRespectsClosingTime(t *testing.T) {
	slots := Availability(120, nil)
	if contains(slots, "17:00") || contains(slots, "17:30") {
		t.Fatalf("slot past closing offered: %v", slots)
	}
	if !contains(slots, "16:00") {
		t.Fatalf("16:00 fits a 2h service before 18:00: %v", slots)
	}
}

func TestStatusMachine(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestNormalizeModality(t *testing.T) {
	if NormalizeModality("domicilio") != ModalityHomeVisit {
		t.Fatalf("domicilio not mapped")
	}
	if NormalizeModality("") != ModalityOnSite {
		t.Fatalf("empty not defaulted to on-site")
	}
	if NormalizeModality("retiro_entrega") != ModalityDropOff {
		t.Fatalf("retiro_entrega not mapped")
	}
}
