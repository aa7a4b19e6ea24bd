package scan

import "testing"

func TestGuard_TryStartClaimsSlot(t *testing.T) {
	g := &Guard{}

	if !g.TryStart() {
		t.Fatal("First TryStart() should claim the slot")
	}
	if g.TryStart() {
		t.Error("Second TryStart() should be rejected while a scan runs")
	}
	if !g.InProgress() {
		t.Error("InProgress() = false while the slot is held")
	}
}

func TestGuard_RequestStopWhenIdle(t *testing.T) {
	g := &Guard{}

	if g.RequestStop() {
		t.Error("RequestStop() with no scan running should not be accepted")
	}
	if g.StopRequested() {
		t.Error("An unaccepted stop request must not set the flag")
	}
}

func TestGuard_StopLifecycle(t *testing.T) {
	g := &Guard{}
	g.TryStart()

	if !g.RequestStop() {
		t.Fatal("RequestStop() during a scan should be accepted")
	}
	if !g.StopRequested() {
		t.Error("StopRequested() = false after an accepted request")
	}

	g.Finish()
	if g.InProgress() || g.StopRequested() {
		t.Error("Finish() must clear both the slot and the stop flag")
	}
}

func TestGuard_TryStartClearsStaleStop(t *testing.T) {
	g := &Guard{}
	g.TryStart()
	g.RequestStop()
	g.Finish()

	if !g.TryStart() {
		t.Fatal("Slot should be free after Finish()")
	}
	if g.StopRequested() {
		t.Error("A fresh scan must not inherit the previous scan's stop request")
	}
}
