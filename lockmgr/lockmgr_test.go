package lockmgr

import (
	"errors"
	"testing"

	"github.com/arctir/frameagent/rqderr"
)

type fakeUserLoggedIn struct{ loggedIn bool }

func (f fakeUserLoggedIn) IsUserLoggedIn() bool { return f.loggedIn }

type fakeReserved struct{ cores int }

func (f fakeReserved) ReservedCores() int { return f.cores }

func TestAdmitWithinBudgetSucceeds(t *testing.T) {
	m := New(16, fakeUserLoggedIn{}, fakeReserved{cores: 4})
	if err := m.Admit(8, false); err != nil {
		t.Fatalf("unexpected refusal: %s", err)
	}
}

func TestAdmitRefusesWhenOverBudget(t *testing.T) {
	m := New(16, fakeUserLoggedIn{}, fakeReserved{cores: 12})
	err := m.Admit(8, false)
	if err == nil {
		t.Fatal("expected refusal when request would exceed total cores")
	}
	var rqErr *rqderr.Error
	if !errors.As(err, &rqErr) || rqErr.Class != rqderr.ClassAdmission {
		t.Fatalf("expected an ADMISSION-classed error, got %v", err)
	}
}

func TestLockReducesAvailableBudget(t *testing.T) {
	m := New(16, fakeUserLoggedIn{}, fakeReserved{cores: 0})
	m.Lock(10)
	if err := m.Admit(8, false); err == nil {
		t.Fatal("expected refusal once locked cores plus request exceed total")
	}
	if err := m.Admit(6, false); err != nil {
		t.Fatalf("expected admission for a request that fits, got %s", err)
	}
}

func TestNimbyBlocksAdmissionWhenUserLoggedIn(t *testing.T) {
	m := New(16, fakeUserLoggedIn{loggedIn: true}, fakeReserved{})
	m.SetNimby(true)
	if err := m.Admit(1, false); err == nil {
		t.Fatal("expected nimby to block admission while a user is logged in")
	}

	m.SetNimby(false)
	if err := m.Admit(1, false); err != nil {
		t.Fatalf("expected admission once nimby is off, got %s", err)
	}
}

func TestIgnoreNimbyBypassesNimbyCheck(t *testing.T) {
	m := New(16, fakeUserLoggedIn{loggedIn: true}, fakeReserved{})
	m.SetNimby(true)
	if err := m.Admit(1, true); err != nil {
		t.Fatalf("expected ignoreNimby to bypass the nimby block, got %s", err)
	}
}

func TestPendingActionBlocksAdmission(t *testing.T) {
	m := New(16, fakeUserLoggedIn{}, fakeReserved{})
	m.SetPendingAction(ActionShutdown)
	if err := m.Admit(1, false); err == nil {
		t.Fatal("expected refusal while a shutdown is pending")
	}
	m.ClearPendingAction()
	if err := m.Admit(1, false); err != nil {
		t.Fatalf("expected admission once the pending action clears, got %s", err)
	}
}

func TestLockAllAndUnlockAll(t *testing.T) {
	m := New(8, fakeUserLoggedIn{}, fakeReserved{})
	m.LockAll()
	if m.State().LockedCores != 8 {
		t.Fatalf("expected all 8 cores locked, got %d", m.State().LockedCores)
	}
	m.UnlockAll()
	if m.State().LockedCores != 0 {
		t.Fatalf("expected 0 cores locked, got %d", m.State().LockedCores)
	}
}
