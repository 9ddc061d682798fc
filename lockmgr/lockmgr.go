// Package lockmgr implements the Lock Manager: core reservation
// bookkeeping and NIMBY/pending-action state, used by the Control Plane
// to admit or refuse LaunchFrame requests.
package lockmgr

import (
	"sync"

	"github.com/arctir/frameagent/rqderr"
)

// PendingAction is a host-level action requested via the control plane
// that, once set, blocks further admission until ClearPendingAction
// clears it.
type PendingAction int

const (
	ActionNone PendingAction = iota
	ActionShutdown
	ActionRestart
	ActionReboot
)

func (a PendingAction) String() string {
	switch a {
	case ActionShutdown:
		return "shutdown"
	case ActionRestart:
		return "restart"
	case ActionReboot:
		return "reboot"
	default:
		return "none"
	}
}

// UserLoggedIn reports whether an interactive user is currently using
// the host, consulted only when NIMBY is on. Implemented by
// hostfacts.Detector.
type UserLoggedIn interface {
	IsUserLoggedIn() bool
}

// ReservedCoresSource reports the sum of num_cores across every
// non-terminal RunningFrame. Implemented by registry.Registry.
type ReservedCoresSource interface {
	ReservedCores() int
}

// LockState is a point-in-time snapshot of the Lock Manager's internal
// state.
type LockState struct {
	TotalCores    int
	LockedCores   int
	NimbyOn       bool
	PendingAction PendingAction
}

// Manager holds the host's core-locking, NIMBY, and pending-action
// state.
type Manager struct {
	mu sync.Mutex

	totalCores    int
	lockedCores   int
	nimbyOn       bool
	pendingAction PendingAction

	userLoggedIn UserLoggedIn
	reserved     ReservedCoresSource
}

// New constructs a Manager for a host with totalCores logical cores.
func New(totalCores int, userLoggedIn UserLoggedIn, reserved ReservedCoresSource) *Manager {
	return &Manager{totalCores: totalCores, userLoggedIn: userLoggedIn, reserved: reserved}
}

// Admit checks whether a launch requesting n cores may proceed. It does
// not reserve the cores itself — ReservedCoresSource already counts
// every admitted, non-terminal frame, so admission becomes true the
// moment the caller inserts the new frame into the registry.
// ignoreNimby bypasses the NIMBY check for a single launch, per
// RunFrame's own ignore_nimby flag.
func (m *Manager) Admit(n int, ignoreNimby bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pendingAction != ActionNone {
		return rqderr.New(rqderr.ClassAdmission, "lockmgr.Admit", rqderr.ErrShutdownPending)
	}
	if m.nimbyOn && !ignoreNimby && m.userLoggedIn != nil && m.userLoggedIn.IsUserLoggedIn() {
		return rqderr.New(rqderr.ClassAdmission, "lockmgr.Admit", rqderr.ErrNimbyBlocked)
	}

	running := 0
	if m.reserved != nil {
		running = m.reserved.ReservedCores()
	}
	if m.lockedCores+running+n > m.totalCores {
		return rqderr.New(rqderr.ClassAdmission, "lockmgr.Admit", rqderr.ErrResourceExhausted)
	}
	return nil
}

// Lock increases locked_cores by n, clamped to total_cores.
func (m *Manager) Lock(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedCores += n
	if m.lockedCores > m.totalCores {
		m.lockedCores = m.totalCores
	}
}

// Unlock decreases locked_cores by n, floored at zero.
func (m *Manager) Unlock(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedCores -= n
	if m.lockedCores < 0 {
		m.lockedCores = 0
	}
}

// LockAll reserves every core on the host.
func (m *Manager) LockAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedCores = m.totalCores
}

// UnlockAll releases every locked core.
func (m *Manager) UnlockAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedCores = 0
}

// SetNimby toggles NIMBY enforcement.
func (m *Manager) SetNimby(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nimbyOn = on
}

// SetPendingAction records a requested host action. Once set to
// anything but ActionNone, Admit refuses every further launch.
func (m *Manager) SetPendingAction(a PendingAction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingAction = a
}

// ClearPendingAction resets to ActionNone, used after an "idle" action
// completes or is canceled.
func (m *Manager) ClearPendingAction() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingAction = ActionNone
}

// State returns a snapshot of the Manager's internal state.
func (m *Manager) State() LockState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LockState{
		TotalCores:    m.totalCores,
		LockedCores:   m.lockedCores,
		NimbyOn:       m.nimbyOn,
		PendingAction: m.pendingAction,
	}
}
