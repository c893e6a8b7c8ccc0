/*
 * MIT License
 *
 * (C) Copyright 2025 Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 * OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 * ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 * OTHER DEALINGS IN THE SOFTWARE.
 */

// Package statemgr is the State Manager: the single in-process holder of
// RRS's current RMS state, the "is a monitoring session claimed" flag, and a
// cached copy of the last-read Dynamic document. Every other component reads
// and writes state through this struct instead of touching package-level
// globals, so the rules about which transitions are legal live in one place.
package statemgr

import (
	"sync"
	"time"

	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// Manager is the mutex-guarded in-process state holder.
type Manager struct {
	mu sync.RWMutex

	rmsState       types.RMSState
	monitorRunning bool
	monitorSince   time.Time
	dynamic        *types.DynamicDocument
}

// New returns a Manager starting in StateInit with an empty cached document.
func New() *Manager {
	return &Manager{
		rmsState: types.StateInit,
		dynamic:  types.NewDynamicDocument(),
	}
}

// State returns the current RMS state.
func (m *Manager) State() types.RMSState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rmsState
}

// SetState transitions to next. It refuses to move into StateReady or
// StateStarted while a monitoring session is claimed: those transitions
// belong to the Main Loop and Init, neither of which should ever observe
// (let alone cause) the RMS looking idle while a monitor goroutine is still
// running.
func (m *Manager) SetState(next types.RMSState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.monitorRunning && (next == types.StateReady || next == types.StateStarted) {
		return rrserrors.NewConflict("cannot transition to "+string(next)+" while a monitoring session is active", nil)
	}
	m.rmsState = next
	return nil
}

// ForceState sets the RMS state unconditionally, bypassing the monitoring
// guard. Nothing in this module calls it; the monitor session moves in and
// out of StateMonitoring through StartMonitoring and StopMonitoring.
func (m *Manager) ForceState(next types.RMSState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rmsState = next
}

// MonitoringClaimed reports whether a monitoring session currently holds the
// "one session at a time" claim.
func (m *Manager) MonitoringClaimed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.monitorRunning
}

// MonitoringSince returns the k8s-monitor start time recorded by the most
// recent StartMonitoring call, used by the late-start preemption check.
func (m *Manager) MonitoringSince() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.monitorSince
}

// StartMonitoring claims the monitoring session and records since as the new
// session's k8s-monitor start time. Callers must have already decided
// (via CanStartMonitoring) that claiming is allowed.
func (m *Manager) StartMonitoring(since time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitorRunning = true
	m.monitorSince = since
	m.rmsState = types.StateMonitoring
}

// StopMonitoring releases the monitoring claim and moves the RMS state to
// next (normally StateWaiting, or StateInternalFailure on a document-write
// failure inside the session).
func (m *Manager) StopMonitoring(next types.RMSState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitorRunning = false
	m.rmsState = next
}

// CanStartMonitoring implements the at-most-one-session rule with 75%-elapsed
// late-start preemption: a new session may begin if no session is currently
// claimed, or if the currently claimed session's k8s monitoring budget is at
// least 75% elapsed (exactly 75.0% proceeds; 74.9% does not). k8sBudget is
// the Static document's k8s_monitoring_total_time, in seconds.
func (m *Manager) CanStartMonitoring(now time.Time, k8sBudget time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.monitorRunning {
		return true
	}
	if k8sBudget <= 0 {
		return false
	}
	elapsed := now.Sub(m.monitorSince)
	return elapsed.Seconds()/k8sBudget.Seconds() >= 0.75
}

// Dynamic returns the cached Dynamic document.
func (m *Manager) Dynamic() *types.DynamicDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dynamic
}

// SetDynamic replaces the cached Dynamic document, e.g. after a successful
// read-through from the Document Store.
func (m *Manager) SetDynamic(doc *types.DynamicDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dynamic = doc
}
