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

// Package mainloop is RRS's Main Control Loop: on every tick it makes sure
// the hardware notification subscription exists, re-evaluates critical
// services, and toggles between Waiting and Started -- except while a
// monitoring session owns the RMS state, when the loop is suspended.
package mainloop

import (
	"context"
	"time"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// StateTracker is the subset of statemgr.Manager the loop needs.
type StateTracker interface {
	State() types.RMSState
	SetState(next types.RMSState) error
	MonitoringClaimed() bool
}

// Evaluator is the subset of evaluator.Evaluator the loop drives each tick.
type Evaluator interface {
	Evaluate(ctx context.Context, static map[string]types.CriticalServiceStatic, previous map[string]types.CriticalServiceDynamic) map[string]types.CriticalServiceDynamic
}

// Documents is the subset of the Document Store the loop reads/writes.
type Documents interface {
	ReadStaticCriticalServices(ctx context.Context) (map[string]types.CriticalServiceStatic, error)
	ReadDynamicCriticalServices(ctx context.Context) (map[string]types.CriticalServiceDynamic, error)
	WriteDynamicCriticalServices(ctx context.Context, services map[string]types.CriticalServiceDynamic) error
	RefreshK8sZones(ctx context.Context) error
}

// SubscriptionEnsurer makes sure RRS's notification endpoint is registered
// with the hardware state-change bus, idempotently.
type SubscriptionEnsurer interface {
	EnsureSubscribed(ctx context.Context) error
}

// Loop is the main control loop, driven by a single ticker at the
// configured T_main interval.
type Loop struct {
	state    StateTracker
	eval     Evaluator
	docs     Documents
	sub      SubscriptionEnsurer
	interval time.Duration
}

// New returns a Loop ticking every interval.
func New(state StateTracker, eval Evaluator, docs Documents, sub SubscriptionEnsurer, interval time.Duration) *Loop {
	return &Loop{state: state, eval: eval, docs: docs, sub: sub, interval: interval}
}

// Run blocks, ticking until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	if l.state.MonitoringClaimed() {
		// A monitoring session owns the RMS state; the main loop stays
		// quiet until it releases the claim.
		return
	}

	if err := l.sub.EnsureSubscribed(ctx); err != nil {
		logger.Warnw("main loop: failed to ensure notification subscription", "error", err)
	}

	if err := l.docs.RefreshK8sZones(ctx); err != nil {
		logger.Warnw("main loop: failed to refresh zone map", "error", err)
	}

	if err := l.runEvaluator(ctx); err != nil {
		logger.Warnw("main loop: evaluator tick failed", "error", err)
	}

	l.toggleState()
}

func (l *Loop) runEvaluator(ctx context.Context) error {
	static, err := l.docs.ReadStaticCriticalServices(ctx)
	if err != nil {
		return err
	}
	previous, err := l.docs.ReadDynamicCriticalServices(ctx)
	if err != nil {
		previous = nil
	}

	computed := l.eval.Evaluate(ctx, static, previous)
	return l.docs.WriteDynamicCriticalServices(ctx, computed)
}

// toggleState moves Waiting -> Started -> Waiting each tick the loop runs
// cleanly, giving external observers of rms_state a heartbeat distinct from
// a wedged process.
func (l *Loop) toggleState() {
	switch l.state.State() {
	case types.StateWaiting, types.StateReady, types.StateFailNotified:
		if err := l.state.SetState(types.StateStarted); err != nil {
			logger.Warnw("main loop: failed to transition to Started", "error", err)
		}
	default:
		if err := l.state.SetState(types.StateWaiting); err != nil {
			logger.Warnw("main loop: failed to transition to Waiting", "error", err)
		}
	}
}
