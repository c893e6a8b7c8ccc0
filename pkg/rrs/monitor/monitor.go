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

// Package monitor is the Monitor Coordinator: it runs at most one monitoring
// session at a time, each session being two independent, context-cancellable
// loops (k8s workload health, ceph storage health) that poll on their own
// schedule and both write their findings back into the Dynamic document.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/storage"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// ClusterReader is the subset of cluster.Adapter the k8s monitoring loop
// needs: a fresh rack/readiness snapshot each poll.
type ClusterReader interface {
	ListNodeRacks(ctx context.Context) ([]cluster.NodeRack, error)
}

// DocWriter is the subset of the State Manager / Document Store the monitor
// needs: write the zone map back, record a timestamp, and re-read/re-write
// the critical services registry each poll.
type DocWriter interface {
	WriteK8sZones(ctx context.Context, zones map[string][]types.K8sZoneNode) error
	WriteCephZones(ctx context.Context, zones map[string][]types.CephZoneNode) error
	RecordTimestamp(ctx context.Context, key string) error
	SetSubsystemState(ctx context.Context, subsystem string, state types.SubsystemState) error
	ReadStaticCriticalServices(ctx context.Context) (map[string]types.CriticalServiceStatic, error)
	ReadDynamicCriticalServices(ctx context.Context) (map[string]types.CriticalServiceDynamic, error)
	WriteDynamicCriticalServices(ctx context.Context, services map[string]types.CriticalServiceDynamic) error
}

// StateTracker is the subset of statemgr.Manager the coordinator needs.
type StateTracker interface {
	CanStartMonitoring(now time.Time, k8sBudget time.Duration) bool
	StartMonitoring(since time.Time)
	StopMonitoring(next types.RMSState)
}

// Evaluator is the subset of evaluator.Evaluator the workload monitor uses to
// re-check critical service health each poll.
type Evaluator interface {
	Evaluate(ctx context.Context, static map[string]types.CriticalServiceStatic, previous map[string]types.CriticalServiceDynamic) map[string]types.CriticalServiceDynamic
}

// Coordinator runs and tracks the at-most-one monitoring session.
type Coordinator struct {
	cluster   ClusterReader
	storage   storage.Inspector
	docs      DocWriter
	state     StateTracker
	evaluator Evaluator

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// New returns a Coordinator.
func New(cluster ClusterReader, storageInspector storage.Inspector, docs DocWriter, state StateTracker, eval Evaluator) *Coordinator {
	return &Coordinator{cluster: cluster, storage: storageInspector, docs: docs, state: state, evaluator: eval}
}

// TryStart attempts to begin a new monitoring session, applying the
// at-most-one-session rule with 75%-elapsed late-start preemption. It
// returns false without error if another session is active and not yet
// eligible for preemption.
func (c *Coordinator) TryStart(parent context.Context, timers types.Timers) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	k8sBudget := time.Duration(timers.K8sMonitoringTotalTime) * time.Second
	if !c.state.CanStartMonitoring(time.Now(), k8sBudget) {
		return false
	}

	if c.running && c.cancel != nil {
		// Late-start preemption: a prior session is still marked running but
		// is past 75% of its k8s budget. Both monitors are restarted rather
		// than only the lagging one.
		c.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.running = true

	now := time.Now()
	c.state.StartMonitoring(now)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- c.runK8sMonitor(ctx, timers)
	}()
	go func() {
		defer wg.Done()
		errCh <- c.runCephMonitor(ctx, timers)
	}()

	go func() {
		wg.Wait()
		close(errCh)
		c.finishSession(errCh, cancel)
	}()

	return true
}

func (c *Coordinator) finishSession(errCh <-chan error, cancel context.CancelFunc) {
	var failed error
	for err := range errCh {
		if err != nil && rrserrors.Is(err, rrserrors.ErrInternalFailure) {
			failed = err
		}
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	cancel()

	if failed != nil {
		logger.Errorw("monitoring session ended in internal failure", "error", failed)
		c.state.StopMonitoring(types.StateInternalFailure)
		return
	}
	c.state.StopMonitoring(types.StateWaiting)
}

// runK8sMonitor waits K8sPreMonitoringDelay, then polls node rack/readiness
// every K8sMonitoringPollingInterval until K8sMonitoringTotalTime elapses or
// ctx is cancelled. Per-iteration Transient errors are logged and the loop
// continues; only a failure to write the result back is promoted to
// InternalFailure, ending the whole session.
func (c *Coordinator) runK8sMonitor(ctx context.Context, timers types.Timers) error {
	if err := c.docs.RecordTimestamp(ctx, types.TimestampK8sMonitoringStart); err != nil {
		return rrserrors.NewInternalFailure("record k8s monitoring start timestamp", err)
	}
	_ = c.docs.SetSubsystemState(ctx, types.SubsystemK8s, types.SubsystemStarted)

	if !sleep(ctx, time.Duration(timers.K8sPreMonitoringDelay)*time.Second) {
		return nil
	}

	deadline := time.Now().Add(time.Duration(timers.K8sMonitoringTotalTime) * time.Second)
	ticker := time.NewTicker(time.Duration(timers.K8sMonitoringPollingInterval) * time.Second)
	defer ticker.Stop()

	var unrecovered []string
	for {
		recovered, names, err := c.pollK8sOnce(ctx)
		if err != nil {
			return err
		}
		unrecovered = names
		if recovered {
			break
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}

	if len(unrecovered) > 0 {
		logger.Warnw("k8s monitor: services still unrecovered at end of session", "services", unrecovered)
	}

	if err := c.docs.RecordTimestamp(ctx, types.TimestampK8sMonitoringEnd); err != nil {
		return rrserrors.NewInternalFailure("record k8s monitoring end timestamp", err)
	}
	_ = c.docs.SetSubsystemState(ctx, types.SubsystemK8s, types.SubsystemCompleted)
	return nil
}

// pollK8sOnce refreshes the k8s zone map and re-runs the critical services
// Evaluator, reporting whether every service has recovered (status is not
// PartiallyConfigured and balanced is not "false") along with the names of
// those that have not.
func (c *Coordinator) pollK8sOnce(ctx context.Context) (bool, []string, error) {
	nodes, err := c.cluster.ListNodeRacks(ctx)
	if err != nil {
		logger.Warnw("k8s monitor: transient poll failure, continuing", "error", err)
		return false, nil, nil
	}

	zones := map[string][]types.K8sZoneNode{}
	for _, n := range nodes {
		if n.Rack == "" {
			continue
		}
		zones[n.Rack] = append(zones[n.Rack], types.K8sZoneNode{Name: n.Name, Status: n.Status})
	}

	if err := c.docs.WriteK8sZones(ctx, zones); err != nil {
		return false, nil, rrserrors.NewInternalFailure("write k8s zone map", err)
	}

	unrecovered, err := c.reevaluateCriticalServices(ctx)
	if err != nil {
		if rrserrors.Is(err, rrserrors.ErrInternalFailure) {
			return false, nil, err
		}
		logger.Warnw("k8s monitor: critical service re-evaluation failed, continuing", "error", err)
		return false, nil, nil
	}
	return len(unrecovered) == 0, unrecovered, nil
}

// reevaluateCriticalServices re-runs the Evaluator against the current
// static registry and previous dynamic records, writes the result back, and
// returns the names of services still not configured or balanced.
func (c *Coordinator) reevaluateCriticalServices(ctx context.Context) ([]string, error) {
	static, err := c.docs.ReadStaticCriticalServices(ctx)
	if err != nil {
		return nil, err
	}
	previous, err := c.docs.ReadDynamicCriticalServices(ctx)
	if err != nil {
		return nil, err
	}

	updated := c.evaluator.Evaluate(ctx, static, previous)
	if err := c.docs.WriteDynamicCriticalServices(ctx, updated); err != nil {
		return nil, rrserrors.NewInternalFailure("write critical service records", err)
	}

	var unrecovered []string
	for name, svc := range updated {
		if svc.Status == types.ServicePartiallyConfigured || svc.Balanced == types.BalancedFalse {
			unrecovered = append(unrecovered, name)
		}
	}
	return unrecovered, nil
}

// runCephMonitor mirrors runK8sMonitor using the ceph timers and the storage
// Inspector.
func (c *Coordinator) runCephMonitor(ctx context.Context, timers types.Timers) error {
	if err := c.docs.RecordTimestamp(ctx, types.TimestampCephMonitoringStart); err != nil {
		return rrserrors.NewInternalFailure("record ceph monitoring start timestamp", err)
	}
	_ = c.docs.SetSubsystemState(ctx, types.SubsystemCeph, types.SubsystemStarted)

	if !sleep(ctx, time.Duration(timers.CephPreMonitoringDelay)*time.Second) {
		return nil
	}

	deadline := time.Now().Add(time.Duration(timers.CephMonitoringTotalTime) * time.Second)
	ticker := time.NewTicker(time.Duration(timers.CephMonitoringPollingInterval) * time.Second)
	defer ticker.Stop()

	var healthy bool
	for {
		h, err := c.pollCephOnce(ctx)
		if err != nil {
			return err
		}
		healthy = h
		if healthy {
			break
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}

	if !healthy {
		logger.Warnw("ceph monitor: storage still unhealthy at end of session")
	}

	if err := c.docs.RecordTimestamp(ctx, types.TimestampCephMonitoringEnd); err != nil {
		return rrserrors.NewInternalFailure("record ceph monitoring end timestamp", err)
	}
	_ = c.docs.SetSubsystemState(ctx, types.SubsystemCeph, types.SubsystemCompleted)
	return nil
}

// pollCephOnce refreshes the ceph zone map and reports the overall
// storage-health verdict.
func (c *Coordinator) pollCephOnce(ctx context.Context) (bool, error) {
	tree, err := c.storage.RackTree(ctx)
	if err != nil {
		logger.Warnw("ceph monitor: transient poll failure, continuing", "error", err)
		return false, nil
	}

	if err := c.docs.WriteCephZones(ctx, tree); err != nil {
		return false, rrserrors.NewInternalFailure("write ceph zone map", err)
	}

	return storage.Healthy(tree), nil
}

// sleep waits for d or until ctx is cancelled, returning false in the
// latter case.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
