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

// Package initproc runs once at process startup: clear any locks left by a
// crashed predecessor, read what that predecessor left behind (including
// whether it died mid-monitoring), discover the current rack topology, and
// either move the RMS to Ready or exit non-zero.
package initproc

import (
	"context"
	"fmt"
	"time"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/hsm"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/statemgr"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/storage"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// Documents is the subset of docstore.Documents initialization needs, scoped to
// the two well-known document names.
type Documents interface {
	ReadDynamic(ctx context.Context) (*types.DynamicDocument, error)
	WriteDynamic(ctx context.Context, doc *types.DynamicDocument) error
	ReadStaticCriticalServices(ctx context.Context) (map[string]types.CriticalServiceStatic, error)
	ReadTimers(ctx context.Context) (types.Timers, error)
}

// Locks is the subset of the two lock.Lock instances Init needs.
type Locks interface {
	ForceReleaseStatic(ctx context.Context) error
	ForceReleaseDynamic(ctx context.Context) error
}

// HSMReader is the subset of hsm.Client Init needs for the post-mortem node
// health check.
type HSMReader interface {
	SiblingsInRack(ctx context.Context, rack string) ([]hsm.Sibling, error)
}

// waitPollInterval is how often WaitForDocument rechecks the Dynamic
// document's existence before giving up.
const waitPollInterval = time.Second

// Init performs the nine-step initialization sequence.
type Init struct {
	docs     Documents
	locks    Locks
	cluster  *cluster.Adapter
	storage  storage.Inspector
	state    *statemgr.Manager
	hsm      HSMReader
	selfNode string
}

// New returns an Init ready to Run.
func New(docs Documents, locks Locks, clusterAdapter *cluster.Adapter, storageInspector storage.Inspector, state *statemgr.Manager, hsmReader HSMReader, selfNode string) *Init {
	return &Init{docs: docs, locks: locks, cluster: clusterAdapter, storage: storageInspector, state: state, hsm: hsmReader, selfNode: selfNode}
}

// Run executes the sequence, returning an error that should be treated as
// fatal by the caller (the Main entrypoint exits non-zero on any error here,
// per the documented Initialization Procedure).
func (i *Init) Run(ctx context.Context) error {
	// Step 1-2: clear any lock left behind by a crashed prior process.
	if err := i.locks.ForceReleaseStatic(ctx); err != nil {
		logger.Warnw("init: force-release of static lock failed", "error", err)
	}
	if err := i.locks.ForceReleaseDynamic(ctx); err != nil {
		logger.Warnw("init: force-release of dynamic lock failed", "error", err)
	}

	// Step 3: the Dynamic document must exist before Init can read it; this
	// is the one place RRS waits rather than fails immediately, since the
	// ConfigMap may still be propagating right after a fresh deployment.
	if err := i.WaitForDocument(ctx, 30*time.Second); err != nil {
		return fmt.Errorf("dynamic document never appeared: %w", err)
	}

	// Step 4: read the dynamic document and inspect the prior rms_state.
	prior, err := i.docs.ReadDynamic(ctx)
	if err != nil {
		return fmt.Errorf("read dynamic document: %w", err)
	}
	if prior.State.RMSState == types.StateMonitoring {
		logger.Warnw("init: prior process died mid-monitoring session; both monitors will restart fresh", "prior_state", prior.State.RMSState)
	}
	if prior.State.RMSState != "" {
		i.logPriorNodeHealth(ctx, prior.RRSPod)
	}

	// Step 5: overwrite state.rms_state := Init and record init_timestamp.
	prior.State.RMSState = types.StateInit
	prior.Timestamps.Set(types.TimestampInit)
	i.state.SetDynamic(prior)
	if err := i.docs.WriteDynamic(ctx, prior); err != nil {
		return fmt.Errorf("write init state: %w", err)
	}

	// Step 6: discover the k8s zone map from current node rack labels.
	nodeRacks, err := i.cluster.ListNodeRacks(ctx)
	if err != nil {
		return fmt.Errorf("discover node racks: %w", err)
	}
	zones := types.NewRackMap()
	for _, n := range nodeRacks {
		if n.Rack == "" {
			continue
		}
		zones.K8sZones[n.Rack] = append(zones.K8sZones[n.Rack], types.K8sZoneNode{Name: n.Name, Status: n.Status})
	}

	// Step 6 (storage portion): discover the ceph rack map too, best-effort.
	if cephZones, err := i.storage.RackTree(ctx); err != nil {
		logger.Warnw("init: ceph rack discovery failed, continuing with an empty ceph zone map", "error", err)
	} else {
		zones.CephZones = cephZones
	}
	prior.Zone = zones

	// Step 7: record this RMS pod's own placement.
	placement, err := i.cluster.SelfPlacement(ctx, i.selfNode)
	if err != nil {
		logger.Warnw("init: failed to resolve own pod placement", "error", err)
	} else {
		prior.RRSPod = placement
	}

	if err := i.docs.WriteDynamic(ctx, prior); err != nil {
		return fmt.Errorf("write zone map and pod placement: %w", err)
	}
	i.state.SetDynamic(prior)

	// Step 8: validate the Static document.
	services, err := i.docs.ReadStaticCriticalServices(ctx)
	if err != nil {
		return fmt.Errorf("read static critical services: %w", err)
	}
	if len(services) == 0 {
		return rrserrors.NewConfigMissing("static document has no registered critical services", nil)
	}
	if _, err := i.docs.ReadTimers(ctx); err != nil {
		logger.Warnw("init: timers missing or invalid in static document, defaults will be used", "error", err)
	}

	// Step 9: Ready.
	if err := i.state.SetState(types.StateReady); err != nil {
		return fmt.Errorf("transition to Ready: %w", err)
	}
	logger.Info("initialization complete, RMS is Ready")
	return nil
}

// logPriorNodeHealth best-effort looks up whether the node a crashed
// predecessor was last running on is still healthy. A missing rack/node
// (process never placed, or the lookup itself fails) is logged and
// otherwise ignored -- this is diagnostic only and never blocks startup.
func (i *Init) logPriorNodeHealth(ctx context.Context, pod types.PodPlacement) {
	if pod.Node == "" || pod.Rack == "" {
		return
	}

	siblings, err := i.hsm.SiblingsInRack(ctx, pod.Rack)
	if err != nil {
		logger.Warnw("init: post-mortem node health lookup failed", "node", pod.Node, "rack", pod.Rack, "error", err)
		return
	}

	for _, s := range siblings {
		if s.ID == pod.Node {
			logger.Infow("init: prior process's node health", "node", pod.Node, "rack", pod.Rack, "state", s.State)
			return
		}
	}
	logger.Warnw("init: prior process's node not found in hardware inventory", "node", pod.Node, "rack", pod.Rack)
}

// WaitForDocument polls until the Dynamic document exists or timeout
// elapses. Supplements the original rms.py wait-for-configmap behavior,
// carried over from the original management daemon.
func (i *Init) WaitForDocument(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		if _, err := i.docs.ReadDynamic(ctx); err == nil {
			return nil
		} else if !rrserrors.Is(err, rrserrors.ErrConfigMissing) {
			return err
		}

		if time.Now().After(deadline) {
			return rrserrors.NewConfigMissing("timed out waiting for dynamic document to appear", nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
