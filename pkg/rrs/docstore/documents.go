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

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// Well-known ConfigMap names and data keys backing the two documents.
const (
	StaticConfigMapName  = "rms-static-data"
	DynamicConfigMapName = "rms-dynamic-data"

	dynamicDataKey     = "dynamic-data.yaml"
	staticServicesKey  = "critical-service-config.json"
	staticTimersKey    = "timers.yaml"
	dynamicServicesKey = "critical-service-config.json"
)

// locker is the subset of lock.Lock Documents needs, scoped down so this
// package doesn't import lock (avoiding an import cycle, since lock depends
// on the same store interface Documents composes here).
type locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
	ForceRelease(ctx context.Context) error
}

// nodeRackLister is the narrow slice of cluster.Adapter Documents needs to
// refresh the k8s zone map on a main-loop tick.
type nodeRackLister interface {
	ListNodeRacks(ctx context.Context) ([]cluster.NodeRack, error)
}

// Documents is the typed facade over the Static and Dynamic ConfigMaps,
// implementing the reader/writer interfaces that initproc, monitor, and
// mainloop each declare narrowly for themselves.
type Documents struct {
	store       *Store
	staticLock  locker
	dynamicLock locker
	cluster     nodeRackLister
}

// NewDocuments returns a Documents bound to store, guarded by the two
// sentinel locks, using clusterReader to refresh the k8s zone map.
func NewDocuments(store *Store, staticLock, dynamicLock locker, clusterReader nodeRackLister) *Documents {
	return &Documents{store: store, staticLock: staticLock, dynamicLock: dynamicLock, cluster: clusterReader}
}

// ForceReleaseStatic clears a possibly stale static-document lock at Init.
func (d *Documents) ForceReleaseStatic(ctx context.Context) error {
	return d.staticLock.ForceRelease(ctx)
}

// ForceReleaseDynamic clears a possibly stale dynamic-document lock at Init.
func (d *Documents) ForceReleaseDynamic(ctx context.Context) error {
	return d.dynamicLock.ForceRelease(ctx)
}

// ReadDynamic decodes the Dynamic document under its own lock.
func (d *Documents) ReadDynamic(ctx context.Context) (*types.DynamicDocument, error) {
	if err := d.dynamicLock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer d.dynamicLock.Release(ctx)

	raw, err := d.store.GetKey(ctx, DynamicConfigMapName, dynamicDataKey)
	if err != nil {
		return nil, err
	}
	doc := types.NewDynamicDocument()
	if err := yaml.Unmarshal([]byte(raw), doc); err != nil {
		return nil, rrserrors.NewCorrupt("decode dynamic document", err)
	}
	return doc, nil
}

// WriteDynamic encodes and writes back the whole Dynamic document under
// its own lock.
func (d *Documents) WriteDynamic(ctx context.Context, doc *types.DynamicDocument) error {
	if err := d.dynamicLock.Acquire(ctx); err != nil {
		return err
	}
	defer d.dynamicLock.Release(ctx)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return rrserrors.NewInternalFailure("encode dynamic document", err)
	}
	return d.store.Mutate(ctx, DynamicConfigMapName, func(data map[string]string) error {
		data[dynamicDataKey] = string(out)
		return nil
	})
}

// ReadStaticCriticalServices decodes the registry of critical services from
// the Static document.
func (d *Documents) ReadStaticCriticalServices(ctx context.Context) (map[string]types.CriticalServiceStatic, error) {
	if err := d.staticLock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer d.staticLock.Release(ctx)

	raw, err := d.store.GetKey(ctx, StaticConfigMapName, staticServicesKey)
	if err != nil {
		return nil, err
	}
	var cfg types.CriticalServiceConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, rrserrors.NewCorrupt("decode static critical service config", err)
	}
	return cfg.CriticalServices, nil
}

// ReadTimers decodes the monitoring timers from the Static document, falling
// back to types.DefaultTimers when the timers key is absent (GetKey reports
// that as Corrupt). A missing Static document is returned as an error.
func (d *Documents) ReadTimers(ctx context.Context) (types.Timers, error) {
	if err := d.staticLock.Acquire(ctx); err != nil {
		return types.Timers{}, err
	}
	defer d.staticLock.Release(ctx)

	raw, err := d.store.GetKey(ctx, StaticConfigMapName, staticTimersKey)
	if err != nil {
		if rrserrors.Is(err, rrserrors.ErrCorrupt) {
			return types.DefaultTimers(), nil
		}
		return types.Timers{}, err
	}

	var t types.Timers
	if err := yaml.Unmarshal([]byte(raw), &t); err != nil {
		return types.Timers{}, rrserrors.NewCorrupt("decode timers", err)
	}
	return t, nil
}

// PatchResult reports the outcome of an additive critical-services PATCH.
type PatchResult struct {
	Added           []string
	AlreadyExisting []string
}

// PatchCriticalServices additively merges additions into the Static
// document's critical-service registry: names already present are reported
// in AlreadyExisting and left untouched; new names are appended and
// last_updated_timestamp is refreshed. Applying the same payload twice is
// idempotent -- the second call reports every name as AlreadyExisting.
func (d *Documents) PatchCriticalServices(ctx context.Context, additions map[string]types.CriticalServiceStatic) (PatchResult, error) {
	if err := d.staticLock.Acquire(ctx); err != nil {
		return PatchResult{}, err
	}
	defer d.staticLock.Release(ctx)

	var result PatchResult
	err := d.store.Mutate(ctx, StaticConfigMapName, func(data map[string]string) error {
		var cfg types.CriticalServiceConfig
		if raw, ok := data[staticServicesKey]; ok {
			if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
				return rrserrors.NewCorrupt("decode static critical service config", err)
			}
		}
		if cfg.CriticalServices == nil {
			cfg.CriticalServices = map[string]types.CriticalServiceStatic{}
		}

		result = PatchResult{}
		for name, svc := range additions {
			if _, exists := cfg.CriticalServices[name]; exists {
				result.AlreadyExisting = append(result.AlreadyExisting, name)
				continue
			}
			cfg.CriticalServices[name] = svc
			result.Added = append(result.Added, name)
		}
		if len(result.Added) > 0 {
			cfg.LastUpdatedTimestamp = types.FormatTimestamp(time.Now())
		}

		out, err := json.Marshal(cfg)
		if err != nil {
			return rrserrors.NewInternalFailure("encode static critical service config", err)
		}
		data[staticServicesKey] = string(out)
		return nil
	})
	if err != nil {
		return PatchResult{}, err
	}
	return result, nil
}

// ReadDynamicCriticalServices decodes the Evaluator's last-computed service
// records from the Dynamic document.
func (d *Documents) ReadDynamicCriticalServices(ctx context.Context) (map[string]types.CriticalServiceDynamic, error) {
	if err := d.dynamicLock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer d.dynamicLock.Release(ctx)

	raw, err := d.store.GetKey(ctx, DynamicConfigMapName, dynamicServicesKey)
	if err != nil {
		if rrserrors.Is(err, rrserrors.ErrCorrupt) {
			return nil, nil
		}
		return nil, err
	}
	var cfg types.CriticalServiceDynamicConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, rrserrors.NewCorrupt("decode dynamic critical service config", err)
	}
	return cfg.CriticalServices, nil
}

// WriteDynamicCriticalServices writes back the Evaluator's computed
// records, but only if they actually differ from what's stored, avoiding a
// needless ConfigMap update (and the resulting watch/reconcile noise) on
// every tick where nothing changed.
func (d *Documents) WriteDynamicCriticalServices(ctx context.Context, services map[string]types.CriticalServiceDynamic) error {
	if err := d.dynamicLock.Acquire(ctx); err != nil {
		return err
	}
	defer d.dynamicLock.Release(ctx)

	out, err := json.Marshal(types.CriticalServiceDynamicConfig{CriticalServices: services})
	if err != nil {
		return rrserrors.NewInternalFailure("encode dynamic critical service config", err)
	}

	return d.store.Mutate(ctx, DynamicConfigMapName, func(data map[string]string) error {
		if data[dynamicServicesKey] == string(out) {
			return nil
		}
		data[dynamicServicesKey] = string(out)
		return nil
	})
}

// RefreshK8sZones re-lists node rack membership and writes it into the
// Dynamic document's k8s zone map, independent of the monitoring session's
// own periodic writes.
func (d *Documents) RefreshK8sZones(ctx context.Context) error {
	nodes, err := d.cluster.ListNodeRacks(ctx)
	if err != nil {
		return err
	}
	zones := map[string][]types.K8sZoneNode{}
	for _, n := range nodes {
		if n.Rack == "" {
			continue
		}
		zones[n.Rack] = append(zones[n.Rack], types.K8sZoneNode{Name: n.Name, Status: n.Status})
	}
	return d.WriteK8sZones(ctx, zones)
}

// mutateDynamic performs an atomic read-modify-write of the Dynamic
// document: the dynamic lock is held across the whole operation and fn
// edits the decoded document in place before it is re-encoded and written
// back in the same ConfigMap update. The k8s and ceph monitoring loops call
// into Documents concurrently (they run as independent goroutines), and an
// update must never observe a stale snapshot or silently clobber a sibling
// loop's already-persisted write -- update(doc,key,value) is atomic at the
// document level, not just at the single-field level.
func (d *Documents) mutateDynamic(ctx context.Context, fn func(doc *types.DynamicDocument) error) error {
	if err := d.dynamicLock.Acquire(ctx); err != nil {
		return err
	}
	defer d.dynamicLock.Release(ctx)

	return d.store.Mutate(ctx, DynamicConfigMapName, func(data map[string]string) error {
		doc := types.NewDynamicDocument()
		if raw, ok := data[dynamicDataKey]; ok {
			if err := yaml.Unmarshal([]byte(raw), doc); err != nil {
				return rrserrors.NewCorrupt("decode dynamic document", err)
			}
		}

		if err := fn(doc); err != nil {
			return err
		}

		out, err := yaml.Marshal(doc)
		if err != nil {
			return rrserrors.NewInternalFailure("encode dynamic document", err)
		}
		data[dynamicDataKey] = string(out)
		return nil
	})
}

// WriteK8sZones overwrites the Dynamic document's k8s zone map.
func (d *Documents) WriteK8sZones(ctx context.Context, zones map[string][]types.K8sZoneNode) error {
	return d.mutateDynamic(ctx, func(doc *types.DynamicDocument) error {
		doc.Zone.K8sZones = zones
		return nil
	})
}

// WriteCephZones overwrites the Dynamic document's ceph zone map.
func (d *Documents) WriteCephZones(ctx context.Context, zones map[string][]types.CephZoneNode) error {
	return d.mutateDynamic(ctx, func(doc *types.DynamicDocument) error {
		doc.Zone.CephZones = zones
		return nil
	})
}

// RecordTimestamp stamps key with the current time in the Dynamic document.
func (d *Documents) RecordTimestamp(ctx context.Context, key string) error {
	return d.mutateDynamic(ctx, func(doc *types.DynamicDocument) error {
		if doc.Timestamps == nil {
			doc.Timestamps = types.Timestamps{}
		}
		doc.Timestamps.Set(key)
		return nil
	})
}

// SetSubsystemState records a monitoring subsystem's lifecycle state.
func (d *Documents) SetSubsystemState(ctx context.Context, subsystem string, state types.SubsystemState) error {
	return d.mutateDynamic(ctx, func(doc *types.DynamicDocument) error {
		switch subsystem {
		case types.SubsystemK8s:
			doc.State.K8sMonitoring = state
		case types.SubsystemCeph:
			doc.State.CephMonitoring = state
		default:
			return rrserrors.NewBadRequest(fmt.Sprintf("unknown subsystem %q", subsystem), nil)
		}
		return nil
	})
}
