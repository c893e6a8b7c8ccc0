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

// Package evaluator computes each registered critical service's readiness
// and rack-balance; callers write the result back into the Dynamic document.
package evaluator

import (
	"context"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// ClusterReader is the subset of cluster.Adapter the Evaluator needs.
type ClusterReader interface {
	DesiredReady(ctx context.Context, kind types.WorkloadKind, namespace, name string) (desired, ready int32, selector map[string]string, err error)
	PodsBySelector(ctx context.Context, namespace string, selector map[string]string, nodeRacks map[string]string) ([]cluster.PodRack, error)
}

// Evaluator computes Configured/PartiallyConfigured/Unconfigured status and
// rack balance for every registered critical service.
type Evaluator struct {
	cluster   ClusterReader
	nodeRacks func(ctx context.Context) (map[string]string, error)
}

// New returns an Evaluator that resolves node-to-rack membership via
// nodeRacks each run, since rack membership can change between evaluations.
func New(cluster ClusterReader, nodeRacks func(ctx context.Context) (map[string]string, error)) *Evaluator {
	return &Evaluator{cluster: cluster, nodeRacks: nodeRacks}
}

// Evaluate computes the Dynamic record for every service in static, merging
// any names already present in previous (so a service that temporarily
// fails to evaluate keeps its last known record instead of disappearing).
func (e *Evaluator) Evaluate(ctx context.Context, static map[string]types.CriticalServiceStatic, previous map[string]types.CriticalServiceDynamic) map[string]types.CriticalServiceDynamic {
	nodeRacks, err := e.nodeRacks(ctx)
	if err != nil {
		logger.Warnw("evaluator: failed to resolve node racks, evaluation skipped", "error", err)
		return previous
	}

	out := make(map[string]types.CriticalServiceDynamic, len(static))
	for name, svc := range static {
		rec, err := e.evaluateOne(ctx, name, svc, nodeRacks)
		if err != nil {
			logger.Warnw("evaluator: service evaluation failed, keeping previous record", "service", name, "error", err)
			if prev, ok := previous[name]; ok {
				out[name] = prev
				continue
			}
			rec = types.CriticalServiceDynamic{Namespace: svc.Namespace, Type: svc.Type, Status: types.ServiceUnconfigured, Balanced: types.BalancedNA}
		}
		out[name] = rec
	}
	return out
}

func (e *Evaluator) evaluateOne(ctx context.Context, name string, svc types.CriticalServiceStatic, nodeRacks map[string]string) (types.CriticalServiceDynamic, error) {
	desired, ready, selector, err := e.cluster.DesiredReady(ctx, svc.Type, svc.Namespace, name)
	if err != nil {
		return types.CriticalServiceDynamic{}, err
	}

	status := statusFor(desired, ready)

	pods, err := e.cluster.PodsBySelector(ctx, svc.Namespace, selector, nodeRacks)
	if err != nil {
		return types.CriticalServiceDynamic{}, err
	}

	return types.CriticalServiceDynamic{
		Namespace: svc.Namespace,
		Type:      svc.Type,
		Status:    status,
		Balanced:  balanceOf(pods),
	}, nil
}

func statusFor(desired, ready int32) types.ServiceStatus {
	switch {
	case desired == 0:
		return types.ServiceUnconfigured
	case ready >= desired:
		return types.ServiceConfigured
	case ready > 0:
		return types.ServicePartiallyConfigured
	default:
		return types.ServiceUnconfigured
	}
}

// balanceOf computes the rack-balance verdict: "true" if the spread between
// the busiest and quietest non-empty rack is at most one pod, "false"
// otherwise, "NA" if no pod matched a rack at all.
func balanceOf(pods []cluster.PodRack) types.Balanced {
	counts := map[string]int{}
	for _, p := range pods {
		if p.Rack == "" {
			continue
		}
		counts[p.Rack]++
	}
	if len(counts) == 0 {
		return types.BalancedNA
	}

	min, max := -1, -1
	for _, c := range counts {
		if min == -1 || c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	if max-min <= 1 {
		return types.BalancedTrue
	}
	return types.BalancedFalse
}
