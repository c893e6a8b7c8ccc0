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

package api

import (
	"context"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/docstore"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// Documents is the subset of docstore.Documents the read API needs: zone and
// critical-service reads, and the additive registry PATCH.
type Documents interface {
	TimestampRecorder
	ReadDynamic(ctx context.Context) (*types.DynamicDocument, error)
	ReadStaticCriticalServices(ctx context.Context) (map[string]types.CriticalServiceStatic, error)
	ReadDynamicCriticalServices(ctx context.Context) (map[string]types.CriticalServiceDynamic, error)
	PatchCriticalServices(ctx context.Context, additions map[string]types.CriticalServiceStatic) (docstore.PatchResult, error)
}

// ClusterReader is the subset of cluster.Adapter the zone-detail and
// service-detail routes need for a live, request-time view of the cluster
// (role classification and per-pod placement aren't cached in the Dynamic
// document, so these routes query the cluster directly).
type ClusterReader interface {
	NodeRoles(ctx context.Context) (map[string]cluster.NodeRole, error)
	DesiredReady(ctx context.Context, kind types.WorkloadKind, namespace, name string) (desired, ready int32, selector map[string]string, err error)
	PodsBySelector(ctx context.Context, namespace string, selector map[string]string, nodeRacks map[string]string) ([]cluster.PodRack, error)
	ListNodeRacks(ctx context.Context) ([]cluster.NodeRack, error)
}
