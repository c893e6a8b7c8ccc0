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

// fakeDocuments is an in-memory double for the Documents interface, letting
// each route test set up exactly the state it needs without a real
// docstore.Store/fake clientset.
type fakeDocuments struct {
	dynamic        *types.DynamicDocument
	static         map[string]types.CriticalServiceStatic
	dynamicStatus  map[string]types.CriticalServiceDynamic
	patchResult    docstore.PatchResult
	patchErr       error
	recordedKeys   []string
	readDynamicErr error
}

func (f *fakeDocuments) RecordTimestamp(_ context.Context, key string) error {
	f.recordedKeys = append(f.recordedKeys, key)
	return nil
}

func (f *fakeDocuments) ReadDynamic(context.Context) (*types.DynamicDocument, error) {
	if f.readDynamicErr != nil {
		return nil, f.readDynamicErr
	}
	if f.dynamic == nil {
		return types.NewDynamicDocument(), nil
	}
	return f.dynamic, nil
}

func (f *fakeDocuments) ReadStaticCriticalServices(context.Context) (map[string]types.CriticalServiceStatic, error) {
	return f.static, nil
}

func (f *fakeDocuments) ReadDynamicCriticalServices(context.Context) (map[string]types.CriticalServiceDynamic, error) {
	return f.dynamicStatus, nil
}

func (f *fakeDocuments) PatchCriticalServices(_ context.Context, additions map[string]types.CriticalServiceStatic) (docstore.PatchResult, error) {
	if f.patchErr != nil {
		return docstore.PatchResult{}, f.patchErr
	}
	_ = additions
	return f.patchResult, nil
}

// fakeCluster is an in-memory double for ClusterReader.
type fakeCluster struct {
	roles     map[string]cluster.NodeRole
	nodeRacks []cluster.NodeRack
	selector  map[string]string
	pods      []cluster.PodRack
	desired   int32
	ready     int32
	desiredErr error
}

func (f *fakeCluster) NodeRoles(context.Context) (map[string]cluster.NodeRole, error) {
	return f.roles, nil
}

func (f *fakeCluster) DesiredReady(context.Context, types.WorkloadKind, string, string) (int32, int32, map[string]string, error) {
	if f.desiredErr != nil {
		return 0, 0, nil, f.desiredErr
	}
	return f.desired, f.ready, f.selector, nil
}

func (f *fakeCluster) PodsBySelector(context.Context, string, map[string]string, map[string]string) ([]cluster.PodRack, error) {
	return f.pods, nil
}

func (f *fakeCluster) ListNodeRacks(context.Context) ([]cluster.NodeRack, error) {
	return f.nodeRacks, nil
}

// fakeState is an in-memory double for StateTracker.
type fakeState struct {
	state types.RMSState
}

func (f *fakeState) State() types.RMSState { return f.state }
