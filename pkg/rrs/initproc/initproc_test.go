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

package initproc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/hsm"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/statemgr"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

type fakeDocuments struct {
	dynamic      *types.DynamicDocument
	missing      bool
	services     map[string]types.CriticalServiceStatic
	timers       types.Timers
	timersErr    error
	writeCount   int
}

func (f *fakeDocuments) ReadDynamic(_ context.Context) (*types.DynamicDocument, error) {
	if f.missing {
		return nil, rrserrors.NewConfigMissing("not found", nil)
	}
	return f.dynamic, nil
}

func (f *fakeDocuments) WriteDynamic(_ context.Context, doc *types.DynamicDocument) error {
	f.writeCount++
	f.dynamic = doc
	return nil
}

func (f *fakeDocuments) ReadStaticCriticalServices(_ context.Context) (map[string]types.CriticalServiceStatic, error) {
	return f.services, nil
}

func (f *fakeDocuments) ReadTimers(_ context.Context) (types.Timers, error) {
	return f.timers, f.timersErr
}

type fakeLocks struct {
	staticCalled, dynamicCalled bool
}

func (f *fakeLocks) ForceReleaseStatic(_ context.Context) error {
	f.staticCalled = true
	return nil
}

func (f *fakeLocks) ForceReleaseDynamic(_ context.Context) error {
	f.dynamicCalled = true
	return nil
}

type fakeStorage struct{}

func (fakeStorage) RackTree(_ context.Context) (map[string][]types.CephZoneNode, error) {
	return map[string][]types.CephZoneNode{"x3000c0": {{Name: "s1", Status: types.CephNodeReady}}}, nil
}

type fakeHSM struct {
	siblings map[string][]hsm.Sibling
	calls    int
}

func (f *fakeHSM) SiblingsInRack(_ context.Context, rack string) ([]hsm.Sibling, error) {
	f.calls++
	return f.siblings[rack], nil
}

func newTestNode(name, rack string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: map[string]string{cluster.RackLabel: rack}},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{{Type: corev1.NodeReady, Status: corev1.ConditionTrue}},
		},
	}
}

func TestInit_Run_HappyPath(t *testing.T) {
	t.Parallel()
	cs := fake.NewSimpleClientset(newTestNode("n1", "x3000c0"))
	ca := cluster.New(cs)

	docs := &fakeDocuments{
		dynamic:  types.NewDynamicDocument(),
		services: map[string]types.CriticalServiceStatic{"svc-a": {Namespace: "ns", Type: types.KindDeployment}},
		timers:   types.DefaultTimers(),
	}
	locks := &fakeLocks{}
	state := statemgr.New()

	init := New(docs, locks, ca, fakeStorage{}, state, &fakeHSM{}, "n1")
	err := init.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, locks.staticCalled)
	assert.True(t, locks.dynamicCalled)
	assert.Equal(t, types.StateReady, state.State())
	assert.Contains(t, docs.dynamic.Zone.K8sZones, "x3000c0")
	assert.Equal(t, "n1", docs.dynamic.RRSPod.Node)
}

func TestInit_Run_FailsWithoutCriticalServices(t *testing.T) {
	t.Parallel()
	cs := fake.NewSimpleClientset(newTestNode("n1", "x3000c0"))
	ca := cluster.New(cs)

	docs := &fakeDocuments{
		dynamic:  types.NewDynamicDocument(),
		services: map[string]types.CriticalServiceStatic{},
	}
	state := statemgr.New()

	init := New(docs, &fakeLocks{}, ca, fakeStorage{}, state, &fakeHSM{}, "n1")
	err := init.Run(context.Background())
	require.Error(t, err)
	assert.NotEqual(t, types.StateReady, state.State())
}

func TestInit_Run_WarnsOnMonitoringResume(t *testing.T) {
	t.Parallel()
	cs := fake.NewSimpleClientset(newTestNode("n1", "x3000c0"))
	ca := cluster.New(cs)

	doc := types.NewDynamicDocument()
	doc.State.RMSState = types.StateMonitoring
	docs := &fakeDocuments{
		dynamic:  doc,
		services: map[string]types.CriticalServiceStatic{"svc-a": {Namespace: "ns", Type: types.KindDeployment}},
		timers:   types.DefaultTimers(),
	}
	state := statemgr.New()

	init := New(docs, &fakeLocks{}, ca, fakeStorage{}, state, &fakeHSM{}, "n1")
	err := init.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StateReady, state.State())
}

func TestInit_Run_PostMortemLookupRunsForAnyNonEmptyPriorState(t *testing.T) {
	t.Parallel()
	cs := fake.NewSimpleClientset(newTestNode("n1", "x3000c0"))
	ca := cluster.New(cs)

	// FailNotified, not Monitoring -- the post-mortem lookup must still run.
	doc := types.NewDynamicDocument()
	doc.State.RMSState = types.StateFailNotified
	doc.RRSPod = types.PodPlacement{Node: "n0", Rack: "x3000c0", Zone: "x3000c0"}
	docs := &fakeDocuments{
		dynamic:  doc,
		services: map[string]types.CriticalServiceStatic{"svc-a": {Namespace: "ns", Type: types.KindDeployment}},
		timers:   types.DefaultTimers(),
	}
	state := statemgr.New()
	hsmFake := &fakeHSM{siblings: map[string][]hsm.Sibling{
		"x3000c0": {{ID: "n0", State: "Off"}},
	}}

	init := New(docs, &fakeLocks{}, ca, fakeStorage{}, state, hsmFake, "n1")
	err := init.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, hsmFake.calls)
}

func TestInit_WaitForDocument_TimesOut(t *testing.T) {
	t.Parallel()
	docs := &fakeDocuments{missing: true}
	init := &Init{docs: docs}

	err := init.WaitForDocument(context.Background(), 50_000_000) // 50ms
	require.Error(t, err)
	assert.True(t, rrserrors.Is(err, rrserrors.ErrConfigMissing))
}
