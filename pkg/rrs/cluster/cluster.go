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

// Package cluster is RRS's read-only view of the management cluster: node
// rack membership, workload desired/ready counts dispatched by kind, and pod
// placement -- everything the Evaluator and the Monitor Coordinator need
// from the k8s API, gathered through one narrow interface so both can be
// driven by a fake clientset in tests.
package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"

	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// RackLabel is the node label RRS reads to learn a node's rack membership.
const RackLabel = "topology.cray-hpe.com/rack"

// Adapter is the cluster read-only facade used by the Evaluator, the Monitor
// Coordinator, and Init.
type Adapter struct {
	client kubernetes.Interface
}

// New returns an Adapter over client.
func New(client kubernetes.Interface) *Adapter {
	return &Adapter{client: client}
}

// NodeRack describes one node's rack membership and readiness, as reported
// by its Ready condition.
type NodeRack struct {
	Name   string
	Rack   string
	Status types.NodeStatus
}

// ListNodeRacks returns every node's rack label and readiness. A node
// without the rack label is reported with an empty Rack and still included,
// since the caller decides whether that counts as a configuration error.
func (a *Adapter) ListNodeRacks(ctx context.Context) ([]NodeRack, error) {
	nodes, err := a.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, rrserrors.NewTransient("list nodes", err)
	}

	out := make([]NodeRack, 0, len(nodes.Items))
	for _, n := range nodes.Items {
		out = append(out, NodeRack{
			Name:   n.Name,
			Rack:   n.Labels[RackLabel],
			Status: nodeReadiness(&n),
		})
	}
	return out, nil
}

// Well-known k8s labels marking a node as part of the control plane; a node
// carrying neither is treated as a worker.
const (
	labelControlPlane = "node-role.kubernetes.io/control-plane"
	labelMaster       = "node-role.kubernetes.io/master"
)

// NodeRole is a node's management-cluster role, used by the rack-detail
// report to split "masters" from "workers".
type NodeRole string

// Node roles.
const (
	RoleMaster NodeRole = "Master"
	RoleWorker NodeRole = "Worker"
)

// NodeRoles returns every node's management role, classified by the
// standard control-plane node labels.
func (a *Adapter) NodeRoles(ctx context.Context) (map[string]NodeRole, error) {
	nodes, err := a.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, rrserrors.NewTransient("list nodes", err)
	}

	out := make(map[string]NodeRole, len(nodes.Items))
	for _, n := range nodes.Items {
		if _, ok := n.Labels[labelControlPlane]; ok {
			out[n.Name] = RoleMaster
			continue
		}
		if _, ok := n.Labels[labelMaster]; ok {
			out[n.Name] = RoleMaster
			continue
		}
		out[n.Name] = RoleWorker
	}
	return out, nil
}

func nodeReadiness(n *corev1.Node) types.NodeStatus {
	for _, cond := range n.Status.Conditions {
		if cond.Type != corev1.NodeReady {
			continue
		}
		switch cond.Status {
		case corev1.ConditionTrue:
			return types.NodeReady
		case corev1.ConditionFalse:
			return types.NodeNotReady
		default:
			return types.NodeUnknown
		}
	}
	return types.NodeUnknown
}

// WorkloadReader is the capability-set every controller kind exposes to the
// Evaluator: desired/ready replica counts and the pod selector used to find
// its pods. One switch in Adapter.DesiredReady picks the right adapter by
// kind -- there is no type hierarchy, since the three kinds never need
// anything beyond this.
type WorkloadReader interface {
	DesiredReady(ctx context.Context, client kubernetes.Interface, namespace, name string) (desired, ready int32, selector map[string]string, err error)
}

type deploymentReader struct{}

func (deploymentReader) DesiredReady(ctx context.Context, client kubernetes.Interface, namespace, name string) (int32, int32, map[string]string, error) {
	d, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0, 0, nil, translateGetErr(err, "deployment", namespace, name)
	}
	desired := int32(1)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	return desired, d.Status.ReadyReplicas, d.Spec.Selector.MatchLabels, nil
}

type statefulSetReader struct{}

func (statefulSetReader) DesiredReady(ctx context.Context, client kubernetes.Interface, namespace, name string) (int32, int32, map[string]string, error) {
	ss, err := client.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0, 0, nil, translateGetErr(err, "statefulset", namespace, name)
	}
	desired := int32(1)
	if ss.Spec.Replicas != nil {
		desired = *ss.Spec.Replicas
	}
	return desired, ss.Status.ReadyReplicas, ss.Spec.Selector.MatchLabels, nil
}

type daemonSetReader struct{}

func (daemonSetReader) DesiredReady(ctx context.Context, client kubernetes.Interface, namespace, name string) (int32, int32, map[string]string, error) {
	ds, err := client.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0, 0, nil, translateGetErr(err, "daemonset", namespace, name)
	}
	return ds.Status.DesiredNumberScheduled, ds.Status.NumberReady, ds.Spec.Selector.MatchLabels, nil
}

func translateGetErr(err error, kind, namespace, name string) error {
	return rrserrors.NewTransient(fmt.Sprintf("get %s %s/%s", kind, namespace, name), err)
}

func readerFor(kind types.WorkloadKind) (WorkloadReader, error) {
	switch kind {
	case types.KindDeployment:
		return deploymentReader{}, nil
	case types.KindStatefulSet:
		return statefulSetReader{}, nil
	case types.KindDaemonSet:
		return daemonSetReader{}, nil
	default:
		return nil, rrserrors.NewBadRequest(fmt.Sprintf("unsupported workload kind %q", kind), nil)
	}
}

// DesiredReady returns the desired/ready replica counts and the pod selector
// for the workload of the given kind, dispatching to the right reader.
func (a *Adapter) DesiredReady(ctx context.Context, kind types.WorkloadKind, namespace, name string) (desired, ready int32, selector map[string]string, err error) {
	r, err := readerFor(kind)
	if err != nil {
		return 0, 0, nil, err
	}
	return r.DesiredReady(ctx, a.client, namespace, name)
}

// PodRack is a pod's name and the rack of the node it is scheduled on.
type PodRack struct {
	Name string
	Node string
	Rack string
}

// PodsBySelector returns every pod in namespace matching selector, along
// with the rack of the node each is scheduled on (looked up from nodeRacks,
// pre-fetched by the caller to avoid refetching all nodes per service).
func (a *Adapter) PodsBySelector(ctx context.Context, namespace string, selector map[string]string, nodeRacks map[string]string) ([]PodRack, error) {
	pods, err := a.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labels.SelectorFromSet(selector).String(),
	})
	if err != nil {
		return nil, rrserrors.NewTransient(fmt.Sprintf("list pods in %s", namespace), err)
	}

	out := make([]PodRack, 0, len(pods.Items))
	for _, p := range pods.Items {
		out = append(out, PodRack{
			Name: p.Name,
			Node: p.Spec.NodeName,
			Rack: nodeRacks[p.Spec.NodeName],
		})
	}
	return out, nil
}

// SelfPlacement locates the RMS pod's own node and rack, given its own
// node name (read from the Downward API by the caller).
func (a *Adapter) SelfPlacement(ctx context.Context, nodeName string) (types.PodPlacement, error) {
	node, err := a.client.CoreV1().Nodes().Get(ctx, nodeName, metav1.GetOptions{})
	if err != nil {
		return types.PodPlacement{}, rrserrors.NewTransient(fmt.Sprintf("get node %s", nodeName), err)
	}
	return types.PodPlacement{
		Node: nodeName,
		Rack: node.Labels[RackLabel],
	}, nil
}
