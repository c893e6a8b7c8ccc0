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

// Package types holds the data model shared by every RRS component: the
// persisted Dynamic/Static document shapes, the RMS state machine values,
// and the critical-service registry records.
package types

import "time"

// RMSState is the top-level lifecycle state of the RMS process.
type RMSState string

// RMS states, in roughly the order a healthy process moves through them.
const (
	StateInit             RMSState = "Init"
	StateInitFail         RMSState = "InitFail"
	StateReady            RMSState = "Ready"
	StateWaiting          RMSState = "Waiting"
	StateStarted          RMSState = "Started"
	StateFailNotified     RMSState = "FailNotified"
	StateMonitoring       RMSState = "Monitoring"
	StateInternalFailure  RMSState = "InternalFailure"
)

// SubsystemState tracks one monitoring loop's lifecycle.
type SubsystemState string

// Subsystem states. The zero value ("") means the loop has never run.
const (
	SubsystemNeverRun  SubsystemState = ""
	SubsystemStarted   SubsystemState = "Started"
	SubsystemCompleted SubsystemState = "Completed"
)

// Subsystem names, used as both log fields and timestamp-key components.
const (
	SubsystemK8s  = "k8s_monitoring"
	SubsystemCeph = "ceph_monitoring"
)

// Well-known timestamp keys recorded in the Dynamic document.
const (
	TimestampInit                 = "init_timestamp"
	TimestampAPIStart             = "start_timestamp_api"
	TimestampRMSStart             = "start_timestamp_rms"
	TimestampK8sMonitoringStart   = "start_timestamp_k8s_monitoring"
	TimestampK8sMonitoringEnd     = "end_timestamp_k8s_monitoring"
	TimestampCephMonitoringStart  = "start_timestamp_ceph_monitoring"
	TimestampCephMonitoringEnd    = "end_timestamp_ceph_monitoring"
)

// Timestamps is an append/overwrite map of well-known keys to RFC3339-UTC
// strings with a "Z" suffix.
type Timestamps map[string]string

// Set records now (UTC, RFC3339, "Z" suffix) under key.
func (t Timestamps) Set(key string) {
	t[key] = FormatTimestamp(time.Now())
}

// FormatTimestamp renders tm the way every timestamp key in the Dynamic
// document is rendered: RFC3339 in UTC with a literal "Z" suffix.
func FormatTimestamp(tm time.Time) string {
	return tm.UTC().Format("2006-01-02T15:04:05Z")
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// NodeStatus is a k8s node's readiness as tracked in the RackMap.
type NodeStatus string

// Node statuses for the k8s portion of the RackMap.
const (
	NodeReady    NodeStatus = "Ready"
	NodeNotReady NodeStatus = "NotReady"
	NodeUnknown  NodeStatus = "Unknown"
)

// CephNodeStatus is a storage node's readiness as tracked in the RackMap.
type CephNodeStatus string

// Node statuses for the ceph portion of the RackMap.
const (
	CephNodeReady    CephNodeStatus = "Ready"
	CephNodeNotReady CephNodeStatus = "NotReady"
)

// OSDStatus is an individual storage daemon's reported state.
type OSDStatus string

// OSD statuses.
const (
	OSDUp      OSDStatus = "up"
	OSDDown    OSDStatus = "down"
	OSDUnknown OSDStatus = "unknown"
)

// K8sZoneNode is one node entry in a k8s rack bucket.
type K8sZoneNode struct {
	Name   string     `json:"name" yaml:"name"`
	Status NodeStatus `json:"status" yaml:"status"`
}

// OSD is one storage daemon instance on a ceph zone node.
type OSD struct {
	Name   string    `json:"name" yaml:"name"`
	Status OSDStatus `json:"status" yaml:"status"`
}

// CephZoneNode is one storage node entry in a ceph rack bucket.
type CephZoneNode struct {
	Name   string         `json:"name" yaml:"name"`
	Status CephNodeStatus `json:"status" yaml:"status"`
	OSDs   []OSD          `json:"osds" yaml:"osds"`
}

// RackMap is the rack→nodes view of the cluster, split into the k8s and
// ceph portions maintained independently by Init, the Main Loop, and the
// storage monitor.
type RackMap struct {
	K8sZones  map[string][]K8sZoneNode  `json:"k8s_zones" yaml:"k8s_zones"`
	CephZones map[string][]CephZoneNode `json:"ceph_zones" yaml:"ceph_zones"`
}

// NewRackMap returns an empty, ready-to-populate RackMap.
func NewRackMap() RackMap {
	return RackMap{
		K8sZones:  map[string][]K8sZoneNode{},
		CephZones: map[string][]CephZoneNode{},
	}
}

// PodPlacement records where this RMS process itself is running.
type PodPlacement struct {
	Node string `json:"node" yaml:"node"`
	Zone string `json:"zone" yaml:"zone"`
	Rack string `json:"rack" yaml:"rack"`
}

// WorkloadKind is the controller kind backing a critical service.
type WorkloadKind string

// Supported workload kinds.
const (
	KindDeployment  WorkloadKind = "Deployment"
	KindStatefulSet WorkloadKind = "StatefulSet"
	KindDaemonSet   WorkloadKind = "DaemonSet"
)

// ServiceStatus is a critical service's computed readiness.
type ServiceStatus string

// Service statuses.
const (
	ServiceConfigured           ServiceStatus = "Configured"
	ServicePartiallyConfigured  ServiceStatus = "PartiallyConfigured"
	ServiceUnconfigured         ServiceStatus = "Unconfigured"
)

// Balanced is a critical service's computed rack-balance verdict. It is a
// string type (not bool) because "NA" is a valid third value.
type Balanced string

// Balance verdicts.
const (
	BalancedTrue    Balanced = "true"
	BalancedFalse   Balanced = "false"
	BalancedNA      Balanced = "NA"
)

// CriticalServiceStatic is the operator-authored registry entry for one
// critical service.
type CriticalServiceStatic struct {
	Namespace string       `json:"namespace"`
	Type      WorkloadKind `json:"type"`
}

// CriticalServiceConfig is the outer shape of critical-service-config.json,
// shared (with extra fields) by both the Static and Dynamic documents.
type CriticalServiceConfig struct {
	CriticalServices     map[string]CriticalServiceStatic `json:"critical_services"`
	LastUpdatedTimestamp string                            `json:"last_updated_timestamp,omitempty"`
}

// CriticalServiceDynamic is the Evaluator's computed record for one service,
// written back under the same name in the Dynamic document.
type CriticalServiceDynamic struct {
	Namespace string        `json:"namespace"`
	Type      WorkloadKind  `json:"type"`
	Status    ServiceStatus `json:"status"`
	Balanced  Balanced      `json:"balanced"`
}

// CriticalServiceDynamicConfig is the outer shape of the Dynamic document's
// critical-service-config.json key.
type CriticalServiceDynamicConfig struct {
	CriticalServices  map[string]CriticalServiceDynamic `json:"critical_services"`
	LastUpdatedTimestamp string                          `json:"last_updated_timestamp,omitempty"`
}

// Timers holds the six monitoring tunables read from the Static document,
// in seconds.
type Timers struct {
	K8sPreMonitoringDelay        int
	K8sMonitoringPollingInterval int
	K8sMonitoringTotalTime       int
	CephPreMonitoringDelay        int
	CephMonitoringPollingInterval int
	CephMonitoringTotalTime       int
}

// DefaultTimers returns the documented defaults (40/60/600 k8s,
// 60/60/600 ceph, all seconds).
func DefaultTimers() Timers {
	return Timers{
		K8sPreMonitoringDelay:         40,
		K8sMonitoringPollingInterval:  60,
		K8sMonitoringTotalTime:        600,
		CephPreMonitoringDelay:        60,
		CephMonitoringPollingInterval: 60,
		CephMonitoringTotalTime:       600,
	}
}

// DynamicState is the "state" section of dynamic-data.yaml.
type DynamicState struct {
	RMSState        RMSState       `yaml:"rms_state"`
	K8sMonitoring    SubsystemState `yaml:"k8s_monitoring"`
	CephMonitoring   SubsystemState `yaml:"ceph_monitoring"`
}

// DynamicDocument is the strongly-typed decode of dynamic-data.yaml: state,
// timestamps, zone (RackMap), and the RMS pod's own placement.
type DynamicDocument struct {
	State      DynamicState `yaml:"state"`
	Timestamps Timestamps   `yaml:"timestamps"`
	Zone       RackMap      `yaml:"zone"`
	RRSPod     PodPlacement `yaml:"cray_rrs_pod"`
}

// NewDynamicDocument returns a DynamicDocument with all maps initialized.
func NewDynamicDocument() *DynamicDocument {
	return &DynamicDocument{
		Timestamps: Timestamps{},
		Zone:       NewRackMap(),
	}
}
