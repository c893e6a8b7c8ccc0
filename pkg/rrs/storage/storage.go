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

// Package storage is the ceph-health half of the cluster view: an Inspector
// interface the monitor and Init code against, and a concrete implementation
// that shells out to the storage control tool (no ecosystem client speaks
// Cray's storage-health wire protocol, so this is the one component in RRS
// that wraps exec.Command instead of an imported SDK).
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// Inspector reports ceph rack health, keeping monitor/initproc independent
// of how that report is actually gathered.
type Inspector interface {
	// RackTree returns every ceph zone's node and OSD status.
	RackTree(ctx context.Context) (map[string][]types.CephZoneNode, error)
}

// Tool is the concrete Inspector backed by the storage control binary.
type Tool struct {
	binary string
}

// NewTool returns a Tool invoking binary (config.DefaultStorageToolPath,
// "/usr/bin/ceph-rack-report", unless configured otherwise).
func NewTool(binary string) *Tool {
	return &Tool{binary: binary}
}

// treeOutput mirrors the JSON the storage control tool prints on stdout.
type treeOutput struct {
	Racks map[string][]struct {
		Name   string `json:"name"`
		Status string `json:"status"`
		OSDs   []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"osds"`
	} `json:"racks"`
}

// RackTree shells out to the storage tool and parses its JSON rack report.
func (t *Tool) RackTree(ctx context.Context) (map[string][]types.CephZoneNode, error) {
	cmd := exec.CommandContext(ctx, t.binary, "rack-tree", "--format", "json")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, rrserrors.NewTransient("run storage control tool: "+stderr.String(), err)
	}

	var out treeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, rrserrors.NewCorrupt("decode storage control tool output", err)
	}

	racks := make(map[string][]types.CephZoneNode, len(out.Racks))
	for rack, nodes := range out.Racks {
		zoneNodes := make([]types.CephZoneNode, 0, len(nodes))
		for _, n := range nodes {
			osds := make([]types.OSD, 0, len(n.OSDs))
			for _, o := range n.OSDs {
				osds = append(osds, types.OSD{Name: o.Name, Status: toOSDStatus(o.Status)})
			}
			zoneNodes = append(zoneNodes, types.CephZoneNode{
				Name:   n.Name,
				Status: toCephNodeStatus(n.Status),
				OSDs:   osds,
			})
		}
		racks[rack] = zoneNodes
	}
	return racks, nil
}

func toCephNodeStatus(s string) types.CephNodeStatus {
	if s == string(types.CephNodeReady) {
		return types.CephNodeReady
	}
	return types.CephNodeNotReady
}

func toOSDStatus(s string) types.OSDStatus {
	switch types.OSDStatus(s) {
	case types.OSDUp:
		return types.OSDUp
	case types.OSDDown:
		return types.OSDDown
	default:
		return types.OSDUnknown
	}
}

// Healthy reports whether every storage node in tree is Ready and every OSD
// is up, the verdict the ceph monitoring loop uses each tick to stop early.
func Healthy(tree map[string][]types.CephZoneNode) bool {
	for _, nodes := range tree {
		for _, n := range nodes {
			if n.Status != types.CephNodeReady {
				return false
			}
			for _, o := range n.OSDs {
				if o.Status != types.OSDUp {
					return false
				}
			}
		}
	}
	return true
}
