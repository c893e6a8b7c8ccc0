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
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/api/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
)

// rackNamePattern matches the xname shape RRS's rack label values take, e.g.
// "x3000c0".
var rackNamePattern = regexp.MustCompile(`^x\d+c\d+$`)

// ZonesRouter sets up GET /zones and GET /zones/{name}.
func ZonesRouter(docs Documents, cluster ClusterReader) http.Handler {
	routes := &zonesRoutes{docs: docs, cluster: cluster}
	r := chi.NewRouter()
	r.Get("/", apierrors.ErrorHandler(routes.list))
	r.Get("/{name}", apierrors.ErrorHandler(routes.detail))
	return r
}

type zonesRoutes struct {
	docs    Documents
	cluster ClusterReader
}

func (z *zonesRoutes) list(w http.ResponseWriter, r *http.Request) error {
	doc, err := z.docs.ReadDynamic(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, doc.Zone)
}

// zoneNodeDetail is one k8s node's role and readiness within a rack report.
type zoneNodeDetail struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// zoneStorageDetail is one storage node's readiness and OSDs, grouped by
// OSD state, within a rack report.
type zoneStorageDetail struct {
	Name        string              `json:"name"`
	Status      string              `json:"status"`
	OSDsByState map[string][]string `json:"osds_by_state"`
}

// zoneDetail is the full per-rack report served by GET /zones/{name}.
type zoneDetail struct {
	Name     string              `json:"name"`
	Masters  int                 `json:"masters"`
	Workers  int                 `json:"workers"`
	Storages int                 `json:"storages"`
	Nodes    []zoneNodeDetail    `json:"nodes"`
	Storage  []zoneStorageDetail `json:"storage"`
}

func (z *zonesRoutes) detail(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if !rackNamePattern.MatchString(name) {
		return rrserrors.NewBadRequest(fmt.Sprintf("invalid rack name %q", name), nil)
	}

	doc, err := z.docs.ReadDynamic(r.Context())
	if err != nil {
		return err
	}
	k8sNodes, k8sOK := doc.Zone.K8sZones[name]
	cephNodes, cephOK := doc.Zone.CephZones[name]
	if !k8sOK && !cephOK {
		return rrserrors.NewNotFound(fmt.Sprintf("rack %q not found", name), nil)
	}

	roles, err := z.cluster.NodeRoles(r.Context())
	if err != nil {
		return err
	}

	detail := zoneDetail{Name: name}
	for _, n := range k8sNodes {
		role := string(cluster.RoleWorker)
		if roles[n.Name] == cluster.RoleMaster {
			role = string(cluster.RoleMaster)
			detail.Masters++
		} else {
			detail.Workers++
		}
		detail.Nodes = append(detail.Nodes, zoneNodeDetail{Name: n.Name, Role: role, Status: string(n.Status)})
	}
	for _, n := range cephNodes {
		detail.Storages++
		osds := map[string][]string{}
		for _, o := range n.OSDs {
			osds[string(o.Status)] = append(osds[string(o.Status)], o.Name)
		}
		detail.Storage = append(detail.Storage, zoneStorageDetail{Name: n.Name, Status: string(n.Status), OSDsByState: osds})
	}

	return writeJSON(w, detail)
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return rrserrors.NewInternalFailure("encode response", err)
	}
	return nil
}
