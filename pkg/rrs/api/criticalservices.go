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

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/api/errors"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// CriticalServicesRouter sets up the static-registry reads, the additive
// PATCH, and the dynamic (evaluated) views.
func CriticalServicesRouter(docs Documents, cluster ClusterReader) http.Handler {
	routes := &criticalServiceRoutes{docs: docs, cluster: cluster}
	r := chi.NewRouter()
	r.Get("/", apierrors.ErrorHandler(routes.listStatic))
	r.Get("/{name}", apierrors.ErrorHandler(routes.getStatic))
	r.Patch("/", apierrors.ErrorHandler(routes.patch))
	r.Get("/status", apierrors.ErrorHandler(routes.listStatus))
	r.Get("/status/{name}", apierrors.ErrorHandler(routes.getStatus))
	return r
}

type criticalServiceRoutes struct {
	docs    Documents
	cluster ClusterReader
}

func (c *criticalServiceRoutes) listStatic(w http.ResponseWriter, r *http.Request) error {
	services, err := c.docs.ReadStaticCriticalServices(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, services)
}

func (c *criticalServiceRoutes) getStatic(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	services, err := c.docs.ReadStaticCriticalServices(r.Context())
	if err != nil {
		return err
	}
	svc, ok := services[name]
	if !ok {
		return rrserrors.NewNotFound(fmt.Sprintf("critical service %q not found", name), nil)
	}
	return writeJSON(w, svc)
}

// patchRequest is the PATCH /criticalservices body: an additive map of
// name to static registry fields.
type patchRequest struct {
	CriticalServices map[string]types.CriticalServiceStatic `json:"critical_services"`
}

// patchResponse reports the outcome using the field names the bulk PATCH
// contract names explicitly.
type patchResponse struct {
	Update                  string   `json:"Update"`
	Added                   []string `json:"Added"`
	AlreadyExistingServices []string `json:"Already_Existing_Services"`
}

const (
	updateSuccessful        = "Successful"
	updateAlreadyRegistered = "Services Already Exist"
)

func (c *criticalServiceRoutes) patch(w http.ResponseWriter, r *http.Request) error {
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return rrserrors.NewBadRequest("invalid critical services payload", err)
	}
	if len(req.CriticalServices) == 0 {
		return rrserrors.NewBadRequest("critical_services must not be empty", nil)
	}

	result, err := c.docs.PatchCriticalServices(r.Context(), req.CriticalServices)
	if err != nil {
		return err
	}

	resp := patchResponse{
		Added:                   result.Added,
		AlreadyExistingServices: result.AlreadyExisting,
	}
	if len(result.Added) > 0 {
		resp.Update = updateSuccessful
	} else {
		resp.Update = updateAlreadyRegistered
	}
	return writeJSON(w, resp)
}

func (c *criticalServiceRoutes) listStatus(w http.ResponseWriter, r *http.Request) error {
	services, err := c.docs.ReadDynamicCriticalServices(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, services)
}

// podPlacement is one pod's scheduled node and rack, returned alongside a
// service's evaluated status when describing it individually.
type podPlacement struct {
	Name string `json:"name"`
	Node string `json:"node"`
	Rack string `json:"rack"`
}

type serviceStatusDetail struct {
	types.CriticalServiceDynamic
	Pods []podPlacement `json:"pods"`
}

func (c *criticalServiceRoutes) getStatus(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	statuses, err := c.docs.ReadDynamicCriticalServices(ctx)
	if err != nil {
		return err
	}
	status, ok := statuses[name]
	if !ok {
		return rrserrors.NewNotFound(fmt.Sprintf("critical service %q not found", name), nil)
	}

	_, _, selector, err := c.cluster.DesiredReady(ctx, status.Type, status.Namespace, name)
	if err != nil {
		return writeJSON(w, serviceStatusDetail{CriticalServiceDynamic: status})
	}

	nodes, err := c.cluster.ListNodeRacks(ctx)
	if err != nil {
		return err
	}
	nodeRacks := make(map[string]string, len(nodes))
	for _, n := range nodes {
		nodeRacks[n.Name] = n.Rack
	}

	pods, err := c.cluster.PodsBySelector(ctx, status.Namespace, selector, nodeRacks)
	if err != nil {
		return err
	}

	detail := serviceStatusDetail{CriticalServiceDynamic: status}
	for _, p := range pods {
		detail.Pods = append(detail.Pods, podPlacement{Name: p.Name, Node: p.Node, Rack: p.Rack})
	}
	return writeJSON(w, detail)
}
