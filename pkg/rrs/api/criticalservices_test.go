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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/docstore"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

func TestCriticalServices_ListStatic(t *testing.T) {
	t.Parallel()
	docs := &fakeDocuments{static: map[string]types.CriticalServiceStatic{
		"coredns": {Namespace: "kube-system", Type: types.KindDeployment},
	}}
	r := CriticalServicesRouter(docs, &fakeCluster{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coredns")
}

func TestCriticalServices_GetStatic_NotFound(t *testing.T) {
	t.Parallel()
	docs := &fakeDocuments{static: map[string]types.CriticalServiceStatic{}}
	r := CriticalServicesRouter(docs, &fakeCluster{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCriticalServices_Patch_AddsNew(t *testing.T) {
	t.Parallel()
	docs := &fakeDocuments{patchResult: docstore.PatchResult{Added: []string{"B"}, AlreadyExisting: []string{"A"}}}
	r := CriticalServicesRouter(docs, &fakeCluster{})

	body, _ := json.Marshal(patchRequest{CriticalServices: map[string]types.CriticalServiceStatic{
		"A": {Namespace: "ns", Type: types.KindDeployment},
		"B": {Namespace: "ns", Type: types.KindStatefulSet},
	}})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp patchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, updateSuccessful, resp.Update)
	assert.Equal(t, []string{"B"}, resp.Added)
	assert.Equal(t, []string{"A"}, resp.AlreadyExistingServices)
}

func TestCriticalServices_Patch_AllAlreadyExist(t *testing.T) {
	t.Parallel()
	docs := &fakeDocuments{patchResult: docstore.PatchResult{AlreadyExisting: []string{"A", "B"}}}
	r := CriticalServicesRouter(docs, &fakeCluster{})

	body, _ := json.Marshal(patchRequest{CriticalServices: map[string]types.CriticalServiceStatic{
		"A": {Namespace: "ns", Type: types.KindDeployment},
	}})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp patchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, updateAlreadyRegistered, resp.Update)
	assert.Empty(t, resp.Added)
}

func TestCriticalServices_Patch_EmptyBody(t *testing.T) {
	t.Parallel()
	r := CriticalServicesRouter(&fakeDocuments{}, &fakeCluster{})

	body, _ := json.Marshal(patchRequest{CriticalServices: map[string]types.CriticalServiceStatic{}})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCriticalServices_GetStatus_IncludesPods(t *testing.T) {
	t.Parallel()
	docs := &fakeDocuments{dynamicStatus: map[string]types.CriticalServiceDynamic{
		"coredns": {Namespace: "kube-system", Type: types.KindDeployment, Status: types.ServiceConfigured, Balanced: types.BalancedTrue},
	}}
	cl := &fakeCluster{
		selector:  map[string]string{"app": "coredns"},
		nodeRacks: []cluster.NodeRack{{Name: "n1", Rack: "x3000c0"}},
		pods:      []cluster.PodRack{{Name: "coredns-abc", Node: "n1", Rack: "x3000c0"}},
	}
	r := CriticalServicesRouter(docs, cl)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/coredns", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got serviceStatusDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, types.ServiceConfigured, got.Status)
	require.Len(t, got.Pods, 1)
	assert.Equal(t, "x3000c0", got.Pods[0].Rack)
}

func TestCriticalServices_GetStatus_NotFound(t *testing.T) {
	t.Parallel()
	docs := &fakeDocuments{dynamicStatus: map[string]types.CriticalServiceDynamic{}}
	r := CriticalServicesRouter(docs, &fakeCluster{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
