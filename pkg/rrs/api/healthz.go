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
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// StateTracker is the subset of statemgr.Manager the health probes need.
type StateTracker interface {
	State() types.RMSState
}

// HealthzRouter sets up /healthz/ready and /healthz/live. Both are trivial:
// RRS is observational, so "live" means the process is answering HTTP at
// all, and "ready" means it has left Init without aborting.
func HealthzRouter(state StateTracker) http.Handler {
	routes := &healthzRoutes{state: state}
	r := chi.NewRouter()
	r.Get("/ready", routes.ready)
	r.Get("/live", routes.live)
	return r
}

type healthzRoutes struct {
	state StateTracker
}

type healthzResponse struct {
	Status string `json:"status"`
}

func (h *healthzRoutes) ready(w http.ResponseWriter, _ *http.Request) {
	if h.state.State() == types.StateInitFail {
		writeHealthz(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeHealthz(w, http.StatusOK, "ready")
}

func (*healthzRoutes) live(w http.ResponseWriter, _ *http.Request) {
	writeHealthz(w, http.StatusOK, "alive")
}

func writeHealthz(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthzResponse{Status: status})
}
