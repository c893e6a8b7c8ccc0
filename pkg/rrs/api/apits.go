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
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/api/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// TimestampRecorder is the subset of docstore.Documents the /api-ts route
// needs to stamp the Dynamic document's API-start timestamp.
type TimestampRecorder interface {
	RecordTimestamp(ctx context.Context, key string) error
}

// APITimestampRouter sets up POST /api-ts, an internal endpoint the startup
// sequence calls once the read API itself is accepting connections.
func APITimestampRouter(docs TimestampRecorder) http.Handler {
	routes := &apiTimestampRoutes{docs: docs}
	r := chi.NewRouter()
	r.Post("/", apierrors.ErrorHandler(routes.record))
	return r
}

type apiTimestampRoutes struct {
	docs TimestampRecorder
}

func (a *apiTimestampRoutes) record(w http.ResponseWriter, r *http.Request) error {
	if err := a.docs.RecordTimestamp(r.Context(), types.TimestampAPIStart); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}
