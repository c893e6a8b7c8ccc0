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

// Package errors adapts RRS's typed error taxonomy to net/http: a handler
// that returns an error instead of writing one, and a decorator that turns
// that error into the right status code and body.
package errors

import (
	"net/http"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
)

// HandlerWithError is an http.Handler that can fail by returning an error
// instead of writing a response itself.
type HandlerWithError func(w http.ResponseWriter, r *http.Request) error

// ErrorHandler adapts fn to http.HandlerFunc: on success, fn is responsible
// for the whole response. On error, the status is derived from
// rrserrors.Code. A 5xx logs the underlying cause and returns a generic
// message to the client; a 4xx returns fn's message verbatim, since those
// are meant for the caller.
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		code := rrserrors.Code(err)
		if code >= http.StatusInternalServerError {
			logger.Errorw("request failed", "path", r.URL.Path, "error", err)
			http.Error(w, "internal server error", code)
			return
		}

		http.Error(w, err.Error(), code)
	}
}
