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

// Package api is RRS's HTTP read API: hardware notification intake, health
// and version probes, and the zone/critical-service read and PATCH surface.
// Everything it serves is observational -- RRS never remediates through
// this API, it only reports what the Monitoring State Machine has found.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/api/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/notify"
)

const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Deps bundles everything the route handlers need, gathered in one place so
// Serve's signature doesn't grow a parameter per handler.
type Deps struct {
	Intake  *notify.Intake
	State   StateTracker
	Docs    Documents
	Cluster ClusterReader
}

// Serve starts the HTTP read API on address and blocks until ctx is
// cancelled, then shuts the server down gracefully.
func Serve(ctx context.Context, address string, deps Deps) error {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Timeout(middlewareTimeout),
	)

	r.Post("/scn", apierrors.ErrorHandler(deps.Intake.Handle))
	r.Mount("/api-ts", APITimestampRouter(deps.Docs))
	r.Mount("/healthz", HealthzRouter(deps.State))
	r.Mount("/version", VersionRouter())
	r.Mount("/zones", ZonesRouter(deps.Docs, deps.Cluster))
	r.Mount("/criticalservices", CriticalServicesRouter(deps.Docs, deps.Cluster))

	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              address,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.Infof("starting rrs api server on %s", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown failed: %w", err)
		}
		logger.Infof("rrs api server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
