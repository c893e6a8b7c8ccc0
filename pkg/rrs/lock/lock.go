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

// Package lock implements the sentinel-ConfigMap advisory lock that guards
// read-modify-write access to a document in the Document Store. A lock is a
// ConfigMap named "<document>-lock": creating it acquires the lock, deleting
// it releases the lock, and a busy-wait loop is how a second caller waits its
// turn.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
)

// store is the subset of docstore.Store the lock needs, kept narrow so this
// package's tests don't need a real clientset.
type store interface {
	EnsureCreated(ctx context.Context, name string, data map[string]string, labels map[string]string) error
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// pollInterval is how often Acquire re-checks a contended lock.
const pollInterval = time.Second

// Lock is an advisory, sentinel-ConfigMap-backed mutual-exclusion primitive
// over one document name.
type Lock struct {
	store    store
	document string
}

// New returns a Lock guarding document ("static-data", "dynamic-data", ...).
func New(s store, document string) *Lock {
	return &Lock{store: s, document: document}
}

func (l *Lock) name() string {
	return l.document + "-lock"
}

// Acquire busy-waits for the sentinel ConfigMap to be creatable, polling
// once a second, bounded by ctx. Returns a LockTimeout error if ctx expires
// first.
func (l *Lock) Acquire(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		err := l.store.EnsureCreated(ctx, l.name(), map[string]string{"holder": "rrs"}, nil)
		if err == nil {
			return nil
		}
		if !rrserrors.Is(err, rrserrors.ErrConflict) {
			return err
		}

		select {
		case <-ctx.Done():
			return rrserrors.NewLockTimeout(fmt.Sprintf("timed out waiting for lock %s", l.name()), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release deletes the sentinel ConfigMap, retrying with exponential backoff
// (initial 2s, doubling, 3 attempts) since the delete can race a transient
// API server hiccup and the caller has already done its protected work.
func (l *Lock) Release(ctx context.Context) error {
	op := func() (struct{}, error) {
		err := l.store.Delete(ctx, l.name())
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.Multiplier = 2

	_, err := backoff.Retry(ctx, op, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
	if err != nil {
		logger.Warnw("failed to release lock after retries", "lock", l.name(), "error", err)
		return rrserrors.NewTransient(fmt.Sprintf("release lock %s", l.name()), err)
	}
	return nil
}

// ForceRelease deletes the sentinel ConfigMap unconditionally and without
// retry, used only by Init to clear a lock possibly abandoned by a crashed
// prior process.
func (l *Lock) ForceRelease(ctx context.Context) error {
	return l.store.Delete(ctx, l.name())
}

// Held reports whether the sentinel ConfigMap currently exists.
func (l *Lock) Held(ctx context.Context) (bool, error) {
	return l.store.Exists(ctx, l.name())
}

// WithLock acquires the lock, runs fn, and releases the lock, even if fn
// panics or returns an error.
func WithLock(ctx context.Context, l *Lock, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if err := l.Release(ctx); err != nil {
			logger.Warnw("lock release failed", "lock", l.name(), "error", err)
		}
	}()
	return fn(ctx)
}
