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

package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
)

// memStore is an in-memory stand-in for docstore.Store, enough to exercise
// Lock's create/delete/exists semantics without a real clientset.
type memStore struct {
	mu      sync.Mutex
	held    map[string]bool
	onCheck func(name string)
}

func (m *memStore) EnsureCreated(_ context.Context, name string, _ map[string]string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onCheck != nil {
		m.onCheck(name)
	}
	if m.held == nil {
		m.held = map[string]bool{}
	}
	if m.held[name] {
		return rrserrors.NewConflict("already exists", nil)
	}
	m.held[name] = true
	return nil
}

func (m *memStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

func (m *memStore) Exists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[name], nil
}

func TestLock_AcquireRelease(t *testing.T) {
	t.Parallel()
	s := &memStore{}
	l := New(s, "dynamic-data")

	require.NoError(t, l.Acquire(context.Background()))
	held, err := l.Held(context.Background())
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, l.Release(context.Background()))
	held, err = l.Held(context.Background())
	require.NoError(t, err)
	assert.False(t, held)
}

func TestLock_Acquire_TimesOutWhenContended(t *testing.T) {
	t.Parallel()
	s := &memStore{held: map[string]bool{"dynamic-data-lock": true}}
	l := New(s, "dynamic-data")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, rrserrors.Is(err, rrserrors.ErrLockTimeout))
}

func TestLock_ForceRelease(t *testing.T) {
	t.Parallel()
	s := &memStore{held: map[string]bool{"static-data-lock": true}}
	l := New(s, "static-data")

	require.NoError(t, l.ForceRelease(context.Background()))
	held, err := l.Held(context.Background())
	require.NoError(t, err)
	assert.False(t, held)
}

func TestWithLock_RunsAndReleases(t *testing.T) {
	t.Parallel()
	s := &memStore{}
	l := New(s, "dynamic-data")

	ran := false
	err := WithLock(context.Background(), l, func(ctx context.Context) error {
		ran = true
		held, herr := l.Held(ctx)
		require.NoError(t, herr)
		assert.True(t, held)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	held, err := l.Held(context.Background())
	require.NoError(t, err)
	assert.False(t, held)
}
