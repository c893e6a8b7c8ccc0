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

package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
)

const testNamespace = "rack-resiliency"

func TestStore_Get_NotFound(t *testing.T) {
	t.Parallel()
	cs := fake.NewSimpleClientset()
	s := New(cs, testNamespace)

	_, err := s.Get(context.Background(), "dynamic-data")
	require.Error(t, err)
	assert.True(t, rrserrors.Is(err, rrserrors.ErrConfigMissing))
}

func TestStore_GetKey(t *testing.T) {
	t.Parallel()
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "static-data", Namespace: testNamespace},
		Data:       map[string]string{"critical-service-config.json": `{"critical_services":{}}`},
	}
	cs := fake.NewSimpleClientset(cm)
	s := New(cs, testNamespace)

	v, err := s.GetKey(context.Background(), "static-data", "critical-service-config.json")
	require.NoError(t, err)
	assert.Contains(t, v, "critical_services")

	_, err = s.GetKey(context.Background(), "static-data", "missing-key")
	require.Error(t, err)
	assert.True(t, rrserrors.Is(err, rrserrors.ErrCorrupt))
}

func TestStore_Mutate(t *testing.T) {
	t.Parallel()
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "dynamic-data", Namespace: testNamespace},
		Data:       map[string]string{"counter": "0"},
	}
	cs := fake.NewSimpleClientset(cm)
	s := New(cs, testNamespace)

	err := s.Mutate(context.Background(), "dynamic-data", func(data map[string]string) error {
		data["counter"] = "1"
		return nil
	})
	require.NoError(t, err)

	v, err := s.GetKey(context.Background(), "dynamic-data", "counter")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestStore_Mutate_NotFound(t *testing.T) {
	t.Parallel()
	cs := fake.NewSimpleClientset()
	s := New(cs, testNamespace)

	err := s.Mutate(context.Background(), "dynamic-data", func(data map[string]string) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, rrserrors.Is(err, rrserrors.ErrConfigMissing))
}

func TestStore_EnsureCreated_Conflict(t *testing.T) {
	t.Parallel()
	lock := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "dynamic-data-lock", Namespace: testNamespace},
	}
	cs := fake.NewSimpleClientset(lock)
	s := New(cs, testNamespace)

	err := s.EnsureCreated(context.Background(), "dynamic-data-lock", nil, nil)
	require.Error(t, err)
	assert.True(t, rrserrors.Is(err, rrserrors.ErrConflict))
}

func TestStore_Delete_Idempotent(t *testing.T) {
	t.Parallel()
	cs := fake.NewSimpleClientset()
	s := New(cs, testNamespace)

	err := s.Delete(context.Background(), "dynamic-data-lock")
	require.NoError(t, err)
}

func TestStore_Exists(t *testing.T) {
	t.Parallel()
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "dynamic-data", Namespace: testNamespace},
	}
	cs := fake.NewSimpleClientset(cm)
	s := New(cs, testNamespace)

	ok, err := s.Exists(context.Background(), "dynamic-data")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(context.Background(), "dynamic-data-lock")
	require.NoError(t, err)
	assert.False(t, ok)
}
