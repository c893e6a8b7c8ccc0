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

// Package docstore implements the Document Store: read/mutate access to the
// two ConfigMaps (Static config, Dynamic runtime state) that back RRS's
// persisted view of the cluster. It talks to the API server through a plain
// client-go clientset, not controller-runtime's cached client, since RRS
// never watches or reconciles these objects -- it only ever reads, mutates,
// and writes them back inline with a request or a monitoring tick.
package docstore

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/util/retry"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/k8s"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
)

// Store reads and mutates the Static and Dynamic ConfigMaps in one namespace.
type Store struct {
	client    kubernetes.Interface
	namespace string
}

// New returns a Store bound to namespace, backed by client.
func New(client kubernetes.Interface, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

// Get fetches the named ConfigMap, translating a not-found into
// rrserrors.ErrConfigMissing since both documents are expected to always
// exist once Init has run.
func (s *Store) Get(ctx context.Context, name string) (*corev1.ConfigMap, error) {
	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, rrserrors.NewConfigMissing(fmt.Sprintf("configmap %s/%s not found", s.namespace, name), err)
		}
		return nil, rrserrors.NewTransient(fmt.Sprintf("get configmap %s/%s", s.namespace, name), err)
	}
	return cm, nil
}

// GetKey fetches a single data key from the named ConfigMap.
func (s *Store) GetKey(ctx context.Context, name, key string) (string, error) {
	cm, err := s.Get(ctx, name)
	if err != nil {
		return "", err
	}
	v, ok := cm.Data[key]
	if !ok {
		return "", rrserrors.NewCorrupt(fmt.Sprintf("configmap %s/%s missing key %s", s.namespace, name, key), nil)
	}
	return v, nil
}

// Mutate fetches the named ConfigMap, applies fn to its Data, and writes it
// back with retry.RetryOnConflict so a concurrent writer (another RMS replica,
// an operator edit) never silently loses an update. fn may return a sentinel
// error to abort without writing.
func (s *Store) Mutate(ctx context.Context, name string, fn func(data map[string]string) error) error {
	cms := s.client.CoreV1().ConfigMaps(s.namespace)

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		cm, err := cms.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				return rrserrors.NewConfigMissing(fmt.Sprintf("configmap %s/%s not found", s.namespace, name), err)
			}
			return err
		}

		if cm.Data == nil {
			cm.Data = map[string]string{}
		}
		before := k8s.ComputeConfigMapChecksum(cm)
		if err := fn(cm.Data); err != nil {
			return err
		}
		if k8s.ComputeConfigMapChecksum(cm) == before {
			// fn left Data unchanged; skip the round-trip to the API server.
			return nil
		}

		_, err = cms.Update(ctx, cm, metav1.UpdateOptions{})
		return err
	})
	if err != nil {
		if rrserrors.Is(err, rrserrors.ErrConfigMissing) {
			return err
		}
		return rrserrors.NewTransient(fmt.Sprintf("update configmap %s/%s", s.namespace, name), err)
	}
	return nil
}

// EnsureCreated creates name with the given data if it does not already
// exist. If the object is already present it returns a Conflict error --
// used for the sentinel lock ConfigMap, where "already exists" means "someone
// else holds the lock" and the caller waits and retries.
func (s *Store) EnsureCreated(ctx context.Context, name string, data map[string]string, labels map[string]string) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: s.namespace,
			Labels:    labels,
		},
		Data: data,
	}
	_, err := s.client.CoreV1().ConfigMaps(s.namespace).Create(ctx, cm, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return rrserrors.NewConflict(fmt.Sprintf("configmap %s/%s already exists", s.namespace, name), err)
		}
		return rrserrors.NewTransient(fmt.Sprintf("create configmap %s/%s", s.namespace, name), err)
	}
	return nil
}

// Delete removes name. Deleting an object that is already gone is treated as
// success, since both lock release and force-release at Init are idempotent
// by design.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.CoreV1().ConfigMaps(s.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return rrserrors.NewTransient(fmt.Sprintf("delete configmap %s/%s", s.namespace, name), err)
	}
	return nil
}

// Exists reports whether name is present, without surfacing a not-found as
// an error.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, rrserrors.NewTransient(fmt.Sprintf("get configmap %s/%s", s.namespace, name), err)
	}
	return true, nil
}
