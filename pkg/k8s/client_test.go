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

package k8s

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/rest"
)

// createTestConfig creates a valid kubeconfig file and returns the config
func createTestConfig(t *testing.T) *rest.Config {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")
	err := os.WriteFile(configPath, []byte(validKubeconfigYAML), 0600)
	require.NoError(t, err)
	config, err := getConfigFromKubeconfigFile(configPath)
	require.NoError(t, err)
	return config
}

func TestNewClientWithConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      *rest.Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      &rest.Config{Host: "https://localhost:6443", BearerToken: "fake-token"},
			expectError: false,
		},
		{
			name:        "invalid host URL",
			config:      &rest.Config{Host: "://invalid-url"},
			expectError: true,
			errorMsg:    "failed to create kubernetes client",
		},
		{
			name:        "nil config",
			config:      nil,
			expectError: true,
			errorMsg:    "config cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clientset, err := NewClientWithConfig(tt.config)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, clientset)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, clientset)
			}
		})
	}
}

func TestClientTypeCompatibility(t *testing.T) {
	t.Parallel()

	t.Run("standard client implements kubernetes.Interface", func(t *testing.T) {
		t.Parallel()

		config := createTestConfig(t)
		clientset, err := NewClientWithConfig(config)

		require.NoError(t, err)
		require.NotNil(t, clientset)
		assert.NotNil(t, clientset.CoreV1())
		assert.NotNil(t, clientset.AppsV1())
		assert.NotNil(t, clientset.BatchV1())
	})
}

func TestIsAvailableInternal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		inClusterError  error
		rulesError      error
		expectAvailable bool
	}{
		{
			name:            "available when config loads",
			inClusterError:  errors.New("not in cluster"),
			rulesError:      nil,
			expectAvailable: true,
		},
		{
			name:            "not available when config fails",
			inClusterError:  errors.New("not in cluster"),
			rulesError:      errors.New("no kubeconfig"),
			expectAvailable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			loader := &mockConfigLoader{
				inClusterError: tt.inClusterError,
				rulesError:     tt.rulesError,
				rulesConfig:    &rest.Config{Host: "https://test:6443"},
			}

			_, err := getConfigWithLoader(loader)

			if tt.expectAvailable {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
