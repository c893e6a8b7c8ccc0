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
	"fmt"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// configLoader abstracts the two ways a rest.Config can be obtained, so
// getConfigWithLoader is testable without a real cluster or kubeconfig file.
type configLoader interface {
	InClusterConfig() (*rest.Config, error)
	LoadFromRules(rules *clientcmd.ClientConfigLoadingRules) (*rest.Config, error)
}

type defaultConfigLoader struct{}

func (defaultConfigLoader) InClusterConfig() (*rest.Config, error) {
	return rest.InClusterConfig()
}

func (defaultConfigLoader) LoadFromRules(rules *clientcmd.ClientConfigLoadingRules) (*rest.Config, error) {
	return rules.Load().Flatten()
}

func getConfig() (*rest.Config, error) {
	return getConfigWithLoader(defaultConfigLoader{})
}

// getConfigWithLoader tries in-cluster config first (the normal deployment
// mode, running as a pod in the management cluster), then falls back to the
// default kubeconfig loading rules for local development.
func getConfigWithLoader(loader configLoader) (*rest.Config, error) {
	if cfg, err := loader.InClusterConfig(); err == nil {
		return cfg, nil
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg, err := loader.LoadFromRules(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return cfg, nil
}

// getConfigFromKubeconfigFile loads a rest.Config from an explicit
// kubeconfig file path, used only by tests.
func getConfigFromKubeconfigFile(path string) (*rest.Config, error) {
	config, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
	}
	return config, nil
}
