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
	"os"
	"strings"

	"k8s.io/client-go/tools/clientcmd"
)

// serviceAccountNamespaceFile is where a pod's namespace is projected when
// running in-cluster.
const serviceAccountNamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

// Namespace resolves the namespace RRS should operate in: the projected
// service account file when running in-cluster, falling back to the current
// kubeconfig context's namespace for local development.
func Namespace() (string, error) {
	if data, err := os.ReadFile(serviceAccountNamespaceFile); err == nil {
		return parseNamespaceFromFile(data)
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})
	return extractNamespaceFromKubeconfig(clientConfig)
}

func parseNamespaceFromFile(data []byte) (string, error) {
	ns := strings.TrimRight(string(data), "\r\n")
	if ns == "" {
		return "", fmt.Errorf("namespace file is empty")
	}
	return ns, nil
}

func validateNamespaceValue(ns, source string) (string, error) {
	if ns == "" {
		return "", fmt.Errorf("%s not set", source)
	}
	return ns, nil
}

func extractNamespaceFromKubeconfig(clientConfig clientcmd.ClientConfig) (string, error) {
	raw, err := clientConfig.RawConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	if raw.CurrentContext == "" {
		return "", fmt.Errorf("no current context set in kubeconfig")
	}

	ctx, ok := raw.Contexts[raw.CurrentContext]
	if !ok {
		return "", fmt.Errorf("current context %q not found in kubeconfig", raw.CurrentContext)
	}

	ns := strings.TrimSpace(ctx.Namespace)
	if ns == "" {
		return "", fmt.Errorf("no namespace set in context %q", raw.CurrentContext)
	}
	return ns, nil
}
