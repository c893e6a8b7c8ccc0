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

// Package config resolves RRS's process configuration from the environment:
// the three required document-store settings, and the optional network and
// timing knobs with documented defaults.
package config

import (
	"fmt"
	"time"

	"github.com/stacklok/toolhive-core/env"

	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
)

// Defaults for every optional setting.
const (
	DefaultMonitorPort      = "8551"
	DefaultReadAPIPort      = "8080"
	DefaultMainLoopInterval = 30 * time.Second
	DefaultHSMBaseURL       = "http://cray-smd/hsm/v2"
	DefaultStorageToolPath  = "/usr/bin/ceph-rack-report"
)

// Environment variable names, lower-cased.
const (
	envNamespace       = "namespace"
	envDynamicCMName   = "dynamic_cm_name"
	envStaticCMName    = "static_cm_name"
	envMonitorPort     = "monitor_port"
	envReadAPIPort     = "read_api_port"
	envMainLoopSeconds = "main_loop_interval_seconds"
	envHSMBaseURL      = "hsm_base_url"
	envStorageToolPath = "storage_tool_path"
	envSelfHost        = "self_host"
)

// Config is RRS's fully resolved process configuration.
type Config struct {
	Namespace        string
	DynamicCMName    string
	StaticCMName     string
	MonitorPort      string
	ReadAPIPort      string
	MainLoopInterval time.Duration
	HSMBaseURL       string
	StorageToolPath  string
	SelfHost         string
}

// SelfURL is the address RRS advertises to the hardware notification bus for
// its own /scn endpoint.
func (c Config) SelfURL() string {
	return fmt.Sprintf("http://%s:%s/scn", c.SelfHost, c.MonitorPort)
}

// Load resolves Config from the process environment. Missing namespace,
// dynamic_cm_name, or static_cm_name is fatal; everything else falls back to
// a documented default.
func Load() (*Config, error) {
	return LoadWithEnv(env.OSReader{})
}

// LoadWithEnv is Load with an injectable env.Reader, for tests.
func LoadWithEnv(r env.Reader) (*Config, error) {
	cfg := &Config{
		MonitorPort:      DefaultMonitorPort,
		ReadAPIPort:      DefaultReadAPIPort,
		MainLoopInterval: DefaultMainLoopInterval,
		HSMBaseURL:       DefaultHSMBaseURL,
		StorageToolPath:  DefaultStorageToolPath,
		SelfHost:         "localhost",
	}

	var missing []string
	cfg.Namespace = requireString(r, envNamespace, &missing)
	cfg.DynamicCMName = requireString(r, envDynamicCMName, &missing)
	cfg.StaticCMName = requireString(r, envStaticCMName, &missing)
	if len(missing) > 0 {
		return nil, rrserrors.NewConfigMissing(fmt.Sprintf("missing required environment variables: %v", missing), nil)
	}

	if v := r.Getenv(envMonitorPort); v != "" {
		cfg.MonitorPort = v
	}
	if v := r.Getenv(envReadAPIPort); v != "" {
		cfg.ReadAPIPort = v
	}
	if v := r.Getenv(envMainLoopSeconds); v != "" {
		var seconds int
		if _, err := fmt.Sscanf(v, "%d", &seconds); err == nil && seconds > 0 {
			cfg.MainLoopInterval = time.Duration(seconds) * time.Second
		}
	}
	if v := r.Getenv(envHSMBaseURL); v != "" {
		cfg.HSMBaseURL = v
	}
	if v := r.Getenv(envStorageToolPath); v != "" {
		cfg.StorageToolPath = v
	}
	if v := r.Getenv(envSelfHost); v != "" {
		cfg.SelfHost = v
	}

	return cfg, nil
}

func requireString(r env.Reader, key string, missing *[]string) string {
	v := r.Getenv(key)
	if v == "" {
		*missing = append(*missing, key)
	}
	return v
}
