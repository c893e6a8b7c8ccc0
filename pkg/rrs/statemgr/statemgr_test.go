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

package statemgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

func TestManager_SetState_RefusesWhileMonitoring(t *testing.T) {
	t.Parallel()
	m := New()
	m.StartMonitoring(time.Now())

	err := m.SetState(types.StateReady)
	require.Error(t, err)

	err = m.SetState(types.StateStarted)
	require.Error(t, err)

	// Other transitions remain legal.
	require.NoError(t, m.SetState(types.StateFailNotified))
	assert.Equal(t, types.StateFailNotified, m.State())
}

func TestManager_StartStopMonitoring(t *testing.T) {
	t.Parallel()
	m := New()
	assert.False(t, m.MonitoringClaimed())

	m.StartMonitoring(time.Now())
	assert.True(t, m.MonitoringClaimed())
	assert.Equal(t, types.StateMonitoring, m.State())

	m.StopMonitoring(types.StateWaiting)
	assert.False(t, m.MonitoringClaimed())
	assert.Equal(t, types.StateWaiting, m.State())
}

func TestManager_CanStartMonitoring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		running   bool
		elapsed   time.Duration
		budget    time.Duration
		wantStart bool
	}{
		{"no session running", false, 0, 600 * time.Second, true},
		{"just started, well under budget", true, 10 * time.Second, 600 * time.Second, false},
		{"just under 75%", true, 449 * time.Second, 600 * time.Second, false},
		{"exactly at 75%", true, 450 * time.Second, 600 * time.Second, true},
		{"far past budget", true, 900 * time.Second, 600 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := New()
			now := time.Now()
			if tt.running {
				m.StartMonitoring(now.Add(-tt.elapsed))
			}
			assert.Equal(t, tt.wantStart, m.CanStartMonitoring(now, tt.budget))
		})
	}
}

func TestManager_DynamicCache(t *testing.T) {
	t.Parallel()
	m := New()
	doc := types.NewDynamicDocument()
	doc.State.RMSState = types.StateReady
	m.SetDynamic(doc)

	assert.Equal(t, types.StateReady, m.Dynamic().State.RMSState)
}
