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

package hsm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRackOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "x3000", RackOf("x3000c0s1b0n0"))
	assert.Equal(t, "x3000", RackOf("x3000"))
}

func TestSiblingsInRack(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "group=x3000c0")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Components": []map[string]string{
				{"ID": "x3000c0s1b0n0", "State": "Ready"},
				{"ID": "x3000c0s2b0n0", "State": "Off"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	siblings, err := c.SiblingsInRack(context.Background(), "x3000c0")
	require.NoError(t, err)
	assert.Equal(t, []Sibling{
		{ID: "x3000c0s1b0n0", State: "Ready"},
		{ID: "x3000c0s2b0n0", State: "Off"},
	}, siblings)
}

func TestManagementComponents_FiltersToManagementRole(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Components": []ManagementComponent{
				{ID: "x3000c0s1b0n0", Role: "Management", SubRole: "Master"},
				{ID: "x3000c0s2b0n0", Role: "Management", SubRole: "Worker"},
				{ID: "x3000c0r1b0", Role: "Application", SubRole: ""},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	comps, err := c.ManagementComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "Master", comps[0].SubRole)
}

func TestEnsureSubscribed_SkipsWhenAlreadySubscribed(t *testing.T) {
	t.Parallel()
	posted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted = true
			w.WriteHeader(http.StatusCreated)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Subscriptions": []subscription{{Subscriber: "rms"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.EnsureSubscribed(context.Background(), "http://self:8551/scn"))
	assert.False(t, posted)
}

func TestEnsureSubscribed_PostsWhenAbsent(t *testing.T) {
	t.Parallel()
	posted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted = true
			w.WriteHeader(http.StatusCreated)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"Subscriptions": []subscription{}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.EnsureSubscribed(context.Background(), "http://self:8551/scn"))
	assert.True(t, posted)
}
