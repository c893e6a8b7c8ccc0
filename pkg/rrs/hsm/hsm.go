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

// Package hsm is a narrow client for the hardware state manager's inventory
// API: resolving a reported node xname to the rack it lives in, and
// subscribing RRS's notification endpoint to the hardware state-change bus.
package hsm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
)

// subscriberAgent is this RMS instance's subscriber identity, used to find
// (and avoid duplicating) its own subscription on the notification bus.
const subscriberAgent = "rms"

// RoleManagement and the three SubRoles the Cluster Adapter's management
// rack report groups nodes into.
const (
	RoleManagement = "Management"

	SubRoleMaster  = "Master"
	SubRoleWorker  = "Worker"
	SubRoleStorage = "Storage"
)

// DefaultTimeout bounds every request this client makes.
const DefaultTimeout = 10 * time.Second

// Client talks to the hardware state manager's read-only inventory API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client rooted at baseURL ("http://cray-smd/hsm/v2", say).
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: DefaultTimeout}}
}

// componentResponse mirrors the subset of HSM's component query response
// RRS actually reads.
type componentResponse struct {
	Components []struct {
		ID    string `json:"ID"`
		Type  string `json:"Type"`
		State string `json:"State"`
	} `json:"Components"`
}

// Sibling is one other node's identity and last-reported hardware state
// within a rack, used by the Notification Intake to decide whether every
// rack-mate of a failed node is also non-healthy.
type Sibling struct {
	ID    string
	State string
}

// SiblingsInRack reports every node in rack, each with its current hardware
// state, used by the Notification Intake to decide node-vs-rack-failure.
func (c *Client) SiblingsInRack(ctx context.Context, rack string) ([]Sibling, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/State/Components?type=Node&group=%s", c.baseURL, rack))
	if err != nil {
		return nil, err
	}

	var resp componentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, rrserrors.NewCorrupt("decode HSM component response", err)
	}

	siblings := make([]Sibling, 0, len(resp.Components))
	for _, comp := range resp.Components {
		siblings = append(siblings, Sibling{ID: comp.ID, State: comp.State})
	}
	return siblings, nil
}

// ManagementComponent is one row of the hardware-inventory response, filtered
// down to the fields the Cluster Adapter's rack report needs.
type ManagementComponent struct {
	ID      string `json:"ID"`
	State   string `json:"State"`
	Role    string `json:"Role,omitempty"`
	SubRole string `json:"SubRole,omitempty"`
}

// ManagementComponents returns the inventory's Management-role components
// (master/worker/storage nodes), dropping everything else.
func (c *Client) ManagementComponents(ctx context.Context) ([]ManagementComponent, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/State/Components", c.baseURL))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Components []ManagementComponent `json:"Components"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, rrserrors.NewCorrupt("decode HSM inventory response", err)
	}

	out := make([]ManagementComponent, 0, len(resp.Components))
	for _, comp := range resp.Components {
		if comp.Role != RoleManagement {
			continue
		}
		switch comp.SubRole {
		case SubRoleMaster, SubRoleWorker, SubRoleStorage:
			out = append(out, comp)
		}
	}
	return out, nil
}

// subscription mirrors the notification bus's subscription record, both for
// decoding the existing-subscriptions GET and for encoding the create POST.
type subscription struct {
	Subscriber string   `json:"Subscriber"`
	Components []string `json:"Components"`
	States     []string `json:"States"`
	Enabled    bool     `json:"Enabled"`
	URL        string   `json:"Url"`
}

// EnsureSubscribed registers selfURL to receive state-change notifications
// for every component, idempotently: a prior subscription owned by this
// RMS instance means no POST is issued.
func (c *Client) EnsureSubscribed(ctx context.Context, selfURL string) error {
	existing, err := c.listSubscriptions(ctx)
	if err != nil {
		return err
	}
	for _, s := range existing {
		if s.Subscriber == subscriberAgent {
			return nil
		}
	}

	sub := subscription{
		Subscriber: subscriberAgent,
		Components: []string{},
		States:     []string{"Ready", "On", "Off", "Empty", "Unknown", "Populated"},
		Enabled:    true,
		URL:        selfURL,
	}
	return c.postSubscription(ctx, sub)
}

func (c *Client) listSubscriptions(ctx context.Context) ([]subscription, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/subscriptions/sm", c.baseURL))
	if err != nil {
		return nil, err
	}
	var resp struct {
		Subscriptions []subscription `json:"Subscriptions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, rrserrors.NewCorrupt("decode HSM subscription list", err)
	}
	return resp.Subscriptions, nil
}

func (c *Client) postSubscription(ctx context.Context, sub subscription) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return rrserrors.NewInternalFailure("encode HSM subscription request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/subscriptions/sm", c.baseURL), bytes.NewReader(payload))
	if err != nil {
		return rrserrors.NewInternalFailure("build HSM subscription request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return rrserrors.NewTransient("call HSM", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return rrserrors.NewTransient(fmt.Sprintf("HSM subscription create returned %s", resp.Status), nil)
	}
	return nil
}

// RackOf resolves the rack xname containing node xname, derived from the
// xname's own hierarchy (a node xname like x3000c0s1b0n0 always names its
// rack as the "xNNNN" prefix).
func RackOf(xname string) string {
	i := 0
	for i < len(xname) && xname[i] != 'c' {
		i++
	}
	if i >= len(xname) {
		return xname
	}
	return xname[:i]
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, rrserrors.NewInternalFailure("build HSM request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, rrserrors.NewTransient("call HSM", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, rrserrors.NewTransient(fmt.Sprintf("HSM returned %s for %s", resp.Status, url), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rrserrors.NewTransient("read HSM response body", err)
	}
	return body, nil
}
