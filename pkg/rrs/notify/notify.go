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

// Package notify is the Notification Intake: it accepts hardware
// state-change notifications over HTTP, classifies each as a node or a rack
// failure, and hands the classified event to the Monitor Coordinator over a
// channel -- never by spawning a goroutine directly inside the handler.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	rrserrors "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/errors"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/hsm"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// Kind classifies a state-change notification once Intake has looked it up
// against the hardware inventory.
type Kind string

// Classification values.
const (
	KindNode Kind = "node"
	KindRack Kind = "rack"
)

// Event is what Intake hands off to the Monitor Coordinator.
type Event struct {
	Kind Kind
	Xname string
	Rack  string
}

// hsmClient is the subset of hsm.Client Intake needs to classify an event.
type hsmClient interface {
	SiblingsInRack(ctx context.Context, rack string) ([]hsm.Sibling, error)
}

// StateSetter is the subset of the State Manager Intake needs.
type StateSetter interface {
	SetState(next types.RMSState) error
}

// scnRequest is the inbound notification payload: a hardware xname and its
// new state.
type scnRequest struct {
	Components []string `json:"Components"`
	State      string   `json:"State"`
}

// Intake receives, classifies, and forwards hardware notifications.
type Intake struct {
	hsm    hsmClient
	state  StateSetter
	events chan<- Event
}

// New returns an Intake that classifies notifications via hsm and forwards
// them on events. events must be buffered: Intake never blocks a request on
// a full channel; an event that does not fit is logged and dropped.
func New(hsm hsmClient, state StateSetter, events chan<- Event) *Intake {
	return &Intake{hsm: hsm, state: state, events: events}
}

func rackOf(xname string) string {
	i := 0
	for i < len(xname) && xname[i] != 'c' {
		i++
	}
	if i >= len(xname) {
		return xname
	}
	return xname[:i]
}

// Handle serves POST /scn. It validates the payload, classifies each
// reported component as a node or rack failure by checking whether every
// sibling node in the same rack is also reported down, transitions the RMS
// to FailNotified, and forwards one Event per component.
func (n *Intake) Handle(w http.ResponseWriter, r *http.Request) error {
	var req scnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return rrserrors.NewBadRequest("invalid notification payload", err)
	}
	if len(req.Components) == 0 {
		return rrserrors.NewBadRequest("Components must not be empty", nil)
	}

	if err := n.state.SetState(types.StateFailNotified); err != nil {
		logger.Warnw("notify: could not transition to FailNotified", "error", err)
	}

	ctx := r.Context()
	for _, xname := range req.Components {
		ev, err := n.classify(ctx, xname)
		if err != nil {
			logger.Warnw("notify: classification failed, defaulting to node-scoped", "xname", xname, "error", err)
			ev = Event{Kind: KindNode, Xname: xname, Rack: rackOf(xname)}
		}

		select {
		case n.events <- ev:
		default:
			logger.Errorw("notify: event channel full, dropping notification", "xname", xname)
		}
	}

	w.WriteHeader(http.StatusAccepted)
	return nil
}

// healthyHSMStates are the hardware states that count as "up" when deciding
// whether a rack's nodes are all non-healthy.
var healthyHSMStates = map[string]bool{
	"On":        true,
	"Ready":     true,
	"Populated": true,
}

// classify decides whether xname's failure should be treated as affecting
// just that node or its whole rack: if every other node sharing its rack is
// also in a non-healthy state, the failure escalates to rack-scoped;
// otherwise it stays node-scoped. An inventory lookup that comes back empty
// can't confirm a rack-wide failure, so it is treated conservatively as
// node-scoped.
func (n *Intake) classify(ctx context.Context, xname string) (Event, error) {
	rack := rackOf(xname)
	siblings, err := n.hsm.SiblingsInRack(ctx, rack)
	if err != nil {
		return Event{}, fmt.Errorf("resolve siblings for rack %s: %w", rack, err)
	}

	if len(siblings) > 0 && allNonHealthy(siblings) {
		return Event{Kind: KindRack, Xname: xname, Rack: rack}, nil
	}
	return Event{Kind: KindNode, Xname: xname, Rack: rack}, nil
}

// allNonHealthy reports whether every sibling is in a non-healthy hardware
// state.
func allNonHealthy(siblings []hsm.Sibling) bool {
	for _, s := range siblings {
		if healthyHSMStates[s.State] {
			return false
		}
	}
	return true
}
