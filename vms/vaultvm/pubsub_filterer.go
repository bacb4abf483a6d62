// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"github.com/luxfi/pubsub"

	"github.com/luxfi/vault/vms/vaultvm/vault"
)

var _ pubsub.Filterer = (*filterer)(nil)

type filterer struct {
	ev *vault.Event
}

// NewPubSubFilterer wraps a committed event for subscription matching.
func NewPubSubFilterer(ev *vault.Event) pubsub.Filterer {
	return &filterer{ev: ev}
}

// Filter matches the event's touched addresses against each connection's
// filter and returns the event in its JSON form.
func (f *filterer) Filter(filters []pubsub.Filter) ([]bool, interface{}) {
	resp := make([]bool, len(filters))
	addresses := f.ev.Addresses()
	for i, filter := range filters {
		for _, addr := range addresses {
			if filter.Check(addr[:]) {
				resp[i] = true
				break
			}
		}
	}
	return resp, newAPIEvent(f.ev)
}
