// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/luxfi/metric"

	"github.com/luxfi/vault/vms/vaultvm/vault"
)

const opLabel = "op"

var opLabels = []string{opLabel}

// opMetrics counts committed operations by event type.
type opMetrics struct {
	numOps metric.CounterVec
}

func newOpMetrics(registerer metric.Registerer) (*opMetrics, error) {
	m := &opMetrics{
		numOps: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "vault_operations",
				Help: "number of committed vault operations by type",
			},
			opLabels,
		),
	}
	return m, nil
}

func (m *opMetrics) mark(ev *vault.Event) {
	m.numOps.With(metric.Labels{
		opLabel: ev.Type,
	}).Inc()
}
