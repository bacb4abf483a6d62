// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/luxfi/metric"

	"github.com/luxfi/vault/utils/wrappers"
	"github.com/luxfi/vault/vms/vaultvm/vault"
)

var _ Metrics = (*metricsImpl)(nil)

type Metrics interface {
	metric.APIInterceptor

	// MarkBlockAccepted updates the block counters for one accepted
	// block carrying numOps operations.
	MarkBlockAccepted(numOps int)
	// MarkOperationAccepted updates the per-type operation counter for
	// one committed vault event.
	MarkOperationAccepted(ev *vault.Event)
	// MarkBlockBuilt counts a locally built block.
	MarkBlockBuilt()
}

type metricsImpl struct {
	opMetrics *opMetrics

	numBlocksAccepted, numBlocksBuilt, numOpsAccepted metric.Counter

	metric.APIInterceptor
}

func (m *metricsImpl) MarkBlockAccepted(numOps int) {
	m.numBlocksAccepted.Inc()
	m.numOpsAccepted.Add(float64(numOps))
}

func (m *metricsImpl) MarkOperationAccepted(ev *vault.Event) {
	m.opMetrics.mark(ev)
}

func (m *metricsImpl) MarkBlockBuilt() {
	m.numBlocksBuilt.Inc()
}

func New(registerer metric.Registerer) (Metrics, error) {
	registry, ok := registerer.(metric.Registry)
	if !ok {
		return nil, errors.New("registerer must implement metric.Registry")
	}
	opMetrics, err := newOpMetrics(registry)
	errs := wrappers.Errs{Err: err}

	m := &metricsImpl{opMetrics: opMetrics}

	m.numBlocksAccepted = metric.NewCounter(metric.CounterOpts{
		Name: "blocks_accepted",
		Help: "Number of blocks accepted",
	})
	m.numBlocksBuilt = metric.NewCounter(metric.CounterOpts{
		Name: "blocks_built",
		Help: "Number of blocks built by this node",
	})
	m.numOpsAccepted = metric.NewCounter(metric.CounterOpts{
		Name: "operations_accepted",
		Help: "Number of vault operations carried by accepted blocks",
	})

	apiRequestMetric, err := metric.NewAPIInterceptor(registry)
	m.APIInterceptor = apiRequestMetric
	errs.Add(err)
	return m, errs.Err
}
