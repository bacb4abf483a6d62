// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
	"github.com/luxfi/pubsub"

	"github.com/luxfi/vault/vms/vaultvm/vault"
)

type mockFilter struct {
	addr []byte
}

func (f *mockFilter) Check(addr []byte) bool {
	return bytes.Equal(addr, f.addr)
}

func TestFilter(t *testing.T) {
	require := require.New(t)

	caller := ids.ShortID{1}
	target := ids.ShortID{2}
	ev := &vault.Event{
		Sequence: 1,
		Type:     vault.EventTxCreated,
		Caller:   caller,
		Target:   target,
	}

	fp := pubsub.NewFilterParam()
	require.NoError(fp.Add(caller[:]))

	other := ids.ShortID{9}
	parser := NewPubSubFilterer(ev)
	fr, _ := parser.Filter([]pubsub.Filter{
		&mockFilter{addr: caller[:]},
		&mockFilter{addr: target[:]},
		&mockFilter{addr: other[:]},
	})
	require.Equal([]bool{true, true, false}, fr)
}

func TestFilterSkipsZeroAddresses(t *testing.T) {
	require := require.New(t)

	ev := &vault.Event{
		Sequence: 2,
		Type:     vault.EventPaused,
		Caller:   ids.ShortID{3},
	}

	empty := ids.ShortEmpty
	parser := NewPubSubFilterer(ev)
	fr, _ := parser.Filter([]pubsub.Filter{
		&mockFilter{addr: empty[:]},
	})
	require.Equal([]bool{false}, fr)
}
