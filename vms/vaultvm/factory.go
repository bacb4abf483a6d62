// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/vault/vms"
)

var _ vms.Factory = (*Factory)(nil)

// VMID is the unique identifier for the vault VM
var VMID = ids.ID{'v', 'a', 'u', 'l', 't', 'v', 'm', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// Factory creates new vault VM instances
type Factory struct{}

// New returns a new instance of the vault VM
func (f *Factory) New(log.Logger) (interface{}, error) {
	return &VM{}, nil
}
