// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"errors"

	"github.com/luxfi/ids"

	"github.com/luxfi/vault/vms/vaultvm/vault"
)

var (
	errNoGenesisSigners  = errors.New("genesis names no signers")
	errNoGenesisQuorum   = errors.New("genesis threshold is zero")
	errGenesisNoGuardian = errors.New("genesis names no guardian")
)

// Genesis is the chain creation document: the initial signer registry,
// the guardian, the attestation key proofs are checked against, and
// overrides for the vault's time-window parameters. Zero-valued
// overrides defer to the defaults.
type Genesis struct {
	Timestamp         int64         `serialize:"true" json:"timestamp"`
	Signers           []ids.ShortID `serialize:"true" json:"signers"`
	Threshold         uint32        `serialize:"true" json:"threshold"`
	Guardian          ids.ShortID   `serialize:"true" json:"guardian"`
	AttestorPublicKey []byte        `serialize:"true" json:"attestorPublicKey"`

	MinDelay     int64  `serialize:"true" json:"minDelay"`
	MaxDelay     int64  `serialize:"true" json:"maxDelay"`
	ProofExpiry  int64  `serialize:"true" json:"proofExpiry"`
	UpgradeDelay int64  `serialize:"true" json:"upgradeDelay"`
	SpendWindow  int64  `serialize:"true" json:"spendWindow"`
	MaxSigners   uint32 `serialize:"true" json:"maxSigners"`

	// KeepActiveProofOnSweep disables the historical behavior of proof
	// sweeps clearing the active-proof pointer unconditionally. The
	// zero value keeps the historical behavior.
	KeepActiveProofOnSweep bool `serialize:"true" json:"keepActiveProofOnSweep"`
}

// Validate checks the document can seed a vault. The full signer-set
// invariants are re-checked when the vault opens.
func (g *Genesis) Validate() error {
	switch {
	case len(g.Signers) == 0:
		return errNoGenesisSigners
	case g.Threshold == 0:
		return errNoGenesisQuorum
	case g.Guardian == ids.ShortEmpty:
		return errGenesisNoGuardian
	}
	return nil
}

// Params merges the genesis overrides over the vault defaults.
func (g *Genesis) Params() vault.Params {
	p := vault.DefaultParams()
	if g.MinDelay > 0 {
		p.MinDelay = g.MinDelay
	}
	if g.MaxDelay > 0 {
		p.MaxDelay = g.MaxDelay
	}
	if g.ProofExpiry > 0 {
		p.ProofExpiry = g.ProofExpiry
	}
	if g.UpgradeDelay > 0 {
		p.UpgradeDelay = g.UpgradeDelay
	}
	if g.SpendWindow > 0 {
		p.SpendWindow = g.SpendWindow
	}
	if g.MaxSigners > 0 {
		p.MaxSigners = int(g.MaxSigners)
	}
	p.ClearActiveProofOnSweep = !g.KeepActiveProofOnSweep
	return p
}

// Bytes returns the canonical serialization of the document.
func (g *Genesis) Bytes() ([]byte, error) {
	return Codec.Marshal(codecVersion, g)
}

// ParseGenesis deserializes a genesis document.
func ParseGenesis(bytes []byte) (*Genesis, error) {
	g := &Genesis{}
	if _, err := Codec.Unmarshal(bytes, g); err != nil {
		return nil, err
	}
	return g, nil
}
