// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"
)

// SignerSet holds the ordered signer list and the approval threshold.
// The set is fixed at construction; rotation is out of scope. Membership
// is a linear scan over the size-bounded list.
type SignerSet struct {
	Signers   []ids.ShortID `serialize:"true" json:"signers"`
	Threshold uint32        `serialize:"true" json:"threshold"`
}

// Validate checks the construction invariant
// 1 <= threshold <= len(signers) <= maxSigners and rejects duplicates.
func (s *SignerSet) Validate(maxSigners int) error {
	n := len(s.Signers)
	if s.Threshold < 1 || int(s.Threshold) > n {
		return ErrInvalidThreshold
	}
	if maxSigners > 0 && n > maxSigners {
		return ErrTooManySigners
	}
	seen := set.NewSet[ids.ShortID](n)
	for _, signer := range s.Signers {
		if seen.Contains(signer) {
			return ErrDuplicateSigner
		}
		seen.Add(signer)
	}
	return nil
}

// IsSigner reports whether identity holds a vote toward the threshold.
func (s *SignerSet) IsSigner(identity ids.ShortID) bool {
	for _, signer := range s.Signers {
		if signer == identity {
			return true
		}
	}
	return false
}

// ConfirmationCount counts the confirmations on tx whose signer is in the
// registry.
func (s *SignerSet) ConfirmationCount(tx *Transaction) uint32 {
	count := uint32(0)
	for _, signer := range tx.Confirmations {
		if s.IsSigner(signer) {
			count++
		}
	}
	return count
}

// HasQuorum reports whether tx has reached the threshold.
func (s *SignerSet) HasQuorum(tx *Transaction) bool {
	return s.ConfirmationCount(tx) >= s.Threshold
}

// Signers returns a copy of the registered signer set.
func (v *Vault) Signers() SignerSet {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := SignerSet{
		Signers:   make([]ids.ShortID, len(v.signers.Signers)),
		Threshold: v.signers.Threshold,
	}
	copy(out.Signers, v.signers.Signers)
	return out
}

// IsSigner reports whether identity is a registered signer.
func (v *Vault) IsSigner(identity ids.ShortID) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.signers.IsSigner(identity)
}
