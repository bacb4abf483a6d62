// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import "github.com/luxfi/ids"

// Event names, one per observable state transition. Idempotent no-ops
// (duplicate confirmation, repeated revoke) emit nothing.
const (
	EventTxCreated             = "transaction_created"
	EventTxConfirmed           = "transaction_confirmed"
	EventTxConfirmationRevoked = "transaction_confirmation_revoked"
	EventTxExecuted            = "transaction_executed"
	EventTxCancelled           = "transaction_cancelled"

	EventLockCreated   = "timelock_created"
	EventLockExecuted  = "timelock_executed"
	EventLockExtended  = "timelock_extended"
	EventLockCancelled = "timelock_cancelled"

	EventProofSubmitted = "proof_submitted"
	EventProofVerified  = "proof_verified"
	EventProofActivated = "proof_activated"
	EventProofExpired   = "proof_expired"

	EventSessionRegistered = "session_key_registered"
	EventSessionRevoked    = "session_key_revoked"
	EventSessionSpent      = "session_key_spent"

	EventPaused             = "paused"
	EventUnpaused           = "unpaused"
	EventEmergencyActivated = "emergency_activated"
	EventGuardianChanged    = "guardian_changed"
	EventUpgradeProposed    = "upgrade_proposed"
	EventUpgradeExecuted    = "upgrade_executed"
	EventUpgradeCancelled   = "upgrade_cancelled"

	EventQuantumEnabled    = "quantum_mode_enabled"
	EventMerkleRootUpdated = "merkle_root_updated"

	EventDeposited = "deposited"
	EventWithdrawn = "withdrawn"
)

// Event is one committed state transition. Exactly one event is recorded
// per transition, in sequence order, and persisted alongside the state it
// describes. Unused fields hold zero values.
type Event struct {
	Sequence  uint64      `serialize:"true" json:"sequence"`
	Type      string      `serialize:"true" json:"type"`
	Timestamp int64       `serialize:"true" json:"timestamp"`
	Caller    ids.ShortID `serialize:"true" json:"caller"`
	EntityID  uint64      `serialize:"true" json:"entityId"`
	Target    ids.ShortID `serialize:"true" json:"target"`
	Token     ids.ShortID `serialize:"true" json:"token"`
	Amount    uint64      `serialize:"true" json:"amount"`
	Count     uint32      `serialize:"true" json:"count"`
	Reason    string      `serialize:"true" json:"reason"`
	Root      ids.ID      `serialize:"true" json:"root"`
}

// Addresses returns the identities an event touches, for subscription
// filtering.
func (e *Event) Addresses() []ids.ShortID {
	addrs := make([]ids.ShortID, 0, 2)
	if e.Caller != ids.ShortEmpty {
		addrs = append(addrs, e.Caller)
	}
	if e.Target != ids.ShortEmpty && e.Target != e.Caller {
		addrs = append(addrs, e.Target)
	}
	return addrs
}
