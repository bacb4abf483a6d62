// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// ControlState is the vault's operating mode: orthogonal pause, emergency
// and quantum flags, the guardian identity, the pending upgrade slot, the
// quantum-mode commitment root, the active-proof pointer, and the replay
// nonce. EmergencyMode is a latched audit flag; Paused does the
// operational blocking. Control-plane operations work while paused so the
// recovery path stays open.
type ControlState struct {
	Paused         bool        `serialize:"true" json:"paused"`
	EmergencyMode  bool        `serialize:"true" json:"emergencyMode"`
	QuantumMode    bool        `serialize:"true" json:"quantumMode"`
	Guardian       ids.ShortID `serialize:"true" json:"guardian"`
	Implementation ids.ShortID `serialize:"true" json:"implementation"`
	UpgradeTarget  ids.ShortID `serialize:"true" json:"upgradeTarget"`
	UpgradeReadyAt int64       `serialize:"true" json:"upgradeReadyAt"`
	MerkleRoot     ids.ID      `serialize:"true" json:"merkleRoot"`
	ActiveProof    uint64      `serialize:"true" json:"activeProof"`
	Nonce          uint64      `serialize:"true" json:"nonce"`
}

// commitControl stages the control record plus any accumulated events,
// commits, and applies. Shared by the control-plane operations, which all
// mutate only the control record and the journal.
func (v *Vault) commitControl(control ControlState, counters counterState, events ...*Event) error {
	if err := v.putControl(control); err != nil {
		return err
	}
	for _, ev := range events {
		if err := v.putEvent(ev); err != nil {
			return err
		}
	}
	if err := v.putCounters(counters); err != nil {
		return err
	}
	if err := v.commit(); err != nil {
		return err
	}
	v.control = control
	v.counters = counters
	v.applied(events...)
	return nil
}

// Pause halts mutating vault operations. The guardian and any signer may
// pause.
func (v *Vault) Pause(caller ids.ShortID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.signers.IsSigner(caller) && caller != v.control.Guardian {
		return ErrNotAuthorized
	}
	if v.control.Paused {
		return ErrPaused
	}

	control := v.control
	control.Paused = true

	counters := v.counters
	ev := v.makeEvent(&counters, EventPaused, caller)

	if err := v.commitControl(control, counters, ev); err != nil {
		return err
	}
	v.log.Info("vault paused", log.Stringer("caller", caller))
	return nil
}

// Unpause resumes the vault. Only a signer may resume; the guardian's
// authority is stop-only.
func (v *Vault) Unpause(caller ids.ShortID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if !v.control.Paused {
		return ErrNotPaused
	}

	control := v.control
	control.Paused = false

	counters := v.counters
	ev := v.makeEvent(&counters, EventUnpaused, caller)

	if err := v.commitControl(control, counters, ev); err != nil {
		return err
	}
	v.log.Info("vault unpaused", log.Stringer("caller", caller))
	return nil
}

// ActivateEmergencyMode pauses the vault, latches the emergency flag, and
// cancels every pending time-lock in the same atomic sweep. Guardian
// only.
func (v *Vault) ActivateEmergencyMode(caller ids.ShortID, reason string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if caller != v.control.Guardian {
		return ErrNotGuardian
	}
	if v.control.EmergencyMode {
		return ErrEmergencyActive
	}

	control := v.control
	control.EmergencyMode = true
	control.Paused = true

	counters := v.counters
	events := make([]*Event, 0, 1+len(v.locks))

	ev := v.makeEvent(&counters, EventEmergencyActivated, caller)
	ev.Reason = reason
	events = append(events, ev)

	cancelled := make([]*TimeLock, 0, len(v.locks))
	for id := uint64(1); id <= v.counters.LockCounter; id++ {
		lock, ok := v.locks[id]
		if !ok || !lock.Pending() {
			continue
		}
		stored := *lock
		stored.Cancelled = true
		cancelled = append(cancelled, &stored)

		cancelEv := v.makeEvent(&counters, EventLockCancelled, caller)
		cancelEv.EntityID = id
		cancelEv.Reason = reason
		events = append(events, cancelEv)
	}

	for _, lock := range cancelled {
		if err := v.putLock(lock); err != nil {
			return err
		}
	}
	if err := v.commitControl(control, counters, events...); err != nil {
		return err
	}
	for _, lock := range cancelled {
		v.locks[lock.ID] = lock
	}

	v.log.Info("emergency mode activated",
		log.String("reason", reason),
		log.Int("cancelledLocks", len(cancelled)),
	)
	return nil
}

// ChangeGuardian hands the guardian role to a new identity. The current
// guardian or any signer may change it.
func (v *Vault) ChangeGuardian(caller ids.ShortID, newGuardian ids.ShortID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.signers.IsSigner(caller) && caller != v.control.Guardian {
		return ErrNotAuthorized
	}

	control := v.control
	control.Guardian = newGuardian

	counters := v.counters
	ev := v.makeEvent(&counters, EventGuardianChanged, caller)
	ev.Target = newGuardian

	if err := v.commitControl(control, counters, ev); err != nil {
		return err
	}
	v.log.Info("guardian changed",
		log.Stringer("caller", caller),
		log.Stringer("guardian", newGuardian),
	)
	return nil
}

// ProposeUpgrade stages an upgrade target behind the configured delay.
// Re-proposing overwrites the slot and restarts the delay.
func (v *Vault) ProposeUpgrade(caller ids.ShortID, target ids.ShortID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if target == ids.ShortEmpty {
		return ErrEmptyUpgradeTarget
	}

	control := v.control
	control.UpgradeTarget = target
	control.UpgradeReadyAt = v.now() + v.params.UpgradeDelay

	counters := v.counters
	ev := v.makeEvent(&counters, EventUpgradeProposed, caller)
	ev.Target = target

	if err := v.commitControl(control, counters, ev); err != nil {
		return err
	}
	v.log.Info("upgrade proposed",
		log.Stringer("target", target),
		log.Uint64("readyAt", uint64(control.UpgradeReadyAt)),
	)
	return nil
}

// ExecuteUpgrade applies the pending upgrade once its delay has elapsed,
// recording the new implementation reference and clearing the slot.
func (v *Vault) ExecuteUpgrade(caller ids.ShortID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if v.control.UpgradeTarget == ids.ShortEmpty {
		return ErrNoUpgrade
	}
	if v.now() < v.control.UpgradeReadyAt {
		return ErrUpgradeNotReady
	}

	control := v.control
	control.Implementation = control.UpgradeTarget
	control.UpgradeTarget = ids.ShortEmpty
	control.UpgradeReadyAt = 0

	counters := v.counters
	ev := v.makeEvent(&counters, EventUpgradeExecuted, caller)
	ev.Target = control.Implementation

	if err := v.commitControl(control, counters, ev); err != nil {
		return err
	}
	v.log.Info("upgrade executed", log.Stringer("implementation", control.Implementation))
	return nil
}

// CancelUpgrade clears a pending upgrade without applying it.
func (v *Vault) CancelUpgrade(caller ids.ShortID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if v.control.UpgradeTarget == ids.ShortEmpty {
		return ErrNoUpgrade
	}

	control := v.control
	target := control.UpgradeTarget
	control.UpgradeTarget = ids.ShortEmpty
	control.UpgradeReadyAt = 0

	counters := v.counters
	ev := v.makeEvent(&counters, EventUpgradeCancelled, caller)
	ev.Target = target

	if err := v.commitControl(control, counters, ev); err != nil {
		return err
	}
	v.log.Info("upgrade cancelled", log.Stringer("target", target))
	return nil
}

// EnableQuantumMode switches the vault into its elevated mode. Requires
// an active, unexpired proof; the switch is one-way.
func (v *Vault) EnableQuantumMode(caller ids.ShortID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if v.control.QuantumMode {
		return ErrQuantumEnabled
	}
	if !v.proofActive() {
		return ErrNoActiveProof
	}

	control := v.control
	control.QuantumMode = true

	counters := v.counters
	ev := v.makeEvent(&counters, EventQuantumEnabled, caller)
	ev.EntityID = control.ActiveProof

	if err := v.commitControl(control, counters, ev); err != nil {
		return err
	}
	v.log.Info("quantum mode enabled", log.Uint64("proofID", control.ActiveProof))
	return nil
}

// UpdateMerkleRoot records a new commitment root. Requires quantum mode.
func (v *Vault) UpdateMerkleRoot(caller ids.ShortID, root ids.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if !v.control.QuantumMode {
		return ErrQuantumDisabled
	}

	control := v.control
	control.MerkleRoot = root

	counters := v.counters
	ev := v.makeEvent(&counters, EventMerkleRootUpdated, caller)
	ev.Root = root

	if err := v.commitControl(control, counters, ev); err != nil {
		return err
	}
	v.log.Info("merkle root updated", log.Stringer("root", root))
	return nil
}

// GetControlState returns a copy of the current control state.
func (v *Vault) GetControlState() ControlState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.control
}

// Paused reports whether the vault is paused.
func (v *Vault) Paused() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.control.Paused
}

// Guardian returns the current guardian identity.
func (v *Vault) Guardian() ids.ShortID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.control.Guardian
}
