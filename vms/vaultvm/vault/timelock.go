// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// TimeLock is a delayed operation. Readiness is evaluated lazily against
// the clock on each execution attempt; there is no background timer.
// Executed and cancelled are terminal and mutually exclusive.
type TimeLock struct {
	ID          uint64      `serialize:"true" json:"id"`
	Target      ids.ShortID `serialize:"true" json:"target"`
	Operation   string      `serialize:"true" json:"operation"`
	Args        []byte      `serialize:"true" json:"args"`
	ContentHash ids.ID      `serialize:"true" json:"contentHash"`
	CreatedAt   int64       `serialize:"true" json:"createdAt"`
	UnlockAt    int64       `serialize:"true" json:"unlockAt"`
	Executed    bool        `serialize:"true" json:"executed"`
	Cancelled   bool        `serialize:"true" json:"cancelled"`
}

// Pending reports whether the lock is still awaiting execution.
func (l *TimeLock) Pending() bool {
	return !l.Executed && !l.Cancelled
}

// CreateTimeLock schedules an operation to become executable after delay
// seconds. Creation is signer-gated; the delay must lie within
// [MinDelay, MaxDelay].
func (v *Vault) CreateTimeLock(
	caller ids.ShortID,
	target ids.ShortID,
	operation string,
	args []byte,
	delay int64,
) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return 0, err
	}
	if err := v.requireNotPaused(); err != nil {
		return 0, err
	}
	if delay < v.params.MinDelay || delay > v.params.MaxDelay {
		return 0, fmt.Errorf("%w: delay %d not in [%d, %d]",
			ErrDelayOutOfRange, delay, v.params.MinDelay, v.params.MaxDelay)
	}

	hash, err := contentHash(target, operation, args)
	if err != nil {
		return 0, err
	}

	counters := v.counters
	counters.LockCounter++

	now := v.now()
	lock := &TimeLock{
		ID:          counters.LockCounter,
		Target:      target,
		Operation:   operation,
		Args:        args,
		ContentHash: hash,
		CreatedAt:   now,
		UnlockAt:    now + delay,
	}

	ev := v.makeEvent(&counters, EventLockCreated, caller)
	ev.EntityID = lock.ID
	ev.Target = target

	if err := v.putLock(lock); err != nil {
		return 0, err
	}
	if err := v.putEvent(ev); err != nil {
		return 0, err
	}
	if err := v.putCounters(counters); err != nil {
		return 0, err
	}
	if err := v.commit(); err != nil {
		return 0, err
	}

	v.locks[lock.ID] = lock
	v.counters = counters
	v.applied(ev)

	v.log.Info("time-lock created",
		log.Uint64("lockID", lock.ID),
		log.Stringer("target", target),
		log.Uint64("unlockAt", uint64(lock.UnlockAt)),
	)
	return lock.ID, nil
}

// ExecuteTimeLock invokes a pending lock's operation once the unlock time
// has passed. Anyone may trigger execution; the elapsed delay is the sole
// authorization.
func (v *Vault) ExecuteTimeLock(caller ids.ShortID, id uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireNotPaused(); err != nil {
		return err
	}
	lock, ok := v.locks[id]
	if !ok {
		return ErrLockNotFound
	}
	if lock.Cancelled {
		return ErrLockCancelled
	}
	if lock.Executed {
		return ErrLockExecuted
	}
	if v.now() < lock.UnlockAt {
		return ErrLockNotReady
	}

	if err := v.invoke(lock.Target, lock.Operation, lock.Args, 0); err != nil {
		return fmt.Errorf("target invocation failed: %w", err)
	}

	newLock := *lock
	newLock.Executed = true

	counters := v.counters
	ev := v.makeEvent(&counters, EventLockExecuted, caller)
	ev.EntityID = id
	ev.Target = lock.Target

	if err := v.putLock(&newLock); err != nil {
		return err
	}
	if err := v.putEvent(ev); err != nil {
		return err
	}
	if err := v.putCounters(counters); err != nil {
		return err
	}
	if err := v.commit(); err != nil {
		return err
	}

	v.locks[id] = &newLock
	v.counters = counters
	v.applied(ev)

	v.log.Info("time-lock executed",
		log.Uint64("lockID", id),
		log.Stringer("target", lock.Target),
	)
	return nil
}

// ExtendTimeLock pushes a pending lock's unlock time further out.
// Extensions only increase unlockAt and may not exceed now + MaxDelay.
func (v *Vault) ExtendTimeLock(caller ids.ShortID, id uint64, additional int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	lock, ok := v.locks[id]
	if !ok {
		return ErrLockNotFound
	}
	if lock.Cancelled {
		return ErrLockCancelled
	}
	if lock.Executed {
		return ErrLockExecuted
	}
	if additional <= 0 {
		return ErrDelayOutOfRange
	}
	newUnlock := lock.UnlockAt + additional
	if newUnlock > v.now()+v.params.MaxDelay {
		return fmt.Errorf("%w: unlock time would exceed max delay", ErrDelayOutOfRange)
	}

	newLock := *lock
	newLock.UnlockAt = newUnlock

	counters := v.counters
	ev := v.makeEvent(&counters, EventLockExtended, caller)
	ev.EntityID = id
	ev.Amount = uint64(additional)

	if err := v.putLock(&newLock); err != nil {
		return err
	}
	if err := v.putEvent(ev); err != nil {
		return err
	}
	if err := v.putCounters(counters); err != nil {
		return err
	}
	if err := v.commit(); err != nil {
		return err
	}

	v.locks[id] = &newLock
	v.counters = counters
	v.applied(ev)

	v.log.Info("time-lock extended",
		log.Uint64("lockID", id),
		log.Uint64("unlockAt", uint64(newUnlock)),
	)
	return nil
}

// CancelTimeLock cancels a pending lock. Signers and the guardian may
// cancel; cancellation works while paused.
func (v *Vault) CancelTimeLock(caller ids.ShortID, id uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.signers.IsSigner(caller) && caller != v.control.Guardian {
		return ErrNotAuthorized
	}
	lock, ok := v.locks[id]
	if !ok {
		return ErrLockNotFound
	}
	if lock.Executed {
		return ErrLockExecuted
	}
	if lock.Cancelled {
		return ErrLockCancelled
	}

	newLock := *lock
	newLock.Cancelled = true

	counters := v.counters
	ev := v.makeEvent(&counters, EventLockCancelled, caller)
	ev.EntityID = id

	if err := v.putLock(&newLock); err != nil {
		return err
	}
	if err := v.putEvent(ev); err != nil {
		return err
	}
	if err := v.putCounters(counters); err != nil {
		return err
	}
	if err := v.commit(); err != nil {
		return err
	}

	v.locks[id] = &newLock
	v.counters = counters
	v.applied(ev)

	v.log.Info("time-lock cancelled", log.Uint64("lockID", id))
	return nil
}

// GetTimeLock returns a copy of the lock with the given id.
func (v *Vault) GetTimeLock(id uint64) (TimeLock, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	lock, ok := v.locks[id]
	if !ok {
		return TimeLock{}, ErrLockNotFound
	}
	return *lock, nil
}

// TimeLocks returns copies of all locks in id order.
func (v *Vault) TimeLocks() []TimeLock {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]TimeLock, 0, len(v.locks))
	for id := uint64(1); id <= v.counters.LockCounter; id++ {
		if lock, ok := v.locks[id]; ok {
			out = append(out, *lock)
		}
	}
	return out
}
