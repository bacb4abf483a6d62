// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	safemath "github.com/luxfi/math"
)

// Deposit credits amount of token to the pooled balance and the caller's
// deposit record.
func (v *Vault) Deposit(caller ids.ShortID, token ids.ShortID, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireNotPaused(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}

	pooled, err := safemath.Add64(v.pooled[token], amount)
	if err != nil {
		return fmt.Errorf("pooled balance: %w", err)
	}
	key := depositKey{token: token, depositor: caller}
	deposited, err := safemath.Add64(v.deposits[key], amount)
	if err != nil {
		return fmt.Errorf("deposit record: %w", err)
	}

	counters := v.counters
	ev := v.makeEvent(&counters, EventDeposited, caller)
	ev.Token = token
	ev.Amount = amount

	if err := v.putPooled(token, pooled); err != nil {
		return err
	}
	if err := v.putDeposit(token, caller, deposited); err != nil {
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

	v.pooled[token] = pooled
	v.deposits[key] = deposited
	v.counters = counters
	v.applied(ev)

	v.log.Info("deposit",
		log.Stringer("depositor", caller),
		log.Stringer("token", token),
		log.Uint64("amount", amount),
	)
	return nil
}

// Withdraw debits the pooled balance for token. The authorization is the
// referenced transaction's quorum; this is a thin bookkeeping wrapper
// over the ledger's authorization result.
func (v *Vault) Withdraw(
	caller ids.ShortID,
	token ids.ShortID,
	to ids.ShortID,
	amount uint64,
	txID uint64,
) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireNotPaused(); err != nil {
		return err
	}
	tx, ok := v.txs[txID]
	if !ok {
		return ErrTxNotFound
	}
	if tx.Cancelled {
		return ErrTxCancelled
	}
	if !v.signers.HasQuorum(tx) {
		return ErrNoQuorum
	}
	if amount == 0 {
		return ErrZeroAmount
	}

	pooled, err := safemath.Sub(v.pooled[token], amount)
	if err != nil {
		return ErrInsufficientBalance
	}

	counters := v.counters
	ev := v.makeEvent(&counters, EventWithdrawn, caller)
	ev.EntityID = txID
	ev.Target = to
	ev.Token = token
	ev.Amount = amount

	if err := v.putPooled(token, pooled); err != nil {
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

	v.pooled[token] = pooled
	v.counters = counters
	v.applied(ev)

	v.log.Info("withdrawal",
		log.Stringer("to", to),
		log.Stringer("token", token),
		log.Uint64("amount", amount),
		log.Uint64("txID", txID),
	)
	return nil
}

// PooledBalance returns the vault's pooled balance for token.
func (v *Vault) PooledBalance(token ids.ShortID) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pooled[token]
}

// DepositOf returns the recorded deposits of one depositor for token.
func (v *Vault) DepositOf(token ids.ShortID, depositor ids.ShortID) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.deposits[depositKey{token: token, depositor: depositor}]
}
