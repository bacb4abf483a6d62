// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// Transaction is a multi-sig ledger entry. Confirmations are kept as an
// append-ordered list so the approval order stays auditable; membership
// checks scan the list. Terminal states (executed, cancelled) are
// mutually exclusive and final.
type Transaction struct {
	ID            uint64        `serialize:"true" json:"id"`
	Target        ids.ShortID   `serialize:"true" json:"target"`
	Operation     string        `serialize:"true" json:"operation"`
	Args          []byte        `serialize:"true" json:"args"`
	Value         uint64        `serialize:"true" json:"value"`
	Nonce         uint64        `serialize:"true" json:"nonce"`
	CreatedAt     int64         `serialize:"true" json:"createdAt"`
	ExecutedAt    int64         `serialize:"true" json:"executedAt"`
	Cancelled     bool          `serialize:"true" json:"cancelled"`
	Confirmations []ids.ShortID `serialize:"true" json:"confirmations"`
}

// Executed reports whether the transaction has been executed.
func (t *Transaction) Executed() bool {
	return t.ExecutedAt != 0
}

// ConfirmedBy reports whether signer already confirmed the transaction.
func (t *Transaction) ConfirmedBy(signer ids.ShortID) bool {
	for _, s := range t.Confirmations {
		if s == signer {
			return true
		}
	}
	return false
}

// SubmitTransaction records a new transaction under the next sequential
// id. Anyone may submit while the vault is unpaused; a submitting signer
// auto-confirms.
func (v *Vault) SubmitTransaction(
	caller ids.ShortID,
	target ids.ShortID,
	operation string,
	args []byte,
	value uint64,
) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireNotPaused(); err != nil {
		return 0, err
	}

	counters := v.counters
	counters.TxCounter++

	tx := &Transaction{
		ID:        counters.TxCounter,
		Target:    target,
		Operation: operation,
		Args:      args,
		Value:     value,
		Nonce:     v.control.Nonce,
		CreatedAt: v.now(),
	}
	if v.signers.IsSigner(caller) {
		tx.Confirmations = []ids.ShortID{caller}
	}

	ev := v.makeEvent(&counters, EventTxCreated, caller)
	ev.EntityID = tx.ID
	ev.Target = target
	ev.Amount = value
	ev.Count = uint32(len(tx.Confirmations))

	if err := v.putTx(tx); err != nil {
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

	v.txs[tx.ID] = tx
	v.counters = counters
	v.applied(ev)

	v.log.Info("transaction submitted",
		log.Uint64("txID", tx.ID),
		log.Stringer("target", target),
		log.String("operation", operation),
		log.Uint64("value", value),
	)
	return tx.ID, nil
}

// ConfirmTransaction adds the caller's confirmation. Confirming twice is
// an idempotent no-op.
func (v *Vault) ConfirmTransaction(caller ids.ShortID, id uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if err := v.requireNotPaused(); err != nil {
		return err
	}
	tx, ok := v.txs[id]
	if !ok {
		return ErrTxNotFound
	}
	if tx.Cancelled {
		return ErrTxCancelled
	}
	if tx.Executed() {
		return ErrTxExecuted
	}
	if tx.ConfirmedBy(caller) {
		return nil
	}

	newTx := *tx
	newTx.Confirmations = make([]ids.ShortID, len(tx.Confirmations), len(tx.Confirmations)+1)
	copy(newTx.Confirmations, tx.Confirmations)
	newTx.Confirmations = append(newTx.Confirmations, caller)

	counters := v.counters
	ev := v.makeEvent(&counters, EventTxConfirmed, caller)
	ev.EntityID = id
	ev.Count = v.signers.ConfirmationCount(&newTx)

	if err := v.putTx(&newTx); err != nil {
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

	v.txs[id] = &newTx
	v.counters = counters
	v.applied(ev)

	v.log.Info("transaction confirmed",
		log.Uint64("txID", id),
		log.Stringer("signer", caller),
		log.Int("confirmations", len(newTx.Confirmations)),
	)
	return nil
}

// RevokeConfirmation withdraws a previously granted confirmation from a
// non-terminal transaction.
func (v *Vault) RevokeConfirmation(caller ids.ShortID, id uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if err := v.requireNotPaused(); err != nil {
		return err
	}
	tx, ok := v.txs[id]
	if !ok {
		return ErrTxNotFound
	}
	if tx.Cancelled {
		return ErrTxCancelled
	}
	if tx.Executed() {
		return ErrTxExecuted
	}
	if !tx.ConfirmedBy(caller) {
		return ErrNotConfirmed
	}

	newTx := *tx
	newTx.Confirmations = make([]ids.ShortID, 0, len(tx.Confirmations)-1)
	for _, s := range tx.Confirmations {
		if s != caller {
			newTx.Confirmations = append(newTx.Confirmations, s)
		}
	}

	counters := v.counters
	ev := v.makeEvent(&counters, EventTxConfirmationRevoked, caller)
	ev.EntityID = id
	ev.Count = v.signers.ConfirmationCount(&newTx)

	if err := v.putTx(&newTx); err != nil {
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

	v.txs[id] = &newTx
	v.counters = counters
	v.applied(ev)

	v.log.Info("confirmation revoked",
		log.Uint64("txID", id),
		log.Stringer("signer", caller),
	)
	return nil
}

// ExecuteTransaction invokes the target operation once the transaction
// has quorum. The invocation result is checked before any state changes;
// a failing target leaves the transaction confirmable and executable.
// Success records executedAt and bumps the vault replay nonce.
func (v *Vault) ExecuteTransaction(caller ids.ShortID, id uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if err := v.requireNotPaused(); err != nil {
		return err
	}
	tx, ok := v.txs[id]
	if !ok {
		return ErrTxNotFound
	}
	if tx.Cancelled {
		return ErrTxCancelled
	}
	if tx.Executed() {
		return ErrTxExecuted
	}
	if !v.signers.HasQuorum(tx) {
		return ErrNoQuorum
	}

	if err := v.invoke(tx.Target, tx.Operation, tx.Args, tx.Value); err != nil {
		return fmt.Errorf("target invocation failed: %w", err)
	}

	newTx := *tx
	newTx.ExecutedAt = v.now()

	control := v.control
	control.Nonce++

	counters := v.counters
	ev := v.makeEvent(&counters, EventTxExecuted, caller)
	ev.EntityID = id
	ev.Target = tx.Target
	ev.Amount = tx.Value
	ev.Count = v.signers.ConfirmationCount(tx)

	if err := v.putTx(&newTx); err != nil {
		return err
	}
	if err := v.putControl(control); err != nil {
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

	v.txs[id] = &newTx
	v.control = control
	v.counters = counters
	v.applied(ev)

	v.log.Info("transaction executed",
		log.Uint64("txID", id),
		log.Stringer("target", tx.Target),
		log.Uint64("nonce", control.Nonce),
	)
	return nil
}

// CancelTransaction irreversibly cancels a non-executed transaction,
// excluding further confirmation and execution. Permitted while paused.
func (v *Vault) CancelTransaction(caller ids.ShortID, id uint64, reason string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	tx, ok := v.txs[id]
	if !ok {
		return ErrTxNotFound
	}
	if tx.Executed() {
		return ErrTxExecuted
	}
	if tx.Cancelled {
		return ErrTxCancelled
	}

	newTx := *tx
	newTx.Cancelled = true

	counters := v.counters
	ev := v.makeEvent(&counters, EventTxCancelled, caller)
	ev.EntityID = id
	ev.Reason = reason

	if err := v.putTx(&newTx); err != nil {
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

	v.txs[id] = &newTx
	v.counters = counters
	v.applied(ev)

	v.log.Info("transaction cancelled",
		log.Uint64("txID", id),
		log.String("reason", reason),
	)
	return nil
}

// GetTransaction returns a copy of the transaction with the given id.
func (v *Vault) GetTransaction(id uint64) (Transaction, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	tx, ok := v.txs[id]
	if !ok {
		return Transaction{}, ErrTxNotFound
	}
	return *tx, nil
}

// Transactions returns copies of all transactions in id order.
func (v *Vault) Transactions() []Transaction {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Transaction, 0, len(v.txs))
	for id := uint64(1); id <= v.counters.TxCounter; id++ {
		if tx, ok := v.txs[id]; ok {
			out = append(out, *tx)
		}
	}
	return out
}

// ConfirmationCount returns the registry-intersected confirmation count.
func (v *Vault) ConfirmationCount(id uint64) (uint32, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	tx, ok := v.txs[id]
	if !ok {
		return 0, ErrTxNotFound
	}
	return v.signers.ConfirmationCount(tx), nil
}

// HasQuorum reports whether the transaction has reached the threshold.
func (v *Vault) HasQuorum(id uint64) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	tx, ok := v.txs[id]
	if !ok {
		return false, ErrTxNotFound
	}
	return v.signers.HasQuorum(tx), nil
}
