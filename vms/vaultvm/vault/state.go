// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
)

// Bucket prefixes under the vault's database.
var (
	txPrefix      = []byte{0x00}
	lockPrefix    = []byte{0x01}
	proofPrefix   = []byte{0x02}
	sessionPrefix = []byte{0x03}
	pooledPrefix  = []byte{0x04}
	depositPrefix = []byte{0x05}
	eventPrefix   = []byte{0x06}
	statePrefix   = []byte{0x07}

	signersKey  = []byte("signers")
	controlKey  = []byte("control")
	countersKey = []byte("counters")
)

// counterState holds the explicit sequence generators for every entity
// family. Ids start at 1; 0 means "none".
type counterState struct {
	TxCounter    uint64 `serialize:"true"`
	LockCounter  uint64 `serialize:"true"`
	ProofCounter uint64 `serialize:"true"`
	EventSeq     uint64 `serialize:"true"`
}

func packUint64(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func unpackUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid uint64 encoding length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

func (v *Vault) putTx(tx *Transaction) error {
	b, err := Codec.Marshal(CodecVersion, tx)
	if err != nil {
		return fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return v.txDB.Put(packUint64(tx.ID), b)
}

func (v *Vault) putLock(lock *TimeLock) error {
	b, err := Codec.Marshal(CodecVersion, lock)
	if err != nil {
		return fmt.Errorf("failed to serialize time-lock: %w", err)
	}
	return v.lockDB.Put(packUint64(lock.ID), b)
}

func (v *Vault) putProof(record *ProofRecord) error {
	b, err := Codec.Marshal(CodecVersion, record)
	if err != nil {
		return fmt.Errorf("failed to serialize proof: %w", err)
	}
	return v.proofDB.Put(packUint64(record.ID), b)
}

func (v *Vault) putSession(policy *SessionPolicy) error {
	b, err := Codec.Marshal(CodecVersion, policy)
	if err != nil {
		return fmt.Errorf("failed to serialize session policy: %w", err)
	}
	return v.sessionDB.Put(policy.Key[:], b)
}

func (v *Vault) putPooled(token ids.ShortID, amount uint64) error {
	return v.pooledDB.Put(token[:], packUint64(amount))
}

func (v *Vault) putDeposit(token ids.ShortID, depositor ids.ShortID, amount uint64) error {
	key := make([]byte, 0, len(token)+len(depositor))
	key = append(key, token[:]...)
	key = append(key, depositor[:]...)
	return v.depositDB.Put(key, packUint64(amount))
}

func (v *Vault) putEvent(ev *Event) error {
	b, err := Codec.Marshal(CodecVersion, ev)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	return v.eventDB.Put(packUint64(ev.Sequence), b)
}

func (v *Vault) putSigners(ss SignerSet) error {
	b, err := Codec.Marshal(CodecVersion, &ss)
	if err != nil {
		return fmt.Errorf("failed to serialize signer set: %w", err)
	}
	return v.stateDB.Put(signersKey, b)
}

func (v *Vault) putControl(control ControlState) error {
	b, err := Codec.Marshal(CodecVersion, &control)
	if err != nil {
		return fmt.Errorf("failed to serialize control state: %w", err)
	}
	return v.stateDB.Put(controlKey, b)
}

func (v *Vault) putCounters(counters counterState) error {
	b, err := Codec.Marshal(CodecVersion, &counters)
	if err != nil {
		return fmt.Errorf("failed to serialize counters: %w", err)
	}
	return v.stateDB.Put(countersKey, b)
}

// load rebuilds the in-memory aggregate from the store.
func (v *Vault) load() error {
	b, err := v.stateDB.Get(signersKey)
	if err != nil {
		return fmt.Errorf("signer set: %w", err)
	}
	if _, err := Codec.Unmarshal(b, &v.signers); err != nil {
		return fmt.Errorf("signer set: %w", err)
	}

	b, err = v.stateDB.Get(controlKey)
	if err != nil {
		return fmt.Errorf("control state: %w", err)
	}
	if _, err := Codec.Unmarshal(b, &v.control); err != nil {
		return fmt.Errorf("control state: %w", err)
	}

	b, err = v.stateDB.Get(countersKey)
	if err != nil {
		return fmt.Errorf("counters: %w", err)
	}
	if _, err := Codec.Unmarshal(b, &v.counters); err != nil {
		return fmt.Errorf("counters: %w", err)
	}

	if err := loadBucket(v.txDB, func(tx *Transaction) {
		v.txs[tx.ID] = tx
	}); err != nil {
		return fmt.Errorf("transactions: %w", err)
	}
	if err := loadBucket(v.lockDB, func(lock *TimeLock) {
		v.locks[lock.ID] = lock
	}); err != nil {
		return fmt.Errorf("time-locks: %w", err)
	}
	if err := loadBucket(v.proofDB, func(record *ProofRecord) {
		v.proofs[record.ID] = record
	}); err != nil {
		return fmt.Errorf("proofs: %w", err)
	}
	if err := loadBucket(v.sessionDB, func(policy *SessionPolicy) {
		v.sessions[policy.Key] = policy
	}); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	if err := loadBucket(v.eventDB, func(ev *Event) {
		v.journal = append(v.journal, ev)
	}); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	// Events drained into earlier blocks are not replayed.
	v.pendingStart = len(v.journal)

	if err := v.loadBalances(); err != nil {
		return err
	}
	return nil
}

// loadBucket decodes every record in a bucket. Iteration order follows
// the big-endian keys, so sequential ids arrive in id order.
func loadBucket[T any](db database.Database, add func(*T)) error {
	iter := db.NewIterator()
	defer iter.Release()

	for iter.Next() {
		record := new(T)
		if _, err := Codec.Unmarshal(iter.Value(), record); err != nil {
			return err
		}
		add(record)
	}
	return iter.Error()
}

func (v *Vault) loadBalances() error {
	iter := v.pooledDB.NewIterator()
	defer iter.Release()
	for iter.Next() {
		token, err := ids.ToShortID(iter.Key())
		if err != nil {
			return fmt.Errorf("pooled balance key: %w", err)
		}
		amount, err := unpackUint64(iter.Value())
		if err != nil {
			return fmt.Errorf("pooled balance: %w", err)
		}
		v.pooled[token] = amount
	}
	if err := iter.Error(); err != nil {
		return err
	}

	depositIter := v.depositDB.NewIterator()
	defer depositIter.Release()
	for depositIter.Next() {
		key := depositIter.Key()
		if len(key) != 40 {
			return fmt.Errorf("invalid deposit key length %d", len(key))
		}
		token, err := ids.ToShortID(key[:20])
		if err != nil {
			return fmt.Errorf("deposit key: %w", err)
		}
		depositor, err := ids.ToShortID(key[20:])
		if err != nil {
			return fmt.Errorf("deposit key: %w", err)
		}
		amount, err := unpackUint64(depositIter.Value())
		if err != nil {
			return fmt.Errorf("deposit record: %w", err)
		}
		v.deposits[depositKey{token: token, depositor: depositor}] = amount
	}
	return depositIter.Error()
}
