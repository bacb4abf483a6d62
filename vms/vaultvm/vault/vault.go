// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vault implements a multi-party custody vault: a threshold
// multi-sig transaction ledger, a time-lock scheduler, session-key
// delegation with rolling spend limits, a proof-gated quantum mode, and
// a guardian control plane. All state belongs to one aggregate guarded
// by a single lock; every operation validates, mutates, and persists
// atomically before the next one is observed.
package vault

import (
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/vault/utils/timer/mockable"
)

// Params bounds the vault's time windows and signer capacity. All
// durations are in seconds.
type Params struct {
	MinDelay     int64 `json:"minDelay"`
	MaxDelay     int64 `json:"maxDelay"`
	ProofExpiry  int64 `json:"proofExpiry"`
	UpgradeDelay int64 `json:"upgradeDelay"`
	SpendWindow  int64 `json:"spendWindow"`
	MaxSigners   int   `json:"maxSigners"`

	// ClearActiveProofOnSweep preserves the historical behavior of
	// ExpireOldProofs clearing the active-proof pointer even when the
	// sweep deactivated nothing.
	ClearActiveProofOnSweep bool `json:"clearActiveProofOnSweep"`
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		MinDelay:                300,
		MaxDelay:                30 * 24 * 3600,
		ProofExpiry:             3600,
		UpgradeDelay:            24 * 3600,
		SpendWindow:             86400,
		MaxSigners:              10,
		ClearActiveProofOnSweep: true,
	}
}

type depositKey struct {
	token     ids.ShortID
	depositor ids.ShortID
}

// Vault is the custody aggregate. The zero value is not usable; construct
// with New.
type Vault struct {
	log      log.Logger
	clock    *mockable.Clock
	params   Params
	verifier Verifier
	invoker  Invoker
	onEvent  func(*Event)

	mu sync.RWMutex

	db        *versiondb.Database
	txDB      database.Database
	lockDB    database.Database
	proofDB   database.Database
	sessionDB database.Database
	pooledDB  database.Database
	depositDB database.Database
	eventDB   database.Database
	stateDB   database.Database

	signers SignerSet

	txs      map[uint64]*Transaction
	locks    map[uint64]*TimeLock
	proofs   map[uint64]*ProofRecord
	sessions map[ids.ShortID]*SessionPolicy
	pooled   map[ids.ShortID]uint64
	deposits map[depositKey]uint64

	control  ControlState
	counters counterState

	journal      []*Event
	pendingStart int
}

// New opens a vault over db. On first use the signer set, threshold, and
// guardian are validated and written as the genesis state; afterwards the
// stored state wins and the genesis arguments are ignored. A nil clock
// reads wall time, a nil verifier rejects every proof, and a nil invoker
// treats every target invocation as successful bookkeeping.
func New(
	db database.Database,
	signers []ids.ShortID,
	threshold uint32,
	guardian ids.ShortID,
	params Params,
	verifier Verifier,
	invoker Invoker,
	clock *mockable.Clock,
	logger log.Logger,
) (*Vault, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	if clock == nil {
		clock = &mockable.Clock{}
	}

	vdb := versiondb.New(db)
	v := &Vault{
		log:       logger,
		clock:     clock,
		params:    params,
		verifier:  verifier,
		invoker:   invoker,
		db:        vdb,
		txDB:      prefixdb.New(txPrefix, vdb),
		lockDB:    prefixdb.New(lockPrefix, vdb),
		proofDB:   prefixdb.New(proofPrefix, vdb),
		sessionDB: prefixdb.New(sessionPrefix, vdb),
		pooledDB:  prefixdb.New(pooledPrefix, vdb),
		depositDB: prefixdb.New(depositPrefix, vdb),
		eventDB:   prefixdb.New(eventPrefix, vdb),
		stateDB:   prefixdb.New(statePrefix, vdb),
		txs:       make(map[uint64]*Transaction),
		locks:     make(map[uint64]*TimeLock),
		proofs:    make(map[uint64]*ProofRecord),
		sessions:  make(map[ids.ShortID]*SessionPolicy),
		pooled:    make(map[ids.ShortID]uint64),
		deposits:  make(map[depositKey]uint64),
	}

	initialized, err := v.stateDB.Has(controlKey)
	if err != nil {
		return nil, fmt.Errorf("failed to probe state: %w", err)
	}

	if initialized {
		if err := v.load(); err != nil {
			return nil, fmt.Errorf("failed to load state: %w", err)
		}
		v.log.Info("vault state loaded",
			log.Int("signers", len(v.signers.Signers)),
			log.Int("transactions", len(v.txs)),
			log.Int("timeLocks", len(v.locks)),
			log.Int("proofs", len(v.proofs)),
			log.Int("sessions", len(v.sessions)),
		)
		return v, nil
	}

	ss := SignerSet{Signers: signers, Threshold: threshold}
	if err := ss.Validate(params.MaxSigners); err != nil {
		return nil, err
	}
	v.signers = ss
	v.control = ControlState{Guardian: guardian}

	if err := v.putSigners(v.signers); err != nil {
		return nil, err
	}
	if err := v.putControl(v.control); err != nil {
		return nil, err
	}
	if err := v.putCounters(v.counters); err != nil {
		return nil, err
	}
	if err := v.commit(); err != nil {
		return nil, err
	}

	v.log.Info("vault initialized",
		log.Int("signers", len(ss.Signers)),
		log.Int("threshold", int(ss.Threshold)),
		log.Stringer("guardian", guardian),
	)
	return v, nil
}

// SetEventHook installs a callback fired once per committed event, in
// sequence order. The hook runs with the vault lock held and must not
// call back into the vault.
func (v *Vault) SetEventHook(hook func(*Event)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onEvent = hook
}

// Clock returns the vault's time source.
func (v *Vault) Clock() *mockable.Clock {
	return v.clock
}

// Params returns the vault's configured bounds.
func (v *Vault) Params() Params {
	return v.params
}

// Close releases the underlying store. Pending uncommitted writes are
// discarded.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.db.Abort()
	return v.db.Close()
}

func (v *Vault) now() int64 {
	return v.clock.Time().Unix()
}

func (v *Vault) requireSigner(caller ids.ShortID) error {
	if !v.signers.IsSigner(caller) {
		return ErrNotSigner
	}
	return nil
}

func (v *Vault) requireNotPaused() error {
	if v.control.Paused {
		return ErrPaused
	}
	return nil
}

func (v *Vault) commit() error {
	if err := v.db.Commit(); err != nil {
		v.db.Abort()
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// makeEvent allocates the next sequence number from the working counter
// copy. The event is not visible until the caller stages and commits it.
func (v *Vault) makeEvent(c *counterState, typ string, caller ids.ShortID) *Event {
	c.EventSeq++
	return &Event{
		Sequence:  c.EventSeq,
		Type:      typ,
		Timestamp: v.now(),
		Caller:    caller,
	}
}

// applied records committed events in the journal and fires the hook.
// Call only after a successful commit.
func (v *Vault) applied(evs ...*Event) {
	for _, ev := range evs {
		v.journal = append(v.journal, ev)
		if v.onEvent != nil {
			v.onEvent(ev)
		}
	}
}

// DrainPending returns the events committed since the previous drain.
func (v *Vault) DrainPending() []*Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	evs := v.journal[v.pendingStart:]
	v.pendingStart = len(v.journal)
	return evs
}

// Events returns up to max events starting at sequence from (1-based).
func (v *Vault) Events(from uint64, max int) []*Event {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if from < 1 {
		from = 1
	}
	out := make([]*Event, 0, max)
	for _, ev := range v.journal {
		if ev.Sequence < from {
			continue
		}
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, ev)
	}
	return out
}

// Nonce returns the replay-protection nonce, bumped once per executed
// transaction.
func (v *Vault) Nonce() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.control.Nonce
}
