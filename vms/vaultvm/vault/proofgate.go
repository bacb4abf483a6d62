// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// Verifier is the external boolean proof oracle. The vault never
// implements verification itself.
type Verifier interface {
	Verify(proof []byte, publicInputs []byte) bool
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(proof []byte, publicInputs []byte) bool

func (f VerifierFunc) Verify(proof []byte, publicInputs []byte) bool {
	return f(proof, publicInputs)
}

// ProofRecord tracks one submitted proof through the lifecycle
// submitted, verified, active, expired. At most one proof is active
// vault-wide at a time.
type ProofRecord struct {
	ID           uint64 `serialize:"true" json:"id"`
	Proof        []byte `serialize:"true" json:"proof"`
	PublicInputs []byte `serialize:"true" json:"publicInputs"`
	ProofHash    ids.ID `serialize:"true" json:"proofHash"`
	Verified     bool   `serialize:"true" json:"verified"`
	Active       bool   `serialize:"true" json:"active"`
	SubmittedAt  int64  `serialize:"true" json:"submittedAt"`
	VerifiedAt   int64  `serialize:"true" json:"verifiedAt"`
	ExpiresAt    int64  `serialize:"true" json:"expiresAt"`
}

type proofDigest struct {
	Proof        []byte `serialize:"true"`
	PublicInputs []byte `serialize:"true"`
}

// SubmitProof stores a proof as submitted, not yet verified, under the
// next sequential id.
func (v *Vault) SubmitProof(caller ids.ShortID, proof []byte, publicInputs []byte) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireNotPaused(); err != nil {
		return 0, err
	}

	digest, err := Codec.Marshal(CodecVersion, &proofDigest{
		Proof:        proof,
		PublicInputs: publicInputs,
	})
	if err != nil {
		return 0, err
	}

	counters := v.counters
	counters.ProofCounter++

	record := &ProofRecord{
		ID:           counters.ProofCounter,
		Proof:        proof,
		PublicInputs: publicInputs,
		ProofHash:    ids.ID(sha256.Sum256(digest)),
		SubmittedAt:  v.now(),
	}

	ev := v.makeEvent(&counters, EventProofSubmitted, caller)
	ev.EntityID = record.ID
	ev.Root = record.ProofHash

	if err := v.putProof(record); err != nil {
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

	v.proofs[record.ID] = record
	v.counters = counters
	v.applied(ev)

	v.log.Info("proof submitted",
		log.Uint64("proofID", record.ID),
		log.Stringer("proofHash", record.ProofHash),
	)
	return record.ID, nil
}

// VerifyProof delegates to the external verifier. Oracle rejection is a
// soft failure: it returns false with no error and no state change.
func (v *Vault) VerifyProof(caller ids.ShortID, id uint64) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return false, err
	}
	record, ok := v.proofs[id]
	if !ok {
		return false, ErrProofNotFound
	}
	if record.Verified {
		return false, ErrProofVerified
	}
	if !v.oracleVerify(record) {
		return false, nil
	}

	stored := *record
	stored.Verified = true
	stored.VerifiedAt = v.now()

	counters := v.counters
	ev := v.makeEvent(&counters, EventProofVerified, caller)
	ev.EntityID = id

	if err := v.putProof(&stored); err != nil {
		return false, err
	}
	if err := v.putEvent(ev); err != nil {
		return false, err
	}
	if err := v.putCounters(counters); err != nil {
		return false, err
	}
	if err := v.commit(); err != nil {
		return false, err
	}

	v.proofs[id] = &stored
	v.counters = counters
	v.applied(ev)

	v.log.Info("proof verified", log.Uint64("proofID", id))
	return true, nil
}

// VerifyAndActivate verifies the proof if needed, then installs it as the
// single vault-wide active proof with a fresh expiry. Oracle rejection
// returns false and changes nothing.
func (v *Vault) VerifyAndActivate(caller ids.ShortID, id uint64) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return false, err
	}
	record, ok := v.proofs[id]
	if !ok {
		return false, ErrProofNotFound
	}

	now := v.now()
	counters := v.counters
	events := make([]*Event, 0, 2)

	stored := *record
	if !stored.Verified {
		if !v.oracleVerify(record) {
			return false, nil
		}
		stored.Verified = true
		stored.VerifiedAt = now

		ev := v.makeEvent(&counters, EventProofVerified, caller)
		ev.EntityID = id
		events = append(events, ev)
	}

	stored.Active = true
	stored.ExpiresAt = now + v.params.ProofExpiry

	// Activating supersedes the prior active slot.
	var superseded *ProofRecord
	if prev := v.control.ActiveProof; prev != 0 && prev != id {
		if prevRecord, ok := v.proofs[prev]; ok && prevRecord.Active {
			cleared := *prevRecord
			cleared.Active = false
			superseded = &cleared
		}
	}

	control := v.control
	control.ActiveProof = id

	ev := v.makeEvent(&counters, EventProofActivated, caller)
	ev.EntityID = id
	ev.Root = stored.ProofHash
	events = append(events, ev)

	if err := v.putProof(&stored); err != nil {
		return false, err
	}
	if superseded != nil {
		if err := v.putProof(superseded); err != nil {
			return false, err
		}
	}
	if err := v.putControl(control); err != nil {
		return false, err
	}
	for _, ev := range events {
		if err := v.putEvent(ev); err != nil {
			return false, err
		}
	}
	if err := v.putCounters(counters); err != nil {
		return false, err
	}
	if err := v.commit(); err != nil {
		return false, err
	}

	v.proofs[id] = &stored
	if superseded != nil {
		v.proofs[superseded.ID] = superseded
	}
	v.control = control
	v.counters = counters
	v.applied(events...)

	v.log.Info("proof activated",
		log.Uint64("proofID", id),
		log.Uint64("expiresAt", uint64(stored.ExpiresAt)),
	)
	return true, nil
}

// ProofActive reports whether the vault-wide active proof exists and has
// not passed its expiry.
func (v *Vault) ProofActive() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.proofActive()
}

func (v *Vault) proofActive() bool {
	id := v.control.ActiveProof
	if id == 0 {
		return false
	}
	record, ok := v.proofs[id]
	if !ok || !record.Active {
		return false
	}
	return v.now() <= record.ExpiresAt
}

// ExpireOldProofs deactivates every active proof older than maxAge
// seconds, emitting one expiry event per proof, and clears the active
// pointer according to the configured sweep behavior. Anyone may run the
// sweep; it returns the number of proofs deactivated.
func (v *Vault) ExpireOldProofs(caller ids.ShortID, maxAge int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if maxAge < 0 {
		return 0, ErrDelayOutOfRange
	}

	now := v.now()
	counters := v.counters
	control := v.control

	expired := make([]*ProofRecord, 0)
	events := make([]*Event, 0)
	pointerDeactivated := false

	for id := uint64(1); id <= v.counters.ProofCounter; id++ {
		record, ok := v.proofs[id]
		if !ok || !record.Active {
			continue
		}
		if now-record.SubmittedAt <= maxAge {
			continue
		}
		stored := *record
		stored.Active = false
		expired = append(expired, &stored)
		if control.ActiveProof == id {
			pointerDeactivated = true
		}

		ev := v.makeEvent(&counters, EventProofExpired, caller)
		ev.EntityID = id
		events = append(events, ev)
	}

	if v.params.ClearActiveProofOnSweep || pointerDeactivated {
		control.ActiveProof = 0
	}

	if len(expired) == 0 && control.ActiveProof == v.control.ActiveProof {
		return 0, nil
	}

	for _, record := range expired {
		if err := v.putProof(record); err != nil {
			return 0, err
		}
	}
	for _, ev := range events {
		if err := v.putEvent(ev); err != nil {
			return 0, err
		}
	}
	if err := v.putControl(control); err != nil {
		return 0, err
	}
	if err := v.putCounters(counters); err != nil {
		return 0, err
	}
	if err := v.commit(); err != nil {
		return 0, err
	}

	for _, record := range expired {
		v.proofs[record.ID] = record
	}
	v.control = control
	v.counters = counters
	v.applied(events...)

	v.log.Info("proof sweep completed",
		log.Int("expired", len(expired)),
		log.Uint64("maxAge", uint64(maxAge)),
	)
	return len(expired), nil
}

func (v *Vault) oracleVerify(record *ProofRecord) bool {
	if v.verifier == nil {
		return false
	}
	return v.verifier.Verify(record.Proof, record.PublicInputs)
}

// GetProof returns a copy of the proof record with the given id.
func (v *Vault) GetProof(id uint64) (ProofRecord, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	record, ok := v.proofs[id]
	if !ok {
		return ProofRecord{}, ErrProofNotFound
	}
	return *record, nil
}

// Proofs returns copies of all proof records in id order.
func (v *Vault) Proofs() []ProofRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]ProofRecord, 0, len(v.proofs))
	for id := uint64(1); id <= v.counters.ProofCounter; id++ {
		if record, ok := v.proofs[id]; ok {
			out = append(out, *record)
		}
	}
	return out
}
