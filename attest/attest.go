// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package attest verifies ML-DSA attestations over proof material. An
// attestation service signs the public inputs of a proof it has checked
// off-chain; the vault accepts the proof when the signature verifies
// against the configured attestor key.
package attest

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/cache"
	"github.com/luxfi/crypto/mldsa"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var (
	ErrEmptyPublicKey = errors.New("empty attestor public key")
	ErrInvalidKey     = errors.New("invalid attestor key")
)

const defaultCacheSize = 512

// Mode pins every attestation to ML-DSA-65 (NIST level 3).
const Mode = mldsa.MLDSA65

// PublicKeySize returns the expected attestor public key length.
func PublicKeySize() int {
	return mldsa.GetPublicKeySize(Mode)
}

// SignatureSize returns the expected attestation length.
func SignatureSize() int {
	return mldsa.GetSignatureSize(Mode)
}

// Attestor holds the signing half of an attestation key pair. It lives in
// the attestation service and in tests; the vault itself only ever sees
// the public key.
type Attestor struct {
	priv *mldsa.PrivateKey
}

// NewAttestor generates a fresh ML-DSA-65 key pair.
func NewAttestor() (*Attestor, error) {
	priv, err := mldsa.GenerateKey(rand.Reader, Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ML-DSA key: %w", err)
	}
	return &Attestor{priv: priv}, nil
}

// AttestorFromBytes restores an attestor from a serialized private key.
func AttestorFromBytes(privBytes []byte) (*Attestor, error) {
	priv, err := mldsa.PrivateKeyFromBytes(Mode, privBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &Attestor{priv: priv}, nil
}

// PublicKey returns the serialized verification key.
func (a *Attestor) PublicKey() []byte {
	return a.priv.PublicKey.Bytes()
}

// Bytes returns the serialized private key.
func (a *Attestor) Bytes() []byte {
	return a.priv.Bytes()
}

// Attest signs the public inputs of a proof the service has checked.
func (a *Attestor) Attest(publicInputs []byte) ([]byte, error) {
	sig, err := a.priv.Sign(rand.Reader, publicInputs, nil)
	if err != nil {
		return nil, fmt.Errorf("ML-DSA signing failed: %w", err)
	}
	return sig, nil
}

// Verifier checks attestations against a single attestor public key and
// caches verdicts by content hash. It implements the vault's external
// proof oracle.
type Verifier struct {
	log    log.Logger
	pubKey *mldsa.PublicKey

	verdicts *cache.LRU[ids.ID, bool]

	verifyCount uint64
	cacheHits   uint64
	mu          sync.Mutex
}

// NewVerifier builds a verifier bound to the given attestor public key.
func NewVerifier(publicKey []byte, cacheSize int, log log.Logger) (*Verifier, error) {
	if len(publicKey) == 0 {
		return nil, ErrEmptyPublicKey
	}
	pubKey, err := mldsa.PublicKeyFromBytes(publicKey, Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	return &Verifier{
		log:      log,
		pubKey:   pubKey,
		verdicts: &cache.LRU[ids.ID, bool]{Size: cacheSize},
	}, nil
}

// Verify reports whether proof is a valid attestation over publicInputs.
// Verdicts are cached; a repeat query for the same material does not
// redo the ML-DSA check.
func (v *Verifier) Verify(proof []byte, publicInputs []byte) bool {
	key := verdictKey(proof, publicInputs)

	v.mu.Lock()
	v.verifyCount++
	if verdict, ok := v.verdicts.Get(key); ok {
		v.cacheHits++
		v.mu.Unlock()
		return verdict
	}
	v.mu.Unlock()

	verdict := v.pubKey.VerifySignature(publicInputs, proof)

	v.mu.Lock()
	v.verdicts.Put(key, verdict)
	v.mu.Unlock()

	if !verdict && v.log != nil {
		v.log.Debug("attestation rejected",
			log.Int("proofLen", len(proof)),
			log.Int("inputLen", len(publicInputs)),
		)
	}
	return verdict
}

// Stats returns the number of verify calls and cache hits.
func (v *Verifier) Stats() (verifyCount, cacheHits uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.verifyCount, v.cacheHits
}

func verdictKey(proof []byte, publicInputs []byte) ids.ID {
	h := sha256.New()
	h.Write(proof)
	h.Write(publicInputs)
	var key ids.ID
	copy(key[:], h.Sum(nil))
	return key
}
