// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package attest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"
	"github.com/luxfi/vault/vms/vaultvm/vault"
)

var _ vault.Verifier = (*Verifier)(nil)

func TestAttestRoundTrip(t *testing.T) {
	require := require.New(t)

	attestor, err := NewAttestor()
	require.NoError(err)
	require.Len(attestor.PublicKey(), PublicKeySize())

	inputs := []byte("proof public inputs")
	sig, err := attestor.Attest(inputs)
	require.NoError(err)
	require.Len(sig, SignatureSize())

	verifier, err := NewVerifier(attestor.PublicKey(), 16, log.NewNoOpLogger())
	require.NoError(err)

	require.True(verifier.Verify(sig, inputs))
	require.False(verifier.Verify(sig, []byte("different inputs")))

	tampered := make([]byte, len(sig))
	copy(tampered, sig)
	tampered[0] ^= 0xff
	require.False(verifier.Verify(tampered, inputs))
}

func TestVerifierRejectsForeignKey(t *testing.T) {
	require := require.New(t)

	attestor, err := NewAttestor()
	require.NoError(err)
	other, err := NewAttestor()
	require.NoError(err)

	inputs := []byte("inputs")
	sig, err := other.Attest(inputs)
	require.NoError(err)

	verifier, err := NewVerifier(attestor.PublicKey(), 16, log.NewNoOpLogger())
	require.NoError(err)
	require.False(verifier.Verify(sig, inputs))
}

func TestVerifierCachesVerdicts(t *testing.T) {
	require := require.New(t)

	attestor, err := NewAttestor()
	require.NoError(err)
	inputs := []byte("cached inputs")
	sig, err := attestor.Attest(inputs)
	require.NoError(err)

	verifier, err := NewVerifier(attestor.PublicKey(), 16, log.NewNoOpLogger())
	require.NoError(err)

	require.True(verifier.Verify(sig, inputs))
	require.True(verifier.Verify(sig, inputs))

	verifies, hits := verifier.Stats()
	require.Equal(uint64(2), verifies)
	require.Equal(uint64(1), hits)
}

func TestNewVerifierInvalidKey(t *testing.T) {
	require := require.New(t)

	_, err := NewVerifier(nil, 16, log.NewNoOpLogger())
	require.ErrorIs(err, ErrEmptyPublicKey)

	_, err = NewVerifier([]byte{0x01, 0x02}, 16, log.NewNoOpLogger())
	require.ErrorIs(err, ErrInvalidKey)
}

func TestAttestorFromBytes(t *testing.T) {
	require := require.New(t)

	attestor, err := NewAttestor()
	require.NoError(err)

	restored, err := AttestorFromBytes(attestor.Bytes())
	require.NoError(err)
	require.Equal(attestor.PublicKey(), restored.PublicKey())

	inputs := []byte("restored key inputs")
	sig, err := restored.Attest(inputs)
	require.NoError(err)

	verifier, err := NewVerifier(attestor.PublicKey(), 16, log.NewNoOpLogger())
	require.NoError(err)
	require.True(verifier.Verify(sig, inputs))

	_, err = AttestorFromBytes([]byte{0xde, 0xad})
	require.ErrorIs(err, ErrInvalidKey)
}
