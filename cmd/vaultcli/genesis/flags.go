// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"github.com/spf13/pflag"

	"github.com/luxfi/ids"

	"github.com/luxfi/vault/utils/formatting"
	"github.com/luxfi/vault/vms/vaultvm"
)

const (
	TimestampKey    = "timestamp"
	SignersKey      = "signers"
	ThresholdKey    = "threshold"
	GuardianKey     = "guardian"
	AttestorKey     = "attestor-key"
	MinDelayKey     = "min-delay"
	MaxDelayKey     = "max-delay"
	ProofExpiryKey  = "proof-expiry"
	UpgradeDelayKey = "upgrade-delay"
	SpendWindowKey  = "spend-window"
	MaxSignersKey   = "max-signers"
	KeepProofKey    = "keep-active-proof-on-sweep"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.Int64(TimestampKey, 0, "Chain creation time, in Unix seconds")
	flags.StringSlice(SignersKey, nil, "Addresses seeding the signer registry (required)")
	flags.Uint32(ThresholdKey, 0, "Confirmations required for quorum (required)")
	flags.String(GuardianKey, "", "Guardian address (required)")
	flags.String(AttestorKey, "", "Hex encoded attestation public key")
	flags.Int64(MinDelayKey, 0, "Override for the minimum time-lock delay, in seconds")
	flags.Int64(MaxDelayKey, 0, "Override for the maximum time-lock delay, in seconds")
	flags.Int64(ProofExpiryKey, 0, "Override for the verified proof lifetime, in seconds")
	flags.Int64(UpgradeDelayKey, 0, "Override for the upgrade delay, in seconds")
	flags.Int64(SpendWindowKey, 0, "Override for the session spending window, in seconds")
	flags.Uint32(MaxSignersKey, 0, "Override for the signer registry capacity")
	flags.Bool(KeepProofKey, false, "Keep the active proof pointer across expiry sweeps")
}

type Config struct {
	Genesis *vaultvm.Genesis
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	timestamp, err := flags.GetInt64(TimestampKey)
	if err != nil {
		return nil, err
	}

	signerStrs, err := flags.GetStringSlice(SignersKey)
	if err != nil {
		return nil, err
	}

	signers := make([]ids.ShortID, len(signerStrs))
	for i, signerStr := range signerStrs {
		signers[i], err = ids.ShortFromString(signerStr)
		if err != nil {
			return nil, err
		}
	}

	threshold, err := flags.GetUint32(ThresholdKey)
	if err != nil {
		return nil, err
	}

	guardianStr, err := flags.GetString(GuardianKey)
	if err != nil {
		return nil, err
	}

	guardian, err := ids.ShortFromString(guardianStr)
	if err != nil {
		return nil, err
	}

	attestorStr, err := flags.GetString(AttestorKey)
	if err != nil {
		return nil, err
	}

	attestorKey, err := formatting.Decode(formatting.HexNC, attestorStr)
	if err != nil {
		return nil, err
	}

	minDelay, err := flags.GetInt64(MinDelayKey)
	if err != nil {
		return nil, err
	}

	maxDelay, err := flags.GetInt64(MaxDelayKey)
	if err != nil {
		return nil, err
	}

	proofExpiry, err := flags.GetInt64(ProofExpiryKey)
	if err != nil {
		return nil, err
	}

	upgradeDelay, err := flags.GetInt64(UpgradeDelayKey)
	if err != nil {
		return nil, err
	}

	spendWindow, err := flags.GetInt64(SpendWindowKey)
	if err != nil {
		return nil, err
	}

	maxSigners, err := flags.GetUint32(MaxSignersKey)
	if err != nil {
		return nil, err
	}

	keepProof, err := flags.GetBool(KeepProofKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		Genesis: &vaultvm.Genesis{
			Timestamp:              timestamp,
			Signers:                signers,
			Threshold:              threshold,
			Guardian:               guardian,
			AttestorPublicKey:      attestorKey,
			MinDelay:               minDelay,
			MaxDelay:               maxDelay,
			ProofExpiry:            proofExpiry,
			UpgradeDelay:           upgradeDelay,
			SpendWindow:            spendWindow,
			MaxSigners:             maxSigners,
			KeepActiveProofOnSweep: keepProof,
		},
	}, nil
}
