// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "encoding/json"

// Config contains the node-level parameters of the vault VM. Chain-level
// parameters (signer registry, time windows) live in the genesis.
type Config struct {
	// Maximum number of committed operations batched into one block
	MaxOperationsPerBlock int `json:"maxOperationsPerBlock"`

	// Size of the attestation verdict cache
	AttestCacheSize int `json:"attestCacheSize"`

	// Maximum events returned by a single events query
	MaxEventsPerQuery int `json:"maxEventsPerQuery"`

	// Age in seconds past which a signer-requested sweep may expire
	// unactivated proofs
	ProofSweepMaxAge int64 `json:"proofSweepMaxAge"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxOperationsPerBlock: 256,
		AttestCacheSize:       512,
		MaxEventsPerQuery:     1024,
		ProofSweepMaxAge:      24 * 3600,
	}
}

// Validate normalizes out-of-range values to their defaults.
func (c *Config) Validate() error {
	if c.MaxOperationsPerBlock <= 0 {
		c.MaxOperationsPerBlock = 256
	}
	if c.AttestCacheSize <= 0 {
		c.AttestCacheSize = 512
	}
	if c.MaxEventsPerQuery <= 0 {
		c.MaxEventsPerQuery = 1024
	}
	if c.ProofSweepMaxAge <= 0 {
		c.ProofSweepMaxAge = 24 * 3600
	}
	return nil
}

// Parse returns the default config overlaid with the JSON configBytes.
// Empty configBytes yield the defaults.
func Parse(configBytes []byte) (Config, error) {
	c := DefaultConfig()
	if len(configBytes) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(configBytes, &c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
