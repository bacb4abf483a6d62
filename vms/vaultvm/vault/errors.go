// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import "errors"

// Authorization errors. These are checked before any state is read.
var (
	ErrNotSigner     = errors.New("caller is not a signer")
	ErrNotGuardian   = errors.New("caller is not the guardian")
	ErrNotAuthorized = errors.New("caller is not authorized")
)

// State errors: the operation is invalid for the entity's current
// lifecycle state.
var (
	ErrPaused            = errors.New("vault is paused")
	ErrNotPaused         = errors.New("vault is not paused")
	ErrEmergencyActive   = errors.New("emergency mode already active")
	ErrTxExecuted        = errors.New("transaction already executed")
	ErrTxCancelled       = errors.New("transaction cancelled")
	ErrNoQuorum          = errors.New("insufficient confirmations")
	ErrNotConfirmed      = errors.New("confirmation not found")
	ErrLockExecuted      = errors.New("time-lock already executed")
	ErrLockCancelled     = errors.New("time-lock cancelled")
	ErrLockNotReady      = errors.New("time-lock not yet unlocked")
	ErrSessionInactive   = errors.New("session key revoked")
	ErrSessionNotStarted = errors.New("session key not yet valid")
	ErrSessionExpired    = errors.New("session key expired")
	ErrProofVerified     = errors.New("proof already verified")
	ErrNoActiveProof     = errors.New("no active proof")
	ErrQuantumEnabled    = errors.New("quantum mode already enabled")
	ErrQuantumDisabled   = errors.New("quantum mode not enabled")
	ErrNoUpgrade         = errors.New("no pending upgrade")
	ErrUpgradeNotReady   = errors.New("upgrade delay not elapsed")
)

// Validation errors: out-of-range or malformed parameters.
var (
	ErrInvalidThreshold   = errors.New("invalid threshold configuration")
	ErrDuplicateSigner    = errors.New("duplicate signer")
	ErrTooManySigners     = errors.New("signer count exceeds maximum")
	ErrDelayOutOfRange    = errors.New("delay outside allowed bounds")
	ErrZeroAmount         = errors.New("zero amount")
	ErrInvalidWindow      = errors.New("invalid session validity window")
	ErrTargetNotAllowed   = errors.New("target not allowed by session policy")
	ErrTokenNotAllowed    = errors.New("token not allowed by session policy")
	ErrEmptyUpgradeTarget = errors.New("empty upgrade target")
)

// Resource errors: missing entities or exhausted allowances.
var (
	ErrTxNotFound          = errors.New("transaction not found")
	ErrLockNotFound        = errors.New("time-lock not found")
	ErrSessionNotFound     = errors.New("session key not found")
	ErrProofNotFound       = errors.New("proof not found")
	ErrSpendLimitExceeded  = errors.New("spending limit exceeded")
	ErrInsufficientBalance = errors.New("insufficient pooled balance")
)
