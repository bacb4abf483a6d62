// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	safemath "github.com/luxfi/math"
)

// OpTransfer is the operation name a session key uses to move value out
// of the pooled balance. Transfer amounts are debited against the
// session's rolling spending limit.
const OpTransfer = "transfer"

// SessionPolicy scopes a delegated session key: an optional single
// allowed target, one spending token with a rolling 24h limit, and a
// validity window. The spending counters roll lazily on each debit
// attempt; there is no background reset.
type SessionPolicy struct {
	Key           ids.ShortID `serialize:"true" json:"key"`
	AllowedTarget ids.ShortID `serialize:"true" json:"allowedTarget"`
	SpendingToken ids.ShortID `serialize:"true" json:"spendingToken"`
	SpendingLimit uint64      `serialize:"true" json:"spendingLimit"`
	ValidAfter    int64       `serialize:"true" json:"validAfter"`
	ValidUntil    int64       `serialize:"true" json:"validUntil"`
	Active        bool        `serialize:"true" json:"active"`
	SpendingUsed  uint64      `serialize:"true" json:"spendingUsed"`
	PeriodStart   int64       `serialize:"true" json:"periodStart"`
	RegisteredAt  int64       `serialize:"true" json:"registeredAt"`
}

// TransferArgs is the argument payload of a session-key transfer.
type TransferArgs struct {
	Token  ids.ShortID `serialize:"true" json:"token"`
	To     ids.ShortID `serialize:"true" json:"to"`
	Amount uint64      `serialize:"true" json:"amount"`
}

// RegisterSessionKey issues delegated authority under key. Registration
// always starts the session with zeroed spending counters, even when the
// key identifier is reused from a revoked session; re-registering an
// existing key overwrites its policy.
func (v *Vault) RegisterSessionKey(caller ids.ShortID, key ids.ShortID, policy SessionPolicy) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	if err := v.requireNotPaused(); err != nil {
		return err
	}
	now := v.now()
	if policy.ValidUntil <= policy.ValidAfter || policy.ValidUntil <= now {
		return ErrInvalidWindow
	}

	stored := policy
	stored.Key = key
	stored.Active = true
	stored.SpendingUsed = 0
	stored.PeriodStart = now
	stored.RegisteredAt = now

	counters := v.counters
	ev := v.makeEvent(&counters, EventSessionRegistered, caller)
	ev.Target = key
	ev.Token = stored.SpendingToken
	ev.Amount = stored.SpendingLimit

	if err := v.putSession(&stored); err != nil {
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

	v.sessions[key] = &stored
	v.counters = counters
	v.applied(ev)

	v.log.Info("session key registered",
		log.Stringer("key", key),
		log.Uint64("spendingLimit", stored.SpendingLimit),
		log.Uint64("validUntil", uint64(stored.ValidUntil)),
	)
	return nil
}

// RevokeSessionKey deactivates key immediately. Revoking an already
// revoked or unknown key is an idempotent no-op. Permitted while paused.
func (v *Vault) RevokeSessionKey(caller ids.ShortID, key ids.ShortID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireSigner(caller); err != nil {
		return err
	}
	policy, ok := v.sessions[key]
	if !ok || !policy.Active {
		return nil
	}

	stored := *policy
	stored.Active = false

	counters := v.counters
	ev := v.makeEvent(&counters, EventSessionRevoked, caller)
	ev.Target = key

	if err := v.putSession(&stored); err != nil {
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

	v.sessions[key] = &stored
	v.counters = counters
	v.applied(ev)

	v.log.Info("session key revoked", log.Stringer("key", key))
	return nil
}

// SessionKeyValid reports whether key is active and inside its validity
// window.
func (v *Vault) SessionKeyValid(key ids.ShortID) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	policy, ok := v.sessions[key]
	if !ok {
		return false
	}
	now := v.now()
	return policy.Active && policy.ValidAfter <= now && now <= policy.ValidUntil
}

// ExecuteWithSessionKey performs a delegated invocation. The session must
// be active and inside its window, the target must satisfy the policy,
// and a transfer operation debits both the rolling spending limit and the
// pooled balance before the invocation is dispatched. A failing target
// leaves every counter untouched.
func (v *Vault) ExecuteWithSessionKey(
	key ids.ShortID,
	target ids.ShortID,
	operation string,
	args []byte,
) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireNotPaused(); err != nil {
		return err
	}
	policy, ok := v.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	now := v.now()
	switch {
	case !policy.Active:
		return ErrSessionInactive
	case now < policy.ValidAfter:
		return ErrSessionNotStarted
	case now > policy.ValidUntil:
		return ErrSessionExpired
	}
	if policy.AllowedTarget != ids.ShortEmpty && target != policy.AllowedTarget {
		return ErrTargetNotAllowed
	}

	if operation != OpTransfer {
		// Non-transfer invocations touch no vault state.
		return v.invoke(target, operation, args, 0)
	}

	transfer := TransferArgs{}
	if _, err := Codec.Unmarshal(args, &transfer); err != nil {
		return fmt.Errorf("invalid transfer args: %w", err)
	}
	if transfer.Amount == 0 {
		return ErrZeroAmount
	}
	if transfer.Token != policy.SpendingToken {
		return ErrTokenNotAllowed
	}

	stored := *policy
	// Lazy window roll. Addition rather than an is-zero guard so a
	// period legitimately starting at time zero is not re-triggered.
	if stored.PeriodStart+v.params.SpendWindow <= now {
		stored.SpendingUsed = 0
		stored.PeriodStart = now
	}
	used, err := safemath.Add64(stored.SpendingUsed, transfer.Amount)
	if err != nil || used > stored.SpendingLimit {
		return ErrSpendLimitExceeded
	}
	stored.SpendingUsed = used

	balance, err := safemath.Sub(v.pooled[transfer.Token], transfer.Amount)
	if err != nil {
		return ErrInsufficientBalance
	}

	if err := v.invoke(target, operation, args, transfer.Amount); err != nil {
		return fmt.Errorf("target invocation failed: %w", err)
	}

	counters := v.counters
	ev := v.makeEvent(&counters, EventSessionSpent, key)
	ev.Target = transfer.To
	ev.Token = transfer.Token
	ev.Amount = transfer.Amount

	if err := v.putSession(&stored); err != nil {
		return err
	}
	if err := v.putPooled(transfer.Token, balance); err != nil {
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

	v.sessions[key] = &stored
	v.pooled[transfer.Token] = balance
	v.counters = counters
	v.applied(ev)

	v.log.Info("session key spend",
		log.Stringer("key", key),
		log.Stringer("token", transfer.Token),
		log.Uint64("amount", transfer.Amount),
		log.Uint64("usedInWindow", stored.SpendingUsed),
	)
	return nil
}

// GetSessionPolicy returns a copy of the policy registered under key.
func (v *Vault) GetSessionPolicy(key ids.ShortID) (SessionPolicy, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	policy, ok := v.sessions[key]
	if !ok {
		return SessionPolicy{}, ErrSessionNotFound
	}
	return *policy, nil
}

// SessionPolicies returns copies of all registered policies, ordered by
// key.
func (v *Vault) SessionPolicies() []SessionPolicy {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]SessionPolicy, 0, len(v.sessions))
	for _, policy := range v.sessions {
		out = append(out, *policy)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key[:], out[j].Key[:]) < 0
	})
	return out
}
