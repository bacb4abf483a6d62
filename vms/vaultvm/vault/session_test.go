// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

var (
	sessionKey = ids.ShortID{0x40}
	recipient  = ids.ShortID{0x41}
)

func registerTestSession(t *testing.T, v *Vault, limit uint64) {
	t.Helper()
	require.NoError(t, v.RegisterSessionKey(signer1, sessionKey, SessionPolicy{
		SpendingToken: testToken,
		SpendingLimit: limit,
		ValidAfter:    testEpoch,
		ValidUntil:    testEpoch + 30*86400,
	}))
}

func TestSessionRollingSpendWindow(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 10_000))
	registerTestSession(t, v, 1000)

	// 600 of the 1000 window allowance.
	require.NoError(v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 600)))
	policy, err := v.GetSessionPolicy(sessionKey)
	require.NoError(err)
	require.Equal(uint64(600), policy.SpendingUsed)

	// 500 more in the same window breaks the limit and changes nothing.
	err = v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 500))
	require.ErrorIs(err, ErrSpendLimitExceeded)
	policy, err = v.GetSessionPolicy(sessionKey)
	require.NoError(err)
	require.Equal(uint64(600), policy.SpendingUsed)
	require.Equal(uint64(9_400), v.PooledBalance(testToken))

	// One second past the window the counters roll and the same spend
	// clears.
	v.Clock().Advance(86_401 * time.Second)
	require.NoError(v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 500)))
	policy, err = v.GetSessionPolicy(sessionKey)
	require.NoError(err)
	require.Equal(uint64(500), policy.SpendingUsed)
	require.Equal(int64(testEpoch+86_401), policy.PeriodStart)
	require.Equal(uint64(8_900), v.PooledBalance(testToken))
}

func TestSessionSpendAtExactWindowBoundary(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 5_000))
	registerTestSession(t, v, 1000)

	require.NoError(v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 1000)))

	// periodStart + window == now rolls the window.
	v.Clock().Advance(86_400 * time.Second)
	require.NoError(v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 1000)))
}

func TestSessionValidityWindow(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 1_000))
	require.NoError(v.RegisterSessionKey(signer1, sessionKey, SessionPolicy{
		SpendingToken: testToken,
		SpendingLimit: 1000,
		ValidAfter:    testEpoch + 100,
		ValidUntil:    testEpoch + 200,
	}))

	args := transferArgs(t, testToken, recipient, 10)

	require.ErrorIs(
		v.ExecuteWithSessionKey(sessionKey, testTarget, OpTransfer, args),
		ErrSessionNotStarted,
	)

	v.Clock().Advance(100 * time.Second)
	require.NoError(v.ExecuteWithSessionKey(sessionKey, testTarget, OpTransfer, args))

	// The window is inclusive at both ends.
	v.Clock().Advance(100 * time.Second)
	require.NoError(v.ExecuteWithSessionKey(sessionKey, testTarget, OpTransfer, args))

	v.Clock().Advance(1 * time.Second)
	require.ErrorIs(
		v.ExecuteWithSessionKey(sessionKey, testTarget, OpTransfer, args),
		ErrSessionExpired,
	)

	require.ErrorIs(
		v.ExecuteWithSessionKey(ids.ShortID{0x99}, testTarget, OpTransfer, args),
		ErrSessionNotFound,
	)
}

func TestRegisterSessionKeyValidation(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	err := v.RegisterSessionKey(outsider, sessionKey, SessionPolicy{
		ValidAfter: testEpoch,
		ValidUntil: testEpoch + 100,
	})
	require.ErrorIs(err, ErrNotSigner)

	// Inverted and already-expired windows are rejected.
	err = v.RegisterSessionKey(signer1, sessionKey, SessionPolicy{
		ValidAfter: testEpoch + 100,
		ValidUntil: testEpoch + 100,
	})
	require.ErrorIs(err, ErrInvalidWindow)
	err = v.RegisterSessionKey(signer1, sessionKey, SessionPolicy{
		ValidAfter: testEpoch - 200,
		ValidUntil: testEpoch,
	})
	require.ErrorIs(err, ErrInvalidWindow)

	require.NoError(v.Pause(guardian))
	err = v.RegisterSessionKey(signer1, sessionKey, SessionPolicy{
		ValidAfter: testEpoch,
		ValidUntil: testEpoch + 100,
	})
	require.ErrorIs(err, ErrPaused)
}

func TestReRegisterResetsSpendCounters(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 5_000))
	registerTestSession(t, v, 1000)
	require.NoError(v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 900)))

	// Overwriting the policy starts a fresh window with zero usage, even
	// for a reused key identifier.
	v.Clock().Advance(10 * time.Second)
	registerTestSession(t, v, 2000)
	policy, err := v.GetSessionPolicy(sessionKey)
	require.NoError(err)
	require.Equal(uint64(0), policy.SpendingUsed)
	require.Equal(uint64(2000), policy.SpendingLimit)
	require.Equal(int64(testEpoch+10), policy.PeriodStart)
	require.True(policy.Active)

	require.NoError(v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 1500)))
}

func TestRevokeSessionKey(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 1_000))
	registerTestSession(t, v, 1000)
	v.DrainPending()

	require.ErrorIs(v.RevokeSessionKey(outsider, sessionKey), ErrNotSigner)

	require.NoError(v.RevokeSessionKey(signer2, sessionKey))
	require.False(v.SessionKeyValid(sessionKey))
	require.ErrorIs(
		v.ExecuteWithSessionKey(
			sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 10)),
		ErrSessionInactive,
	)

	evs := v.DrainPending()
	require.Equal([]string{EventSessionRevoked}, eventTypes(evs))

	// Revoking a revoked or unknown key is silent.
	require.NoError(v.RevokeSessionKey(signer2, sessionKey))
	require.NoError(v.RevokeSessionKey(signer2, ids.ShortID{0x99}))
	require.Empty(v.DrainPending())

	// Revocation stays available while paused.
	registerTestSession(t, v, 1000)
	require.NoError(v.Pause(guardian))
	require.NoError(v.RevokeSessionKey(signer1, sessionKey))
}

func TestSessionAllowedTarget(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 1_000))
	allowed := ids.ShortID{0x50}
	require.NoError(v.RegisterSessionKey(signer1, sessionKey, SessionPolicy{
		AllowedTarget: allowed,
		SpendingToken: testToken,
		SpendingLimit: 1000,
		ValidAfter:    testEpoch,
		ValidUntil:    testEpoch + 1000,
	}))

	args := transferArgs(t, testToken, recipient, 10)
	require.ErrorIs(
		v.ExecuteWithSessionKey(sessionKey, testTarget, OpTransfer, args),
		ErrTargetNotAllowed,
	)
	require.NoError(v.ExecuteWithSessionKey(sessionKey, allowed, OpTransfer, args))
}

func TestSessionNonTransferInvocation(t *testing.T) {
	require := require.New(t)
	v, invoker := newTestVault(t)

	registerTestSession(t, v, 1000)
	v.DrainPending()

	// Non-transfer calls are dispatched but touch no vault state and
	// journal nothing.
	require.NoError(v.ExecuteWithSessionKey(sessionKey, testTarget, "ping", []byte{0x01}))
	require.Len(invoker.calls, 1)
	require.Equal("ping", invoker.calls[0].operation)
	require.Empty(v.DrainPending())

	policy, err := v.GetSessionPolicy(sessionKey)
	require.NoError(err)
	require.Equal(uint64(0), policy.SpendingUsed)
}

func TestSessionTransferValidation(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 100))
	registerTestSession(t, v, 1000)

	require.ErrorIs(
		v.ExecuteWithSessionKey(
			sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 0)),
		ErrZeroAmount,
	)

	// Spending any token but the policy token fails closed.
	otherToken := ids.ShortID{0x60}
	require.ErrorIs(
		v.ExecuteWithSessionKey(
			sessionKey, testTarget, OpTransfer, transferArgs(t, otherToken, recipient, 10)),
		ErrTokenNotAllowed,
	)

	// Inside the limit but over the pooled balance.
	require.ErrorIs(
		v.ExecuteWithSessionKey(
			sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 500)),
		ErrInsufficientBalance,
	)

	// Malformed transfer args are rejected before any counter moves.
	require.Error(v.ExecuteWithSessionKey(sessionKey, testTarget, OpTransfer, []byte{0xff}))
	policy, err := v.GetSessionPolicy(sessionKey)
	require.NoError(err)
	require.Equal(uint64(0), policy.SpendingUsed)
}

func TestSessionTransferPausePolicy(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 1_000))
	registerTestSession(t, v, 1000)
	require.NoError(v.Pause(guardian))

	require.ErrorIs(
		v.ExecuteWithSessionKey(
			sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 10)),
		ErrPaused,
	)
}

func TestFailedTransferInvocationKeepsCounters(t *testing.T) {
	require := require.New(t)
	v, invoker := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 1_000))
	registerTestSession(t, v, 1000)
	v.DrainPending()

	invoker.err = errors.New("target reverted")
	err := v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 100))
	require.ErrorIs(err, invoker.err)

	policy, err := v.GetSessionPolicy(sessionKey)
	require.NoError(err)
	require.Equal(uint64(0), policy.SpendingUsed)
	require.Equal(uint64(1_000), v.PooledBalance(testToken))
	require.Empty(v.DrainPending())
}

func TestSessionSpendEmitsEvent(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 1_000))
	registerTestSession(t, v, 1000)
	v.DrainPending()

	require.NoError(v.ExecuteWithSessionKey(
		sessionKey, testTarget, OpTransfer, transferArgs(t, testToken, recipient, 250)))

	evs := v.DrainPending()
	require.Len(evs, 1)
	require.Equal(EventSessionSpent, evs[0].Type)
	require.Equal(sessionKey, evs[0].Caller)
	require.Equal(recipient, evs[0].Target)
	require.Equal(testToken, evs[0].Token)
	require.Equal(uint64(250), evs[0].Amount)
}

func TestSessionPoliciesSortedByKey(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	for _, b := range []byte{0x07, 0x03, 0x05} {
		require.NoError(v.RegisterSessionKey(signer1, ids.ShortID{b}, SessionPolicy{
			SpendingToken: testToken,
			SpendingLimit: 100,
			ValidAfter:    testEpoch,
			ValidUntil:    testEpoch + 1000,
		}))
	}

	policies := v.SessionPolicies()
	require.Len(policies, 3)
	require.Equal(ids.ShortID{0x03}, policies[0].Key)
	require.Equal(ids.ShortID{0x05}, policies[1].Key)
	require.Equal(ids.ShortID{0x07}, policies[2].Key)
}
