// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestDeposit(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.ErrorIs(v.Deposit(outsider, testToken, 0), ErrZeroAmount)

	// Depositing is open to anyone and accumulates per depositor.
	require.NoError(v.Deposit(outsider, testToken, 400))
	require.NoError(v.Deposit(signer1, testToken, 100))
	require.NoError(v.Deposit(outsider, testToken, 25))

	require.Equal(uint64(525), v.PooledBalance(testToken))
	require.Equal(uint64(425), v.DepositOf(testToken, outsider))
	require.Equal(uint64(100), v.DepositOf(testToken, signer1))
	require.Zero(v.DepositOf(testToken, signer2))

	otherToken := ids.ShortID{0x21}
	require.NoError(v.Deposit(outsider, otherToken, 7))
	require.Equal(uint64(7), v.PooledBalance(otherToken))
	require.Equal(uint64(525), v.PooledBalance(testToken))

	require.NoError(v.Pause(guardian))
	require.ErrorIs(v.Deposit(outsider, testToken, 1), ErrPaused)
}

func TestWithdrawRequiresQuorumTransaction(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 1_000))

	require.ErrorIs(v.Withdraw(signer1, testToken, outsider, 100, 99), ErrTxNotFound)

	txID, err := v.SubmitTransaction(signer1, testTarget, "withdraw", nil, 0)
	require.NoError(err)
	require.ErrorIs(v.Withdraw(signer1, testToken, outsider, 100, txID), ErrNoQuorum)

	require.NoError(v.ConfirmTransaction(signer2, txID))

	require.ErrorIs(v.Withdraw(signer1, testToken, outsider, 0, txID), ErrZeroAmount)
	require.ErrorIs(
		v.Withdraw(signer1, testToken, outsider, 2_000, txID),
		ErrInsufficientBalance,
	)

	// The referenced transaction's quorum is the authorization; the
	// caller itself is unchecked.
	require.NoError(v.Withdraw(outsider, testToken, outsider, 300, txID))
	require.Equal(uint64(700), v.PooledBalance(testToken))

	// An executed transaction keeps its confirmations and still
	// authorizes.
	require.NoError(v.ExecuteTransaction(signer1, txID))
	require.NoError(v.Withdraw(signer1, testToken, outsider, 200, txID))
	require.Equal(uint64(500), v.PooledBalance(testToken))

	// A cancelled transaction does not.
	other, err := v.SubmitTransaction(signer1, testTarget, "withdraw", nil, 0)
	require.NoError(err)
	require.NoError(v.ConfirmTransaction(signer2, other))
	require.NoError(v.CancelTransaction(signer1, other, "stale"))
	require.ErrorIs(v.Withdraw(signer1, testToken, outsider, 100, other), ErrTxCancelled)

	require.NoError(v.Pause(guardian))
	require.ErrorIs(v.Withdraw(signer1, testToken, outsider, 100, txID), ErrPaused)
}

func TestDepositWithdrawEvents(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.NoError(v.Deposit(outsider, testToken, 500))
	txID, err := v.SubmitTransaction(signer1, testTarget, "withdraw", nil, 0)
	require.NoError(err)
	require.NoError(v.ConfirmTransaction(signer2, txID))
	v.DrainPending()

	to := ids.ShortID{0x31}
	require.NoError(v.Withdraw(signer1, testToken, to, 120, txID))

	evs := v.DrainPending()
	require.Len(evs, 1)
	require.Equal(EventWithdrawn, evs[0].Type)
	require.Equal(txID, evs[0].EntityID)
	require.Equal(to, evs[0].Target)
	require.Equal(testToken, evs[0].Token)
	require.Equal(uint64(120), evs[0].Amount)
}
