// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateTimeLockDelayBounds(t *testing.T) {
	v, _ := newTestVault(t)
	maxDelay := v.Params().MaxDelay

	tests := []struct {
		name  string
		delay int64
		err   error
	}{
		{name: "below minimum", delay: 299, err: ErrDelayOutOfRange},
		{name: "zero", delay: 0, err: ErrDelayOutOfRange},
		{name: "negative", delay: -1, err: ErrDelayOutOfRange},
		{name: "at minimum", delay: 300},
		{name: "at maximum", delay: maxDelay},
		{name: "above maximum", delay: maxDelay + 1, err: ErrDelayOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			id, err := v.CreateTimeLock(signer1, testTarget, "rotate", nil, tt.delay)
			if tt.err != nil {
				require.ErrorIs(err, tt.err)
				return
			}
			require.NoError(err)
			lock, err := v.GetTimeLock(id)
			require.NoError(err)
			require.Equal(lock.CreatedAt+tt.delay, lock.UnlockAt)
		})
	}
}

func TestExecuteTimeLockAfterDelay(t *testing.T) {
	require := require.New(t)
	v, invoker := newTestVault(t)

	lockID, err := v.CreateTimeLock(signer1, testTarget, "rotate", []byte{0x02}, 300)
	require.NoError(err)

	// One second early is still locked.
	v.Clock().Advance(299 * time.Second)
	require.ErrorIs(v.ExecuteTimeLock(signer1, lockID), ErrLockNotReady)
	require.Empty(invoker.calls)

	// At the boundary the delay itself is the authorization: any caller
	// may trigger execution.
	v.Clock().Advance(1 * time.Second)
	require.NoError(v.ExecuteTimeLock(outsider, lockID))
	require.Len(invoker.calls, 1)
	require.Equal(invocation{target: testTarget, operation: "rotate", value: 0}, invoker.calls[0])

	lock, err := v.GetTimeLock(lockID)
	require.NoError(err)
	require.True(lock.Executed)
	require.False(lock.Pending())

	// Exactly once.
	require.ErrorIs(v.ExecuteTimeLock(signer1, lockID), ErrLockExecuted)
	require.Len(invoker.calls, 1)
}

func TestCreateTimeLockAuthorization(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	_, err := v.CreateTimeLock(outsider, testTarget, "rotate", nil, 300)
	require.ErrorIs(err, ErrNotSigner)
	_, err = v.CreateTimeLock(guardian, testTarget, "rotate", nil, 300)
	require.ErrorIs(err, ErrNotSigner)
}

func TestExtendTimeLock(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	lockID, err := v.CreateTimeLock(signer1, testTarget, "rotate", nil, 300)
	require.NoError(err)
	before, err := v.GetTimeLock(lockID)
	require.NoError(err)

	require.NoError(v.ExtendTimeLock(signer2, lockID, 500))
	after, err := v.GetTimeLock(lockID)
	require.NoError(err)
	require.Equal(before.UnlockAt+500, after.UnlockAt)

	// Extensions only push the unlock outward.
	require.ErrorIs(v.ExtendTimeLock(signer1, lockID, 0), ErrDelayOutOfRange)
	require.ErrorIs(v.ExtendTimeLock(signer1, lockID, -100), ErrDelayOutOfRange)
	require.ErrorIs(
		v.ExtendTimeLock(signer1, lockID, v.Params().MaxDelay),
		ErrDelayOutOfRange,
	)
	require.ErrorIs(v.ExtendTimeLock(outsider, lockID, 100), ErrNotSigner)
	require.ErrorIs(v.ExtendTimeLock(guardian, lockID, 100), ErrNotSigner)

	// An extended lock honors its new unlock time.
	v.Clock().Advance(300 * time.Second)
	require.ErrorIs(v.ExecuteTimeLock(signer1, lockID), ErrLockNotReady)
	v.Clock().Advance(500 * time.Second)
	require.NoError(v.ExecuteTimeLock(signer1, lockID))

	require.ErrorIs(v.ExtendTimeLock(signer1, lockID, 100), ErrLockExecuted)
}

func TestCancelTimeLock(t *testing.T) {
	require := require.New(t)
	v, invoker := newTestVault(t)

	lockID, err := v.CreateTimeLock(signer1, testTarget, "rotate", nil, 300)
	require.NoError(err)

	require.ErrorIs(v.CancelTimeLock(outsider, lockID), ErrNotAuthorized)

	// The guardian can cancel without being a signer.
	require.NoError(v.CancelTimeLock(guardian, lockID))
	lock, err := v.GetTimeLock(lockID)
	require.NoError(err)
	require.True(lock.Cancelled)

	require.ErrorIs(v.CancelTimeLock(signer1, lockID), ErrLockCancelled)
	require.ErrorIs(v.ExtendTimeLock(signer1, lockID, 100), ErrLockCancelled)

	v.Clock().Advance(300 * time.Second)
	require.ErrorIs(v.ExecuteTimeLock(signer1, lockID), ErrLockCancelled)
	require.Empty(invoker.calls)

	second, err := v.CreateTimeLock(signer1, testTarget, "rotate", nil, 300)
	require.NoError(err)
	v.Clock().Advance(300 * time.Second)
	require.NoError(v.ExecuteTimeLock(signer1, second))
	require.ErrorIs(v.CancelTimeLock(signer1, second), ErrLockExecuted)
}

func TestTimeLockPausePolicy(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	lockID, err := v.CreateTimeLock(signer1, testTarget, "rotate", nil, 300)
	require.NoError(err)
	v.Clock().Advance(300 * time.Second)

	require.NoError(v.Pause(signer1))

	_, err = v.CreateTimeLock(signer1, testTarget, "rotate", nil, 300)
	require.ErrorIs(err, ErrPaused)
	require.ErrorIs(v.ExecuteTimeLock(signer1, lockID), ErrPaused)

	// Extension and cancellation stay open while paused so schedules can
	// be managed during an incident.
	require.NoError(v.ExtendTimeLock(signer1, lockID, 100))
	require.NoError(v.CancelTimeLock(guardian, lockID))
}

func TestTimeLockContentHash(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	a, err := v.CreateTimeLock(signer1, testTarget, "rotate", []byte{0x01}, 300)
	require.NoError(err)
	b, err := v.CreateTimeLock(signer1, testTarget, "rotate", []byte{0x01}, 400)
	require.NoError(err)
	c, err := v.CreateTimeLock(signer1, testTarget, "rotate", []byte{0x02}, 300)
	require.NoError(err)

	lockA, err := v.GetTimeLock(a)
	require.NoError(err)
	lockB, err := v.GetTimeLock(b)
	require.NoError(err)
	lockC, err := v.GetTimeLock(c)
	require.NoError(err)

	// The hash commits to target, operation, and args, not to timing.
	require.Equal(lockA.ContentHash, lockB.ContentHash)
	require.NotEqual(lockA.ContentHash, lockC.ContentHash)
}

func TestTimeLocksListsInIDOrder(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	for i := int64(0); i < 3; i++ {
		_, err := v.CreateTimeLock(signer1, testTarget, "rotate", nil, 300+i)
		require.NoError(err)
	}
	locks := v.TimeLocks()
	require.Len(locks, 3)
	for i, lock := range locks {
		require.Equal(uint64(i+1), lock.ID)
	}
}
