// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestPauseUnpauseAsymmetry(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.ErrorIs(v.Pause(outsider), ErrNotAuthorized)

	require.NoError(v.Pause(guardian))
	require.True(v.Paused())
	require.ErrorIs(v.Pause(signer1), ErrPaused)

	// The guardian can stop the vault but never restart it.
	require.ErrorIs(v.Unpause(guardian), ErrNotSigner)
	require.ErrorIs(v.Unpause(outsider), ErrNotSigner)
	require.NoError(v.Unpause(signer1))
	require.False(v.Paused())
	require.ErrorIs(v.Unpause(signer1), ErrNotPaused)

	// Signers may pause too.
	require.NoError(v.Pause(signer2))
	require.True(v.Paused())
}

func TestEmergencyModeCancelsPendingLocks(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	pending1, err := v.CreateTimeLock(signer1, testTarget, "rotate", nil, 300)
	require.NoError(err)
	pending2, err := v.CreateTimeLock(signer1, testTarget, "drain", nil, 400)
	require.NoError(err)
	executed, err := v.CreateTimeLock(signer1, testTarget, "noop", nil, 300)
	require.NoError(err)
	v.Clock().Advance(300 * time.Second)
	require.NoError(v.ExecuteTimeLock(signer1, executed))
	v.DrainPending()

	require.ErrorIs(v.ActivateEmergencyMode(signer1, "nope"), ErrNotGuardian)
	require.ErrorIs(v.ActivateEmergencyMode(outsider, "nope"), ErrNotGuardian)

	require.NoError(v.ActivateEmergencyMode(guardian, "key compromise"))

	state := v.GetControlState()
	require.True(state.EmergencyMode)
	require.True(state.Paused)

	// Every pending lock is cancelled in the same sweep; terminal locks
	// are untouched.
	lock1, err := v.GetTimeLock(pending1)
	require.NoError(err)
	require.True(lock1.Cancelled)
	lock2, err := v.GetTimeLock(pending2)
	require.NoError(err)
	require.True(lock2.Cancelled)
	done, err := v.GetTimeLock(executed)
	require.NoError(err)
	require.True(done.Executed)
	require.False(done.Cancelled)

	evs := v.DrainPending()
	require.Equal(
		[]string{EventEmergencyActivated, EventLockCancelled, EventLockCancelled},
		eventTypes(evs),
	)
	require.Equal("key compromise", evs[0].Reason)
	require.Equal("key compromise", evs[1].Reason)
	require.Equal(pending1, evs[1].EntityID)
	require.Equal(pending2, evs[2].EntityID)

	// The latch is one-shot.
	require.ErrorIs(v.ActivateEmergencyMode(guardian, "again"), ErrEmergencyActive)

	// Emergency does not end signer authority: unpausing resumes
	// operations while the latched flag remains for audit.
	require.NoError(v.Unpause(signer1))
	state = v.GetControlState()
	require.True(state.EmergencyMode)
	require.False(state.Paused)
	_, err = v.SubmitTransaction(signer1, testTarget, "sweep", nil, 0)
	require.NoError(err)
}

func TestChangeGuardian(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	newGuardian := ids.ShortID{0xcd}
	require.ErrorIs(v.ChangeGuardian(outsider, newGuardian), ErrNotAuthorized)

	require.NoError(v.ChangeGuardian(guardian, newGuardian))
	require.Equal(newGuardian, v.Guardian())

	// The old guardian's authority is gone.
	require.ErrorIs(v.ActivateEmergencyMode(guardian, "stale"), ErrNotGuardian)
	require.ErrorIs(v.Pause(guardian), ErrNotAuthorized)

	// A signer may also rotate the guardian, including while paused.
	require.NoError(v.Pause(newGuardian))
	require.NoError(v.ChangeGuardian(signer1, guardian))
	require.Equal(guardian, v.Guardian())
}

func TestUpgradeLifecycle(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)
	delay := v.Params().UpgradeDelay

	target := ids.ShortID{0x77}
	require.ErrorIs(v.ProposeUpgrade(outsider, target), ErrNotSigner)
	require.ErrorIs(v.ProposeUpgrade(signer1, ids.ShortEmpty), ErrEmptyUpgradeTarget)
	require.ErrorIs(v.ExecuteUpgrade(signer1), ErrNoUpgrade)

	require.NoError(v.ProposeUpgrade(signer1, target))
	state := v.GetControlState()
	require.Equal(target, state.UpgradeTarget)
	require.Equal(int64(testEpoch)+delay, state.UpgradeReadyAt)

	require.ErrorIs(v.ExecuteUpgrade(signer1), ErrUpgradeNotReady)

	// Re-proposing overwrites the slot and restarts the delay.
	v.Clock().Advance(time.Duration(delay) * time.Second)
	target2 := ids.ShortID{0x78}
	require.NoError(v.ProposeUpgrade(signer2, target2))
	require.ErrorIs(v.ExecuteUpgrade(signer1), ErrUpgradeNotReady)

	v.Clock().Advance(time.Duration(delay) * time.Second)
	require.NoError(v.ExecuteUpgrade(signer1))
	state = v.GetControlState()
	require.Equal(target2, state.Implementation)
	require.Equal(ids.ShortEmpty, state.UpgradeTarget)
	require.Zero(state.UpgradeReadyAt)
	require.ErrorIs(v.ExecuteUpgrade(signer1), ErrNoUpgrade)
}

func TestCancelUpgrade(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.ErrorIs(v.CancelUpgrade(signer1), ErrNoUpgrade)

	target := ids.ShortID{0x77}
	require.NoError(v.ProposeUpgrade(signer1, target))
	require.ErrorIs(v.CancelUpgrade(outsider), ErrNotSigner)
	require.NoError(v.CancelUpgrade(signer2))

	state := v.GetControlState()
	require.Equal(ids.ShortEmpty, state.UpgradeTarget)
	require.Equal(ids.ShortEmpty, state.Implementation)
	require.ErrorIs(v.ExecuteUpgrade(signer1), ErrNoUpgrade)
}

func TestQuantumModeRequiresActiveProof(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	require.ErrorIs(v.EnableQuantumMode(outsider), ErrNotSigner)
	require.ErrorIs(v.EnableQuantumMode(signer1), ErrNoActiveProof)
	require.ErrorIs(v.UpdateMerkleRoot(signer1, ids.ID{0x01}), ErrQuantumDisabled)

	proofID, err := v.SubmitProof(signer1, []byte("p"), []byte("i"))
	require.NoError(err)
	ok, err := v.VerifyAndActivate(signer1, proofID)
	require.NoError(err)
	require.True(ok)

	require.NoError(v.EnableQuantumMode(signer1))
	state := v.GetControlState()
	require.True(state.QuantumMode)
	require.ErrorIs(v.EnableQuantumMode(signer2), ErrQuantumEnabled)

	root := ids.ID{0xab}
	require.NoError(v.UpdateMerkleRoot(signer2, root))
	require.Equal(root, v.GetControlState().MerkleRoot)

	// Quantum mode survives proof expiry; only enabling is gated.
	v.Clock().Advance(time.Duration(v.Params().ProofExpiry+1) * time.Second)
	require.False(v.ProofActive())
	require.True(v.GetControlState().QuantumMode)
	require.NoError(v.UpdateMerkleRoot(signer1, ids.ID{0xac}))
}

func TestQuantumModeRejectsExpiredProof(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	proofID, err := v.SubmitProof(signer1, []byte("p"), []byte("i"))
	require.NoError(err)
	_, err = v.VerifyAndActivate(signer1, proofID)
	require.NoError(err)

	v.Clock().Advance(time.Duration(v.Params().ProofExpiry+1) * time.Second)
	require.ErrorIs(v.EnableQuantumMode(signer1), ErrNoActiveProof)
}

func TestControlPlaneWorksWhilePaused(t *testing.T) {
	require := require.New(t)
	v, _ := newTestVault(t)

	proofID, err := v.SubmitProof(signer1, []byte("p"), []byte("i"))
	require.NoError(err)
	_, err = v.VerifyAndActivate(signer1, proofID)
	require.NoError(err)

	require.NoError(v.Pause(guardian))

	// Recovery and governance stay available during a pause.
	require.NoError(v.ChangeGuardian(signer1, ids.ShortID{0xcd}))
	require.NoError(v.ProposeUpgrade(signer1, ids.ShortID{0x77}))
	require.NoError(v.CancelUpgrade(signer1))
	require.NoError(v.EnableQuantumMode(signer1))
	require.NoError(v.UpdateMerkleRoot(signer1, ids.ID{0x01}))
	require.NoError(v.ActivateEmergencyMode(ids.ShortID{0xcd}, "drill"))
}

func TestQuantumModeDoesNotGateLedger(t *testing.T) {
	require := require.New(t)
	v, invoker := newTestVault(t)

	proofID, err := v.SubmitProof(signer1, []byte("p"), []byte("i"))
	require.NoError(err)
	_, err = v.VerifyAndActivate(signer1, proofID)
	require.NoError(err)
	require.NoError(v.EnableQuantumMode(signer1))

	// Regular executions proceed identically in quantum mode.
	txID, err := v.SubmitTransaction(signer1, testTarget, "sweep", nil, 0)
	require.NoError(err)
	require.NoError(v.ConfirmTransaction(signer2, txID))
	require.NoError(v.ExecuteTransaction(signer1, txID))
	require.Len(invoker.calls, 1)
}
