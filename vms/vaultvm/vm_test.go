// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	consensusctx "github.com/luxfi/consensus/context"
	core "github.com/luxfi/consensus/core"
	"github.com/luxfi/constants"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/vault/vms/vaultvm/vault"
)

const testEpoch = 1_700_000_000

var (
	testSigner1  = ids.ShortID{0x01}
	testSigner2  = ids.ShortID{0x02}
	testSigner3  = ids.ShortID{0x03}
	testGuardian = ids.ShortID{0xaa}
	testTarget   = ids.ShortID{0x10}
	testToken    = ids.ShortID{0x20}
)

func testGenesisBytes(t *testing.T) []byte {
	t.Helper()
	g := &Genesis{
		Timestamp: testEpoch,
		Signers:   []ids.ShortID{testSigner1, testSigner2, testSigner3},
		Threshold: 2,
		Guardian:  testGuardian,
	}
	bytes, err := g.Bytes()
	require.NoError(t, err)
	return bytes
}

func setupTestVM(t *testing.T) (*VM, chan core.Message) {
	t.Helper()
	return setupTestVMWithDB(t, memdb.New(), nil)
}

func setupTestVMWithDB(t *testing.T, db database.Database, configBytes []byte) (*VM, chan core.Message) {
	t.Helper()
	chainCtx := &consensusctx.Context{
		NetworkID: constants.UnitTestID,
		ChainID:   ids.GenerateTestID(),
		Log:       log.NoLog{},
	}

	vm := &VM{}
	toEngine := make(chan core.Message, 1)
	require.NoError(t, vm.Initialize(
		context.Background(),
		chainCtx,
		db,
		testGenesisBytes(t),
		nil,
		configBytes,
		toEngine,
		nil,
		nil,
	))
	vm.clock.Set(time.Unix(testEpoch, 0))
	return vm, toEngine
}

func drainEngine(toEngine chan core.Message) []core.Message {
	msgs := []core.Message{}
	for {
		select {
		case msg := <-toEngine:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestVMInitialize(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, _ := setupTestVM(t)

	require.NotNil(vm.Vault())
	require.Len(vm.Vault().Signers().Signers, 3)
	require.Equal(testGuardian, vm.Vault().Guardian())

	lastAccepted, err := vm.LastAccepted(ctx)
	require.NoError(err)
	require.NotEqual(ids.Empty, lastAccepted)

	genesisID, err := vm.GetBlockIDAtHeight(ctx, 0)
	require.NoError(err)
	require.Equal(lastAccepted, genesisID)

	genesisBlk, err := vm.GetBlock(ctx, genesisID)
	require.NoError(err)
	require.Equal(uint64(0), genesisBlk.Height())
	require.Equal(int64(testEpoch), genesisBlk.Timestamp().Unix())

	handlers, err := vm.CreateHandlers(ctx)
	require.NoError(err)
	require.Contains(handlers, "/rpc")
	require.Contains(handlers, "/events")
	require.Contains(handlers, "/health")

	health, err := vm.HealthCheck(ctx)
	require.NoError(err)
	require.NotNil(health)

	version, err := vm.Version(ctx)
	require.NoError(err)
	require.Equal(Version.String(), version)

	require.NoError(vm.Shutdown(ctx))
}

func TestVMBuildAndAcceptBlock(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, toEngine := setupTestVM(t)

	txID, err := vm.Vault().SubmitTransaction(testSigner1, testTarget, "sweep", []byte{0x01}, 5)
	require.NoError(err)
	require.Equal(uint64(1), txID)

	// The commit hook nudges the engine.
	require.Len(drainEngine(toEngine), 1)

	blk, err := vm.BuildBlock(ctx)
	require.NoError(err)

	vaultBlk, ok := blk.(*Block)
	require.True(ok)
	require.Equal(uint64(1), vaultBlk.Height())
	require.Len(vaultBlk.Operations, 1)
	require.Equal(vault.EventTxCreated, vaultBlk.Operations[0].Type)

	require.NoError(blk.Verify(ctx))
	require.NoError(blk.Accept(ctx))

	lastAccepted, err := vm.LastAccepted(ctx)
	require.NoError(err)
	require.Equal(blk.ID(), lastAccepted)

	blkID, err := vm.GetBlockIDAtHeight(ctx, 1)
	require.NoError(err)
	require.Equal(blk.ID(), blkID)

	stored, err := vm.GetBlock(ctx, blk.ID())
	require.NoError(err)
	require.Equal(blk.ID(), stored.ID())
	require.Equal(blk.Bytes(), stored.Bytes())
}

func TestVMBuildBlockEmpty(t *testing.T) {
	require := require.New(t)

	vm, _ := setupTestVM(t)

	_, err := vm.BuildBlock(context.Background())
	require.ErrorIs(err, errNoPendingOperations)
}

func TestVMBuildBlockBatchCap(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, toEngine := setupTestVMWithDB(t, memdb.New(), []byte(`{"maxOperationsPerBlock": 2}`))

	txID, err := vm.Vault().SubmitTransaction(testSigner1, testTarget, "sweep", nil, 0)
	require.NoError(err)
	require.NoError(vm.Vault().ConfirmTransaction(testSigner2, txID))
	require.NoError(vm.Vault().Deposit(testSigner3, testToken, 100))
	drainEngine(toEngine)

	blk, err := vm.BuildBlock(ctx)
	require.NoError(err)
	first, ok := blk.(*Block)
	require.True(ok)
	require.Len(first.Operations, 2)

	// The overflow triggers another build request.
	require.Len(drainEngine(toEngine), 1)

	require.NoError(first.Verify(ctx))
	require.NoError(first.Accept(ctx))

	blk, err = vm.BuildBlock(ctx)
	require.NoError(err)
	second, ok := blk.(*Block)
	require.True(ok)
	require.Len(second.Operations, 1)
	require.Equal(first.ID(), second.Parent())
	require.Equal(uint64(2), second.Height())

	require.NoError(second.Verify(ctx))
	require.NoError(second.Accept(ctx))

	// Sequences run continuously across the two batches.
	require.Equal(uint64(1), first.Operations[0].Sequence)
	require.Equal(uint64(2), first.Operations[1].Sequence)
	require.Equal(uint64(3), second.Operations[0].Sequence)
}

func TestVMParseBlockRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, _ := setupTestVM(t)

	_, err := vm.Vault().SubmitTransaction(testSigner1, testTarget, "sweep", []byte{0x02}, 0)
	require.NoError(err)

	built, err := vm.BuildBlock(ctx)
	require.NoError(err)

	parsed, err := vm.ParseBlock(ctx, built.Bytes())
	require.NoError(err)
	require.Equal(built.ID(), parsed.ID())
	require.Equal(built.Height(), parsed.Height())
	require.Equal(built.Bytes(), parsed.Bytes())
	require.NoError(parsed.Verify(ctx))
}

func TestVMBlockVerifyRejectsBadBatches(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, _ := setupTestVM(t)
	lastAccepted, err := vm.LastAccepted(ctx)
	require.NoError(err)

	blk := &Block{
		ParentID_:      lastAccepted,
		BlockHeight:    1,
		BlockTimestamp: testEpoch,
		Operations: []*vault.Event{
			{Sequence: 2, Type: vault.EventTxCreated},
			{Sequence: 1, Type: vault.EventTxConfirmed},
		},
		vm: vm,
	}
	blk.ID_ = blk.computeID()
	require.ErrorIs(blk.Verify(ctx), errUnorderedOperations)

	blk = &Block{
		ParentID_:      lastAccepted,
		BlockHeight:    1,
		BlockTimestamp: testEpoch,
		Operations: []*vault.Event{
			{Sequence: 1},
		},
		vm: vm,
	}
	blk.ID_ = blk.computeID()
	require.ErrorIs(blk.Verify(ctx), errInvalidOperation)

	blk = &Block{
		ParentID_:      ids.GenerateTestID(),
		BlockHeight:    1,
		BlockTimestamp: testEpoch,
		Operations:     []*vault.Event{},
		vm:             vm,
	}
	blk.ID_ = blk.computeID()
	require.Error(blk.Verify(ctx))
}

func TestVMRejectBlockKeepsVaultState(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, _ := setupTestVM(t)

	txID, err := vm.Vault().SubmitTransaction(testSigner1, testTarget, "sweep", nil, 0)
	require.NoError(err)

	blk, err := vm.BuildBlock(ctx)
	require.NoError(err)
	require.NoError(blk.Reject(ctx))

	// Rejection discards the batch, not the committed operation.
	tx, err := vm.Vault().GetTransaction(txID)
	require.NoError(err)
	require.Equal(txID, tx.ID)

	lastAccepted, err := vm.LastAccepted(ctx)
	require.NoError(err)
	genesisID, err := vm.GetBlockIDAtHeight(ctx, 0)
	require.NoError(err)
	require.Equal(genesisID, lastAccepted)
}

func TestVMRestartRecoversTip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	db := memdb.New()
	vm1, _ := setupTestVMWithDB(t, db, nil)

	txID, err := vm1.Vault().SubmitTransaction(testSigner1, testTarget, "sweep", []byte{0x03}, 7)
	require.NoError(err)

	blk, err := vm1.BuildBlock(ctx)
	require.NoError(err)
	require.NoError(blk.Verify(ctx))
	require.NoError(blk.Accept(ctx))

	vm2, _ := setupTestVMWithDB(t, db, nil)

	lastAccepted, err := vm2.LastAccepted(ctx)
	require.NoError(err)
	require.Equal(blk.ID(), lastAccepted)

	stored, err := vm2.GetBlock(ctx, lastAccepted)
	require.NoError(err)
	require.Equal(uint64(1), stored.Height())

	// The vault state reloaded alongside the chain.
	tx, err := vm2.Vault().GetTransaction(txID)
	require.NoError(err)
	require.Equal(uint64(7), tx.Value)

	blkID, err := vm2.GetBlockIDAtHeight(ctx, 1)
	require.NoError(err)
	require.Equal(blk.ID(), blkID)
}

func TestVMConnectedTracking(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, _ := setupTestVM(t)

	nodeID := ids.GenerateTestNodeID()
	require.NoError(vm.Connected(ctx, nodeID, nil))
	require.True(vm.connected.Contains(nodeID))

	require.NoError(vm.Disconnected(ctx, nodeID))
	require.False(vm.connected.Contains(nodeID))
}
