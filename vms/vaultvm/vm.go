// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vaultvm hosts a multi-party custody vault as a chain VM. Every
// committed vault operation becomes a block operation; the vault's own
// store is the source of truth and blocks replicate its event log.
package vaultvm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/rpc/v2"
	consensusctx "github.com/luxfi/consensus/context"
	core "github.com/luxfi/consensus/core"
	"github.com/luxfi/consensus/engine/chain/block"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/luxfi/metric"
	"github.com/luxfi/pubsub"
	"github.com/luxfi/utils/json"
	"github.com/luxfi/version"
	"github.com/luxfi/warp"

	"github.com/luxfi/vault/attest"
	"github.com/luxfi/vault/utils/timer/mockable"
	"github.com/luxfi/vault/vms/vaultvm/config"
	"github.com/luxfi/vault/vms/vaultvm/metrics"
	"github.com/luxfi/vault/vms/vaultvm/vault"
)

var (
	_ block.ChainVM = (*VM)(nil)

	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	errInvalidOperation    = errors.New("invalid operation")
	errUnorderedOperations = errors.New("operations out of sequence order")
	errNoPendingOperations = errors.New("no operations to include")
	errNoBlockAtHeight     = errors.New("block not found at height")
)

var (
	blockPrefix  = []byte("block")
	heightPrefix = []byte("height")
	vaultPrefix  = []byte("vault")

	lastAcceptedKey = []byte("last_accepted")
)

// VM hosts one vault aggregate behind the chain engine interface.
type VM struct {
	ctx      *consensusctx.Context
	config   config.Config
	toEngine chan<- core.Message
	log      log.Logger

	clock mockable.Clock

	vault    *vault.Vault
	verifier *attest.Verifier

	registerer metric.Registerer
	metrics    metrics.Metrics
	pubsub     *pubsub.Server
	rpcServer  *rpc.Server

	db       database.Database
	blockDB  database.Database
	heightDB database.Database

	// overflow holds drained operations that did not fit the previous
	// block's batch cap.
	overflow []*vault.Event

	preferred      ids.ID
	lastAcceptedID ids.ID
	pendingBlocks  map[ids.ID]*Block
	heightIndex    map[uint64]ids.ID

	connected set.Set[ids.NodeID]

	mu sync.RWMutex
}

// Initialize implements the block.ChainVM interface
func (vm *VM) Initialize(
	ctx context.Context,
	chainCtx interface{},
	db interface{},
	genesisBytes []byte,
	upgradeBytes []byte,
	configBytes []byte,
	msgChan interface{},
	fxs []interface{},
	appSender interface{},
) error {
	// Type assertions
	var ok bool
	vm.ctx, ok = chainCtx.(*consensusctx.Context)
	if !ok {
		return errors.New("invalid chain context type")
	}

	vm.db, ok = db.(database.Database)
	if !ok {
		return errors.New("invalid database type")
	}

	if msgChan != nil {
		vm.toEngine, ok = msgChan.(chan<- core.Message)
		if !ok {
			// Try bidirectional channel
			if biChan, ok := msgChan.(chan core.Message); ok {
				vm.toEngine = biChan
			} else {
				return errors.New("invalid message channel type")
			}
		}
	}

	if logger, ok := vm.ctx.Log.(log.Logger); ok {
		vm.log = logger
	} else {
		return errors.New("invalid logger type")
	}

	vm.pendingBlocks = make(map[ids.ID]*Block)
	vm.heightIndex = make(map[uint64]ids.ID)
	vm.blockDB = prefixdb.New(blockPrefix, vm.db)
	vm.heightDB = prefixdb.New(heightPrefix, vm.db)

	cfg, err := config.Parse(configBytes)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	vm.config = cfg

	genesis, err := ParseGenesis(genesisBytes)
	if err != nil {
		return fmt.Errorf("failed to parse genesis: %w", err)
	}
	if err := genesis.Validate(); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}

	vm.registerer = metric.NewRegistry()
	vm.metrics, err = metrics.New(vm.registerer)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// A genesis without an attestation key leaves the verifier nil and
	// the vault rejecting every proof.
	var verifier vault.Verifier
	if len(genesis.AttestorPublicKey) > 0 {
		attVerifier, err := attest.NewVerifier(genesis.AttestorPublicKey, vm.config.AttestCacheSize, vm.log)
		if err != nil {
			return fmt.Errorf("failed to build attestation verifier: %w", err)
		}
		vm.verifier = attVerifier
		verifier = attVerifier
	}

	v, err := vault.New(
		prefixdb.New(vaultPrefix, vm.db),
		genesis.Signers,
		genesis.Threshold,
		genesis.Guardian,
		genesis.Params(),
		verifier,
		nil,
		&vm.clock,
		vm.log,
	)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	vm.vault = v

	vm.pubsub = pubsub.New(vm.log)
	vm.vault.SetEventHook(func(ev *vault.Event) {
		vm.pubsub.Publish(NewPubSubFilterer(ev))
		vm.notifyPending()
	})

	if err := vm.initializeChainState(genesis.Timestamp); err != nil {
		return fmt.Errorf("failed to initialize chain state: %w", err)
	}

	if err := vm.initializeRPC(); err != nil {
		return fmt.Errorf("failed to initialize RPC: %w", err)
	}

	vm.log.Info("vault VM initialized",
		log.Int("signers", len(genesis.Signers)),
		log.Int("threshold", int(genesis.Threshold)),
		log.Stringer("guardian", genesis.Guardian),
		log.Bool("attestation", vm.verifier != nil),
	)
	return nil
}

// initializeChainState creates and stores the genesis block on first
// start, or restores the accepted tip on a restart.
func (vm *VM) initializeChainState(genesisTimestamp int64) error {
	genesisBlock := &Block{
		BlockHeight:    0,
		BlockTimestamp: genesisTimestamp,
		ParentID_:      ids.Empty,
		Operations:     []*vault.Event{},
		vm:             vm,
	}
	genesisBlock.ID_ = genesisBlock.computeID()
	vm.heightIndex[0] = genesisBlock.ID()

	has, err := vm.db.Has(lastAcceptedKey)
	if err != nil {
		return err
	}
	if has {
		lastBytes, err := vm.db.Get(lastAcceptedKey)
		if err != nil {
			return err
		}
		lastAccepted, err := ids.ToID(lastBytes)
		if err != nil {
			return err
		}
		vm.lastAcceptedID = lastAccepted
		return nil
	}

	if err := vm.putBlock(genesisBlock); err != nil {
		return err
	}
	vm.lastAcceptedID = genesisBlock.ID()
	return vm.setLastAccepted(genesisBlock.ID())
}

func (vm *VM) initializeRPC() error {
	vm.rpcServer = rpc.NewServer()
	vm.rpcServer.RegisterCodec(json.NewCodec(), "application/json")
	vm.rpcServer.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	vm.rpcServer.RegisterInterceptFunc(vm.metrics.InterceptRequest)
	vm.rpcServer.RegisterAfterFunc(vm.metrics.AfterRequest)
	return vm.rpcServer.RegisterService(&Service{vm: vm}, "vault")
}

// notifyPending nudges the consensus engine to call BuildBlock. The send
// is non-blocking; a full channel means a build is already pending.
func (vm *VM) notifyPending() {
	if vm.toEngine == nil {
		return
	}
	select {
	case vm.toEngine <- core.Message{Type: core.PendingTxs}:
	default:
	}
}

// Vault exposes the custody aggregate to in-process callers.
func (vm *VM) Vault() *vault.Vault {
	return vm.vault
}

// BuildBlock implements the block.ChainVM interface
func (vm *VM) BuildBlock(ctx context.Context) (block.Block, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	parentID := vm.preferred
	if parentID == ids.Empty {
		parentID = vm.lastAcceptedID
	}
	parent, err := vm.lookupBlock(parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get parent block: %w", err)
	}

	vm.overflow = append(vm.overflow, vm.vault.DrainPending()...)
	if len(vm.overflow) == 0 {
		return nil, errNoPendingOperations
	}

	n := len(vm.overflow)
	if max := vm.config.MaxOperationsPerBlock; n > max {
		n = max
	}
	operations := vm.overflow[:n:n]
	vm.overflow = vm.overflow[n:]

	blk := &Block{
		ParentID_:      parentID,
		BlockHeight:    parent.Height() + 1,
		BlockTimestamp: vm.clock.Time().Unix(),
		Operations:     operations,
		vm:             vm,
	}
	blk.ID_ = blk.computeID()
	vm.pendingBlocks[blk.ID()] = blk

	vm.metrics.MarkBlockBuilt()

	if len(vm.overflow) > 0 {
		vm.notifyPending()
	}

	vm.log.Info("built vault block",
		log.Stringer("blockID", blk.ID()),
		log.Int("numOperations", len(operations)),
	)
	return blk, nil
}

// GetBlock implements the block.ChainVM interface
func (vm *VM) GetBlock(ctx context.Context, id ids.ID) (block.Block, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.lookupBlock(id)
}

// ParseBlock implements the block.ChainVM interface
func (vm *VM) ParseBlock(ctx context.Context, bytes []byte) (block.Block, error) {
	blk := &Block{vm: vm}
	if _, err := Codec.Unmarshal(bytes, blk); err != nil {
		return nil, err
	}
	blk.ID_ = blk.computeID()
	return blk, nil
}

// SetPreference implements the block.ChainVM interface
func (vm *VM) SetPreference(ctx context.Context, id ids.ID) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.preferred = id
	return nil
}

// LastAccepted implements the block.ChainVM interface
func (vm *VM) LastAccepted(ctx context.Context) (ids.ID, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.lastAcceptedID, nil
}

// GetBlockIDAtHeight implements the block.ChainVM interface
func (vm *VM) GetBlockIDAtHeight(ctx context.Context, height uint64) (ids.ID, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	if id, ok := vm.heightIndex[height]; ok {
		return id, nil
	}
	idBytes, err := vm.heightDB.Get(heightKey(height))
	if err != nil {
		return ids.Empty, errNoBlockAtHeight
	}
	return ids.ToID(idBytes)
}

// CreateHandlers implements the common.VM interface
func (vm *VM) CreateHandlers(ctx context.Context) (map[string]http.Handler, error) {
	return map[string]http.Handler{
		"/rpc":    vm.rpcServer,
		"/events": vm.pubsub,
		"/health": http.HandlerFunc(vm.handleHealth),
	}, nil
}

// CreateStaticHandlers implements the common.VM interface
func (vm *VM) CreateStaticHandlers(ctx context.Context) (map[string]http.Handler, error) {
	return nil, nil
}

// NewHTTPHandler returns HTTP handlers for the VM
func (vm *VM) NewHTTPHandler(ctx context.Context) (interface{}, error) {
	return vm.CreateHandlers(ctx)
}

// HealthCheck implements the common.VM interface
func (vm *VM) HealthCheck(ctx context.Context) (interface{}, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	control := vm.vault.GetControlState()
	return map[string]interface{}{
		"status":        "healthy",
		"paused":        control.Paused,
		"emergencyMode": control.EmergencyMode,
		"quantumMode":   control.QuantumMode,
		"lastAccepted":  vm.lastAcceptedID.String(),
		"connected":     vm.connected.Len(),
	}, nil
}

func (vm *VM) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","paused":%t}`, vm.vault.Paused())
}

// Shutdown implements the common.VM interface
func (vm *VM) Shutdown(ctx context.Context) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.vault != nil {
		if err := vm.vault.Close(); err != nil {
			vm.log.Error("failed to close vault",
				log.String("error", err.Error()),
			)
		}
	}
	return nil
}

// SetState implements the common.VM interface
func (vm *VM) SetState(ctx context.Context, state uint32) error {
	return nil
}

// Connected implements the common.VM interface
func (vm *VM) Connected(ctx context.Context, nodeID ids.NodeID, nodeVersion interface{}) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.connected.Add(nodeID)
	return nil
}

// Disconnected implements the common.VM interface
func (vm *VM) Disconnected(ctx context.Context, nodeID ids.NodeID) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.connected.Remove(nodeID)
	return nil
}

// AppRequest implements the common.VM interface
func (vm *VM) AppRequest(ctx context.Context, nodeID ids.NodeID, requestID uint32, deadline time.Time, request []byte) error {
	return nil
}

// AppResponse implements the common.VM interface
func (vm *VM) AppResponse(ctx context.Context, nodeID ids.NodeID, requestID uint32, response []byte) error {
	return nil
}

// AppRequestFailed implements the common.VM interface
func (vm *VM) AppRequestFailed(ctx context.Context, nodeID ids.NodeID, requestID uint32, appErr *warp.Error) error {
	return nil
}

// AppGossip implements the common.VM interface
func (vm *VM) AppGossip(ctx context.Context, nodeID ids.NodeID, msg []byte) error {
	return nil
}

// CrossChainAppRequest implements the common.VM interface
func (vm *VM) CrossChainAppRequest(ctx context.Context, chainID ids.ID, requestID uint32, deadline time.Time, request []byte) error {
	return nil
}

// CrossChainAppResponse implements the common.VM interface
func (vm *VM) CrossChainAppResponse(ctx context.Context, chainID ids.ID, requestID uint32, response []byte) error {
	return nil
}

// CrossChainAppRequestFailed implements the common.VM interface
func (vm *VM) CrossChainAppRequestFailed(ctx context.Context, chainID ids.ID, requestID uint32, appErr *warp.Error) error {
	return nil
}

// Version implements the common.VM interface
func (vm *VM) Version(ctx context.Context) (string, error) {
	return Version.String(), nil
}

// WaitForEvent blocks until an event occurs
func (vm *VM) WaitForEvent(ctx context.Context) (interface{}, error) {
	return nil, nil
}

// Helper methods

// lookupBlock resolves id through the pending set, then storage.
func (vm *VM) lookupBlock(id ids.ID) (*Block, error) {
	if blk, exists := vm.pendingBlocks[id]; exists {
		return blk, nil
	}
	return vm.getBlock(id)
}

func (vm *VM) putBlock(blk *Block) error {
	bytes, err := Codec.Marshal(codecVersion, blk)
	if err != nil {
		return err
	}
	id := blk.ID()
	if err := vm.blockDB.Put(id[:], bytes); err != nil {
		return err
	}
	return vm.heightDB.Put(heightKey(blk.BlockHeight), id[:])
}

func (vm *VM) getBlock(id ids.ID) (*Block, error) {
	bytes, err := vm.blockDB.Get(id[:])
	if err != nil {
		return nil, err
	}
	blk := &Block{vm: vm}
	if _, err := Codec.Unmarshal(bytes, blk); err != nil {
		return nil, err
	}
	blk.ID_ = blk.computeID()
	return blk, nil
}

func (vm *VM) setLastAccepted(id ids.ID) error {
	return vm.db.Put(lastAcceptedKey, id[:])
}

func heightKey(height uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, height)
	return key
}
