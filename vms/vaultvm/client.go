// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"context"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/rpc"

	"github.com/luxfi/vault/utils/formatting"
	"github.com/luxfi/vault/utils/json"
	"github.com/luxfi/vault/vms/vaultvm/vault"
)

// Client talks to the vault API of one chain.
type Client struct {
	Requester rpc.EndpointRequester
}

// NewClient returns a client for the vault chain at uri.
func NewClient(uri string, chain string) *Client {
	return &Client{Requester: rpc.NewEndpointRequester(
		fmt.Sprintf("%s/ext/bc/%s/rpc", uri, chain),
	)}
}

// SubmitTransaction proposes a transaction and returns its ID.
func (c *Client) SubmitTransaction(
	ctx context.Context,
	caller ids.ShortID,
	target ids.ShortID,
	operation string,
	args []byte,
	value uint64,
	options ...rpc.Option,
) (uint64, error) {
	argsStr, err := formatting.Encode(formatting.Hex, args)
	if err != nil {
		return 0, err
	}
	res := &SubmitTransactionReply{}
	err = c.Requester.SendRequest(ctx, "vault.submitTransaction", &SubmitTransactionArgs{
		Caller:    caller.String(),
		Target:    target.String(),
		Operation: operation,
		Args:      argsStr,
		Value:     json.Uint64(value),
	}, res, options...)
	return uint64(res.TxID), err
}

// ConfirmTransaction adds the caller's confirmation and returns the
// confirmation count and quorum state.
func (c *Client) ConfirmTransaction(
	ctx context.Context,
	caller ids.ShortID,
	txID uint64,
	options ...rpc.Option,
) (*ConfirmTransactionReply, error) {
	res := &ConfirmTransactionReply{}
	err := c.Requester.SendRequest(ctx, "vault.confirmTransaction", &ConfirmTransactionArgs{
		Caller: caller.String(),
		TxID:   json.Uint64(txID),
	}, res, options...)
	return res, err
}

// RevokeConfirmation withdraws the caller's confirmation and returns the
// remaining confirmation count.
func (c *Client) RevokeConfirmation(
	ctx context.Context,
	caller ids.ShortID,
	txID uint64,
	options ...rpc.Option,
) (uint32, error) {
	res := &RevokeConfirmationReply{}
	err := c.Requester.SendRequest(ctx, "vault.revokeConfirmation", &RevokeConfirmationArgs{
		Caller: caller.String(),
		TxID:   json.Uint64(txID),
	}, res, options...)
	return uint32(res.Confirmations), err
}

// ExecuteTransaction executes a transaction that has reached quorum.
func (c *Client) ExecuteTransaction(
	ctx context.Context,
	caller ids.ShortID,
	txID uint64,
	options ...rpc.Option,
) error {
	res := &ExecuteTransactionReply{}
	return c.Requester.SendRequest(ctx, "vault.executeTransaction", &ExecuteTransactionArgs{
		Caller: caller.String(),
		TxID:   json.Uint64(txID),
	}, res, options...)
}

// CancelTransaction cancels a pending transaction.
func (c *Client) CancelTransaction(
	ctx context.Context,
	caller ids.ShortID,
	txID uint64,
	reason string,
	options ...rpc.Option,
) error {
	res := &CancelTransactionReply{}
	return c.Requester.SendRequest(ctx, "vault.cancelTransaction", &CancelTransactionArgs{
		Caller: caller.String(),
		TxID:   json.Uint64(txID),
		Reason: reason,
	}, res, options...)
}

// GetTransaction returns a transaction by ID.
func (c *Client) GetTransaction(
	ctx context.Context,
	txID uint64,
	options ...rpc.Option,
) (APITransaction, error) {
	res := &GetTransactionReply{}
	err := c.Requester.SendRequest(ctx, "vault.getTransaction", &GetTransactionArgs{
		TxID: json.Uint64(txID),
	}, res, options...)
	return res.Transaction, err
}

// GetTransactions returns all transactions in ID order.
func (c *Client) GetTransactions(ctx context.Context, options ...rpc.Option) ([]APITransaction, error) {
	res := &GetTransactionsReply{}
	err := c.Requester.SendRequest(ctx, "vault.getTransactions", &GetTransactionsArgs{}, res, options...)
	return res.Transactions, err
}

// CreateTimeLock schedules an operation and returns its ID and unlock
// time.
func (c *Client) CreateTimeLock(
	ctx context.Context,
	caller ids.ShortID,
	target ids.ShortID,
	operation string,
	args []byte,
	delay int64,
	options ...rpc.Option,
) (*CreateTimeLockReply, error) {
	argsStr, err := formatting.Encode(formatting.Hex, args)
	if err != nil {
		return nil, err
	}
	res := &CreateTimeLockReply{}
	err = c.Requester.SendRequest(ctx, "vault.createTimeLock", &CreateTimeLockArgs{
		Caller:    caller.String(),
		Target:    target.String(),
		Operation: operation,
		Args:      argsStr,
		Delay:     delay,
	}, res, options...)
	return res, err
}

// ExecuteTimeLock executes a lock whose delay has elapsed.
func (c *Client) ExecuteTimeLock(
	ctx context.Context,
	caller ids.ShortID,
	lockID uint64,
	options ...rpc.Option,
) error {
	res := &ExecuteTimeLockReply{}
	return c.Requester.SendRequest(ctx, "vault.executeTimeLock", &ExecuteTimeLockArgs{
		Caller: caller.String(),
		LockID: json.Uint64(lockID),
	}, res, options...)
}

// CancelTimeLock cancels a pending lock.
func (c *Client) CancelTimeLock(
	ctx context.Context,
	caller ids.ShortID,
	lockID uint64,
	options ...rpc.Option,
) error {
	res := &CancelTimeLockReply{}
	return c.Requester.SendRequest(ctx, "vault.cancelTimeLock", &CancelTimeLockArgs{
		Caller: caller.String(),
		LockID: json.Uint64(lockID),
	}, res, options...)
}

// ExtendTimeLock extends a pending lock and returns its new unlock time.
func (c *Client) ExtendTimeLock(
	ctx context.Context,
	caller ids.ShortID,
	lockID uint64,
	additional int64,
	options ...rpc.Option,
) (int64, error) {
	res := &ExtendTimeLockReply{}
	err := c.Requester.SendRequest(ctx, "vault.extendTimeLock", &ExtendTimeLockArgs{
		Caller:     caller.String(),
		LockID:     json.Uint64(lockID),
		Additional: additional,
	}, res, options...)
	return res.UnlockAt, err
}

// GetTimeLock returns a time lock by ID.
func (c *Client) GetTimeLock(
	ctx context.Context,
	lockID uint64,
	options ...rpc.Option,
) (APITimeLock, error) {
	res := &GetTimeLockReply{}
	err := c.Requester.SendRequest(ctx, "vault.getTimeLock", &GetTimeLockArgs{
		LockID: json.Uint64(lockID),
	}, res, options...)
	return res.TimeLock, err
}

// GetTimeLocks returns all time locks in ID order.
func (c *Client) GetTimeLocks(ctx context.Context, options ...rpc.Option) ([]APITimeLock, error) {
	res := &GetTimeLocksReply{}
	err := c.Requester.SendRequest(ctx, "vault.getTimeLocks", &GetTimeLocksArgs{}, res, options...)
	return res.TimeLocks, err
}

// RegisterSessionKey issues delegated authority under key.
func (c *Client) RegisterSessionKey(
	ctx context.Context,
	caller ids.ShortID,
	key ids.ShortID,
	policy vault.SessionPolicy,
	options ...rpc.Option,
) error {
	res := &RegisterSessionKeyReply{}
	return c.Requester.SendRequest(ctx, "vault.registerSessionKey", &RegisterSessionKeyArgs{
		Caller:        caller.String(),
		Key:           key.String(),
		AllowedTarget: policy.AllowedTarget.String(),
		SpendingToken: policy.SpendingToken.String(),
		SpendingLimit: json.Uint64(policy.SpendingLimit),
		ValidAfter:    policy.ValidAfter,
		ValidUntil:    policy.ValidUntil,
	}, res, options...)
}

// RevokeSessionKey permanently deactivates a session key.
func (c *Client) RevokeSessionKey(
	ctx context.Context,
	caller ids.ShortID,
	key ids.ShortID,
	options ...rpc.Option,
) error {
	res := &RevokeSessionKeyReply{}
	return c.Requester.SendRequest(ctx, "vault.revokeSessionKey", &RevokeSessionKeyArgs{
		Caller: caller.String(),
		Key:    key.String(),
	}, res, options...)
}

// ExecuteWithSessionKey executes an operation under a session key's
// policy.
func (c *Client) ExecuteWithSessionKey(
	ctx context.Context,
	key ids.ShortID,
	target ids.ShortID,
	operation string,
	args []byte,
	options ...rpc.Option,
) error {
	argsStr, err := formatting.Encode(formatting.Hex, args)
	if err != nil {
		return err
	}
	res := &ExecuteWithSessionKeyReply{}
	return c.Requester.SendRequest(ctx, "vault.executeWithSessionKey", &ExecuteWithSessionKeyArgs{
		Key:       key.String(),
		Target:    target.String(),
		Operation: operation,
		Args:      argsStr,
	}, res, options...)
}

// GetSessionPolicy returns the policy registered under key.
func (c *Client) GetSessionPolicy(
	ctx context.Context,
	key ids.ShortID,
	options ...rpc.Option,
) (APISessionPolicy, error) {
	res := &GetSessionPolicyReply{}
	err := c.Requester.SendRequest(ctx, "vault.getSessionPolicy", &GetSessionPolicyArgs{
		Key: key.String(),
	}, res, options...)
	return res.Policy, err
}

// GetSessionPolicies returns all session policies in key order.
func (c *Client) GetSessionPolicies(ctx context.Context, options ...rpc.Option) ([]APISessionPolicy, error) {
	res := &GetSessionPoliciesReply{}
	err := c.Requester.SendRequest(ctx, "vault.getSessionPolicies", &GetSessionPoliciesArgs{}, res, options...)
	return res.Policies, err
}

// Deposit credits pooled funds and returns the token's pooled balance.
func (c *Client) Deposit(
	ctx context.Context,
	caller ids.ShortID,
	token ids.ShortID,
	amount uint64,
	options ...rpc.Option,
) (uint64, error) {
	res := &DepositReply{}
	err := c.Requester.SendRequest(ctx, "vault.deposit", &DepositArgs{
		Caller: caller.String(),
		Token:  token.String(),
		Amount: json.Uint64(amount),
	}, res, options...)
	return uint64(res.Balance), err
}

// Withdraw releases pooled funds against an executed transaction and
// returns the token's remaining pooled balance.
func (c *Client) Withdraw(
	ctx context.Context,
	caller ids.ShortID,
	token ids.ShortID,
	to ids.ShortID,
	amount uint64,
	txID uint64,
	options ...rpc.Option,
) (uint64, error) {
	res := &WithdrawReply{}
	err := c.Requester.SendRequest(ctx, "vault.withdraw", &WithdrawArgs{
		Caller: caller.String(),
		Token:  token.String(),
		To:     to.String(),
		Amount: json.Uint64(amount),
		TxID:   json.Uint64(txID),
	}, res, options...)
	return uint64(res.Balance), err
}

// GetBalance returns the pooled balance of token.
func (c *Client) GetBalance(
	ctx context.Context,
	token ids.ShortID,
	options ...rpc.Option,
) (uint64, error) {
	res := &GetBalanceReply{}
	err := c.Requester.SendRequest(ctx, "vault.getBalance", &GetBalanceArgs{
		Token: token.String(),
	}, res, options...)
	return uint64(res.Balance), err
}

// GetDeposit returns the amount depositor has contributed to token's
// pool.
func (c *Client) GetDeposit(
	ctx context.Context,
	token ids.ShortID,
	depositor ids.ShortID,
	options ...rpc.Option,
) (uint64, error) {
	res := &GetDepositReply{}
	err := c.Requester.SendRequest(ctx, "vault.getDeposit", &GetDepositArgs{
		Token:     token.String(),
		Depositor: depositor.String(),
	}, res, options...)
	return uint64(res.Amount), err
}

// SubmitProof records an attestation proof and returns its ID.
func (c *Client) SubmitProof(
	ctx context.Context,
	caller ids.ShortID,
	proof []byte,
	publicInputs []byte,
	options ...rpc.Option,
) (uint64, error) {
	proofStr, err := formatting.Encode(formatting.Hex, proof)
	if err != nil {
		return 0, err
	}
	inputsStr, err := formatting.Encode(formatting.Hex, publicInputs)
	if err != nil {
		return 0, err
	}
	res := &SubmitProofReply{}
	err = c.Requester.SendRequest(ctx, "vault.submitProof", &SubmitProofArgs{
		Caller:       caller.String(),
		Proof:        proofStr,
		PublicInputs: inputsStr,
	}, res, options...)
	return uint64(res.ProofID), err
}

// VerifyProof verifies a submitted proof.
func (c *Client) VerifyProof(
	ctx context.Context,
	caller ids.ShortID,
	proofID uint64,
	options ...rpc.Option,
) (bool, error) {
	res := &VerifyProofReply{}
	err := c.Requester.SendRequest(ctx, "vault.verifyProof", &VerifyProofArgs{
		Caller:  caller.String(),
		ProofID: json.Uint64(proofID),
	}, res, options...)
	return res.Verified, err
}

// VerifyAndActivate verifies a proof and activates it on success.
func (c *Client) VerifyAndActivate(
	ctx context.Context,
	caller ids.ShortID,
	proofID uint64,
	options ...rpc.Option,
) (*VerifyAndActivateReply, error) {
	res := &VerifyAndActivateReply{}
	err := c.Requester.SendRequest(ctx, "vault.verifyAndActivate", &VerifyAndActivateArgs{
		Caller:  caller.String(),
		ProofID: json.Uint64(proofID),
	}, res, options...)
	return res, err
}

// ExpireOldProofs sweeps proofs older than maxAge and returns the number
// swept.
func (c *Client) ExpireOldProofs(
	ctx context.Context,
	caller ids.ShortID,
	maxAge int64,
	options ...rpc.Option,
) (int, error) {
	res := &ExpireOldProofsReply{}
	err := c.Requester.SendRequest(ctx, "vault.expireOldProofs", &ExpireOldProofsArgs{
		Caller: caller.String(),
		MaxAge: maxAge,
	}, res, options...)
	return res.Expired, err
}

// GetProof returns a proof record by ID.
func (c *Client) GetProof(
	ctx context.Context,
	proofID uint64,
	options ...rpc.Option,
) (APIProof, error) {
	res := &GetProofReply{}
	err := c.Requester.SendRequest(ctx, "vault.getProof", &GetProofArgs{
		ProofID: json.Uint64(proofID),
	}, res, options...)
	return res.Proof, err
}

// Pause halts all mutating vault operations.
func (c *Client) Pause(ctx context.Context, caller ids.ShortID, options ...rpc.Option) error {
	res := &PauseReply{}
	return c.Requester.SendRequest(ctx, "vault.pause", &PauseArgs{
		Caller: caller.String(),
	}, res, options...)
}

// Unpause resumes vault operations.
func (c *Client) Unpause(ctx context.Context, caller ids.ShortID, options ...rpc.Option) error {
	res := &UnpauseReply{}
	return c.Requester.SendRequest(ctx, "vault.unpause", &UnpauseArgs{
		Caller: caller.String(),
	}, res, options...)
}

// EnableQuantumMode switches the vault to proof-gated operation.
func (c *Client) EnableQuantumMode(ctx context.Context, caller ids.ShortID, options ...rpc.Option) error {
	res := &EnableQuantumModeReply{}
	return c.Requester.SendRequest(ctx, "vault.enableQuantumMode", &EnableQuantumModeArgs{
		Caller: caller.String(),
	}, res, options...)
}

// ActivateEmergencyMode triggers the guardian's kill switch.
func (c *Client) ActivateEmergencyMode(
	ctx context.Context,
	caller ids.ShortID,
	reason string,
	options ...rpc.Option,
) error {
	res := &ActivateEmergencyModeReply{}
	return c.Requester.SendRequest(ctx, "vault.activateEmergencyMode", &ActivateEmergencyModeArgs{
		Caller: caller.String(),
		Reason: reason,
	}, res, options...)
}

// ChangeGuardian rotates the guardian identity.
func (c *Client) ChangeGuardian(
	ctx context.Context,
	caller ids.ShortID,
	newGuardian ids.ShortID,
	options ...rpc.Option,
) error {
	res := &ChangeGuardianReply{}
	return c.Requester.SendRequest(ctx, "vault.changeGuardian", &ChangeGuardianArgs{
		Caller:      caller.String(),
		NewGuardian: newGuardian.String(),
	}, res, options...)
}

// ProposeUpgrade schedules an implementation upgrade and returns when it
// becomes executable.
func (c *Client) ProposeUpgrade(
	ctx context.Context,
	caller ids.ShortID,
	target ids.ShortID,
	options ...rpc.Option,
) (int64, error) {
	res := &ProposeUpgradeReply{}
	err := c.Requester.SendRequest(ctx, "vault.proposeUpgrade", &ProposeUpgradeArgs{
		Caller: caller.String(),
		Target: target.String(),
	}, res, options...)
	return res.UpgradeReadyAt, err
}

// ExecuteUpgrade applies a proposed upgrade whose delay has elapsed.
func (c *Client) ExecuteUpgrade(ctx context.Context, caller ids.ShortID, options ...rpc.Option) error {
	res := &ExecuteUpgradeReply{}
	return c.Requester.SendRequest(ctx, "vault.executeUpgrade", &ExecuteUpgradeArgs{
		Caller: caller.String(),
	}, res, options...)
}

// CancelUpgrade abandons a proposed upgrade.
func (c *Client) CancelUpgrade(ctx context.Context, caller ids.ShortID, options ...rpc.Option) error {
	res := &CancelUpgradeReply{}
	return c.Requester.SendRequest(ctx, "vault.cancelUpgrade", &CancelUpgradeArgs{
		Caller: caller.String(),
	}, res, options...)
}

// UpdateMerkleRoot commits a new state root while quantum mode is active.
func (c *Client) UpdateMerkleRoot(
	ctx context.Context,
	caller ids.ShortID,
	root ids.ID,
	options ...rpc.Option,
) error {
	res := &UpdateMerkleRootReply{}
	return c.Requester.SendRequest(ctx, "vault.updateMerkleRoot", &UpdateMerkleRootArgs{
		Caller: caller.String(),
		Root:   root.String(),
	}, res, options...)
}

// GetControlState returns the vault's control-plane state.
func (c *Client) GetControlState(ctx context.Context, options ...rpc.Option) (*GetControlStateReply, error) {
	res := &GetControlStateReply{}
	err := c.Requester.SendRequest(ctx, "vault.getControlState", &GetControlStateArgs{}, res, options...)
	return res, err
}

// GetSigners returns the signer set and confirmation threshold.
func (c *Client) GetSigners(ctx context.Context, options ...rpc.Option) (*GetSignersReply, error) {
	res := &GetSignersReply{}
	err := c.Requester.SendRequest(ctx, "vault.getSigners", &GetSignersArgs{}, res, options...)
	return res, err
}

// GetEvents returns committed events starting at a sequence number.
func (c *Client) GetEvents(
	ctx context.Context,
	from uint64,
	max uint32,
	options ...rpc.Option,
) ([]APIEvent, error) {
	res := &GetEventsReply{}
	err := c.Requester.SendRequest(ctx, "vault.getEvents", &GetEventsArgs{
		From: json.Uint64(from),
		Max:  json.Uint32(max),
	}, res, options...)
	return res.Events, err
}

// GetBlock returns the serialized block with blockID.
func (c *Client) GetBlock(
	ctx context.Context,
	blockID ids.ID,
	options ...rpc.Option,
) ([]byte, error) {
	res := &GetBlockReply{}
	err := c.Requester.SendRequest(ctx, "vault.getBlock", &GetBlockArgs{
		BlockID:  blockID.String(),
		Encoding: formatting.Hex,
	}, res, options...)
	if err != nil {
		return nil, err
	}
	return formatting.Decode(res.Encoding, res.Block)
}

// Status returns the chain and vault status.
func (c *Client) Status(ctx context.Context, options ...rpc.Option) (*StatusReply, error) {
	res := &StatusReply{}
	err := c.Requester.SendRequest(ctx, "vault.status", &StatusArgs{}, res, options...)
	return res, err
}
