// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/luxfi/ids"

	"github.com/luxfi/vault/utils/formatting"
	"github.com/luxfi/vault/utils/json"
	"github.com/luxfi/vault/vms/vaultvm/vault"
)

// Service provides the vault RPC API.
type Service struct {
	vm *VM
}

// APITransaction is the JSON form of a pending or executed transaction.
type APITransaction struct {
	ID            json.Uint64 `json:"id"`
	Target        string      `json:"target"`
	Operation     string      `json:"operation"`
	Args          string      `json:"args"`
	Value         json.Uint64 `json:"value"`
	Nonce         json.Uint64 `json:"nonce"`
	CreatedAt     int64       `json:"createdAt"`
	ExecutedAt    int64       `json:"executedAt"`
	Executed      bool        `json:"executed"`
	Cancelled     bool        `json:"cancelled"`
	Confirmations []string    `json:"confirmations"`
}

func newAPITransaction(tx vault.Transaction) (APITransaction, error) {
	argsStr, err := formatting.Encode(formatting.Hex, tx.Args)
	if err != nil {
		return APITransaction{}, err
	}
	confirmations := make([]string, len(tx.Confirmations))
	for i, signer := range tx.Confirmations {
		confirmations[i] = signer.String()
	}
	return APITransaction{
		ID:            json.Uint64(tx.ID),
		Target:        tx.Target.String(),
		Operation:     tx.Operation,
		Args:          argsStr,
		Value:         json.Uint64(tx.Value),
		Nonce:         json.Uint64(tx.Nonce),
		CreatedAt:     tx.CreatedAt,
		ExecutedAt:    tx.ExecutedAt,
		Executed:      tx.Executed(),
		Cancelled:     tx.Cancelled,
		Confirmations: confirmations,
	}, nil
}

// APITimeLock is the JSON form of a scheduled operation.
type APITimeLock struct {
	ID          json.Uint64 `json:"id"`
	Target      string      `json:"target"`
	Operation   string      `json:"operation"`
	Args        string      `json:"args"`
	ContentHash string      `json:"contentHash"`
	CreatedAt   int64       `json:"createdAt"`
	UnlockAt    int64       `json:"unlockAt"`
	Executed    bool        `json:"executed"`
	Cancelled   bool        `json:"cancelled"`
}

func newAPITimeLock(lock vault.TimeLock) (APITimeLock, error) {
	argsStr, err := formatting.Encode(formatting.Hex, lock.Args)
	if err != nil {
		return APITimeLock{}, err
	}
	return APITimeLock{
		ID:          json.Uint64(lock.ID),
		Target:      lock.Target.String(),
		Operation:   lock.Operation,
		Args:        argsStr,
		ContentHash: lock.ContentHash.String(),
		CreatedAt:   lock.CreatedAt,
		UnlockAt:    lock.UnlockAt,
		Executed:    lock.Executed,
		Cancelled:   lock.Cancelled,
	}, nil
}

// APISessionPolicy is the JSON form of a session-key policy.
type APISessionPolicy struct {
	Key           string      `json:"key"`
	AllowedTarget string      `json:"allowedTarget"`
	SpendingToken string      `json:"spendingToken"`
	SpendingLimit json.Uint64 `json:"spendingLimit"`
	SpendingUsed  json.Uint64 `json:"spendingUsed"`
	PeriodStart   int64       `json:"periodStart"`
	ValidAfter    int64       `json:"validAfter"`
	ValidUntil    int64       `json:"validUntil"`
	Active        bool        `json:"active"`
	RegisteredAt  int64       `json:"registeredAt"`
}

func newAPISessionPolicy(policy vault.SessionPolicy) APISessionPolicy {
	return APISessionPolicy{
		Key:           policy.Key.String(),
		AllowedTarget: policy.AllowedTarget.String(),
		SpendingToken: policy.SpendingToken.String(),
		SpendingLimit: json.Uint64(policy.SpendingLimit),
		SpendingUsed:  json.Uint64(policy.SpendingUsed),
		PeriodStart:   policy.PeriodStart,
		ValidAfter:    policy.ValidAfter,
		ValidUntil:    policy.ValidUntil,
		Active:        policy.Active,
		RegisteredAt:  policy.RegisteredAt,
	}
}

// APIProof is the JSON form of a submitted proof record.
type APIProof struct {
	ID           json.Uint64 `json:"id"`
	Proof        string      `json:"proof"`
	PublicInputs string      `json:"publicInputs"`
	ProofHash    string      `json:"proofHash"`
	Verified     bool        `json:"verified"`
	Active       bool        `json:"active"`
	SubmittedAt  int64       `json:"submittedAt"`
	VerifiedAt   int64       `json:"verifiedAt"`
	ExpiresAt    int64       `json:"expiresAt"`
}

func newAPIProof(record vault.ProofRecord) (APIProof, error) {
	proofStr, err := formatting.Encode(formatting.Hex, record.Proof)
	if err != nil {
		return APIProof{}, err
	}
	inputsStr, err := formatting.Encode(formatting.Hex, record.PublicInputs)
	if err != nil {
		return APIProof{}, err
	}
	return APIProof{
		ID:           json.Uint64(record.ID),
		Proof:        proofStr,
		PublicInputs: inputsStr,
		ProofHash:    record.ProofHash.String(),
		Verified:     record.Verified,
		Active:       record.Active,
		SubmittedAt:  record.SubmittedAt,
		VerifiedAt:   record.VerifiedAt,
		ExpiresAt:    record.ExpiresAt,
	}, nil
}

// APIEvent is the JSON form of a committed state transition.
type APIEvent struct {
	Sequence  json.Uint64 `json:"sequence"`
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Caller    string      `json:"caller"`
	EntityID  json.Uint64 `json:"entityId"`
	Target    string      `json:"target"`
	Token     string      `json:"token"`
	Amount    json.Uint64 `json:"amount"`
	Count     json.Uint32 `json:"count"`
	Reason    string      `json:"reason"`
	Root      string      `json:"root"`
}

func newAPIEvent(ev *vault.Event) APIEvent {
	return APIEvent{
		Sequence:  json.Uint64(ev.Sequence),
		Type:      ev.Type,
		Timestamp: ev.Timestamp,
		Caller:    ev.Caller.String(),
		EntityID:  json.Uint64(ev.EntityID),
		Target:    ev.Target.String(),
		Token:     ev.Token.String(),
		Amount:    json.Uint64(ev.Amount),
		Count:     json.Uint32(ev.Count),
		Reason:    ev.Reason,
		Root:      ev.Root.String(),
	}
}

// ============================================
// Multi-Sig Transaction APIs
// ============================================

// SubmitTransactionArgs are the arguments for SubmitTransaction
type SubmitTransactionArgs struct {
	Caller    string      `json:"caller"`
	Target    string      `json:"target"`
	Operation string      `json:"operation"`
	Args      string      `json:"args"`
	Value     json.Uint64 `json:"value"`
}

// SubmitTransactionReply is the reply for SubmitTransaction
type SubmitTransactionReply struct {
	TxID json.Uint64 `json:"txID"`
}

// SubmitTransaction proposes a transaction, implicitly confirmed by the
// submitter.
func (s *Service) SubmitTransaction(_ *http.Request, args *SubmitTransactionArgs, reply *SubmitTransactionReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	target, err := ids.ShortFromString(args.Target)
	if err != nil {
		return fmt.Errorf("invalid target address: %w", err)
	}
	opArgs, err := formatting.Decode(formatting.Hex, args.Args)
	if err != nil {
		return fmt.Errorf("invalid args encoding: %w", err)
	}

	txID, err := s.vm.vault.SubmitTransaction(caller, target, args.Operation, opArgs, uint64(args.Value))
	if err != nil {
		return err
	}
	reply.TxID = json.Uint64(txID)
	return nil
}

// ConfirmTransactionArgs are the arguments for ConfirmTransaction
type ConfirmTransactionArgs struct {
	Caller string      `json:"caller"`
	TxID   json.Uint64 `json:"txID"`
}

// ConfirmTransactionReply is the reply for ConfirmTransaction
type ConfirmTransactionReply struct {
	Confirmations json.Uint32 `json:"confirmations"`
	HasQuorum     bool        `json:"hasQuorum"`
}

// ConfirmTransaction adds the caller's confirmation to a pending
// transaction.
func (s *Service) ConfirmTransaction(_ *http.Request, args *ConfirmTransactionArgs, reply *ConfirmTransactionReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.ConfirmTransaction(caller, uint64(args.TxID)); err != nil {
		return err
	}
	count, err := s.vm.vault.ConfirmationCount(uint64(args.TxID))
	if err != nil {
		return err
	}
	quorum, err := s.vm.vault.HasQuorum(uint64(args.TxID))
	if err != nil {
		return err
	}
	reply.Confirmations = json.Uint32(count)
	reply.HasQuorum = quorum
	return nil
}

// RevokeConfirmationArgs are the arguments for RevokeConfirmation
type RevokeConfirmationArgs struct {
	Caller string      `json:"caller"`
	TxID   json.Uint64 `json:"txID"`
}

// RevokeConfirmationReply is the reply for RevokeConfirmation
type RevokeConfirmationReply struct {
	Confirmations json.Uint32 `json:"confirmations"`
}

// RevokeConfirmation withdraws the caller's confirmation from a pending
// transaction.
func (s *Service) RevokeConfirmation(_ *http.Request, args *RevokeConfirmationArgs, reply *RevokeConfirmationReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.RevokeConfirmation(caller, uint64(args.TxID)); err != nil {
		return err
	}
	count, err := s.vm.vault.ConfirmationCount(uint64(args.TxID))
	if err != nil {
		return err
	}
	reply.Confirmations = json.Uint32(count)
	return nil
}

// ExecuteTransactionArgs are the arguments for ExecuteTransaction
type ExecuteTransactionArgs struct {
	Caller string      `json:"caller"`
	TxID   json.Uint64 `json:"txID"`
}

// ExecuteTransactionReply is the reply for ExecuteTransaction
type ExecuteTransactionReply struct {
	Executed bool `json:"executed"`
}

// ExecuteTransaction executes a transaction that has reached quorum.
func (s *Service) ExecuteTransaction(_ *http.Request, args *ExecuteTransactionArgs, reply *ExecuteTransactionReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.ExecuteTransaction(caller, uint64(args.TxID)); err != nil {
		return err
	}
	reply.Executed = true
	return nil
}

// CancelTransactionArgs are the arguments for CancelTransaction
type CancelTransactionArgs struct {
	Caller string      `json:"caller"`
	TxID   json.Uint64 `json:"txID"`
	Reason string      `json:"reason"`
}

// CancelTransactionReply is the reply for CancelTransaction
type CancelTransactionReply struct {
	Cancelled bool `json:"cancelled"`
}

// CancelTransaction cancels a pending transaction.
func (s *Service) CancelTransaction(_ *http.Request, args *CancelTransactionArgs, reply *CancelTransactionReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.CancelTransaction(caller, uint64(args.TxID), args.Reason); err != nil {
		return err
	}
	reply.Cancelled = true
	return nil
}

// GetTransactionArgs are the arguments for GetTransaction
type GetTransactionArgs struct {
	TxID json.Uint64 `json:"txID"`
}

// GetTransactionReply is the reply for GetTransaction
type GetTransactionReply struct {
	Transaction APITransaction `json:"transaction"`
}

// GetTransaction returns a transaction by ID
func (s *Service) GetTransaction(_ *http.Request, args *GetTransactionArgs, reply *GetTransactionReply) error {
	tx, err := s.vm.vault.GetTransaction(uint64(args.TxID))
	if err != nil {
		return err
	}
	reply.Transaction, err = newAPITransaction(tx)
	return err
}

// GetTransactionsArgs are the arguments for GetTransactions
type GetTransactionsArgs struct{}

// GetTransactionsReply is the reply for GetTransactions
type GetTransactionsReply struct {
	Transactions []APITransaction `json:"transactions"`
}

// GetTransactions returns all transactions in ID order
func (s *Service) GetTransactions(_ *http.Request, args *GetTransactionsArgs, reply *GetTransactionsReply) error {
	txs := s.vm.vault.Transactions()
	reply.Transactions = make([]APITransaction, len(txs))
	for i, tx := range txs {
		apiTx, err := newAPITransaction(tx)
		if err != nil {
			return err
		}
		reply.Transactions[i] = apiTx
	}
	return nil
}

// ============================================
// Time-Lock APIs
// ============================================

// CreateTimeLockArgs are the arguments for CreateTimeLock
type CreateTimeLockArgs struct {
	Caller    string `json:"caller"`
	Target    string `json:"target"`
	Operation string `json:"operation"`
	Args      string `json:"args"`
	Delay     int64  `json:"delay"`
}

// CreateTimeLockReply is the reply for CreateTimeLock
type CreateTimeLockReply struct {
	LockID   json.Uint64 `json:"lockID"`
	UnlockAt int64       `json:"unlockAt"`
}

// CreateTimeLock schedules an operation to unlock after a delay.
func (s *Service) CreateTimeLock(_ *http.Request, args *CreateTimeLockArgs, reply *CreateTimeLockReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	target, err := ids.ShortFromString(args.Target)
	if err != nil {
		return fmt.Errorf("invalid target address: %w", err)
	}
	opArgs, err := formatting.Decode(formatting.Hex, args.Args)
	if err != nil {
		return fmt.Errorf("invalid args encoding: %w", err)
	}

	lockID, err := s.vm.vault.CreateTimeLock(caller, target, args.Operation, opArgs, args.Delay)
	if err != nil {
		return err
	}
	lock, err := s.vm.vault.GetTimeLock(lockID)
	if err != nil {
		return err
	}
	reply.LockID = json.Uint64(lockID)
	reply.UnlockAt = lock.UnlockAt
	return nil
}

// ExecuteTimeLockArgs are the arguments for ExecuteTimeLock
type ExecuteTimeLockArgs struct {
	Caller string      `json:"caller"`
	LockID json.Uint64 `json:"lockID"`
}

// ExecuteTimeLockReply is the reply for ExecuteTimeLock
type ExecuteTimeLockReply struct {
	Executed bool `json:"executed"`
}

// ExecuteTimeLock executes a lock whose delay has elapsed.
func (s *Service) ExecuteTimeLock(_ *http.Request, args *ExecuteTimeLockArgs, reply *ExecuteTimeLockReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.ExecuteTimeLock(caller, uint64(args.LockID)); err != nil {
		return err
	}
	reply.Executed = true
	return nil
}

// CancelTimeLockArgs are the arguments for CancelTimeLock
type CancelTimeLockArgs struct {
	Caller string      `json:"caller"`
	LockID json.Uint64 `json:"lockID"`
}

// CancelTimeLockReply is the reply for CancelTimeLock
type CancelTimeLockReply struct {
	Cancelled bool `json:"cancelled"`
}

// CancelTimeLock cancels a pending lock.
func (s *Service) CancelTimeLock(_ *http.Request, args *CancelTimeLockArgs, reply *CancelTimeLockReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.CancelTimeLock(caller, uint64(args.LockID)); err != nil {
		return err
	}
	reply.Cancelled = true
	return nil
}

// ExtendTimeLockArgs are the arguments for ExtendTimeLock
type ExtendTimeLockArgs struct {
	Caller     string      `json:"caller"`
	LockID     json.Uint64 `json:"lockID"`
	Additional int64       `json:"additional"`
}

// ExtendTimeLockReply is the reply for ExtendTimeLock
type ExtendTimeLockReply struct {
	UnlockAt int64 `json:"unlockAt"`
}

// ExtendTimeLock pushes a pending lock's unlock time further out.
func (s *Service) ExtendTimeLock(_ *http.Request, args *ExtendTimeLockArgs, reply *ExtendTimeLockReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.ExtendTimeLock(caller, uint64(args.LockID), args.Additional); err != nil {
		return err
	}
	lock, err := s.vm.vault.GetTimeLock(uint64(args.LockID))
	if err != nil {
		return err
	}
	reply.UnlockAt = lock.UnlockAt
	return nil
}

// GetTimeLockArgs are the arguments for GetTimeLock
type GetTimeLockArgs struct {
	LockID json.Uint64 `json:"lockID"`
}

// GetTimeLockReply is the reply for GetTimeLock
type GetTimeLockReply struct {
	TimeLock APITimeLock `json:"timeLock"`
}

// GetTimeLock returns a time lock by ID
func (s *Service) GetTimeLock(_ *http.Request, args *GetTimeLockArgs, reply *GetTimeLockReply) error {
	lock, err := s.vm.vault.GetTimeLock(uint64(args.LockID))
	if err != nil {
		return err
	}
	reply.TimeLock, err = newAPITimeLock(lock)
	return err
}

// GetTimeLocksArgs are the arguments for GetTimeLocks
type GetTimeLocksArgs struct{}

// GetTimeLocksReply is the reply for GetTimeLocks
type GetTimeLocksReply struct {
	TimeLocks []APITimeLock `json:"timeLocks"`
}

// GetTimeLocks returns all time locks in ID order
func (s *Service) GetTimeLocks(_ *http.Request, args *GetTimeLocksArgs, reply *GetTimeLocksReply) error {
	locks := s.vm.vault.TimeLocks()
	reply.TimeLocks = make([]APITimeLock, len(locks))
	for i, lock := range locks {
		apiLock, err := newAPITimeLock(lock)
		if err != nil {
			return err
		}
		reply.TimeLocks[i] = apiLock
	}
	return nil
}

// ============================================
// Session Key APIs
// ============================================

// RegisterSessionKeyArgs are the arguments for RegisterSessionKey
type RegisterSessionKeyArgs struct {
	Caller        string      `json:"caller"`
	Key           string      `json:"key"`
	AllowedTarget string      `json:"allowedTarget"`
	SpendingToken string      `json:"spendingToken"`
	SpendingLimit json.Uint64 `json:"spendingLimit"`
	ValidAfter    int64       `json:"validAfter"`
	ValidUntil    int64       `json:"validUntil"`
}

// RegisterSessionKeyReply is the reply for RegisterSessionKey
type RegisterSessionKeyReply struct {
	Registered bool `json:"registered"`
}

// RegisterSessionKey issues delegated authority under a session key.
func (s *Service) RegisterSessionKey(_ *http.Request, args *RegisterSessionKeyArgs, reply *RegisterSessionKeyReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	key, err := ids.ShortFromString(args.Key)
	if err != nil {
		return fmt.Errorf("invalid session key: %w", err)
	}
	allowedTarget, err := ids.ShortFromString(args.AllowedTarget)
	if err != nil {
		return fmt.Errorf("invalid allowed target: %w", err)
	}
	spendingToken, err := ids.ShortFromString(args.SpendingToken)
	if err != nil {
		return fmt.Errorf("invalid spending token: %w", err)
	}

	err = s.vm.vault.RegisterSessionKey(caller, key, vault.SessionPolicy{
		AllowedTarget: allowedTarget,
		SpendingToken: spendingToken,
		SpendingLimit: uint64(args.SpendingLimit),
		ValidAfter:    args.ValidAfter,
		ValidUntil:    args.ValidUntil,
	})
	if err != nil {
		return err
	}
	reply.Registered = true
	return nil
}

// RevokeSessionKeyArgs are the arguments for RevokeSessionKey
type RevokeSessionKeyArgs struct {
	Caller string `json:"caller"`
	Key    string `json:"key"`
}

// RevokeSessionKeyReply is the reply for RevokeSessionKey
type RevokeSessionKeyReply struct {
	Revoked bool `json:"revoked"`
}

// RevokeSessionKey permanently deactivates a session key.
func (s *Service) RevokeSessionKey(_ *http.Request, args *RevokeSessionKeyArgs, reply *RevokeSessionKeyReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	key, err := ids.ShortFromString(args.Key)
	if err != nil {
		return fmt.Errorf("invalid session key: %w", err)
	}

	if err := s.vm.vault.RevokeSessionKey(caller, key); err != nil {
		return err
	}
	reply.Revoked = true
	return nil
}

// ExecuteWithSessionKeyArgs are the arguments for ExecuteWithSessionKey
type ExecuteWithSessionKeyArgs struct {
	Key       string `json:"key"`
	Target    string `json:"target"`
	Operation string `json:"operation"`
	Args      string `json:"args"`
}

// ExecuteWithSessionKeyReply is the reply for ExecuteWithSessionKey
type ExecuteWithSessionKeyReply struct {
	Executed bool `json:"executed"`
}

// ExecuteWithSessionKey executes an operation under a session key's
// policy.
func (s *Service) ExecuteWithSessionKey(_ *http.Request, args *ExecuteWithSessionKeyArgs, reply *ExecuteWithSessionKeyReply) error {
	key, err := ids.ShortFromString(args.Key)
	if err != nil {
		return fmt.Errorf("invalid session key: %w", err)
	}
	target, err := ids.ShortFromString(args.Target)
	if err != nil {
		return fmt.Errorf("invalid target address: %w", err)
	}
	opArgs, err := formatting.Decode(formatting.Hex, args.Args)
	if err != nil {
		return fmt.Errorf("invalid args encoding: %w", err)
	}

	if err := s.vm.vault.ExecuteWithSessionKey(key, target, args.Operation, opArgs); err != nil {
		return err
	}
	reply.Executed = true
	return nil
}

// GetSessionPolicyArgs are the arguments for GetSessionPolicy
type GetSessionPolicyArgs struct {
	Key string `json:"key"`
}

// GetSessionPolicyReply is the reply for GetSessionPolicy
type GetSessionPolicyReply struct {
	Policy APISessionPolicy `json:"policy"`
}

// GetSessionPolicy returns the policy registered under a session key
func (s *Service) GetSessionPolicy(_ *http.Request, args *GetSessionPolicyArgs, reply *GetSessionPolicyReply) error {
	key, err := ids.ShortFromString(args.Key)
	if err != nil {
		return fmt.Errorf("invalid session key: %w", err)
	}

	policy, err := s.vm.vault.GetSessionPolicy(key)
	if err != nil {
		return err
	}
	reply.Policy = newAPISessionPolicy(policy)
	return nil
}

// GetSessionPoliciesArgs are the arguments for GetSessionPolicies
type GetSessionPoliciesArgs struct{}

// GetSessionPoliciesReply is the reply for GetSessionPolicies
type GetSessionPoliciesReply struct {
	Policies []APISessionPolicy `json:"policies"`
}

// GetSessionPolicies returns all session policies in key order
func (s *Service) GetSessionPolicies(_ *http.Request, args *GetSessionPoliciesArgs, reply *GetSessionPoliciesReply) error {
	policies := s.vm.vault.SessionPolicies()
	reply.Policies = make([]APISessionPolicy, len(policies))
	for i, policy := range policies {
		reply.Policies[i] = newAPISessionPolicy(policy)
	}
	return nil
}

// ============================================
// Pooled Asset APIs
// ============================================

// DepositArgs are the arguments for Deposit
type DepositArgs struct {
	Caller string      `json:"caller"`
	Token  string      `json:"token"`
	Amount json.Uint64 `json:"amount"`
}

// DepositReply is the reply for Deposit
type DepositReply struct {
	Balance json.Uint64 `json:"balance"`
}

// Deposit credits pooled funds to the vault.
func (s *Service) Deposit(_ *http.Request, args *DepositArgs, reply *DepositReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	token, err := ids.ShortFromString(args.Token)
	if err != nil {
		return fmt.Errorf("invalid token address: %w", err)
	}

	if err := s.vm.vault.Deposit(caller, token, uint64(args.Amount)); err != nil {
		return err
	}
	reply.Balance = json.Uint64(s.vm.vault.PooledBalance(token))
	return nil
}

// WithdrawArgs are the arguments for Withdraw
type WithdrawArgs struct {
	Caller string      `json:"caller"`
	Token  string      `json:"token"`
	To     string      `json:"to"`
	Amount json.Uint64 `json:"amount"`
	TxID   json.Uint64 `json:"txID"`
}

// WithdrawReply is the reply for Withdraw
type WithdrawReply struct {
	Balance json.Uint64 `json:"balance"`
}

// Withdraw releases pooled funds against an executed transaction.
func (s *Service) Withdraw(_ *http.Request, args *WithdrawArgs, reply *WithdrawReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	token, err := ids.ShortFromString(args.Token)
	if err != nil {
		return fmt.Errorf("invalid token address: %w", err)
	}
	to, err := ids.ShortFromString(args.To)
	if err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	if err := s.vm.vault.Withdraw(caller, token, to, uint64(args.Amount), uint64(args.TxID)); err != nil {
		return err
	}
	reply.Balance = json.Uint64(s.vm.vault.PooledBalance(token))
	return nil
}

// GetBalanceArgs are the arguments for GetBalance
type GetBalanceArgs struct {
	Token string `json:"token"`
}

// GetBalanceReply is the reply for GetBalance
type GetBalanceReply struct {
	Balance json.Uint64 `json:"balance"`
}

// GetBalance returns the pooled balance of a token
func (s *Service) GetBalance(_ *http.Request, args *GetBalanceArgs, reply *GetBalanceReply) error {
	token, err := ids.ShortFromString(args.Token)
	if err != nil {
		return fmt.Errorf("invalid token address: %w", err)
	}
	reply.Balance = json.Uint64(s.vm.vault.PooledBalance(token))
	return nil
}

// GetDepositArgs are the arguments for GetDeposit
type GetDepositArgs struct {
	Token     string `json:"token"`
	Depositor string `json:"depositor"`
}

// GetDepositReply is the reply for GetDeposit
type GetDepositReply struct {
	Amount json.Uint64 `json:"amount"`
}

// GetDeposit returns the amount a depositor has contributed to a token's
// pool
func (s *Service) GetDeposit(_ *http.Request, args *GetDepositArgs, reply *GetDepositReply) error {
	token, err := ids.ShortFromString(args.Token)
	if err != nil {
		return fmt.Errorf("invalid token address: %w", err)
	}
	depositor, err := ids.ShortFromString(args.Depositor)
	if err != nil {
		return fmt.Errorf("invalid depositor address: %w", err)
	}
	reply.Amount = json.Uint64(s.vm.vault.DepositOf(token, depositor))
	return nil
}

// ============================================
// Proof Gate APIs
// ============================================

// SubmitProofArgs are the arguments for SubmitProof
type SubmitProofArgs struct {
	Caller       string `json:"caller"`
	Proof        string `json:"proof"`
	PublicInputs string `json:"publicInputs"`
}

// SubmitProofReply is the reply for SubmitProof
type SubmitProofReply struct {
	ProofID json.Uint64 `json:"proofID"`
}

// SubmitProof records an attestation proof for later verification.
func (s *Service) SubmitProof(_ *http.Request, args *SubmitProofArgs, reply *SubmitProofReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	proof, err := formatting.Decode(formatting.Hex, args.Proof)
	if err != nil {
		return fmt.Errorf("invalid proof encoding: %w", err)
	}
	publicInputs, err := formatting.Decode(formatting.Hex, args.PublicInputs)
	if err != nil {
		return fmt.Errorf("invalid public inputs encoding: %w", err)
	}

	proofID, err := s.vm.vault.SubmitProof(caller, proof, publicInputs)
	if err != nil {
		return err
	}
	reply.ProofID = json.Uint64(proofID)
	return nil
}

// VerifyProofArgs are the arguments for VerifyProof
type VerifyProofArgs struct {
	Caller  string      `json:"caller"`
	ProofID json.Uint64 `json:"proofID"`
}

// VerifyProofReply is the reply for VerifyProof
type VerifyProofReply struct {
	Verified bool `json:"verified"`
}

// VerifyProof runs the attestation verifier over a submitted proof.
func (s *Service) VerifyProof(_ *http.Request, args *VerifyProofArgs, reply *VerifyProofReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	verified, err := s.vm.vault.VerifyProof(caller, uint64(args.ProofID))
	if err != nil {
		return err
	}
	reply.Verified = verified
	return nil
}

// VerifyAndActivateArgs are the arguments for VerifyAndActivate
type VerifyAndActivateArgs struct {
	Caller  string      `json:"caller"`
	ProofID json.Uint64 `json:"proofID"`
}

// VerifyAndActivateReply is the reply for VerifyAndActivate
type VerifyAndActivateReply struct {
	Verified    bool `json:"verified"`
	ProofActive bool `json:"proofActive"`
}

// VerifyAndActivate verifies a proof and, on success, makes it the active
// proof gating quantum mode.
func (s *Service) VerifyAndActivate(_ *http.Request, args *VerifyAndActivateArgs, reply *VerifyAndActivateReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	verified, err := s.vm.vault.VerifyAndActivate(caller, uint64(args.ProofID))
	if err != nil {
		return err
	}
	reply.Verified = verified
	reply.ProofActive = s.vm.vault.ProofActive()
	return nil
}

// ExpireOldProofsArgs are the arguments for ExpireOldProofs
type ExpireOldProofsArgs struct {
	Caller string `json:"caller"`
	MaxAge int64  `json:"maxAge"`
}

// ExpireOldProofsReply is the reply for ExpireOldProofs
type ExpireOldProofsReply struct {
	Expired int `json:"expired"`
}

// ExpireOldProofs sweeps proofs older than maxAge. A zero maxAge uses the
// chain's configured sweep age.
func (s *Service) ExpireOldProofs(_ *http.Request, args *ExpireOldProofsArgs, reply *ExpireOldProofsReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	maxAge := args.MaxAge
	if maxAge == 0 {
		maxAge = s.vm.config.ProofSweepMaxAge
	}
	expired, err := s.vm.vault.ExpireOldProofs(caller, maxAge)
	if err != nil {
		return err
	}
	reply.Expired = expired
	return nil
}

// GetProofArgs are the arguments for GetProof
type GetProofArgs struct {
	ProofID json.Uint64 `json:"proofID"`
}

// GetProofReply is the reply for GetProof
type GetProofReply struct {
	Proof APIProof `json:"proof"`
}

// GetProof returns a proof record by ID
func (s *Service) GetProof(_ *http.Request, args *GetProofArgs, reply *GetProofReply) error {
	record, err := s.vm.vault.GetProof(uint64(args.ProofID))
	if err != nil {
		return err
	}
	reply.Proof, err = newAPIProof(record)
	return err
}

// ============================================
// Guardian and Control APIs
// ============================================

// PauseArgs are the arguments for Pause
type PauseArgs struct {
	Caller string `json:"caller"`
}

// PauseReply is the reply for Pause
type PauseReply struct {
	Paused bool `json:"paused"`
}

// Pause halts all mutating vault operations.
func (s *Service) Pause(_ *http.Request, args *PauseArgs, reply *PauseReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.Pause(caller); err != nil {
		return err
	}
	reply.Paused = true
	return nil
}

// UnpauseArgs are the arguments for Unpause
type UnpauseArgs struct {
	Caller string `json:"caller"`
}

// UnpauseReply is the reply for Unpause
type UnpauseReply struct {
	Paused bool `json:"paused"`
}

// Unpause resumes vault operations.
func (s *Service) Unpause(_ *http.Request, args *UnpauseArgs, reply *UnpauseReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.Unpause(caller); err != nil {
		return err
	}
	reply.Paused = false
	return nil
}

// EnableQuantumModeArgs are the arguments for EnableQuantumMode
type EnableQuantumModeArgs struct {
	Caller string `json:"caller"`
}

// EnableQuantumModeReply is the reply for EnableQuantumMode
type EnableQuantumModeReply struct {
	QuantumMode bool `json:"quantumMode"`
}

// EnableQuantumMode switches the vault to proof-gated operation. The
// switch is one way.
func (s *Service) EnableQuantumMode(_ *http.Request, args *EnableQuantumModeArgs, reply *EnableQuantumModeReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.EnableQuantumMode(caller); err != nil {
		return err
	}
	reply.QuantumMode = true
	return nil
}

// ActivateEmergencyModeArgs are the arguments for ActivateEmergencyMode
type ActivateEmergencyModeArgs struct {
	Caller string `json:"caller"`
	Reason string `json:"reason"`
}

// ActivateEmergencyModeReply is the reply for ActivateEmergencyMode
type ActivateEmergencyModeReply struct {
	EmergencyMode bool `json:"emergencyMode"`
	Paused        bool `json:"paused"`
}

// ActivateEmergencyMode is the guardian's one-way kill switch; it also
// pauses the vault.
func (s *Service) ActivateEmergencyMode(_ *http.Request, args *ActivateEmergencyModeArgs, reply *ActivateEmergencyModeReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.ActivateEmergencyMode(caller, args.Reason); err != nil {
		return err
	}
	reply.EmergencyMode = true
	reply.Paused = s.vm.vault.Paused()
	return nil
}

// ChangeGuardianArgs are the arguments for ChangeGuardian
type ChangeGuardianArgs struct {
	Caller      string `json:"caller"`
	NewGuardian string `json:"newGuardian"`
}

// ChangeGuardianReply is the reply for ChangeGuardian
type ChangeGuardianReply struct {
	Guardian string `json:"guardian"`
}

// ChangeGuardian rotates the guardian identity.
func (s *Service) ChangeGuardian(_ *http.Request, args *ChangeGuardianArgs, reply *ChangeGuardianReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	newGuardian, err := ids.ShortFromString(args.NewGuardian)
	if err != nil {
		return fmt.Errorf("invalid guardian address: %w", err)
	}

	if err := s.vm.vault.ChangeGuardian(caller, newGuardian); err != nil {
		return err
	}
	reply.Guardian = s.vm.vault.Guardian().String()
	return nil
}

// ProposeUpgradeArgs are the arguments for ProposeUpgrade
type ProposeUpgradeArgs struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
}

// ProposeUpgradeReply is the reply for ProposeUpgrade
type ProposeUpgradeReply struct {
	UpgradeReadyAt int64 `json:"upgradeReadyAt"`
}

// ProposeUpgrade schedules an implementation upgrade behind the upgrade
// delay.
func (s *Service) ProposeUpgrade(_ *http.Request, args *ProposeUpgradeArgs, reply *ProposeUpgradeReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	target, err := ids.ShortFromString(args.Target)
	if err != nil {
		return fmt.Errorf("invalid upgrade target: %w", err)
	}

	if err := s.vm.vault.ProposeUpgrade(caller, target); err != nil {
		return err
	}
	reply.UpgradeReadyAt = s.vm.vault.GetControlState().UpgradeReadyAt
	return nil
}

// ExecuteUpgradeArgs are the arguments for ExecuteUpgrade
type ExecuteUpgradeArgs struct {
	Caller string `json:"caller"`
}

// ExecuteUpgradeReply is the reply for ExecuteUpgrade
type ExecuteUpgradeReply struct {
	Implementation string `json:"implementation"`
}

// ExecuteUpgrade applies a proposed upgrade whose delay has elapsed.
func (s *Service) ExecuteUpgrade(_ *http.Request, args *ExecuteUpgradeArgs, reply *ExecuteUpgradeReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.ExecuteUpgrade(caller); err != nil {
		return err
	}
	reply.Implementation = s.vm.vault.GetControlState().Implementation.String()
	return nil
}

// CancelUpgradeArgs are the arguments for CancelUpgrade
type CancelUpgradeArgs struct {
	Caller string `json:"caller"`
}

// CancelUpgradeReply is the reply for CancelUpgrade
type CancelUpgradeReply struct {
	Cancelled bool `json:"cancelled"`
}

// CancelUpgrade abandons a proposed upgrade.
func (s *Service) CancelUpgrade(_ *http.Request, args *CancelUpgradeArgs, reply *CancelUpgradeReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	if err := s.vm.vault.CancelUpgrade(caller); err != nil {
		return err
	}
	reply.Cancelled = true
	return nil
}

// UpdateMerkleRootArgs are the arguments for UpdateMerkleRoot
type UpdateMerkleRootArgs struct {
	Caller string `json:"caller"`
	Root   string `json:"root"`
}

// UpdateMerkleRootReply is the reply for UpdateMerkleRoot
type UpdateMerkleRootReply struct {
	Root string `json:"root"`
}

// UpdateMerkleRoot commits a new state root while quantum mode is active.
func (s *Service) UpdateMerkleRoot(_ *http.Request, args *UpdateMerkleRootArgs, reply *UpdateMerkleRootReply) error {
	caller, err := ids.ShortFromString(args.Caller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}
	root, err := ids.FromString(args.Root)
	if err != nil {
		return fmt.Errorf("invalid merkle root: %w", err)
	}

	if err := s.vm.vault.UpdateMerkleRoot(caller, root); err != nil {
		return err
	}
	reply.Root = root.String()
	return nil
}

// GetControlStateArgs are the arguments for GetControlState
type GetControlStateArgs struct{}

// GetControlStateReply is the reply for GetControlState
type GetControlStateReply struct {
	Paused         bool        `json:"paused"`
	EmergencyMode  bool        `json:"emergencyMode"`
	QuantumMode    bool        `json:"quantumMode"`
	Guardian       string      `json:"guardian"`
	Implementation string      `json:"implementation"`
	UpgradeTarget  string      `json:"upgradeTarget"`
	UpgradeReadyAt int64       `json:"upgradeReadyAt"`
	MerkleRoot     string      `json:"merkleRoot"`
	ActiveProof    json.Uint64 `json:"activeProof"`
	Nonce          json.Uint64 `json:"nonce"`
}

// GetControlState returns the vault's control-plane state
func (s *Service) GetControlState(_ *http.Request, args *GetControlStateArgs, reply *GetControlStateReply) error {
	control := s.vm.vault.GetControlState()
	reply.Paused = control.Paused
	reply.EmergencyMode = control.EmergencyMode
	reply.QuantumMode = control.QuantumMode
	reply.Guardian = control.Guardian.String()
	reply.Implementation = control.Implementation.String()
	reply.UpgradeTarget = control.UpgradeTarget.String()
	reply.UpgradeReadyAt = control.UpgradeReadyAt
	reply.MerkleRoot = control.MerkleRoot.String()
	reply.ActiveProof = json.Uint64(control.ActiveProof)
	reply.Nonce = json.Uint64(control.Nonce)
	return nil
}

// GetSignersArgs are the arguments for GetSigners
type GetSignersArgs struct{}

// GetSignersReply is the reply for GetSigners
type GetSignersReply struct {
	Signers   []string    `json:"signers"`
	Threshold json.Uint32 `json:"threshold"`
}

// GetSigners returns the signer set and confirmation threshold
func (s *Service) GetSigners(_ *http.Request, args *GetSignersArgs, reply *GetSignersReply) error {
	signerSet := s.vm.vault.Signers()
	reply.Signers = make([]string, len(signerSet.Signers))
	for i, signer := range signerSet.Signers {
		reply.Signers[i] = signer.String()
	}
	reply.Threshold = json.Uint32(signerSet.Threshold)
	return nil
}

// ============================================
// Event and Chain APIs
// ============================================

// GetEventsArgs are the arguments for GetEvents
type GetEventsArgs struct {
	From json.Uint64 `json:"from"`
	Max  json.Uint32 `json:"max"`
}

// GetEventsReply is the reply for GetEvents
type GetEventsReply struct {
	Events []APIEvent `json:"events"`
}

// GetEvents returns committed events starting at a sequence number. The
// page size is capped by the chain's configured query limit.
func (s *Service) GetEvents(_ *http.Request, args *GetEventsArgs, reply *GetEventsReply) error {
	max := int(args.Max)
	if max <= 0 || max > s.vm.config.MaxEventsPerQuery {
		max = s.vm.config.MaxEventsPerQuery
	}

	events := s.vm.vault.Events(uint64(args.From), max)
	reply.Events = make([]APIEvent, len(events))
	for i, ev := range events {
		reply.Events[i] = newAPIEvent(ev)
	}
	return nil
}

// GetBlockArgs are the arguments for GetBlock
type GetBlockArgs struct {
	BlockID  string              `json:"blockID"`
	Encoding formatting.Encoding `json:"encoding"`
}

// GetBlockReply is the reply for GetBlock
type GetBlockReply struct {
	Block      string              `json:"block"`
	Height     json.Uint64         `json:"height"`
	Timestamp  int64               `json:"timestamp"`
	Operations int                 `json:"operations"`
	Encoding   formatting.Encoding `json:"encoding"`
}

// GetBlock returns a block by ID
func (s *Service) GetBlock(_ *http.Request, args *GetBlockArgs, reply *GetBlockReply) error {
	blockID, err := ids.FromString(args.BlockID)
	if err != nil {
		return fmt.Errorf("invalid block ID: %w", err)
	}

	blk, err := s.vm.GetBlock(context.Background(), blockID)
	if err != nil {
		return fmt.Errorf("failed to get block: %w", err)
	}
	vaultBlk, ok := blk.(*Block)
	if !ok {
		return fmt.Errorf("unexpected block type %T", blk)
	}

	reply.Block, err = formatting.Encode(args.Encoding, vaultBlk.Bytes())
	if err != nil {
		return err
	}
	reply.Height = json.Uint64(vaultBlk.BlockHeight)
	reply.Timestamp = vaultBlk.BlockTimestamp
	reply.Operations = len(vaultBlk.Operations)
	reply.Encoding = args.Encoding
	return nil
}

// StatusArgs are the arguments for Status
type StatusArgs struct{}

// StatusReply is the reply for Status
type StatusReply struct {
	Version       string      `json:"version"`
	Height        json.Uint64 `json:"height"`
	LastAccepted  string      `json:"lastAccepted"`
	Paused        bool        `json:"paused"`
	EmergencyMode bool        `json:"emergencyMode"`
	QuantumMode   bool        `json:"quantumMode"`
	Nonce         json.Uint64 `json:"nonce"`
}

// Status returns the chain and vault status
func (s *Service) Status(_ *http.Request, args *StatusArgs, reply *StatusReply) error {
	lastAcceptedID, err := s.vm.LastAccepted(context.Background())
	if err != nil {
		return err
	}
	blk, err := s.vm.GetBlock(context.Background(), lastAcceptedID)
	if err != nil {
		return err
	}

	control := s.vm.vault.GetControlState()
	reply.Version = Version.String()
	reply.Height = json.Uint64(blk.Height())
	reply.LastAccepted = lastAcceptedID.String()
	reply.Paused = control.Paused
	reply.EmergencyMode = control.EmergencyMode
	reply.QuantumMode = control.QuantumMode
	reply.Nonce = json.Uint64(control.Nonce)
	return nil
}
