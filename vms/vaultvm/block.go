// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/luxfi/consensus/core/choices"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/vault/vms/vaultvm/vault"
)

// Block is a batch of committed vault events. The vault itself is the
// source of truth; blocks replicate its operation log in sequence order.
type Block struct {
	ID_            ids.ID         `json:"id"`
	ParentID_      ids.ID         `serialize:"true" json:"parentId"`
	BlockHeight    uint64         `serialize:"true" json:"height"`
	BlockTimestamp int64          `serialize:"true" json:"timestamp"`
	Operations     []*vault.Event `serialize:"true" json:"operations"`

	vm     *VM
	status choices.Status
}

// ID returns the block's ID.
func (b *Block) ID() ids.ID {
	return b.ID_
}

// Parent returns the parent block's ID.
func (b *Block) Parent() ids.ID {
	return b.ParentID_
}

// ParentID returns the parent block's ID.
func (b *Block) ParentID() ids.ID {
	return b.ParentID_
}

// Height returns the block's height.
func (b *Block) Height() uint64 {
	return b.BlockHeight
}

// Timestamp returns the block's timestamp.
func (b *Block) Timestamp() time.Time {
	return time.Unix(b.BlockTimestamp, 0)
}

// Status returns the block's status as uint8.
func (b *Block) Status() uint8 {
	return uint8(b.status)
}

// ChoicesStatus returns the block's status as choices.Status.
func (b *Block) ChoicesStatus() choices.Status {
	return b.status
}

// SetStatus sets the block's status.
func (b *Block) SetStatus(status choices.Status) {
	b.status = status
}

// Bytes returns the block's serialized bytes.
func (b *Block) Bytes() []byte {
	bytes, _ := Codec.Marshal(codecVersion, b)
	return bytes
}

// Verify checks the block connects to a known parent and carries a
// well-formed, sequence-ordered batch of operations.
func (b *Block) Verify(ctx context.Context) error {
	if b.ParentID_ != ids.Empty {
		if _, err := b.vm.lookupBlock(b.ParentID_); err != nil {
			return err
		}
	}

	var lastSeq uint64
	for _, op := range b.Operations {
		if op.Type == "" || op.Sequence == 0 {
			return errInvalidOperation
		}
		if op.Sequence <= lastSeq {
			return errUnorderedOperations
		}
		lastSeq = op.Sequence
	}
	return nil
}

// Accept marks the block as accepted and persists it.
func (b *Block) Accept(ctx context.Context) error {
	b.status = choices.Accepted

	b.vm.mu.Lock()
	defer b.vm.mu.Unlock()

	delete(b.vm.pendingBlocks, b.ID())
	b.vm.lastAcceptedID = b.ID()

	if err := b.vm.putBlock(b); err != nil {
		return err
	}
	if err := b.vm.setLastAccepted(b.ID()); err != nil {
		return err
	}
	b.vm.heightIndex[b.BlockHeight] = b.ID()

	b.vm.metrics.MarkBlockAccepted(len(b.Operations))
	for _, op := range b.Operations {
		b.vm.metrics.MarkOperationAccepted(op)
	}

	b.vm.log.Info("accepted vault block",
		log.Stringer("blockID", b.ID()),
		log.Uint64("height", b.BlockHeight),
		log.Int("operations", len(b.Operations)),
	)
	return nil
}

// Reject marks the block as rejected. The operations it carried remain
// committed in the vault's own log; rejection only discards the batch.
func (b *Block) Reject(ctx context.Context) error {
	b.status = choices.Rejected

	b.vm.mu.Lock()
	defer b.vm.mu.Unlock()

	delete(b.vm.pendingBlocks, b.ID())

	b.vm.log.Info("rejected vault block",
		log.Stringer("blockID", b.ID()),
	)
	return nil
}

// computeID hashes the block's serialized form. The ID field itself is
// excluded from serialization so the hash is stable across parses.
func (b *Block) computeID() ids.ID {
	bytes, _ := Codec.Marshal(codecVersion, b)
	hash := sha256.Sum256(bytes)
	return ids.ID(hash)
}
