// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
)

// Invoker applies an operation against an external target on the vault's
// behalf. A returned error aborts the calling vault operation with no
// state change. Implementations must not call back into the vault; the
// invocation runs under the vault's lock.
type Invoker interface {
	Invoke(target ids.ShortID, operation string, args []byte, value uint64) error
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(target ids.ShortID, operation string, args []byte, value uint64) error

func (f InvokerFunc) Invoke(target ids.ShortID, operation string, args []byte, value uint64) error {
	return f(target, operation, args, value)
}

func (v *Vault) invoke(target ids.ShortID, operation string, args []byte, value uint64) error {
	if v.invoker == nil {
		return nil
	}
	return v.invoker.Invoke(target, operation, args, value)
}

type opDigest struct {
	Target    ids.ShortID `serialize:"true"`
	Operation string      `serialize:"true"`
	Args      []byte      `serialize:"true"`
}

// contentHash derives the audit hash over (target, operation, args).
func contentHash(target ids.ShortID, operation string, args []byte) (ids.ID, error) {
	b, err := Codec.Marshal(CodecVersion, &opDigest{
		Target:    target,
		Operation: operation,
		Args:      args,
	})
	if err != nil {
		return ids.Empty, err
	}
	return ids.ID(sha256.Sum256(b)), nil
}
