// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

// CodecVersion is the serialization version for persisted vault records.
const CodecVersion = 0

// Codec serializes every record the vault persists or exchanges.
var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&Transaction{}),
		lc.RegisterType(&TimeLock{}),
		lc.RegisterType(&ProofRecord{}),
		lc.RegisterType(&SessionPolicy{}),
		lc.RegisterType(&TransferArgs{}),
		lc.RegisterType(&SignerSet{}),
		lc.RegisterType(&ControlState{}),
		lc.RegisterType(&Event{}),
		lc.RegisterType(&opDigest{}),
		lc.RegisterType(&proofDigest{}),
		lc.RegisterType(&counterState{}),
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}
