// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const codecVersion = 0

// Codec serializes blocks and the genesis document.
var Codec codec.Manager

func init() {
	c := linearcodec.NewDefault()

	c.RegisterType(&Block{})
	c.RegisterType(&Genesis{})

	Codec = codec.NewDefaultManager()
	if err := Codec.RegisterCodec(codecVersion, c); err != nil {
		panic(err)
	}
}
