// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"github.com/spf13/pflag"
)

const (
	URIKey   = "uri"
	ChainKey = "chain"
	FromKey  = "from"
	MaxKey   = "max"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(URIKey, "http://127.0.0.1:9650", "API URI of the node hosting the chain")
	flags.String(ChainKey, "", "Chain ID or alias of the vault chain (required)")
	flags.Uint64(FromKey, 1, "Sequence number to start from")
	flags.Uint32(MaxKey, 0, "Page size, 0 for the server limit")
}

type Config struct {
	URI   string
	Chain string
	From  uint64
	Max   uint32
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	uri, err := flags.GetString(URIKey)
	if err != nil {
		return nil, err
	}

	chain, err := flags.GetString(ChainKey)
	if err != nil {
		return nil, err
	}

	from, err := flags.GetUint64(FromKey)
	if err != nil {
		return nil, err
	}

	max, err := flags.GetUint32(MaxKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		URI:   uri,
		Chain: chain,
		From:  from,
		Max:   max,
	}, nil
}
