// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxfi/vault/utils/formatting"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "genesis",
		Short: "Builds and prints a chain genesis document",
		RunE:  genesisFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func genesisFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	if err := config.Genesis.Validate(); err != nil {
		return err
	}

	genesisBytes, err := config.Genesis.Bytes()
	if err != nil {
		return err
	}

	encoded, err := formatting.Encode(formatting.Hex, genesisBytes)
	if err != nil {
		return err
	}

	fmt.Println(encoded)
	return nil
}
