// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/vault/cmd/vaultcli/events"
	"github.com/luxfi/vault/cmd/vaultcli/genesis"
	"github.com/luxfi/vault/cmd/vaultcli/status"
)

func main() {
	root := &cobra.Command{
		Use:   "vaultcli",
		Short: "Operator tooling for vault chains",
	}
	root.AddCommand(
		genesis.Command(),
		status.Command(),
		events.Command(),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
