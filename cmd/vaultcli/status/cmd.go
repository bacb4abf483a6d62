// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package status

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/luxfi/vault/vms/vaultvm"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "status",
		Short: "Reports the chain tip and vault control state",
		RunE:  statusFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func statusFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	ctx := c.Context()
	client := vaultvm.NewClient(config.URI, config.Chain)

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}

	signers, err := client.GetSigners(ctx)
	if err != nil {
		return err
	}

	control, err := client.GetControlState(ctx)
	if err != nil {
		return err
	}

	log.Printf("version: %s\n", status.Version)
	log.Printf("height: %d last accepted: %s\n", uint64(status.Height), status.LastAccepted)
	log.Printf("signers: %d threshold: %d\n", len(signers.Signers), uint32(signers.Threshold))
	log.Printf("guardian: %s\n", control.Guardian)
	log.Printf("paused: %t emergency: %t quantum: %t\n", status.Paused, status.EmergencyMode, status.QuantumMode)
	log.Printf("nonce: %d\n", uint64(status.Nonce))
	return nil
}
