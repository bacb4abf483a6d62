// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/luxfi/vault/vms/vaultvm"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "events",
		Short: "Streams the committed operation log",
		RunE:  eventsFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func eventsFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	ctx := c.Context()
	client := vaultvm.NewClient(config.URI, config.Chain)

	from := config.From
	for {
		page, err := client.GetEvents(ctx, from, config.Max)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, ev := range page {
			log.Printf("%d %s caller=%s entity=%d amount=%d\n",
				uint64(ev.Sequence),
				ev.Type,
				ev.Caller,
				uint64(ev.EntityID),
				uint64(ev.Amount),
			)
		}
		from = uint64(page[len(page)-1].Sequence) + 1
	}
}
