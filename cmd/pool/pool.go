// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stratastor/zfskit/internal/session"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
)

func NewPoolCmd(open session.Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Inspect and maintain ZFS pools",
	}

	cmd.AddCommand(newListCmd(open))
	cmd.AddCommand(newHealthCmd(open))
	cmd.AddCommand(newScrubCmd(open))
	return cmd
}

func newListCmd(open session.Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported pools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				pools, err := reg.Roots(ctx)
				if err != nil {
					return err
				}
				defer func() {
					for _, p := range pools {
						p.Dispose()
					}
				}()

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tHEALTH")
				for _, p := range pools {
					health, err := p.Health(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\t%s\n", p.Name(), health)
				}
				return w.Flush()
			})
		},
	}
}

func newHealthCmd(open session.Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "health <pool>",
		Short: "Print pool health",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				p, err := reg.ResolvePool(ctx, args[0])
				if err != nil {
					return err
				}
				defer p.Dispose()

				health, err := p.Health(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), health)
				return nil
			})
		},
	}
}

func newScrubCmd(open session.Opener) *cobra.Command {
	var stop bool

	cmd := &cobra.Command{
		Use:   "scrub <pool>",
		Short: "Start or stop a pool scrub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				p, err := reg.ResolvePool(ctx, args[0])
				if err != nil {
					return err
				}
				defer p.Dispose()
				return p.Scrub(ctx, stop)
			})
		},
	}

	cmd.Flags().BoolVarP(&stop, "stop", "s", false, "Stop the running scrub")
	return cmd
}
