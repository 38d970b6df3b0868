// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/stratastor/zfskit/internal/session"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

func NewDatasetCmd(open session.Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dataset",
		Aliases: []string{"ds"},
		Short:   "Manage ZFS filesystems, volumes and snapshots",
	}

	cmd.AddCommand(newListCmd(open))
	cmd.AddCommand(newSnapshotsCmd(open))
	cmd.AddCommand(newSnapshotCmd(open))
	cmd.AddCommand(newRollbackCmd(open))
	cmd.AddCommand(newCloneCmd(open))
	cmd.AddCommand(newDestroyCmd(open))
	cmd.AddCommand(newRenameCmd(open))
	cmd.AddCommand(newGetCmd(open))
	cmd.AddCommand(newSetCmd(open))
	cmd.AddCommand(newInheritCmd(open))
	return cmd
}

// parseProps turns "key=value" flag values into a map.
func parseProps(opts []string) (map[string]string, error) {
	props := make(map[string]string, len(opts))
	for _, o := range opts {
		k, v, ok := strings.Cut(o, "=")
		if !ok || k == "" {
			return nil, errors.New(errors.ServerRequestValidation, "property must be key=value: "+o)
		}
		props[k] = v
	}
	return props, nil
}

func container(ctx context.Context, reg *dataset.Registry, name string) (dataset.Container, error) {
	d, err := reg.Resolve(ctx, name, common.TypeDatasetMask|common.TypePool)
	if err != nil {
		return nil, err
	}
	c, ok := d.(dataset.Container)
	if !ok {
		d.Dispose()
		return nil, errors.New(errors.ZFSPreconditionFailed, "dataset has no children").
			WithMetadata("name", name)
	}
	return c, nil
}

func printTable[T dataset.Dataset](ctx context.Context, out io.Writer, ds []T) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tUSED\tAVAIL\tORIGIN")
	for _, d := range ds {
		info, err := dataset.Describe(ctx, d)
		if err != nil {
			return err
		}
		avail := "-"
		if !d.Type().IsSnapshot() {
			avail = humanize.IBytes(info.Available)
		}
		origin := info.Origin
		if origin == "" {
			origin = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			info.Name, info.Type, humanize.IBytes(info.Used), avail, origin)
	}
	return w.Flush()
}

func dispose[T dataset.Dataset](ds []T) {
	for _, d := range ds {
		d.Dispose()
	}
}

func newListCmd(open session.Opener) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls <name>",
		Short: "List a dataset and its children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				c, err := container(ctx, reg, args[0])
				if err != nil {
					return err
				}
				defer c.Dispose()

				var below []dataset.Dataset
				if recursive {
					below, err = c.Descendants(ctx)
				} else {
					below, err = c.Children(ctx)
				}
				if err != nil {
					return err
				}
				defer dispose(below)

				return printTable(ctx, cmd.OutOrStdout(), append([]dataset.Dataset{c}, below...))
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Include all descendants and snapshots")
	return cmd
}

func newSnapshotsCmd(open session.Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <name>",
		Short: "List snapshots in creation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				c, err := container(ctx, reg, args[0])
				if err != nil {
					return err
				}
				defer c.Dispose()

				snaps, err := c.Snapshots(ctx)
				if err != nil {
					return err
				}
				defer dispose(snaps)
				return printTable(ctx, cmd.OutOrStdout(), snaps)
			})
		},
	}
}

func newSnapshotCmd(open session.Opener) *cobra.Command {
	var (
		recursive bool
		opts      []string
	)

	cmd := &cobra.Command{
		Use:   "snapshot <dataset@name>",
		Short: "Create a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			base, snap, ok := strings.Cut(args[0], "@")
			if !ok {
				return common.ValidateName(args[0], common.TypeSnapshot)
			}
			props, err := parseProps(opts)
			if err != nil {
				return err
			}
			return open.With(ctx, func(reg *dataset.Registry) error {
				c, err := container(ctx, reg, base)
				if err != nil {
					return err
				}
				defer c.Dispose()

				s, err := c.CreateSnapshot(ctx, snap, recursive, props)
				if err != nil {
					return err
				}
				defer s.Dispose()
				fmt.Fprintln(cmd.OutOrStdout(), s.Name())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Snapshot all descendants atomically")
	cmd.Flags().StringArrayVarP(&opts, "property", "o", nil, "Set property key=value")
	return cmd
}

func newRollbackCmd(open session.Opener) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rollback <snapshot>",
		Short: "Roll a dataset back to a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				d, err := reg.Resolve(ctx, args[0], common.TypeAny)
				if err != nil {
					return err
				}
				defer d.Dispose()

				res, err := dataset.Rollback(ctx, d, recursive)
				if err != nil {
					return err
				}
				if res.Blocked() {
					defer res.BlockedBy.Dispose()
					return errors.New(errors.ZFSBusy, "newer snapshot has a clone").
						WithAction("rollback to '"+args[0]+"'").
						WithMetadata("clone", res.BlockedBy.Name())
				}
				defer res.Parent.Dispose()
				fmt.Fprintf(cmd.OutOrStdout(), "%s rolled back to %s\n", res.Parent.Name(), args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Destroy newer snapshots first")
	return cmd
}

func newCloneCmd(open session.Opener) *cobra.Command {
	var opts []string

	cmd := &cobra.Command{
		Use:   "clone <snapshot> <target>",
		Short: "Clone a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			props, err := parseProps(opts)
			if err != nil {
				return err
			}
			return open.With(ctx, func(reg *dataset.Registry) error {
				d, err := reg.Resolve(ctx, args[0], common.TypeAny)
				if err != nil {
					return err
				}
				defer d.Dispose()

				clone, err := dataset.Clone(ctx, d, args[1], props)
				if err != nil {
					return err
				}
				defer clone.Dispose()
				fmt.Fprintln(cmd.OutOrStdout(), clone.Name())
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&opts, "property", "o", nil, "Set property key=value")
	return cmd
}

func newDestroyCmd(open session.Opener) *cobra.Command {
	var deferred bool

	cmd := &cobra.Command{
		Use:   "destroy <name>",
		Short: "Destroy a dataset or snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				d, err := reg.Resolve(ctx, args[0], common.TypeAny)
				if err != nil {
					return err
				}
				if err := d.Destroy(ctx, deferred); err != nil {
					d.Dispose()
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&deferred, "defer", "d", false, "Mark a cloned snapshot for deferred destruction")
	return cmd
}

func newRenameCmd(open session.Opener) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a dataset or snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				d, err := reg.Resolve(ctx, args[0], common.TypeAny)
				if err != nil {
					return err
				}
				renamed, err := d.Rename(ctx, args[1], recursive)
				if err != nil {
					d.Dispose()
					return err
				}
				defer renamed.Dispose()
				fmt.Fprintln(cmd.OutOrStdout(), renamed.Name())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Rename snapshots of descendants too")
	return cmd
}

func newGetCmd(open session.Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name> <property>...",
		Short: "Print native or user properties",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				d, err := reg.Resolve(ctx, args[0], common.TypeAny)
				if err != nil {
					return err
				}
				defer d.Dispose()

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PROPERTY\tVALUE\tSOURCE")
				for _, key := range args[1:] {
					if strings.Contains(key, ":") {
						rec, ok, err := d.GetUserPropertyRecord(ctx, key)
						if err != nil {
							return err
						}
						if !ok {
							fmt.Fprintf(w, "%s\t-\t-\n", key)
							continue
						}
						fmt.Fprintf(w, "%s\t%s\t%s\n", key, rec.Value, property.FormatSource(rec.Source, rec.SourceData))
						continue
					}
					p, ok := property.ParseProp(key)
					if !ok {
						return errors.New(errors.ZFSPropertyUnsupported, "invalid property '"+key+"'")
					}
					v, err := d.GetProperty(ctx, p)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", v.Name, v.Text, property.FormatSource(v.Source, v.Inherited))
				}
				return w.Flush()
			})
		},
	}
}

func newSetCmd(open session.Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <key=value>...",
		Short: "Set native or user properties",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			props, err := parseProps(args[1:])
			if err != nil {
				return err
			}
			return open.With(ctx, func(reg *dataset.Registry) error {
				d, err := reg.Resolve(ctx, args[0], common.TypeAny)
				if err != nil {
					return err
				}
				defer d.Dispose()
				return d.SetProperties(ctx, props)
			})
		},
	}
}

func newInheritCmd(open session.Opener) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "inherit <name> <property>",
		Short: "Clear a local property value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return open.With(ctx, func(reg *dataset.Registry) error {
				d, err := reg.Resolve(ctx, args[0], common.TypeAny)
				if err != nil {
					return err
				}
				defer d.Dispose()
				return d.InheritProperty(ctx, args[1], recursive)
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Apply to descendants")
	return cmd
}
