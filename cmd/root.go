// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/stratastor/zfskit/cmd/config"
	"github.com/stratastor/zfskit/cmd/dataset"
	"github.com/stratastor/zfskit/cmd/pool"
	"github.com/stratastor/zfskit/cmd/serve"
	"github.com/stratastor/zfskit/cmd/version"
	cfg "github.com/stratastor/zfskit/config"
	"github.com/stratastor/zfskit/internal/session"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "zfskit",
		Short:         "zfskit: typed ZFS dataset and pool management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.LoadConfig(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	oneShot := session.OneShot()

	rootCmd.AddCommand(serve.NewServeCmd(session.FromConfig()))
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(config.NewConfigCmd())
	rootCmd.AddCommand(pool.NewPoolCmd(oneShot))
	rootCmd.AddCommand(dataset.NewDatasetCmd(oneShot))

	return rootCmd
}
