// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/LeeDigitalWorks/wovault/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:   "wovault",
	Short: "WoVault - media extraction and Wopan cloud upload",
	Long: `WoVault extracts media from streaming platforms with yt-dlp and
transfers files to Wopan cloud storage (pan.wo.cn) over its chunked
upload protocol. It runs as an HTTP service or as a one-shot uploader.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
