// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/wovault/pkg/events"
	"github.com/LeeDigitalWorks/wovault/pkg/logger"
	"github.com/LeeDigitalWorks/wovault/pkg/utils"
	"github.com/LeeDigitalWorks/wovault/pkg/wopan"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file to Wopan cloud storage",
	Long: `Upload a local file to Wopan cloud storage over the chunked upload
protocol. Part progress and retries are logged; the command exits non-zero
if the transfer fails.`,
	Args: cobra.ExactArgs(1),
	Run:  runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	f := uploadCmd.Flags()
	f.String("wopan_access_token", "", "Wopan access token (or set WOPAN_ACCESS_TOKEN)")
	f.String("directory_id", wopan.RootDirectoryID, "Target Wopan directory id")
	f.String("wopan_upload_url", "", "Override the Wopan upload endpoint")
	f.Duration("wopan_timeout", 120*time.Second, "Timeout per upload part attempt")

	viper.BindPFlags(f)
}

func runUpload(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("wovault", false)
	f := NewFlagLoader(cmd)

	accessToken := f.String("wopan_access_token")
	if accessToken == "" {
		// Try environment variable as fallback
		accessToken = os.Getenv("WOPAN_ACCESS_TOKEN")
	}
	if accessToken == "" {
		logger.Fatal().Msg("--wopan_access_token is required. Set via flag, config, or WOPAN_ACCESS_TOKEN env var.")
	}

	up, err := wopan.NewUploader(wopan.Config{
		AccessToken:    accessToken,
		UploadURL:      f.String("wopan_upload_url"),
		RequestTimeout: f.Duration("wopan_timeout"),
		Emitter:        events.NewLogEmitter(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create uploader")
	}

	filePath := args[0]
	res, err := up.Upload(cmd.Context(), &wopan.UploadRequest{
		FilePath:    filePath,
		DirectoryID: f.String("directory_id"),
	})
	if err != nil {
		logger.Fatal().Err(err).Str("file", filePath).Msg("upload failed")
	}

	if res.Confirmed {
		fmt.Printf("Uploaded %s (%s) in %d part(s), fid %s\n",
			res.FileName, humanize.Bytes(uint64(res.FileSize)), res.PartsSent, res.Fid)
	} else {
		fmt.Printf("Sent %s (%s) in %d part(s), but the remote returned no file id\n",
			res.FileName, humanize.Bytes(uint64(res.FileSize)), res.PartsSent)
	}
}
