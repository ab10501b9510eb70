// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/wovault/pkg/api"
	"github.com/LeeDigitalWorks/wovault/pkg/debug"
	"github.com/LeeDigitalWorks/wovault/pkg/events"
	"github.com/LeeDigitalWorks/wovault/pkg/logger"
	"github.com/LeeDigitalWorks/wovault/pkg/utils"
)

// ServerOpts holds all configuration for the API server
type ServerOpts struct {
	// Network binding
	BindAddr  string // Address to bind to (e.g., "0.0.0.0:8000" or ":8000")
	DebugPort int    // Debug HTTP port

	// Wopan upload
	AccessToken string
	DirectoryID string
	UploadURL   string
	Timeout     time.Duration

	// Extraction
	YtdlpPath      string
	TempDir        string
	UploadDir      string
	ExtractTimeout time.Duration
	MinFreeSpace   string
	DownloadRate   int

	// Event notification
	EventWebhookURL string
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start API server",
	Long: `Start the WoVault API server that extracts platform media via
yt-dlp and uploads files to Wopan cloud storage.`,
	Run: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	f := serverCmd.Flags()

	f.String("bind_addr", "0.0.0.0:8000", "Address to bind the API server (host:port). Use 0.0.0.0 to listen on all interfaces.")
	f.Int("debug_port", 8010, "Debug/metrics HTTP port")

	f.String("wopan_access_token", "", "Wopan access token (or set WOPAN_ACCESS_TOKEN). Upload endpoints are disabled without it.")
	f.String("wopan_directory_id", "0", "Default Wopan directory id for uploads")
	f.String("wopan_upload_url", "", "Override the Wopan upload endpoint (defaults to the production endpoint)")
	f.Duration("wopan_timeout", 120*time.Second, "Timeout per upload part attempt")

	f.String("ytdlp_path", "yt-dlp", "Path to the yt-dlp executable")
	f.String("temp_dir", "temp", "Staging directory for extracted media")
	f.String("upload_dir", filepath.Join("temp", "uploads"), "Staging directory for direct file uploads")
	f.Duration("extract_timeout", 0, "Timeout for one whole extraction (0 = unbounded)")
	f.String("min_free_space", "", "Refuse extractions when the staging volume is low, as percent (\"10\") or bytes (\"5GB\"). Empty disables the check.")
	f.Int("download_rate", 0, "Max download requests per second (0 = unlimited)")

	f.String("event_webhook_url", "", "POST upload lifecycle events to this URL as JSON")

	viper.BindPFlags(f)
}

func runServer(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("wovault", false)
	opts := loadServerOpts(cmd)

	debug.SetNotReady()

	var minFree *utils.FreeSpace
	if opts.MinFreeSpace != "" {
		var err error
		minFree, err = utils.ParseMinFreeSpace(opts.MinFreeSpace)
		if err != nil {
			logger.Fatal().Err(err).Str("min_free_space", opts.MinFreeSpace).Msg("invalid min_free_space value")
		}
	}

	srv, err := api.NewServer(api.Config{
		AccessToken:    opts.AccessToken,
		DirectoryID:    opts.DirectoryID,
		UploadURL:      opts.UploadURL,
		Timeout:        opts.Timeout,
		YtdlpPath:      opts.YtdlpPath,
		TempDir:        opts.TempDir,
		UploadDir:      opts.UploadDir,
		ExtractTimeout: opts.ExtractTimeout,
		MinFreeSpace:   minFree,
		DownloadRate:   opts.DownloadRate,
		EventWebhook: events.WebhookConfig{
			URL:    opts.EventWebhookURL,
			Events: viper.GetStringSlice("event_webhook_events"),
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create API server")
	}
	if opts.AccessToken == "" {
		logger.Warn().Msg("No Wopan access token configured - upload endpoints will reject requests")
	}

	bindHost, bindPort, err := splitBindAddr(opts.BindAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("bind_addr", opts.BindAddr).Msg("invalid bind_addr format, expected host:port")
	}

	logger.Info().
		Str("version", Version).
		Str("bind_addr", opts.BindAddr).
		Int("debug_port", opts.DebugPort).
		Str("temp_dir", opts.TempDir).
		Msg("API server configuration")

	httpServer := startHTTPServer(srv, bindHost, bindPort)
	debugServer := startHTTPServer(debug.GetMux(), bindHost, opts.DebugPort)

	debug.SetReady()

	waitForShutdown()

	debug.SetNotReady()
	httpServer.Shutdown(cmd.Context())
	debugServer.Shutdown(cmd.Context())
	srv.Close()
}

func loadServerOpts(cmd *cobra.Command) ServerOpts {
	f := NewFlagLoader(cmd)

	accessToken := f.String("wopan_access_token")
	if accessToken == "" {
		// Try environment variable as fallback
		accessToken = os.Getenv("WOPAN_ACCESS_TOKEN")
	}

	return ServerOpts{
		BindAddr:       f.String("bind_addr"),
		DebugPort:      f.Int("debug_port"),
		AccessToken:    accessToken,
		DirectoryID:    f.String("wopan_directory_id"),
		UploadURL:      f.String("wopan_upload_url"),
		Timeout:        f.Duration("wopan_timeout"),
		YtdlpPath:      f.String("ytdlp_path"),
		TempDir:        f.String("temp_dir"),
		UploadDir:      f.String("upload_dir"),
		ExtractTimeout: f.Duration("extract_timeout"),
		MinFreeSpace:   f.String("min_free_space"),
		DownloadRate:   f.Int("download_rate"),

		EventWebhookURL: f.String("event_webhook_url"),
	}
}

func splitBindAddr(bindAddr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func startHTTPServer(handler http.Handler, ip string, port int) *http.Server {
	listener, err := utils.NewListener(utils.JoinHostPort(ip, port), 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create HTTP listener")
	}

	httpServer := &http.Server{Handler: handler}
	go func() {
		logger.Info().Str("http_addr", utils.JoinHostPort(ip, port)).Msg("Starting HTTP server")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start HTTP server")
		}
	}()
	return httpServer
}

func waitForShutdown() {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGALRM, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan
}
