// Package main provides the entry point for the mixtape client CLI.
// It manages the Spotify connection of a mixtape account: running the
// browser authorization flow, inspecting the stored connection, refreshing
// the access token, and disconnecting.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/mixtape-social/mixtape/internal/cmd"
	"github.com/mixtape-social/mixtape/internal/config"
	"github.com/mixtape-social/mixtape/internal/logging"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
}

// main parses command-line flags, loads configuration, and runs the
// requested operation (connect, status, refresh, or disconnect).
func main() {
	// Command-line flags to control the application's behavior.
	var connect bool
	var showStatus bool
	var disconnect bool
	var refresh bool
	var noBrowser bool
	var owner string
	var configPath string
	var timeout time.Duration
	var jsonOutput bool
	var showVersion bool
	var verboseMode bool

	flag.BoolVar(&connect, "connect", false, "Connect a Spotify account using browser authorization")
	flag.BoolVar(&showStatus, "status", false, "Show the Spotify connection status and exit")
	flag.BoolVar(&disconnect, "disconnect", false, "Remove the stored Spotify connection and exit")
	flag.BoolVar(&refresh, "refresh", false, "Refresh the Spotify access token and exit")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically; print the URL instead")
	flag.StringVar(&owner, "owner", "", "Application username the connection belongs to")
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the authorization callback")
	flag.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flag.BoolVar(&showVersion, "version", false, "Show mixtape version and exit")
	flag.BoolVar(&verboseMode, "verbose", false, "Run in verbose mode")

	flag.Parse()

	if showVersion {
		fmt.Printf("mixtape Version: %s, Commit: %s, BuiltAt: %s\n", Version, Commit, BuildDate)
		return
	}

	// Load .env before the config so env overrides see its values.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to load .env file: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}

	if verboseMode {
		logging.SetLogLevel("debug")
	} else {
		logging.SetLogLevel(cfg.Logging.GetLevel())
	}
	logging.SetLogFile(cfg.Logging.File)

	if owner == "" {
		owner = os.Getenv("MIXTAPE_OWNER")
	}
	if owner == "" {
		log.Error("an owner is required: pass --owner or set MIXTAPE_OWNER")
		os.Exit(1)
	}

	switch {
	case connect:
		err = cmd.DoSpotifyConnect(cfg, &cmd.ConnectOptions{
			Owner:     owner,
			NoBrowser: noBrowser,
			Timeout:   timeout,
		})
	case showStatus:
		err = cmd.ShowStatus(cfg, owner, jsonOutput)
	case refresh:
		err = cmd.RefreshToken(cfg, owner, jsonOutput)
	case disconnect:
		err = cmd.DoSpotifyDisconnect(cfg, owner)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
