// Package cmd provides CLI command implementations for mixtape.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/mixtape-social/mixtape/internal/config"
	"github.com/mixtape-social/mixtape/internal/securestore"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// ConnectOptions controls the Spotify connect flow.
type ConnectOptions struct {
	// Owner is the application username the token is stored under.
	Owner string

	// NoBrowser prints the authorization URL instead of opening a browser.
	NoBrowser bool

	// Timeout bounds how long to wait for the redirect callback.
	// 0 means default (5 minutes).
	Timeout time.Duration
}

func (o *ConnectOptions) timeout() time.Duration {
	if o == nil || o.Timeout <= 0 {
		return 5 * time.Minute
	}
	return o.Timeout
}

// openStore opens the encrypted secret store configured in cfg, reading the
// passphrase from MIXTAPE_STORE_PASSPHRASE or prompting on the terminal.
func openStore(cfg *config.Config) (*securestore.BoltStore, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}

	passphrase := os.Getenv("MIXTAPE_STORE_PASSPHRASE")
	if passphrase == "" {
		fmt.Fprint(os.Stderr, "Store passphrase: ")
		raw, errRead := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if errRead != nil {
			return nil, fmt.Errorf("reading passphrase: %w", errRead)
		}
		passphrase = string(raw)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("a store passphrase is required (set MIXTAPE_STORE_PASSPHRASE)")
	}

	return securestore.Open(path, passphrase)
}

// outputJSON outputs data as JSON
func outputJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
