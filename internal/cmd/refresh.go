package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mixtape-social/mixtape/internal/auth/spotify"
	"github.com/mixtape-social/mixtape/internal/config"
	"github.com/mixtape-social/mixtape/internal/session"
)

// RefreshResult holds the result of a token refresh operation
type RefreshResult struct {
	Owner     string `json:"owner"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshToken refreshes the owner's Spotify access token using the stored
// refresh token.
func RefreshToken(cfg *config.Config, owner string, jsonOutput bool) error {
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening secret store: %w", err)
	}
	defer func() {
		if errClose := store.Close(); errClose != nil {
			log.Errorf("failed to close secret store: %v", errClose)
		}
	}()

	service := spotify.NewService(cfg.Spotify.ClientID, cfg.Spotify.RedirectURI())
	manager := session.NewManager(store, service, cfg.Spotify.ClientID, cfg.Spotify.RedirectURI())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := RefreshResult{Owner: owner}

	record, err := manager.Refresh(ctx, owner)
	switch {
	case errors.Is(err, session.ErrNotConnected):
		result.Error = "not connected to Spotify"
	case err != nil:
		result.Error = err.Error()
	default:
		result.Success = true
		result.ExpiresAt = record.ExpiresAt
	}

	if jsonOutput {
		return outputJSON(result)
	}

	if !result.Success {
		return fmt.Errorf("refreshing token for %s: %s", owner, result.Error)
	}

	fmt.Printf("%sToken refreshed%s for %s", colorGreen, colorReset, owner)
	if result.ExpiresAt != "" {
		fmt.Printf(" (expires: %s)", result.ExpiresAt)
	}
	fmt.Println()
	return nil
}
