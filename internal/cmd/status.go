package cmd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mixtape-social/mixtape/internal/auth/spotify"
	"github.com/mixtape-social/mixtape/internal/config"
	"github.com/mixtape-social/mixtape/internal/session"
)

// ConnectionStatus holds the displayable state of one owner's connection.
type ConnectionStatus struct {
	Owner       string `json:"owner"`
	Connected   bool   `json:"connected"`
	Scope       string `json:"scope,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	Expired     bool   `json:"expired,omitempty"`
	ConnectedAt string `json:"connected_at,omitempty"`
}

// ShowStatus prints whether the owner has a Spotify connection and how
// fresh its access token is.
func ShowStatus(cfg *config.Config, owner string, jsonOutput bool) error {
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

	status := ConnectionStatus{Owner: owner}

	record, err := manager.Record(owner)
	switch {
	case err != nil:
		return fmt.Errorf("reading connection state: %w", err)
	case record == nil:
		// leave status disconnected
	default:
		status.Connected = true
		status.Scope = record.Scope
		status.ExpiresAt = record.ExpiresAt
		status.ConnectedAt = record.ConnectedAt
		if expiry, errParse := time.Parse(time.RFC3339, record.ExpiresAt); errParse == nil {
			status.Expired = time.Now().After(expiry)
		}
	}

	if jsonOutput {
		return outputJSON(status)
	}

	if !status.Connected {
		fmt.Printf("%s%s is not connected to Spotify%s\n", colorYellow, owner, colorReset)
		return nil
	}

	fmt.Printf("%s%s is connected to Spotify%s\n", colorGreen, owner, colorReset)
	if status.Scope != "" {
		fmt.Printf("  scopes:    %s\n", status.Scope)
	}
	if status.ConnectedAt != "" {
		fmt.Printf("  connected: %s\n", status.ConnectedAt)
	}
	if status.ExpiresAt != "" {
		marker := ""
		if status.Expired {
			marker = fmt.Sprintf(" %s(expired; run --refresh)%s", colorRed, colorReset)
		}
		fmt.Printf("  expires:   %s%s\n", status.ExpiresAt, marker)
	}
	return nil
}
