package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/mixtape-social/mixtape/internal/auth/spotify"
	"github.com/mixtape-social/mixtape/internal/config"
	"github.com/mixtape-social/mixtape/internal/session"
)

// DoSpotifyDisconnect removes the owner's stored Spotify tokens. It is
// safe to run when no connection exists.
func DoSpotifyDisconnect(cfg *config.Config, owner string) error {
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

	if err = manager.Disconnect(owner); err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}

	fmt.Printf("%sSpotify disconnected%s for %s\n", colorGreen, colorReset, owner)
	return nil
}
