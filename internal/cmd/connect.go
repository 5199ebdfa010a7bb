package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"

	"github.com/mixtape-social/mixtape/internal/auth/spotify"
	"github.com/mixtape-social/mixtape/internal/config"
	"github.com/mixtape-social/mixtape/internal/session"
	"github.com/mixtape-social/mixtape/internal/streaming"
)

// DoSpotifyConnect runs the full Spotify connect flow: it starts the local
// redirect listener, opens the authorization page, and exchanges the
// returned code for tokens stored under the owner's account.
func DoSpotifyConnect(cfg *config.Config, options *ConnectOptions) error {
	if options == nil {
		options = &ConnectOptions{}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

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

	request, err := manager.Begin(options.Owner, cfg.Spotify.GetScopes())
	if err != nil {
		return fmt.Errorf("starting authorization: %w", err)
	}

	callbackServer := spotify.NewCallbackServer(cfg.Spotify.GetCallbackPort())
	if err = callbackServer.Start(); err != nil {
		return fmt.Errorf("starting callback listener: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errStop := callbackServer.Stop(stopCtx); errStop != nil {
			log.Errorf("failed to stop callback listener: %v", errStop)
		}
	}()

	authURL := service.AuthorizationURL(request.State, &spotify.PKCECodes{
		CodeVerifier:  request.CodeVerifier,
		CodeChallenge: request.CodeChallenge,
	}, request.Scopes)

	if options.NoBrowser {
		fmt.Println("Open this URL in your browser to connect Spotify:")
		fmt.Printf("\n%s\n\n", authURL)
	} else {
		log.Debug("opening browser for Spotify authorization")
		if errOpen := browser.OpenURL(authURL); errOpen != nil {
			log.Warnf("failed to open browser: %v", errOpen)
			fmt.Println("Open this URL in your browser to connect Spotify:")
			fmt.Printf("\n%s\n\n", authURL)
		}
	}

	fmt.Printf("Waiting for Spotify authorization (timeout %s)...\n", options.timeout())

	result, err := callbackServer.WaitForCallback(options.timeout())
	if err != nil {
		return fmt.Errorf("waiting for authorization callback: %w", err)
	}

	record, err := manager.Complete(context.Background(), options.Owner, session.AuthorizationResponse{
		Code:             result.Code,
		State:            result.State,
		Error:            result.Error,
		ErrorDescription: result.ErrorDescription,
	})
	if err != nil {
		return describeConnectFailure(err)
	}

	fmt.Printf("%sSpotify connected%s for %s", colorGreen, colorReset, record.Owner)
	if record.Scope != "" {
		fmt.Printf(" (scopes: %s)", record.Scope)
	}
	fmt.Println()

	// Confirm the token works and greet with the account name.
	profile, err := streaming.NewClient().Me(context.Background(), record.AccessToken)
	if err != nil {
		log.Warnf("connected, but the profile check failed: %v", err)
		return nil
	}
	if profile.DisplayName != "" {
		fmt.Printf("Listening as %s\n", profile.DisplayName)
	}
	return nil
}

// describeConnectFailure maps the session error taxonomy onto messages a
// person at a terminal can act on.
func describeConnectFailure(err error) error {
	var denied *session.AuthorizationDeniedError
	if errors.As(err, &denied) {
		return fmt.Errorf("authorization was declined in the browser (%s); run connect again to retry", denied.Code)
	}
	var mismatch *session.StateMismatchError
	if errors.As(err, &mismatch) {
		return fmt.Errorf("the callback did not match the pending authorization; run connect again from the start")
	}
	var missing *session.MissingVerifierError
	if errors.As(err, &missing) {
		return fmt.Errorf("the pending authorization was lost before completion; run connect again from the start")
	}
	var exchange *session.TokenExchangeError
	if errors.As(err, &exchange) {
		return fmt.Errorf("exchanging the authorization code failed: %w", exchange)
	}
	return err
}
