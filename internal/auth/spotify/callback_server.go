package spotify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// CallbackServer is the loopback HTTP receiver for the authorization
// redirect. The browser lands on /callback with code/state (or error) query
// parameters; the result is delivered over a channel to whoever drives the
// flow.
type CallbackServer struct {
	server     *http.Server
	port       int
	resultChan chan *CallbackResult
	errorChan  chan error
	mu         sync.Mutex
	running    bool
}

// CallbackResult carries the query parameters of one redirect.
type CallbackResult struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// NewCallbackServer creates a callback server listening on the given port.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{
		port:       port,
		resultChan: make(chan *CallbackResult, 1),
		errorChan:  make(chan error, 1),
	}
}

// Start begins serving the callback endpoint.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("callback server is already running")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("port %d is not available: %w", s.port, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.running = true

	go func() {
		if errServe := s.server.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			s.errorChan <- fmt.Errorf("callback server failed: %w", errServe)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *CallbackServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.running = false
	s.server = nil

	return err
}

// WaitForCallback blocks until the redirect arrives or the timeout elapses.
func (s *CallbackServer) WaitForCallback(timeout time.Duration) (*CallbackResult, error) {
	select {
	case result := <-s.resultChan:
		return result, nil
	case err := <-s.errorChan:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for authorization callback")
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	result := &CallbackResult{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	if result.Error != "" {
		s.sendResult(result)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "<html><body><h1>Spotify connection failed</h1><p>%s</p></body></html>", result.Error)
		return
	}

	if result.Code == "" {
		result.Error = "no_code"
		s.sendResult(result)
		http.Error(w, "No authorization code received", http.StatusBadRequest)
		return
	}

	s.sendResult(result)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Spotify connected!</h1><p>You can close this window and return to the app.</p></body></html>")
}

func (s *CallbackServer) sendResult(result *CallbackResult) {
	select {
	case s.resultChan <- result:
	default:
		log.Warn("callback result channel is full, result dropped")
	}
}
