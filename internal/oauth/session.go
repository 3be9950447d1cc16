package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// TokenExpiryMargin is how long an access token must remain valid to be
	// used without a refresh.
	TokenExpiryMargin = 60 * time.Second

	listenerFailedText = "local server failed to start/listen"
)

// SessionConfig holds the provider endpoints and client credentials.
type SessionConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	Scope        string

	// TokenPath is the credential file. Ignored when WithStore is used.
	TokenPath string
}

// Snapshot is a point-in-time view of a Session for display.
type Snapshot struct {
	State            State
	ErrorText        string
	AuthorizationURL string
	ExpiresAt        time.Time
	HasAccessToken   bool
	HasRefreshToken  bool
}

// Session owns the authentication state machine and the in-memory
// credential.
//
// A UI drives it by calling BeginLogin and then Poll once per tick until the
// state leaves StateAwaitingCode. Poll never blocks while the callback
// listener is waiting; it performs the token exchange synchronously once the
// code has arrived.
//
// Session implements oauth2.TokenSource so it can back an oauth2.Transport.
type Session struct {
	mu sync.Mutex

	cfg   SessionConfig
	state State
	cred  Credential

	errorText   string
	authURL     string
	redirectURI string

	// flowID identifies the current login attempt. Exchange results for a
	// flow that was cancelled in the meantime are dropped.
	flowID     string
	exchanging bool

	listener    *CallbackListener
	tokens      *TokenClient
	store       *TokenStore
	openBrowser BrowserOpener

	now    func() time.Time
	logger *slog.Logger

	refreshGroup singleflight.Group

	httpClient      *http.Client
	listenerOptions []ListenerOption
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithHTTPClient sets the HTTP client used for token endpoint calls.
func WithHTTPClient(httpClient *http.Client) SessionOption {
	return func(s *Session) {
		s.httpClient = httpClient
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBrowserOpener overrides how the authorization URL is opened.
func WithBrowserOpener(opener BrowserOpener) SessionOption {
	return func(s *Session) {
		if opener != nil {
			s.openBrowser = opener
		}
	}
}

// WithStore sets the credential store.
func WithStore(store *TokenStore) SessionOption {
	return func(s *Session) {
		s.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithListenerOptions passes options to the callback listener.
func WithListenerOptions(opts ...ListenerOption) SessionOption {
	return func(s *Session) {
		s.listenerOptions = append(s.listenerOptions, opts...)
	}
}

// NewSession creates a session and loads any persisted credential. A valid
// credential puts the session straight into StateAuthenticated.
func NewSession(cfg SessionConfig, opts ...SessionOption) *Session {
	s := &Session{
		cfg:         cfg,
		state:       StateReady,
		openBrowser: OpenBrowser,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = NewTokenStore(cfg.TokenPath)
	}

	s.tokens = NewTokenClient(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret,
		WithTokenHTTPClient(s.httpClient),
		WithTokenLogger(s.logger),
		WithTokenClock(s.now),
	)
	s.listener = NewCallbackListener(append([]ListenerOption{WithListenerLogger(s.logger)}, s.listenerOptions...)...)

	if cred, ok := s.store.Load(); ok {
		s.cred = cred
		s.state = StateAuthenticated
		s.logger.Debug("Loaded stored credential",
			"path", s.store.Path(),
			"expires_at", cred.ExpiresAt)
	}

	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ErrorText returns the last error message, or "" when there is none.
func (s *Session) ErrorText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorText
}

// AuthorizationURL returns the URL opened by the current login attempt.
func (s *Session) AuthorizationURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authURL
}

// Snapshot returns the current state for display. Token values are not
// included.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:            s.state,
		ErrorText:        s.errorText,
		AuthorizationURL: s.authURL,
		ExpiresAt:        s.cred.ExpiresAt,
		HasAccessToken:   s.cred.AccessToken != "",
		HasRefreshToken:  s.cred.RefreshToken != "",
	}
}

// BuildAuthorizationURL returns the provider's consent URL for redirectURI.
// Offline access and a forced consent prompt make the provider issue a
// refresh token on every login.
func (s *Session) BuildAuthorizationURL(redirectURI string) string {
	return s.cfg.AuthorizeURL +
		"?client_id=" + s.cfg.ClientID +
		"&redirect_uri=" + redirectURI +
		"&response_type=code" +
		"&scope=" + s.cfg.Scope +
		"&access_type=offline" +
		"&prompt=consent"
}

// BeginLogin starts the callback listener and opens the consent page.
// It is only valid in StateReady. A listener that cannot start moves the
// session to StateError. Failing to open the browser is not fatal: the URL
// is still available from AuthorizationURL.
func (s *Session) BeginLogin() error {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot begin login in state %s", ErrInvalidTransition, state)
	}

	port, err := s.listener.Start()
	if err != nil {
		s.listener.Stop()
		s.setErrorLocked(listenerFailedText)
		s.mu.Unlock()
		s.logger.Warn("OAuth callback listener failed to start", "error", err.Error())
		return err
	}

	s.redirectURI = fmt.Sprintf("http://127.0.0.1:%d", port)
	s.authURL = s.BuildAuthorizationURL(s.redirectURI)
	s.flowID = uuid.NewString()
	s.errorText = ""
	s.state = StateAwaitingCode

	authURL := s.authURL
	flowID := s.flowID
	s.mu.Unlock()

	s.logger.Info("SECURITY_AUDIT: OAuth login started",
		"event", "login_started",
		"flow_id", flowID,
		"redirect_uri", fmt.Sprintf("http://127.0.0.1:%d", port))

	if err := s.openBrowser(authURL); err != nil {
		s.logger.Warn("Failed to open browser for OAuth login",
			"flow_id", flowID,
			"error", err.Error())
	}

	return nil
}

// Poll advances a pending login and returns the resulting state. It is meant
// to be called once per UI tick. Outside StateAwaitingCode it only reports
// the state.
func (s *Session) Poll(ctx context.Context) State {
	s.mu.Lock()
	if s.state != StateAwaitingCode || s.exchanging {
		state := s.state
		s.mu.Unlock()
		return state
	}

	switch s.listener.Status() {
	case ListenerReceivedCode:
		code := s.listener.Code()
		s.mu.Unlock()
		_, _ = s.ExchangeCode(ctx, code)

	case ListenerFailed:
		s.setErrorLocked(listenerFailedText)
		s.flowID = ""
		s.mu.Unlock()
		s.listener.Stop()

	default:
		s.mu.Unlock()
	}

	return s.State()
}

// ExchangeCode trades an authorization code for a credential and completes
// the pending login. It is valid only in StateAwaitingCode. The callback
// listener is stopped whatever the outcome.
//
// When the provider issues no refresh token the previously held one, if
// any, is kept. A credential that still has no refresh token is used for
// this process only and is not persisted.
func (s *Session) ExchangeCode(ctx context.Context, code string) (Credential, error) {
	s.mu.Lock()
	if s.state != StateAwaitingCode || s.exchanging {
		state := s.state
		s.mu.Unlock()
		return Credential{}, fmt.Errorf("%w: cannot exchange code in state %s", ErrInvalidTransition, state)
	}
	s.exchanging = true
	flowID := s.flowID
	redirectURI := s.redirectURI
	s.mu.Unlock()

	s.listener.Stop()

	cred, err := s.tokens.ExchangeCode(ctx, code, redirectURI)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanging = false

	if s.state != StateAwaitingCode || s.flowID != flowID {
		s.logger.Debug("Discarding token exchange result for abandoned login", "flow_id", flowID)
		return Credential{}, fmt.Errorf("%w: login was cancelled", ErrInvalidTransition)
	}

	s.flowID = ""
	s.authURL = ""

	if err != nil {
		s.setErrorLocked(err.Error())
		s.logger.Warn("SECURITY_AUDIT: OAuth code exchange failed",
			"event", "exchange_failed",
			"flow_id", flowID,
			"error", err.Error())
		return Credential{}, err
	}

	if cred.RefreshToken == "" {
		cred.RefreshToken = s.cred.RefreshToken
	}

	s.cred = cred
	s.state = StateAuthenticated
	s.errorText = ""
	s.persistLocked()

	s.logger.Info("SECURITY_AUDIT: OAuth login completed",
		"event", "login_completed",
		"flow_id", flowID,
		"expires_at", cred.ExpiresAt,
		"has_refresh_token", cred.RefreshToken != "")

	return cred, nil
}

// CancelLogin abandons a pending login and returns to StateReady.
func (s *Session) CancelLogin() error {
	s.mu.Lock()
	if s.state != StateAwaitingCode {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot cancel login in state %s", ErrInvalidTransition, state)
	}
	flowID := s.flowID
	s.state = StateReady
	s.flowID = ""
	s.authURL = ""
	s.redirectURI = ""
	s.errorText = ""
	s.mu.Unlock()

	s.listener.Stop()

	s.logger.Info("SECURITY_AUDIT: OAuth login cancelled",
		"event", "login_cancelled",
		"flow_id", flowID)
	return nil
}

// Disconnect forgets the credential and deletes the token file.
// It is only valid in StateAuthenticated.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot disconnect in state %s", ErrInvalidTransition, state)
	}
	s.cred = Credential{}
	s.state = StateReady
	s.errorText = ""
	s.mu.Unlock()

	s.store.Clear()

	s.logger.Info("SECURITY_AUDIT: OAuth credential removed",
		"event", "disconnected",
		"path", s.store.Path())
	return nil
}

// RetryAfterError clears the error and returns to StateReady so a new login
// can begin. The in-memory credential is dropped; the token file is left for
// the next successful login to overwrite.
func (s *Session) RetryAfterError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateError {
		return fmt.Errorf("%w: cannot retry in state %s", ErrInvalidTransition, s.state)
	}
	s.state = StateReady
	s.errorText = ""
	s.cred = Credential{}
	return nil
}

// EnsureValidToken reports whether a usable access token is held, refreshing
// it first when it expires within TokenExpiryMargin. It returns false
// outside StateAuthenticated without doing any work.
func (s *Session) EnsureValidToken(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		s.mu.Unlock()
		return false
	}
	if s.cred.FreshFor(s.now(), TokenExpiryMargin) {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	_, err := s.RefreshAccessToken(ctx)
	return err == nil
}

// RefreshAccessToken obtains a new access token with the held refresh token
// and persists the result. Concurrent callers share one request.
//
// Without a refresh token the session returns to StateReady and
// ErrNoRefreshToken is returned. A provider rejection, such as a revoked
// grant, moves the session to StateError. A transport failure keeps the
// session authenticated so the next call tries again; the failure is still
// reported through ErrorText.
func (s *Session) RefreshAccessToken(ctx context.Context) (Credential, error) {
	v, err, _ := s.refreshGroup.Do("refresh", func() (interface{}, error) {
		return s.doRefresh(ctx)
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

func (s *Session) doRefresh(ctx context.Context) (Credential, error) {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return Credential{}, ErrNoRefreshToken
	case StateAuthenticated:
	default:
		state := s.state
		s.mu.Unlock()
		return Credential{}, fmt.Errorf("%w: cannot refresh in state %s", ErrInvalidTransition, state)
	}

	refreshToken := s.cred.RefreshToken
	if refreshToken == "" {
		s.cred = Credential{}
		s.state = StateReady
		s.mu.Unlock()
		s.logger.Debug("No refresh token held, returning to ready state")
		return Credential{}, ErrNoRefreshToken
	}
	s.mu.Unlock()

	cred, err := s.tokens.Refresh(ctx, refreshToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	// A disconnect or reload while the request was in flight wins.
	if s.state != StateAuthenticated || s.cred.RefreshToken != refreshToken {
		if err != nil {
			return Credential{}, err
		}
		return Credential{}, fmt.Errorf("%w: credential changed during refresh", ErrInvalidTransition)
	}

	if err != nil {
		s.errorText = err.Error()
		if !IsTransportError(err) {
			s.state = StateError
			s.logger.Warn("SECURITY_AUDIT: OAuth token refresh rejected",
				"event", "refresh_rejected",
				"error", err.Error())
		} else {
			s.logger.Warn("OAuth token refresh failed, will retry on next use",
				"error", err.Error())
		}
		return Credential{}, err
	}

	s.cred = cred
	s.errorText = ""
	s.persistLocked()

	s.logger.Debug("Refreshed access token", "expires_at", cred.ExpiresAt)
	return cred, nil
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	if !s.EnsureValidToken(context.Background()) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.errorText != "" {
			return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, s.errorText)
		}
		return nil, ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred.Token(), nil
}

// ReloadCredential re-reads the token file, picking up changes made by
// another process. A new valid file authenticates a ready session and
// replaces the credential of an authenticated one; a removed file logs an
// authenticated session out. Other states are left alone. It reports
// whether anything changed.
func (s *Session) ReloadCredential() bool {
	cred, ok := s.store.Load()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReady:
		if !ok {
			return false
		}
		s.cred = cred
		s.state = StateAuthenticated
		s.errorText = ""
		s.logger.Info("Picked up credential written by another process", "path", s.store.Path())
		return true

	case StateAuthenticated:
		if !ok {
			s.cred = Credential{}
			s.state = StateReady
			s.errorText = ""
			s.logger.Info("Credential file removed, returning to ready state", "path", s.store.Path())
			return true
		}
		if credentialsEqual(s.cred, cred) {
			return false
		}
		s.cred = cred
		s.errorText = ""
		return true
	}

	return false
}

// Close stops any running listener. A pending login is cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateAwaitingCode {
		s.state = StateReady
		s.flowID = ""
		s.authURL = ""
		s.redirectURI = ""
	}
	s.mu.Unlock()

	s.listener.Stop()
}

// StorePath returns the credential file path.
func (s *Session) StorePath() string {
	return s.store.Path()
}

func (s *Session) setErrorLocked(text string) {
	s.state = StateError
	s.errorText = text
}

// persistLocked saves a credential that can be renewed. Save failures keep
// the in-memory credential.
func (s *Session) persistLocked() {
	if !s.cred.Valid() {
		return
	}
	if err := s.store.Save(s.cred); err != nil {
		s.logger.Warn("SECURITY_AUDIT: OAuth credential storage failed",
			"event", "store_failed",
			"path", s.store.Path(),
			"error", err.Error())
		return
	}
	s.logger.Info("SECURITY_AUDIT: OAuth credential stored",
		"event", "stored",
		"path", s.store.Path(),
		"expires_at", s.cred.ExpiresAt)
}

func credentialsEqual(a, b Credential) bool {
	return a.AccessToken == b.AccessToken &&
		a.RefreshToken == b.RefreshToken &&
		a.ExpiresAt.Equal(b.ExpiresAt)
}

var _ oauth2.TokenSource = (*Session)(nil)

// IsAuthRequired reports whether err means the user has to log in.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrNoRefreshToken)
}
