// Package auth implements the Upstox OAuth2 login flow: a browser-based
// authorization dialog, a local callback listener for the code, and a
// token exchange, with the resulting session persisted on disk.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	apperrors "upstox-analyst/internal/errors"
	"upstox-analyst/internal/logging"
)

var errAuthTimeout = apperrors.ErrAuthTimeout

const (
	authorizePath = "/login/authorization/dialog"
	tokenPath     = "/login/authorization/token"

	// loginTimeout bounds the wait for the user to finish the browser flow.
	loginTimeout = 2 * time.Minute
)

// Config carries the OAuth client settings.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	SessionDir   string
}

// Authenticator drives the login flow and manages the persisted session.
type Authenticator struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger

	openBrowser func(string) error
	now         func() time.Time
	timeout     time.Duration
}

// New creates an Authenticator.
func New(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Authenticator{
		cfg:         cfg,
		client:      httpClient,
		logger:      logger,
		openBrowser: openBrowser,
		now:         time.Now,
		timeout:     loginTimeout,
	}
}

// AuthorizeURL builds the browser authorization dialog URL.
func (a *Authenticator) AuthorizeURL() string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", a.cfg.ClientID)
	params.Set("redirect_uri", a.cfg.RedirectURI)
	return a.cfg.BaseURL + authorizePath + "?" + params.Encode()
}

// Login runs the full flow: start the callback listener, open the
// browser, wait for the authorization code, exchange it, and persist the
// resulting session.
func (a *Authenticator) Login(ctx context.Context) (*Session, error) {
	if a.cfg.ClientID == "" || a.cfg.ClientSecret == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	srv, err := newCallbackServer(a.cfg.RedirectURI)
	if err != nil {
		return nil, err
	}
	if err := srv.start(); err != nil {
		return nil, apperrors.Wrap(err, "starting callback server")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.shutdown(shutdownCtx)
	}()

	authURL := a.AuthorizeURL()
	a.logger.Info().Str("url", authURL).Msg("Opening authorization dialog")
	if err := a.openBrowser(authURL); err != nil {
		// The user can still open the URL by hand.
		a.logger.Warn().Err(err).Msg("Could not open browser")
		fmt.Printf("Open this URL to authorize:\n  %s\n", authURL)
	}

	code, err := srv.wait(ctx, a.timeout)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Msg("Authorization code received")

	token, err := a.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}

	session := NewSession(token, a.now())
	if err := SaveSession(a.cfg.SessionDir, session); err != nil {
		return nil, err
	}
	a.logger.Info().Time("expires_at", session.ExpiresAt).Msg("Authenticated")
	return session, nil
}

// Logout discards the persisted session.
func (a *Authenticator) Logout() error {
	return DeleteSession(a.cfg.SessionDir)
}

// Status returns the current session, or the sentinel describing why
// there is none.
func (a *Authenticator) Status() (*Session, error) {
	return LoadSession(a.cfg.SessionDir, a.now())
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Status      string `json:"status"`
	Errors      []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// exchangeToken swaps the authorization code for an access token.
func (a *Authenticator) exchangeToken(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("redirect_uri", a.cfg.RedirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperrors.Wrap(err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Version", "2.0")

	start := time.Now()
	resp, err := a.client.Do(req)
	logging.LogAPICall(a.logger, http.MethodPost, tokenPath, time.Since(start), err)
	if err != nil {
		return "", apperrors.Wrap(err, "token request")
	}
	defer resp.Body.Close()

	var wire tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", apperrors.Wrap(err, "decoding token response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if len(wire.Errors) > 0 {
			msg = wire.Errors[0].Message
		}
		return "", apperrors.Wrapf(apperrors.ErrInvalidCredentials, "token exchange failed: %s", msg)
	}
	if wire.AccessToken == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidCredentials, "no access token in response")
	}
	return wire.AccessToken, nil
}

// openBrowser launches the platform browser for the given URL.
func openBrowser(rawURL string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}
