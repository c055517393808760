// Package google integrates Google Calendar and Google Tasks through
// their REST APIs, with a PKCE OAuth flow for authorization. The rest
// of the application only ever sees authorized-or-not plus structured
// event and task payloads.
package google

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nholloway/solace-agent/internal/httpkit"
)

const (
	authEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint = "https://oauth2.googleapis.com/token"
)

var scopes = []string{
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/tasks",
}

// ErrUnauthorized is returned by API calls when no valid token is
// available. Callers treat it the same as "integration disabled".
var ErrUnauthorized = errors.New("google: not authorized")

// Token holds OAuth token details persisted between runs.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	Expiry       time.Time `json:"expiry"`
}

// TokenManager handles the PKCE OAuth flow and token persistence.
type TokenManager struct {
	clientID     string
	clientSecret string
	redirectURL  string
	tokenFile    string
	httpClient   *http.Client
	logger       *slog.Logger

	mu       sync.Mutex
	token    *Token
	verifier string
	state    string
}

// NewTokenManager creates a token manager and loads any saved token.
func NewTokenManager(clientID, clientSecret, redirectURL, tokenFile string, logger *slog.Logger) *TokenManager {
	tm := &TokenManager{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		tokenFile:    tokenFile,
		httpClient:   httpkit.NewClient(httpkit.WithTimeout(15 * time.Second)),
		logger:       logger,
	}
	if err := tm.loadToken(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load google token", "error", err)
	}
	return tm
}

func (tm *TokenManager) loadToken() error {
	data, err := os.ReadFile(tm.tokenFile)
	if err != nil {
		return err
	}
	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	tm.mu.Lock()
	tm.token = &token
	tm.mu.Unlock()
	return nil
}

func (tm *TokenManager) saveToken() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token == nil {
		return nil
	}
	data, err := json.MarshalIndent(tm.token, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(tm.tokenFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(tm.tokenFile, data, 0o600)
}

// HasToken reports whether a token with a refresh credential is stored.
func (tm *TokenManager) HasToken() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.token != nil && tm.token.RefreshToken != ""
}

// AuthURL generates a fresh PKCE verifier and state, then returns the
// consent URL the user must visit. The verifier is held until
// ExchangeCode completes the flow.
func (tm *TokenManager) AuthURL() (string, error) {
	verifierBytes := make([]byte, 32)
	if _, err := rand.Read(verifierBytes); err != nil {
		return "", err
	}
	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)

	hash := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(stateBytes)

	tm.mu.Lock()
	tm.verifier = verifier
	tm.state = state
	tm.mu.Unlock()

	u, err := url.Parse(authEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", tm.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", tm.redirectURL)
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ExchangeCode trades an authorization code for tokens and persists
// them. The state must match the one issued by AuthURL.
func (tm *TokenManager) ExchangeCode(ctx context.Context, code, state string) error {
	tm.mu.Lock()
	verifier := tm.verifier
	expectedState := tm.state
	tm.mu.Unlock()

	if verifier == "" {
		return errors.New("google: no auth flow in progress")
	}
	if state != expectedState {
		return errors.New("google: state mismatch")
	}

	data := url.Values{}
	data.Set("client_id", tm.clientID)
	data.Set("client_secret", tm.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", tm.redirectURL)
	data.Set("code_verifier", verifier)

	token, err := tm.tokenRequest(ctx, data)
	if err != nil {
		return err
	}

	tm.mu.Lock()
	tm.token = token
	tm.verifier = ""
	tm.state = ""
	tm.mu.Unlock()

	return tm.saveToken()
}

// AccessToken returns a valid access token, refreshing when the stored
// one expires within five minutes. Returns ErrUnauthorized when no
// token is stored.
func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	if tm.token == nil {
		tm.mu.Unlock()
		return "", ErrUnauthorized
	}
	if time.Now().Add(5 * time.Minute).Before(tm.token.Expiry) {
		token := tm.token.AccessToken
		tm.mu.Unlock()
		return token, nil
	}
	refreshToken := tm.token.RefreshToken
	tm.mu.Unlock()

	if refreshToken == "" {
		return "", ErrUnauthorized
	}

	tm.logger.Debug("refreshing google access token")

	data := url.Values{}
	data.Set("client_id", tm.clientID)
	data.Set("client_secret", tm.clientSecret)
	data.Set("refresh_token", refreshToken)
	data.Set("grant_type", "refresh_token")

	token, err := tm.tokenRequest(ctx, data)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	tm.mu.Lock()
	tm.token.AccessToken = token.AccessToken
	tm.token.ExpiresIn = token.ExpiresIn
	tm.token.Expiry = token.Expiry
	if token.RefreshToken != "" {
		tm.token.RefreshToken = token.RefreshToken
	}
	access := tm.token.AccessToken
	tm.mu.Unlock()

	if err := tm.saveToken(); err != nil {
		tm.logger.Warn("failed to save refreshed token", "error", err)
	}
	return access, nil
}

func (tm *TokenManager) tokenRequest(ctx context.Context, data url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 1024)
		return nil, fmt.Errorf("token request failed (%d): %s", resp.StatusCode, body)
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}
	token.Expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return &token, nil
}
