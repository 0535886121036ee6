// internal/auth/auth.go
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// ErrSetupInProgress is returned when a second setup attempt starts while
// one is still in flight. The guard resets on failure, so a fresh attempt
// after an error proceeds normally; there is no automatic retry.
var ErrSetupInProgress = errors.New("auth: setup already in progress")

// Identity is the authenticated local participant.
type Identity struct {
	UserID   string
	Username string
	Avatar   string
}

// Session is the result of a successful setup: who we are plus the token
// the court server expects on the websocket handshake.
type Session struct {
	Identity     Identity
	SessionToken string
}

// Authenticator performs the one-shot setup sequence: exchange the OAuth
// authorization code with the court backend, then recover the participant
// identity from the session token's claims. A failed exchange is terminal
// for that attempt and must be surfaced; only the caller (e.g. a reload)
// starts another one.
type Authenticator struct {
	baseURL string
	httpc   *http.Client
	log     *logrus.Logger

	mu       sync.Mutex
	inFlight bool
	done     bool
	session  Session
}

func New(baseURL string, logger *logrus.Logger) *Authenticator {
	return &Authenticator{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     logger,
	}
}

// Exchange runs the token exchange. It is idempotent after success and
// rejects concurrent attempts with ErrSetupInProgress.
func (a *Authenticator) Exchange(ctx context.Context, code, redirectURI string) (Session, error) {
	a.mu.Lock()
	if a.done {
		sess := a.session
		a.mu.Unlock()
		return sess, nil
	}
	if a.inFlight {
		a.mu.Unlock()
		return Session{}, ErrSetupInProgress
	}
	a.inFlight = true
	a.mu.Unlock()

	sess, err := a.exchange(ctx, code, redirectURI)

	a.mu.Lock()
	a.inFlight = false
	if err == nil {
		a.done = true
		a.session = sess
	}
	a.mu.Unlock()

	if err != nil {
		a.log.Warnf("auth: setup failed: %v", err)
		return Session{}, err
	}
	a.log.WithFields(logrus.Fields{
		"user_id":  sess.Identity.UserID,
		"username": sess.Identity.Username,
	}).Info("auth: setup complete")
	return sess, nil
}

type tokenRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	SessionToken string `json:"session_token"`
}

func (a *Authenticator) exchange(ctx context.Context, code, redirectURI string) (Session, error) {
	body, err := json.Marshal(tokenRequest{Code: code, RedirectURI: redirectURI})
	if err != nil {
		return Session{}, fmt.Errorf("auth: marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/token", bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("auth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpc.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("auth: token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Session{}, fmt.Errorf("auth: token exchange failed (%d): %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Session{}, fmt.Errorf("auth: decode token response: %w", err)
	}
	if tr.SessionToken == "" {
		return Session{}, errors.New("auth: token response missing session_token")
	}

	ident, err := identityFromToken(tr.SessionToken)
	if err != nil {
		return Session{}, err
	}
	return Session{Identity: ident, SessionToken: tr.SessionToken}, nil
}

// identityFromToken reads the participant claims out of the backend-issued
// session token. The client holds no verification key; the server verifies
// the signature again on the websocket handshake, so ParseUnverified is
// sufficient here.
func identityFromToken(token string) (Identity, error) {
	t, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Identity{}, fmt.Errorf("auth: parse session token: %w", err)
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("auth: unexpected session token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, errors.New("auth: session token missing sub claim")
	}
	ident := Identity{UserID: sub}
	if username, ok := claims["username"].(string); ok {
		ident.Username = username
	}
	if avatar, ok := claims["avatar"].(string); ok {
		ident.Avatar = avatar
	}
	return ident, nil
}
