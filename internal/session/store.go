// Package session owns the console's single authenticated session: the
// credential pair, the decoded identity and their persisted copies. It is
// the only writer of auth state; views and the request gateway read from it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"incaweb/internal/domain/auth"
	"incaweb/internal/localstore"
	"incaweb/internal/remote"
)

// Storage keys, kept separate the way the original front-end kept them:
// the full pair for rehydration, the bare access token for the gateway.
const (
	keyAuthTokens  = "authTokens"
	keyAccessToken = "access_token"
)

// TokenAPI is the slice of the remote client the session store needs.
type TokenAPI interface {
	Login(ctx context.Context, username, password string) (remote.TokenPair, error)
	SetAccessToken(token string)
}

// Store holds the current session. Reads are frequent (every view, every
// outgoing request); writes happen only on login and logout.
type Store struct {
	mu       sync.RWMutex
	api      TokenAPI
	storage  *localstore.Store
	identity *auth.Identity
	tokens   remote.TokenPair
	ready    bool
}

// LoginResult is what the login view renders from. Failures carry a
// user-facing message; errors never cross this boundary.
type LoginResult struct {
	Success bool
	Message string
}

// New builds the store and rehydrates any persisted session. A credential
// that fails to decode is treated as logged-out and cleared on the spot;
// a corrupted store entry must never take the console down.
func New(api TokenAPI, storage *localstore.Store) *Store {
	s := &Store{api: api, storage: storage}
	s.rehydrate()
	s.ready = true
	return s
}

func (s *Store) rehydrate() {
	raw, found, err := s.storage.Get(keyAuthTokens)
	if err != nil {
		slog.Warn("session rehydrate read failed, starting logged out", "err", err)
		s.clearPersisted()
		return
	}
	if !found {
		return
	}

	var pair remote.TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		slog.Warn("stored credential pair is malformed, clearing", "err", err)
		s.clearPersisted()
		return
	}
	identity, err := decodeIdentity(pair.Access)
	if err != nil {
		slog.Warn("stored access credential failed to decode, clearing", "err", err)
		s.clearPersisted()
		return
	}

	s.identity = identity
	s.tokens = pair
	s.api.SetAccessToken(pair.Access)
}

// Login exchanges credentials with the server and, on success, persists the
// returned pair and decodes the identity. Returns a failure indicator with
// a user-facing message instead of an error.
func (s *Store) Login(ctx context.Context, username, password string) LoginResult {
	pair, err := s.api.Login(ctx, username, password)
	if err != nil {
		slog.Info("login failed", "username", username, "err", err)
		return LoginResult{Message: loginFailureMessage(err)}
	}

	identity, err := decodeIdentity(pair.Access)
	if err != nil {
		slog.Warn("server issued an undecodable access credential", "err", err)
		return LoginResult{Message: "The server returned an unusable credential. Try again."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.tokens = pair
	s.api.SetAccessToken(pair.Access)

	if encoded, err := json.Marshal(pair); err == nil {
		if err := s.storage.Set(keyAuthTokens, string(encoded)); err != nil {
			slog.Warn("persisting credential pair failed", "err", err)
		}
	}
	if err := s.storage.Set(keyAccessToken, pair.Access); err != nil {
		slog.Warn("persisting access credential failed", "err", err)
	}

	return LoginResult{Success: true}
}

// Logout clears the in-memory identity and the persisted credentials.
// Idempotent: logging out twice is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.tokens = remote.TokenPair{}
	s.api.SetAccessToken("")
	s.clearPersisted()
}

// Current returns the decoded identity, or nil when logged out. Presence is
// the only check: an expired-but-present credential counts as logged in
// client-side, and the server rejects it on the next request.
func (s *Store) Current() *auth.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Ready reports that rehydration has completed, so dependent UI does not
// render against a half-initialized session.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// AccessToken returns the raw access credential, empty when logged out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access
}

func (s *Store) clearPersisted() {
	if err := s.storage.Delete(keyAuthTokens); err != nil {
		slog.Warn("clearing credential pair failed", "err", err)
	}
	if err := s.storage.Delete(keyAccessToken); err != nil {
		slog.Warn("clearing access credential failed", "err", err)
	}
}

// decodeIdentity extracts the claims from the access token without
// verifying its signature. The console does not hold the signing secret;
// the server rejects tampered tokens on use.
func decodeIdentity(accessToken string) (*auth.Identity, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil, err
	}

	identity := &auth.Identity{Role: auth.RoleUnknown}
	if username, ok := claims["username"].(string); ok {
		identity.Username = username
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = auth.ParseRole(role)
	}
	if userID, ok := claims["user_id"].(float64); ok {
		identity.UserID = int64(userID)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}

func loginFailureMessage(err error) string {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 400 || apiErr.StatusCode == 401 {
			return "Invalid username or password"
		}
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return "Could not reach the server. Try again."
}
