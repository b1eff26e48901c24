package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "upstox-analyst/internal/errors"
)

// ist is the exchange timezone; access tokens expire at 03:30 IST the
// day after issue.
var ist = time.FixedZone("IST", 5*3600+30*60)

const sessionFile = "session.json"

// Session is a persisted access token with its validity window.
type Session struct {
	AccessToken string    `json:"access_token"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the session can still be used at the given time.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// expiryFor returns the first 03:30 IST strictly after the issue time.
func expiryFor(issued time.Time) time.Time {
	local := issued.In(ist)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), 3, 30, 0, 0, ist)
	if !cutoff.After(local) {
		cutoff = cutoff.AddDate(0, 0, 1)
	}
	return cutoff
}

// NewSession builds a session for a freshly issued token.
func NewSession(token string, issued time.Time) *Session {
	return &Session{
		AccessToken: token,
		IssuedAt:    issued,
		ExpiresAt:   expiryFor(issued),
	}
}

func sessionPath(dir string) string {
	return filepath.Join(dir, sessionFile)
}

// SaveSession persists the session with owner-only permissions.
func SaveSession(dir string, s *Session) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.Wrap(err, "creating session directory")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "encoding session")
	}
	return os.WriteFile(sessionPath(dir), data, 0600)
}

// LoadSession reads the persisted session. A missing file maps to
// ErrNotAuthenticated, a stale token to ErrSessionExpired.
func LoadSession(dir string, now time.Time) (*Session, error) {
	data, err := os.ReadFile(sessionPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrNotAuthenticated
		}
		return nil, apperrors.Wrap(err, "reading session")
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperrors.Wrap(err, "decoding session")
	}
	if !s.Valid(now) {
		return nil, apperrors.ErrSessionExpired
	}
	return &s, nil
}

// DeleteSession removes the persisted session, ignoring a missing file.
func DeleteSession(dir string) error {
	err := os.Remove(sessionPath(dir))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(err, "removing session")
	}
	return nil
}

// SessionTokens adapts the persisted session into a token source for the
// market client. The session file is re-read on every call so a login in
// another process is picked up.
type SessionTokens struct {
	Dir string
	Now func() time.Time
}

func (t SessionTokens) AccessToken() (string, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	s, err := LoadSession(t.Dir, now())
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}
