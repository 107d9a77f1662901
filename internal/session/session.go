package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GlobalChannel is the reserved default channel. It always exists and
// cannot be deleted.
const GlobalChannel = "global"

// Session holds the current user identity, auth credential and active
// channel selection. It is passed by reference to every component that
// needs credential or channel identity; there are no package globals.
type Session struct {
	mu       sync.RWMutex
	username string
	token    string
	channel  string
}

// New creates a session with the active channel set to the global channel.
func New(username, token string) *Session {
	return &Session{
		username: username,
		token:    token,
		channel:  GlobalChannel,
	}
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ActiveChannel returns the currently selected channel id.
func (s *Session) ActiveChannel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel
}

// SetActiveChannel switches the active channel. Consumers must re-check
// IsActive before applying any in-flight result fetched for the old channel.
func (s *Session) SetActiveChannel(channelID string) {
	if channelID == "" {
		channelID = GlobalChannel
	}
	s.mu.Lock()
	s.channel = channelID
	s.mu.Unlock()
}

// IsActive reports whether channelID is the currently selected channel.
func (s *Session) IsActive(channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel == channelID
}

// Claims are display-only fields extracted from a JWT credential.
// The token is never verified client-side; the server owns validation.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// DisplayClaims parses the credential as a JWT without verifying the
// signature and returns its subject and expiry. Returns ok=false when the
// credential is not a JWT (opaque tokens are fine, we just show less).
func (s *Session) DisplayClaims() (Claims, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	var rc jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &rc); err != nil {
		return Claims{}, false
	}
	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, true
}
