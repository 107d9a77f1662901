package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewDefaultsToGlobal(t *testing.T) {
	s := New("ana", "tok")
	if got := s.ActiveChannel(); got != GlobalChannel {
		t.Errorf("ActiveChannel() = %q, want %q", got, GlobalChannel)
	}
	if !s.IsActive(GlobalChannel) {
		t.Error("IsActive(global) = false for a fresh session")
	}
}

func TestSwitchChannel(t *testing.T) {
	s := New("ana", "tok")
	s.SetActiveChannel("g42")

	if !s.IsActive("g42") {
		t.Error("IsActive(g42) = false after switch")
	}
	if s.IsActive(GlobalChannel) {
		t.Error("IsActive(global) = true after switching away")
	}
}

func TestSwitchToEmptyFallsBackToGlobal(t *testing.T) {
	s := New("ana", "tok")
	s.SetActiveChannel("g42")
	s.SetActiveChannel("")

	if got := s.ActiveChannel(); got != GlobalChannel {
		t.Errorf("ActiveChannel() = %q, want %q", got, GlobalChannel)
	}
}

func TestDisplayClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}

	s := New("ana", signed)
	claims, ok := s.DisplayClaims()
	if !ok {
		t.Fatal("DisplayClaims() ok = false for a well-formed JWT")
	}
	if claims.Subject != "ana" {
		t.Errorf("Subject = %q, want ana", claims.Subject)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
}

func TestDisplayClaimsOpaqueToken(t *testing.T) {
	s := New("ana", "not-a-jwt")
	if _, ok := s.DisplayClaims(); ok {
		t.Error("DisplayClaims() ok = true for an opaque token")
	}
}
