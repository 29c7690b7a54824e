package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/models"
)

func testManager() *Manager {
	return NewManager("access-secret", "refresh-secret", 15*time.Minute, 240*time.Hour)
}

func TestManagerIssueAndVerifyRoundTrip(t *testing.T) {
	m := testManager()
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	m.NowFunc = func() time.Time { return now }

	user := models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}

	pair, err := m.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if !pair.AccessExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected access expiry %v", pair.AccessExpiresAt)
	}

	claims, err := m.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	userID, err := m.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("unexpected refresh subject %q", userID)
	}
}

func TestManagerRejectsCrossTokenUse(t *testing.T) {
	m := testManager()

	pair, err := m.Issue(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Tokens are signed with independent secrets, so an access token can
	// never pass as a refresh token or vice versa.
	if _, err := m.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for access-as-refresh, got %v", err)
	}
	if _, err := m.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for refresh-as-access, got %v", err)
	}
}

func TestManagerRejectsExpiredToken(t *testing.T) {
	m := testManager()
	issuedAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	m.NowFunc = func() time.Time { return issuedAt }

	pair, err := m.Issue(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m.NowFunc = func() time.Time { return issuedAt.Add(16 * time.Minute) }

	if _, err := m.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// The refresh token lives longer and still verifies.
	if _, err := m.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("refresh should still verify: %v", err)
	}
}

func TestManagerRejectsTamperedToken(t *testing.T) {
	m := testManager()

	pair, err := m.Issue(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewManager("different-secret", "different-secret", time.Minute, time.Hour)
	if _, err := other.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}

	if _, err := m.VerifyAccess(pair.AccessToken + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestHashTokenIsStableAndOpaque(t *testing.T) {
	a := HashToken("some-refresh-token")
	b := HashToken("some-refresh-token")
	c := HashToken("another-token")

	if a != b {
		t.Fatal("expected identical hashes for identical input")
	}
	if a == c {
		t.Fatal("expected different hashes for different input")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha-256 digest, got length %d", len(a))
	}
}
