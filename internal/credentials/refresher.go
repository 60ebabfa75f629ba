package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syncify/syncify/backend/go-services/internal/spotify"
	"github.com/syncify/syncify/backend/go-services/pkg/logger"
	"github.com/syncify/syncify/backend/go-services/pkg/metrics"
)

// ExpirySkew is the safety margin subtracted from a credential's expiry so a
// token about to lapse is never handed to an in-flight remote call.
const ExpirySkew = 5 * time.Second

// ErrNotAuthenticated means no credential is on file for the session; the
// caller must complete the authorization flow before retrying.
var ErrNotAuthenticated = errors.New("no Spotify credential for session")

// RefreshError wraps a failed remote refresh. The stored credential is left
// untouched so a later call can retry.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return fmt.Sprintf("credential refresh failed: %v", e.Err) }
func (e *RefreshError) Unwrap() error { return e.Err }

// RemoteRefresher is the minimal accounts-service surface the refresher
// depends on. Satisfied by *spotify.AccountsClient and by test fakes.
type RemoteRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*spotify.TokenResponse, error)
}

// Refresher hands out valid access tokens, refreshing lazily on first use
// after expiry. Concurrent callers for one session may each trigger a
// refresh; both results are valid and the store tolerates last-writer-wins.
type Refresher struct {
	repo   Repository
	remote RemoteRefresher
}

func NewRefresher(repo Repository, remote RemoteRefresher) *Refresher {
	return &Refresher{repo: repo, remote: remote}
}

// EnsureValid returns an access token usable right now for the session.
// The cached token is returned without any remote call while it has more
// than ExpirySkew of life left.
func (s *Refresher) EnsureValid(ctx context.Context, sessionID string) (string, error) {
	cred, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("credential lookup: %w", err)
	}
	if cred == nil {
		return "", ErrNotAuthenticated
	}
	if time.Now().UTC().Before(cred.ExpiresAt.Add(-ExpirySkew)) {
		return cred.AccessToken, nil
	}

	tok, err := s.remote.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		// leave the store unchanged so a subsequent call can retry
		logger.Errorf("failed to refresh token for session %s: %v", sessionID, err)
		metrics.CredentialRefreshes.WithLabelValues("error").Inc()
		return "", &RefreshError{Err: err}
	}

	// Spotify may not return a new refresh token; keep the old one if absent
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = cred.RefreshToken
	}
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	if err := s.repo.Upsert(ctx, sessionID, tok.AccessToken, refresh, time.Duration(expiresIn)*time.Second); err != nil {
		return "", fmt.Errorf("credential upsert: %w", err)
	}
	metrics.CredentialRefreshes.WithLabelValues("ok").Inc()
	return tok.AccessToken, nil
}
