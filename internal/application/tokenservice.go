// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"time"

	"github.com/slackconnect/slackconnect/internal/domain/model"
	"github.com/slackconnect/slackconnect/internal/domain/port/driven"
)

// expiryBuffer is subtracted from a credential's expiry when deciding
// whether to refresh, so a token is never handed out moments before the
// provider stops accepting it.
const expiryBuffer = 300 * time.Second

// TokenService owns the credential lifecycle: persisting OAuth grants
// and producing currently-valid access tokens, refreshing transparently
// when a stored token is at or near expiry.
type TokenService struct {
	creds driven.CredentialStore
	slack driven.SlackClient
	now   func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(creds driven.CredentialStore, slack driven.SlackClient) *TokenService {
	return &TokenService{
		creds: creds,
		slack: slack,
		now:   time.Now,
	}
}

// Authorize exchanges an OAuth authorization code and persists the
// resulting credential, replacing any previous grant for the pair.
func (s *TokenService) Authorize(ctx context.Context, code string) (*model.Authorization, error) {
	auth, err := s.slack.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var expiresAt int64
	if auth.ExpiresIn > 0 {
		expiresAt = s.now().Unix() + auth.ExpiresIn
	}

	err = s.creds.Save(ctx, model.Credential{
		TeamID:       auth.TeamID,
		UserID:       auth.UserID,
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return nil, err
	}

	return auth, nil
}

// IsAuthorized reports whether a credential exists for the pair.
func (s *TokenService) IsAuthorized(ctx context.Context, teamID, userID string) (bool, error) {
	_, err := s.creds.Get(ctx, teamID, userID)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetValidToken returns an access token that is valid right now for the
// pair, refreshing first when the stored token expires within the
// buffer window. Returns model.ErrNotFound when no credential exists.
func (s *TokenService) GetValidToken(ctx context.Context, teamID, userID string) (string, error) {
	cred, err := s.creds.Get(ctx, teamID, userID)
	if err != nil {
		return "", err
	}

	if cred.ExpiresAt > 0 && cred.ExpiresAt-int64(expiryBuffer.Seconds()) <= s.now().Unix() {
		return s.Refresh(ctx, teamID, userID)
	}

	return cred.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new access token and
// persists the result in a single store mutation. The stored refresh
// token is kept when the provider does not rotate it. Nothing is written
// on failure.
func (s *TokenService) Refresh(ctx context.Context, teamID, userID string) (string, error) {
	cred, err := s.creds.Get(ctx, teamID, userID)
	if err != nil {
		return "", err
	}
	if cred.RefreshToken == "" {
		return "", model.ErrNoRefreshToken
	}

	grant, err := s.slack.ExchangeRefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		return "", err
	}

	refreshToken := grant.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}

	var expiresAt int64
	if grant.ExpiresIn > 0 {
		expiresAt = s.now().Unix() + grant.ExpiresIn
	}

	err = s.creds.Update(ctx, teamID, userID, model.CredentialPatch{
		AccessToken:  &grant.AccessToken,
		RefreshToken: &refreshToken,
		ExpiresAt:    &expiresAt,
	})
	if err != nil {
		return "", err
	}

	return grant.AccessToken, nil
}
