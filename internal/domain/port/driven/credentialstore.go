// Package driven defines the outbound port interfaces the application
// layer depends on. Adapters implement them; the application never
// imports an adapter package.
package driven

import (
	"context"

	"github.com/slackconnect/slackconnect/internal/domain/model"
)

// CredentialStore is the driven port for durable OAuth credential
// persistence, keyed by the (team, user) pair.
type CredentialStore interface {
	// Save upserts the credential for (cred.TeamID, cred.UserID).
	// Returns a *model.ValidationError when access token, team id, or
	// user id is empty.
	Save(ctx context.Context, cred model.Credential) error

	// Get returns the credential for the pair, or model.ErrNotFound.
	Get(ctx context.Context, teamID, userID string) (*model.Credential, error)

	// Update patches only the non-nil fields and refreshes updated_at.
	// Returns model.ErrNotFound when no row matches the pair.
	Update(ctx context.Context, teamID, userID string, patch model.CredentialPatch) error
}
