// Package model contains the domain types shared across ports and adapters.
package model

import "time"

// Credential holds one authorized Slack identity's access grant. At most
// one credential exists per (TeamID, UserID) pair; OAuth re-installs
// overwrite the existing row.
type Credential struct {
	ID           int64
	TeamID       string
	UserID       string
	AccessToken  string
	RefreshToken string // empty when the workspace does not rotate tokens
	ExpiresAt    int64  // unix seconds; 0 means the token never expires
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialPatch carries the fields a partial credential update may
// change. Nil fields are left untouched.
type CredentialPatch struct {
	AccessToken  *string
	RefreshToken *string
	ExpiresAt    *int64
}

// Authorization is the result of a successful OAuth code exchange,
// carrying everything the callback flow needs to persist a credential
// and identify the caller.
type Authorization struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds until expiry; 0 when the grant does not expire
	TeamID       string
	TeamName     string
	UserID       string
}

// TokenGrant is the result of a refresh-token exchange.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string // empty when the provider did not rotate it
	ExpiresIn    int64
}
