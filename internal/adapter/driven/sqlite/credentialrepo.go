package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/slackconnect/slackconnect/internal/domain/model"
	"github.com/slackconnect/slackconnect/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// When constructed with a key, access and refresh tokens are encrypted
// with AES-256-GCM before write and decrypted after read; with a nil key
// they are stored as-is.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil disables at-rest encryption.
}

// NewCredentialRepo creates a CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to store tokens unencrypted.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Save upserts the credential for (cred.TeamID, cred.UserID).
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) error {
	if cred.AccessToken == "" {
		return &model.ValidationError{Field: "access_token", Reason: "is required"}
	}
	if cred.TeamID == "" {
		return &model.ValidationError{Field: "team_id", Reason: "is required"}
	}
	if cred.UserID == "" {
		return &model.ValidationError{Field: "user_id", Reason: "is required"}
	}

	accessToken, err := r.encrypt(cred.AccessToken)
	if err != nil {
		return err
	}
	refreshToken := ""
	if cred.RefreshToken != "" {
		if refreshToken, err = r.encrypt(cred.RefreshToken); err != nil {
			return err
		}
	}

	const query = `
		INSERT INTO credentials (team_id, user_id, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(team_id, user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = r.db.Writer.ExecContext(ctx, query,
		cred.TeamID, cred.UserID, accessToken, refreshToken, cred.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save credential %s/%s: %w", cred.TeamID, cred.UserID, err)
	}

	return nil
}

// Get returns the credential for (teamID, userID) with decrypted tokens,
// or model.ErrNotFound when none exists.
func (r *CredentialRepo) Get(ctx context.Context, teamID, userID string) (*model.Credential, error) {
	const query = `
		SELECT id, team_id, user_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM credentials
		WHERE team_id = ? AND user_id = ?
	`

	var cred model.Credential
	var accessToken, refreshToken string
	var createdAt, updatedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, teamID, userID).Scan(
		&cred.ID, &cred.TeamID, &cred.UserID, &accessToken, &refreshToken,
		&cred.ExpiresAt, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %s/%s: %w", teamID, userID, err)
	}

	if cred.AccessToken, err = r.decrypt(accessToken); err != nil {
		return nil, fmt.Errorf("decrypt access token %s/%s: %w", teamID, userID, err)
	}
	if refreshToken != "" {
		if cred.RefreshToken, err = r.decrypt(refreshToken); err != nil {
			return nil, fmt.Errorf("decrypt refresh token %s/%s: %w", teamID, userID, err)
		}
	}

	if cred.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %s/%s: %w", teamID, userID, err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at %s/%s: %w", teamID, userID, err)
	}

	return &cred, nil
}

// Update patches only the non-nil fields of the credential for
// (teamID, userID) and refreshes updated_at. Returns model.ErrNotFound
// when no row matches.
func (r *CredentialRepo) Update(ctx context.Context, teamID, userID string, patch model.CredentialPatch) error {
	var sets []string
	var args []any

	if patch.AccessToken != nil {
		encrypted, err := r.encrypt(*patch.AccessToken)
		if err != nil {
			return err
		}
		sets = append(sets, "access_token = ?")
		args = append(args, encrypted)
	}
	if patch.RefreshToken != nil {
		encrypted := ""
		if *patch.RefreshToken != "" {
			var err error
			if encrypted, err = r.encrypt(*patch.RefreshToken); err != nil {
				return err
			}
		}
		sets = append(sets, "refresh_token = ?")
		args = append(args, encrypted)
	}
	if patch.ExpiresAt != nil {
		sets = append(sets, "expires_at = ?")
		args = append(args, *patch.ExpiresAt)
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, teamID, userID)

	query := fmt.Sprintf(
		"UPDATE credentials SET %s WHERE team_id = ? AND user_id = ?",
		strings.Join(sets, ", "),
	)

	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update credential %s/%s: %w", teamID, userID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFound
	}

	return nil
}

// encrypt encrypts plaintext with AES-256-GCM and returns a
// base64-encoded nonce||ciphertext string. With a nil key the plaintext
// passes through unchanged.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext. With a nil
// key the input passes through unchanged.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	if r.key == nil {
		return encoded, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
