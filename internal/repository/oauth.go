package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ARedaUni/teloshousemeet/internal/db"
)

// OAuthCredential represents stored OAuth credentials (domain model).
// Token fields hold encrypted blobs and are never exposed in JSON.
type OAuthCredential struct {
	ID                    uuid.UUID  `json:"id"`
	Provider              string     `json:"provider"`
	AccountID             string     `json:"account_id"`
	AccountName           *string    `json:"account_name,omitempty"`
	AccessTokenEncrypted  string     `json:"-"`
	RefreshTokenEncrypted *string    `json:"-"`
	TokenType             string     `json:"token_type"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	Scopes                []string   `json:"scopes,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// OAuthCredentialStatus represents non-sensitive credential info for display
type OAuthCredentialStatus struct {
	ID          uuid.UUID  `json:"id"`
	Provider    string     `json:"provider"`
	AccountID   string     `json:"account_id"`
	AccountName *string    `json:"account_name,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Scopes      []string   `json:"scopes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UpsertOAuthCredentialRequest holds parameters for creating/updating credentials
type UpsertOAuthCredentialRequest struct {
	Provider              string
	AccountID             string
	AccountName           *string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	TokenType             string
	ExpiresAt             *time.Time
	Scopes                []string
}

// UpdateOAuthTokensRequest holds parameters for refreshing stored tokens
type UpdateOAuthTokensRequest struct {
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	ExpiresAt             *time.Time
}

// OAuthRepository handles OAuth credential persistence
type OAuthRepository struct {
	pool DBTX
}

// NewOAuthRepository creates a new OAuth repository
func NewOAuthRepository(pool DBTX) *OAuthRepository {
	return &OAuthRepository{pool: pool}
}

const oauthColumns = `id, provider, account_id, account_name, access_token,
	refresh_token, token_type, expires_at, scopes, created_at, updated_at`

func scanOAuthCredential(row pgx.Row) (*OAuthCredential, error) {
	var cred OAuthCredential
	err := row.Scan(
		&cred.ID,
		&cred.Provider,
		&cred.AccountID,
		&cred.AccountName,
		&cred.AccessTokenEncrypted,
		&cred.RefreshTokenEncrypted,
		&cred.TokenType,
		&cred.ExpiresAt,
		&cred.Scopes,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("scan oauth credential: %w", err)
	}
	return &cred, nil
}

// Upsert creates or replaces the credential for a provider/account pair
func (r *OAuthRepository) Upsert(ctx context.Context, req UpsertOAuthCredentialRequest) (*OAuthCredential, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO oauth_credentials
			(provider, account_id, account_name, access_token, refresh_token,
			 token_type, expires_at, scopes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, account_id) DO UPDATE SET
			account_name = EXCLUDED.account_name,
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, oauth_credentials.refresh_token),
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			scopes = EXCLUDED.scopes,
			updated_at = NOW()
		RETURNING `+oauthColumns,
		req.Provider, req.AccountID, req.AccountName, req.AccessTokenEncrypted,
		req.RefreshTokenEncrypted, req.TokenType, req.ExpiresAt, req.Scopes)

	return scanOAuthCredential(row)
}

// GetByID retrieves a credential by ID
func (r *OAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*OAuthCredential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+oauthColumns+` FROM oauth_credentials WHERE id = $1`, id)
	return scanOAuthCredential(row)
}

// GetByProviderAndAccount retrieves a credential by provider and account ID
func (r *OAuthRepository) GetByProviderAndAccount(ctx context.Context, provider, accountID string) (*OAuthCredential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+oauthColumns+` FROM oauth_credentials
		 WHERE provider = $1 AND account_id = $2`,
		provider, accountID)

	return scanOAuthCredential(row)
}

// GetFirstByProvider retrieves the oldest stored credential for a provider
func (r *OAuthRepository) GetFirstByProvider(ctx context.Context, provider string) (*OAuthCredential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+oauthColumns+` FROM oauth_credentials
		 WHERE provider = $1 ORDER BY created_at LIMIT 1`,
		provider)

	return scanOAuthCredential(row)
}

// UpdateTokens replaces the token fields after a refresh
func (r *OAuthRepository) UpdateTokens(ctx context.Context, id uuid.UUID, req UpdateOAuthTokensRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE oauth_credentials SET
			access_token = $2,
			refresh_token = COALESCE($3, refresh_token),
			expires_at = $4,
			updated_at = NOW()
		WHERE id = $1`,
		id, req.AccessTokenEncrypted, req.RefreshTokenEncrypted, req.ExpiresAt)
	if err != nil {
		return fmt.Errorf("update oauth tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// ListStatuses returns non-sensitive info for every stored credential
func (r *OAuthRepository) ListStatuses(ctx context.Context) ([]OAuthCredentialStatus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider, account_id, account_name, expires_at, scopes,
		       created_at, updated_at
		FROM oauth_credentials ORDER BY provider, account_id`)
	if err != nil {
		return nil, fmt.Errorf("list oauth credentials: %w", err)
	}
	defer rows.Close()

	var statuses []OAuthCredentialStatus
	for rows.Next() {
		var s OAuthCredentialStatus
		if err := rows.Scan(&s.ID, &s.Provider, &s.AccountID, &s.AccountName,
			&s.ExpiresAt, &s.Scopes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan oauth credential status: %w", err)
		}
		statuses = append(statuses, s)
	}

	return statuses, rows.Err()
}

// Delete removes a credential by ID
func (r *OAuthRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM oauth_credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete oauth credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
