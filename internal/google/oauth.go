package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"

	"github.com/ARedaUni/teloshousemeet/internal/config"
	"github.com/ARedaUni/teloshousemeet/internal/crypto"
	"github.com/ARedaUni/teloshousemeet/internal/logger"
	"github.com/ARedaUni/teloshousemeet/internal/repository"
)

// Scopes defines the OAuth scopes requested for Google APIs. Calendar access
// is read-only; Drive access covers reading recordings and renaming outputs.
var Scopes = []string{
	"openid",
	"email",
	"profile",
	calendar.CalendarReadonlyScope,
	drive.DriveScope,
}

// ProviderName is the identifier for Google OAuth credentials
const ProviderName = "google"

// OAuthServiceInterface defines the interface for OAuth operations
// This interface allows for mocking in tests
type OAuthServiceInterface interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*repository.OAuthCredentialStatus, error)
	ListAccounts(ctx context.Context) ([]repository.OAuthCredentialStatus, error)
	RevokeAccount(ctx context.Context, id uuid.UUID) error
}

// Ensure OAuthService implements OAuthServiceInterface
var _ OAuthServiceInterface = (*OAuthService)(nil)

// OAuthService handles Google OAuth2 authentication
type OAuthService struct {
	config    *oauth2.Config
	repo      *repository.OAuthRepository
	encryptor *crypto.TokenEncryptor
}

// UserInfo contains user information from Google
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewOAuthService creates a new Google OAuth service
func NewOAuthService(cfg *config.Config, repo *repository.OAuthRepository) (*OAuthService, error) {
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured")
	}

	encryptor, err := crypto.NewTokenEncryptor(cfg.External.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create token encryptor: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}

	return &OAuthService{
		config:    oauthConfig,
		repo:      repo,
		encryptor: encryptor,
	}, nil
}

// GenerateState generates a secure random state for CSRF protection
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GetAuthURL returns the URL to redirect user for authorization
func (s *OAuthService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode exchanges an authorization code for tokens and stores them
func (s *OAuthService) ExchangeCode(ctx context.Context, code string) (*repository.OAuthCredentialStatus, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	userInfo, err := s.getUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}

	cred, err := s.storeToken(ctx, token, userInfo)
	if err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	return &repository.OAuthCredentialStatus{
		ID:          cred.ID,
		Provider:    cred.Provider,
		AccountID:   cred.AccountID,
		AccountName: cred.AccountName,
		ExpiresAt:   cred.ExpiresAt,
		Scopes:      cred.Scopes,
		CreatedAt:   cred.CreatedAt,
		UpdatedAt:   cred.UpdatedAt,
	}, nil
}

// GetClient returns an authenticated HTTP client for the stored account.
// The client automatically handles token refresh, and refreshed tokens are
// persisted back to the credential store.
func (s *OAuthService) GetClient(ctx context.Context) (*http.Client, error) {
	token, cred, err := s.getToken(ctx)
	if err != nil {
		return nil, err
	}

	tokenSource := s.config.TokenSource(ctx, token)

	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	if newToken.AccessToken != token.AccessToken {
		if err := s.updateToken(ctx, cred.ID, newToken); err != nil {
			// We still hold a valid token; failing the call helps nobody
			logger.Warn().Err(err).Msg("failed to save refreshed token")
		}
	}

	return oauth2.NewClient(ctx, tokenSource), nil
}

// ListAccounts returns all connected Google accounts
func (s *OAuthService) ListAccounts(ctx context.Context) ([]repository.OAuthCredentialStatus, error) {
	return s.repo.ListStatuses(ctx)
}

// HasAccount checks if a Google account is connected
func (s *OAuthService) HasAccount(ctx context.Context) bool {
	_, err := s.repo.GetFirstByProvider(ctx, ProviderName)
	return err == nil
}

// RevokeAccount disconnects a Google account, revoking the token upstream
// on a best-effort basis before deleting the stored credential.
func (s *OAuthService) RevokeAccount(ctx context.Context, id uuid.UUID) error {
	cred, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get credential: %w", err)
	}

	accessToken, err := s.encryptor.Decrypt(cred.AccessTokenEncrypted)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to decrypt token for revocation")
	} else {
		revokeURL := "https://oauth2.googleapis.com/revoke?token=" + accessToken
		resp, err := http.Post(revokeURL, "application/x-www-form-urlencoded", nil)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to revoke token with Google")
		} else {
			if err := resp.Body.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close revoke response body")
			}
			if resp.StatusCode != http.StatusOK {
				logger.Warn().Int("status", resp.StatusCode).Msg("Google revoke returned non-OK status")
			}
		}
	}

	return s.repo.Delete(ctx, id)
}

// getUserInfo fetches the user's email and name from Google
func (s *OAuthService) getUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := s.config.Client(ctx, token)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close user info response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var userInfo UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}

	return &userInfo, nil
}

// storeToken encrypts and stores the OAuth token
func (s *OAuthService) storeToken(ctx context.Context, token *oauth2.Token, userInfo *UserInfo) (*repository.OAuthCredential, error) {
	accessBlob, err := s.encryptor.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	var refreshBlob *string
	if token.RefreshToken != "" {
		blob, err := s.encryptor.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		refreshBlob = &blob
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		expiresAt = &token.Expiry
	}

	var accountName *string
	if userInfo.Name != "" {
		accountName = &userInfo.Name
	}

	return s.repo.Upsert(ctx, repository.UpsertOAuthCredentialRequest{
		Provider:              ProviderName,
		AccountID:             userInfo.Email,
		AccountName:           accountName,
		AccessTokenEncrypted:  accessBlob,
		RefreshTokenEncrypted: refreshBlob,
		TokenType:             token.TokenType,
		ExpiresAt:             expiresAt,
		Scopes:                Scopes,
	})
}

// updateToken updates the stored token after a refresh
func (s *OAuthService) updateToken(ctx context.Context, id uuid.UUID, token *oauth2.Token) error {
	accessBlob, err := s.encryptor.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}

	// Refresh tokens are sometimes rotated
	var refreshBlob *string
	if token.RefreshToken != "" {
		blob, err := s.encryptor.Encrypt(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
		refreshBlob = &blob
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		expiresAt = &token.Expiry
	}

	return s.repo.UpdateTokens(ctx, id, repository.UpdateOAuthTokensRequest{
		AccessTokenEncrypted:  accessBlob,
		RefreshTokenEncrypted: refreshBlob,
		ExpiresAt:             expiresAt,
	})
}

// getToken retrieves and decrypts the stored OAuth token
func (s *OAuthService) getToken(ctx context.Context) (*oauth2.Token, *repository.OAuthCredential, error) {
	cred, err := s.repo.GetFirstByProvider(ctx, ProviderName)
	if err != nil {
		return nil, nil, fmt.Errorf("get credential: %w", err)
	}

	accessToken, err := s.encryptor.Decrypt(cred.AccessTokenEncrypted)
	if err != nil {
		return nil, nil, fmt.Errorf("decrypt access token: %w", err)
	}

	var refreshToken string
	if cred.RefreshTokenEncrypted != nil {
		refreshToken, err = s.encryptor.Decrypt(*cred.RefreshTokenEncrypted)
		if err != nil {
			return nil, nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}

	var expiry time.Time
	if cred.ExpiresAt != nil {
		expiry = *cred.ExpiresAt
	}

	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    cred.TokenType,
		Expiry:       expiry,
	}

	return token, cred, nil
}
