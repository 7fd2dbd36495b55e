package mailer

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/digpatho/crm-backend/pkg/operator"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// refreshMargin is how close to expiry a cached token is still trusted.
const refreshMargin = 5 * time.Minute

// OAuthConfig carries the Google client credentials for token exchange.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string

	// Endpoint defaults to Google's; overridable for tests.
	Endpoint oauth2.Endpoint
}

// TokenManager implements TokenSource for one operator, reading and writing
// the shared TokenState through the profile repository. Concurrent campaigns
// of the same operator may both refresh; last write wins and the race is
// accepted because a refresh is idempotent from the provider's side.
type TokenManager struct {
	operatorID string
	profiles   operator.ProfileRepository
	cfg        OAuthConfig
	now        func() time.Time
}

// NewTokenManager creates a token manager for the given operator.
func NewTokenManager(operatorID string, profiles operator.ProfileRepository, cfg OAuthConfig) *TokenManager {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	return &TokenManager{
		operatorID: operatorID,
		profiles:   profiles,
		cfg:        cfg,
		now:        time.Now,
	}
}

// AccessToken returns the cached credential when its expiry is more than the
// safety margin away, otherwise refreshes it.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	prof, err := m.profiles.Get(ctx, m.operatorID)
	if err != nil {
		return "", errx.Wrap(err, "failed to load token state", errx.TypeInternal)
	}

	if prof.GoogleAccessToken != "" && prof.GoogleTokenExpiresAt != nil &&
		prof.GoogleTokenExpiresAt.Sub(m.now()) > refreshMargin {
		return prof.GoogleAccessToken, nil
	}

	return m.refresh(ctx, prof)
}

// ForceRefresh exchanges the refresh credential regardless of cached expiry.
func (m *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	prof, err := m.profiles.Get(ctx, m.operatorID)
	if err != nil {
		return "", errx.Wrap(err, "failed to load token state", errx.TypeInternal)
	}
	return m.refresh(ctx, prof)
}

func (m *TokenManager) refresh(ctx context.Context, prof *operator.Profile) (string, error) {
	if prof.GoogleRefreshToken == "" {
		return "", mailerErrors.New(ErrAuthExpired).WithDetail("reason", "no refresh token stored")
	}

	conf := &oauth2.Config{
		ClientID:     m.cfg.ClientID,
		ClientSecret: m.cfg.ClientSecret,
		Endpoint:     m.cfg.Endpoint,
	}

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: prof.GoogleRefreshToken}).Token()
	if err != nil {
		return "", mailerErrors.NewWithCause(ErrAuthExpired, err)
	}

	expiresAt := tok.Expiry.UTC()
	if tok.Expiry.IsZero() {
		expiresAt = m.now().Add(time.Hour).UTC()
	}

	if err := m.profiles.SaveGoogleTokens(ctx, prof.ID, tok.AccessToken, expiresAt); err != nil {
		return "", errx.Wrap(err, "failed to persist refreshed token", errx.TypeInternal)
	}

	logx.WithField("operator_id", prof.ID).Debug("google access token refreshed")
	return tok.AccessToken, nil
}
