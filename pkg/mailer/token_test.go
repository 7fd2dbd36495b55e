package mailer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/digpatho/crm-backend/pkg/mailer"
	"github.com/digpatho/crm-backend/pkg/operator"
)

// fakeProfiles is an in-memory operator.ProfileRepository.
type fakeProfiles struct {
	profile operator.Profile
	saved   int
}

func (f *fakeProfiles) Get(context.Context, string) (*operator.Profile, error) {
	p := f.profile
	return &p, nil
}

func (f *fakeProfiles) Update(_ context.Context, p *operator.Profile) error {
	f.profile = *p
	return nil
}

func (f *fakeProfiles) SaveGoogleGrant(_ context.Context, _, accessToken, refreshToken string, expiresAt time.Time) error {
	f.profile.GoogleAccessToken = accessToken
	f.profile.GoogleRefreshToken = refreshToken
	f.profile.GoogleTokenExpiresAt = &expiresAt
	return nil
}

func (f *fakeProfiles) SaveGoogleTokens(_ context.Context, _, accessToken string, expiresAt time.Time) error {
	f.saved++
	f.profile.GoogleAccessToken = accessToken
	f.profile.GoogleTokenExpiresAt = &expiresAt
	return nil
}

// tokenEndpoint serves a canned OAuth token response and counts exchanges.
func tokenEndpoint(t *testing.T, accessToken string, status int) (*httptest.Server, *int) {
	t.Helper()
	exchanges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + accessToken + `","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &exchanges
}

func newManager(profiles *fakeProfiles, tokenURL string) *mailer.TokenManager {
	return mailer.NewTokenManager("op-1", profiles, mailer.OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	})
}

func expiringAt(d time.Duration) *time.Time {
	at := time.Now().Add(d).UTC()
	return &at
}

func TestAccessToken_UsesCachedTokenFarFromExpiry(t *testing.T) {
	srv, exchanges := tokenEndpoint(t, "fresh", http.StatusOK)
	profiles := &fakeProfiles{profile: operator.Profile{
		ID:                   "op-1",
		GoogleAccessToken:    "cached",
		GoogleRefreshToken:   "refresh",
		GoogleTokenExpiresAt: expiringAt(10 * time.Minute),
	}}
	m := newManager(profiles, srv.URL)

	token, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if token != "cached" {
		t.Fatalf("expected cached token, got %q", token)
	}
	if *exchanges != 0 {
		t.Fatalf("no exchange expected, got %d", *exchanges)
	}
}

func TestAccessToken_RefreshesInsideMargin(t *testing.T) {
	srv, exchanges := tokenEndpoint(t, "fresh", http.StatusOK)
	profiles := &fakeProfiles{profile: operator.Profile{
		ID:                   "op-1",
		GoogleAccessToken:    "stale",
		GoogleRefreshToken:   "refresh",
		GoogleTokenExpiresAt: expiringAt(4 * time.Minute),
	}}
	m := newManager(profiles, srv.URL)

	token, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if token != "fresh" {
		t.Fatalf("expected refreshed token, got %q", token)
	}
	if *exchanges != 1 {
		t.Fatalf("expected 1 exchange, got %d", *exchanges)
	}
	if profiles.saved != 1 {
		t.Fatalf("refreshed token not persisted, saves=%d", profiles.saved)
	}
	if profiles.profile.GoogleAccessToken != "fresh" {
		t.Fatalf("stored token is %q", profiles.profile.GoogleAccessToken)
	}
}

func TestAccessToken_MissingExpiryForcesRefresh(t *testing.T) {
	srv, exchanges := tokenEndpoint(t, "fresh", http.StatusOK)
	profiles := &fakeProfiles{profile: operator.Profile{
		ID:                 "op-1",
		GoogleAccessToken:  "stale",
		GoogleRefreshToken: "refresh",
	}}
	m := newManager(profiles, srv.URL)

	token, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if token != "fresh" || *exchanges != 1 {
		t.Fatalf("expected refresh without stored expiry, token=%q exchanges=%d", token, *exchanges)
	}
}

func TestAccessToken_NoRefreshTokenIsAuthExpired(t *testing.T) {
	srv, _ := tokenEndpoint(t, "fresh", http.StatusOK)
	profiles := &fakeProfiles{profile: operator.Profile{ID: "op-1"}}
	m := newManager(profiles, srv.URL)

	_, err := m.AccessToken(context.Background())
	if !mailer.IsAuthExpired(err) {
		t.Fatalf("expected auth expired, got %v", err)
	}
}

func TestAccessToken_RevokedGrantIsAuthExpired(t *testing.T) {
	srv, _ := tokenEndpoint(t, "", http.StatusBadRequest)
	profiles := &fakeProfiles{profile: operator.Profile{
		ID:                 "op-1",
		GoogleRefreshToken: "revoked",
	}}
	m := newManager(profiles, srv.URL)

	_, err := m.AccessToken(context.Background())
	if !mailer.IsAuthExpired(err) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if profiles.saved != 0 {
		t.Fatal("nothing should be persisted on a failed exchange")
	}
}

func TestForceRefresh_IgnoresCachedExpiry(t *testing.T) {
	srv, exchanges := tokenEndpoint(t, "fresh", http.StatusOK)
	profiles := &fakeProfiles{profile: operator.Profile{
		ID:                   "op-1",
		GoogleAccessToken:    "cached",
		GoogleRefreshToken:   "refresh",
		GoogleTokenExpiresAt: expiringAt(time.Hour),
	}}
	m := newManager(profiles, srv.URL)

	token, err := m.ForceRefresh(context.Background())
	if err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if token != "fresh" || *exchanges != 1 {
		t.Fatalf("expected unconditional exchange, token=%q exchanges=%d", token, *exchanges)
	}
}
