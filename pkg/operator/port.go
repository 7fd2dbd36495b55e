package operator

import (
	"context"
	"time"
)

// ProfileRepository persists operator profiles and their Google token state.
//
// Token writes are last-write-wins: two campaigns refreshing concurrently both
// persist a valid credential, so the race is accepted rather than locked.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error

	// SaveGoogleGrant stores the initial token grant from the OAuth callback.
	SaveGoogleGrant(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error

	// SaveGoogleTokens stores a refreshed access credential and its expiry.
	SaveGoogleTokens(ctx context.Context, id, accessToken string, expiresAt time.Time) error
}
