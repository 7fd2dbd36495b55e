package campaigninfra

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/redis/go-redis/v9"

	"github.com/digpatho/crm-backend/pkg/campaign"
)

// Control signals outlive any single request but not a stuck campaign:
// stale flags expire on their own.
const controlTTL = 24 * time.Hour

const (
	signalPause  = "pause"
	signalCancel = "cancel"
)

// RedisControlStore implements campaign.ControlStore backed by Redis so
// pause/cancel reach a dispatcher running in another process.
type RedisControlStore struct {
	rdb *redis.Client
}

// NewRedisControlStore creates a new Redis-backed control store.
func NewRedisControlStore(rdb *redis.Client) campaign.ControlStore {
	return &RedisControlStore{rdb: rdb}
}

func controlKey(campaignID string) string {
	return fmt.Sprintf("crm:campaign:ctl:%s", campaignID)
}

// RaisePause flags the campaign for a pause at the next checkpoint.
func (s *RedisControlStore) RaisePause(ctx context.Context, campaignID string) error {
	if err := s.rdb.Set(ctx, controlKey(campaignID), signalPause, controlTTL).Err(); err != nil {
		return errx.Wrap(err, "failed to raise pause signal", errx.TypeInternal).
			WithDetail("campaign_id", campaignID)
	}
	return nil
}

// RaiseCancel flags the campaign for cancellation at the next checkpoint.
// Cancel wins over a previously raised pause.
func (s *RedisControlStore) RaiseCancel(ctx context.Context, campaignID string) error {
	if err := s.rdb.Set(ctx, controlKey(campaignID), signalCancel, controlTTL).Err(); err != nil {
		return errx.Wrap(err, "failed to raise cancel signal", errx.TypeInternal).
			WithDetail("campaign_id", campaignID)
	}
	return nil
}

// Clear removes any outstanding signal before a run begins.
func (s *RedisControlStore) Clear(ctx context.Context, campaignID string) error {
	if err := s.rdb.Del(ctx, controlKey(campaignID)).Err(); err != nil {
		return errx.Wrap(err, "failed to clear control signal", errx.TypeInternal).
			WithDetail("campaign_id", campaignID)
	}
	return nil
}

// State reads the current signal, if any.
func (s *RedisControlStore) State(ctx context.Context, campaignID string) (campaign.Signal, error) {
	val, err := s.rdb.Get(ctx, controlKey(campaignID)).Result()
	if err == redis.Nil {
		return campaign.SignalNone, nil
	}
	if err != nil {
		return campaign.SignalNone, errx.Wrap(err, "failed to read control signal", errx.TypeInternal).
			WithDetail("campaign_id", campaignID)
	}

	switch val {
	case signalPause:
		return campaign.SignalPause, nil
	case signalCancel:
		return campaign.SignalCancel, nil
	default:
		return campaign.SignalNone, nil
	}
}
