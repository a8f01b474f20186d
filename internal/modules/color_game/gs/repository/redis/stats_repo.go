package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
)

// StatsRepository mirrors live stats into redis so dashboards in other
// processes can read them.
type StatsRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatsRepository creates a new Redis stats repository
func NewStatsRepository(rdb *redis.Client) *StatsRepository {
	return &StatsRepository{
		rdb: rdb,
		ttl: 1 * time.Hour,
	}
}

func statsKey(modeID string) string {
	return fmt.Sprintf("color_game:live_stats:%s", modeID)
}

// Save overwrites the snapshot of a mode
func (r *StatsRepository) Save(ctx context.Context, stats *domain.LiveGameStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, statsKey(stats.ModeID), data, r.ttl).Err()
}

// Get returns nil when no snapshot exists
func (r *StatsRepository) Get(ctx context.Context, modeID string) (*domain.LiveGameStats, error) {
	data, err := r.rdb.Get(ctx, statsKey(modeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stats domain.LiveGameStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Delete removes the snapshot of a mode
func (r *StatsRepository) Delete(ctx context.Context, modeID string) error {
	return r.rdb.Del(ctx, statsKey(modeID)).Err()
}
