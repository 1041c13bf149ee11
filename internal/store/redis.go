package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const recentKey = "attendance:recent"

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// TouchCheckin records that a student checked in, for the recent-activity view.
// Entries older than 24h are trimmed on each write.
func (r *Redis) TouchCheckin(ctx context.Context, studentID int64, at time.Time) error {
	pipe := r.Client.TxPipeline()
	pipe.ZAdd(ctx, recentKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: strconv.FormatInt(studentID, 10),
	})
	cutoff := at.Add(-24 * time.Hour).Unix()
	pipe.ZRemRangeByScore(ctx, recentKey, "-inf", strconv.FormatInt(cutoff, 10))
	_, err := pipe.Exec(ctx)
	return err
}

// RecentCheckins returns student ids that checked in at or after since,
// most recent first.
func (r *Redis) RecentCheckins(ctx context.Context, since time.Time) ([]int64, error) {
	members, err := r.Client.ZRevRangeByScore(ctx, recentKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
