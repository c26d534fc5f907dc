package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"seatpool/internal/domain/allocation"
)

const (
	// warnKeyPrefix is the prefix for all expiry warning dedup keys
	warnKeyPrefix = "seatpool:warn:"

	// warnTTLGrace keeps a claimed key alive past the lead window itself, so
	// the key survives until after the pool has expired and can never be
	// re-claimed inside the same window.
	warnTTLGrace = 24 * time.Hour
)

// WarnDeduplicator implements allocation.WarningDeduplicator on Redis.
// SET NX gives the atomic claim: across any number of worker instances,
// exactly one caller wins the (pool, lead bucket) key.
type WarnDeduplicator struct {
	client *redis.Client
}

// NewWarnDeduplicator creates a new WarnDeduplicator instance
func NewWarnDeduplicator(client *redis.Client) allocation.WarningDeduplicator {
	return &WarnDeduplicator{client: client}
}

// buildKey builds the Redis key for a warning claim
// Format: seatpool:warn:{pool_id}:{bucket}
func (d *WarnDeduplicator) buildKey(poolID uint, bucket string) string {
	return fmt.Sprintf("%s%d:%s", warnKeyPrefix, poolID, bucket)
}

// TryAcquire atomically claims the warning key. True means the caller owns
// the warning for this pool and threshold and must send it.
func (d *WarnDeduplicator) TryAcquire(ctx context.Context, poolID uint, bucket string) (bool, error) {
	key := d.buildKey(poolID, bucket)
	ttl := bucketTTL(bucket)

	ok, err := d.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire warning key: %w", err)
	}
	return ok, nil
}

// Release deletes the warning key so a later run can claim it again. Used
// when the warning behind the claim was never delivered.
func (d *WarnDeduplicator) Release(ctx context.Context, poolID uint, bucket string) error {
	if err := d.client.Del(ctx, d.buildKey(poolID, bucket)).Err(); err != nil {
		return fmt.Errorf("failed to release warning key: %w", err)
	}
	return nil
}

// bucketTTL derives the key lifetime from the bucket name ("15d" lives 16
// days). The TTL must outlive the whole lead window, not just the scan
// interval, or a later scan inside the same window would warn again.
func bucketTTL(bucket string) time.Duration {
	days, err := strconv.Atoi(strings.TrimSuffix(bucket, "d"))
	if err != nil || days <= 0 {
		days = allocation.WarningLead(24 * time.Hour).Days()
	}
	return time.Duration(days)*24*time.Hour + warnTTLGrace
}
