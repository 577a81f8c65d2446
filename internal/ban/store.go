// Package ban provides user-id based ban management backed by Redis. Ban
// records are simple key-value pairs with TTL expiry:
//
//	Key:   ban:<user_id>
//	Value: <reason>
//	TTL:   ban duration
//
// A separate counter key tracks reports against a user inside a rolling
// window; reaching the threshold applies a ban whose duration escalates
// with repeat offenses.
package ban

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// BanPrefix is the Redis key prefix for ban records.
	BanPrefix = "ban:"

	// ReportsPrefix is the Redis key prefix for report counters.
	ReportsPrefix = "reports:"

	// Escalating ban durations.
	Ban15Min  = 15 * time.Minute // 1st offense
	Ban1Hour  = 1 * time.Hour    // 2nd offense
	Ban24Hour = 24 * time.Hour   // 3rd+ offense

	// ReportsTTL is the lifetime of the report counter; with no new reports
	// for this long the count resets.
	ReportsTTL = 24 * time.Hour

	// AutoBanThreshold is the report count that triggers an automatic ban.
	AutoBanThreshold = 3
)

// Store manages ban records in Redis. A nil Store treats every user as
// unbanned, so deployments can run without Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a ban store using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// IsBanned checks whether a user is currently banned. Returns the remaining
// seconds and the recorded reason when banned. Redis errors are returned so
// callers can choose a policy; the server fails open.
func (s *Store) IsBanned(ctx context.Context, userID string) (bool, int, string, error) {
	if s == nil || s.client == nil {
		return false, 0, "", nil
	}
	key := BanPrefix + userID

	reason, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, 0, "", nil
	}
	if err != nil {
		return false, 0, "", err
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		// The ban exists but the TTL read failed; report banned with zero
		// remaining rather than swallowing the ban.
		return true, 0, reason, nil
	}

	remaining := 0
	if ttl > 0 {
		remaining = int(ttl.Seconds())
	}
	return true, remaining, reason, nil
}

// Ban applies a ban with the given duration and reason. The record expires
// on its own.
func (s *Store) Ban(ctx context.Context, userID string, duration time.Duration, reason string) error {
	return s.client.Set(ctx, BanPrefix+userID, reason, duration).Err()
}

// Unban lifts a ban immediately.
func (s *Store) Unban(ctx context.Context, userID string) error {
	return s.client.Del(ctx, BanPrefix+userID).Err()
}

// ReportAndCheck increments the report counter for a user and, when the
// threshold is reached, applies an automatic ban whose duration escalates
// with the count:
//
//	3rd report  -> 15 minutes
//	4th report  -> 1 hour (as 2nd offense past threshold)
//	later       -> 24 hours
//
// Returns whether a ban was applied and its duration.
func (s *Store) ReportAndCheck(ctx context.Context, userID string) (bool, time.Duration, error) {
	if s == nil || s.client == nil {
		return false, 0, nil
	}
	key := ReportsPrefix + userID

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ban: report incr: %w", err)
	}

	// Set the TTL only on the first increment so the window doesn't slide.
	if count == 1 {
		if err := s.client.Expire(ctx, key, ReportsTTL).Err(); err != nil {
			return false, 0, fmt.Errorf("ban: report expire: %w", err)
		}
	}

	if count < AutoBanThreshold {
		return false, 0, nil
	}

	duration := escalationDuration(int(count) - AutoBanThreshold + 1)
	if err := s.Ban(ctx, userID, duration, "multiple_reports"); err != nil {
		return false, 0, fmt.Errorf("ban: report ban: %w", err)
	}
	return true, duration, nil
}

// escalationDuration maps an offense ordinal to a ban duration.
func escalationDuration(offense int) time.Duration {
	switch {
	case offense <= 1:
		return Ban15Min
	case offense == 2:
		return Ban1Hour
	default:
		return Ban24Hour
	}
}
