package cache

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tickbol/internal/config"
)

const staffAuthTTL = 15 * time.Minute

// ValkeyClient caches staff credentials so BasicAuth does not hit
// Postgres on every request.
type ValkeyClient struct {
	client       *redis.Client
	staffHashKey string
}

func NewValkeyClient(cfg config.ValkeyConfig) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client:       rdb,
		staffHashKey: cfg.StaffHashKey,
	}, nil
}

// GetStaffByAuth returns the staff ID and role for an email/hash pair, or
// an error when the pair is not cached.
func (v *ValkeyClient) GetStaffByAuth(ctx context.Context, email, passwordHash string) (int64, string, error) {
	cacheKey := authCacheKey(email, passwordHash)

	value, err := v.client.HGet(ctx, v.staffHashKey, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, "", fmt.Errorf("staff not found in cache")
		}
		return 0, "", fmt.Errorf("cache lookup error: %w", err)
	}

	var staffID int64
	var role string
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid staff entry in cache")
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &staffID); err != nil {
		return 0, "", fmt.Errorf("invalid staff ID in cache: %w", err)
	}
	role = parts[1]

	return staffID, role, nil
}

// SetStaffAuth stores a verified email/hash pair. Errors are ignored; a
// cold cache only costs a database lookup.
func (v *ValkeyClient) SetStaffAuth(ctx context.Context, email, passwordHash string, staffID int64, role string) {
	cacheKey := authCacheKey(email, passwordHash)
	value := fmt.Sprintf("%d|%s", staffID, role)

	v.client.HSet(ctx, v.staffHashKey, cacheKey, value)
	v.client.Expire(ctx, v.staffHashKey, staffAuthTTL)
}

func authCacheKey(email, passwordHash string) string {
	authString := fmt.Sprintf("%s:%s", email, passwordHash)
	return base64.StdEncoding.EncodeToString([]byte(authString))
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
