package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scanner bindings live in redis so kiosks survive an API restart without
// re-pairing.
const (
	scannerKeyPrefix = "scanner:"
	scannerBindTTL   = 30 * 24 * time.Hour
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// BindScanner pairs a scanner device with an event's party code.
func BindScanner(ctx context.Context, deviceID string, eventID uint) error {
	rd := GetRedisClient()
	if rd == nil {
		return fmt.Errorf("redis client unavailable")
	}
	key := scannerKeyPrefix + deviceID
	return rd.Set(ctx, key, eventID, scannerBindTTL).Err()
}

// BoundEvent returns the event a scanner device is paired with, or 0.
func BoundEvent(ctx context.Context, deviceID string) (uint, error) {
	rd := GetRedisClient()
	if rd == nil {
		return 0, fmt.Errorf("redis client unavailable")
	}
	key := scannerKeyPrefix + deviceID
	val, err := rd.Get(ctx, key).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}
