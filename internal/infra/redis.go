package infra

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// InitRedis connects the client backing the reconciliation sweep lock.
// Returns nil when REDIS_URL is unset so single-node deployments can
// run without Redis (the sweep then runs unlocked).
func InitRedis() *redis.Client {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		log.Println("REDIS_URL not set, sweep locking disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("Error parsing REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Error connecting to redis: %v", err)
	}
	return client
}

func NewRedsync(client *redis.Client) *redsync.Redsync {
	if client == nil {
		return nil
	}
	return redsync.New(goredis.NewPool(client))
}
