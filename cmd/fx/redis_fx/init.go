package redis_fx

import (
	"github.com/go-redsync/redsync/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"alignbill/internal/infra"
)

var Module = fx.Provide(provideRedis, provideRedsync)

func provideRedis() *redis.Client {
	return infra.InitRedis()
}

func provideRedsync(client *redis.Client) *redsync.Redsync {
	return infra.NewRedsync(client)
}
