package app

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	healthcheck "github.com/vladislavdragonenkov/urbanfood/internal/health"
	redisstore "github.com/vladislavdragonenkov/urbanfood/internal/storage/redis"
)

// initRedis создаёт общий клиент для кэша категорий и хранилища отзывов.
// Клиент подключается лениво, недоступность видна в /healthz.
func (d *Dependencies) initRedis(cfg Config) *goredis.Client {
	client := redisstore.NewClient(redisstore.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	d.closers = append(d.closers, client.Close)
	d.Health.RegisterChecker("redis", healthcheck.NewPingChecker("redis", func(ctx context.Context) error {
		return redisstore.Ping(ctx, client)
	}))
	d.Logger.WithField("addr", cfg.RedisAddr).Info("redis client initialized")
	return client
}
