package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultTimeout = 3 * time.Second

// Options описывает подключение к Redis.
type Options struct {
	Addr        string
	Username    string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

// NewClient создаёт клиент Redis. Подключение устанавливается лениво,
// доступность проверяет Ping.
func NewClient(opts Options) *goredis.Client {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultTimeout
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   opts.MaxRetries,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})
}

// Ping проверяет доступность Redis.
func Ping(ctx context.Context, client goredis.Cmdable) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
