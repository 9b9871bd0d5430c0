package services

import (
	"context"
	"fmt"
	"time"

	"reviewflow-backend/utils"

	goredis "github.com/redis/go-redis/v9"
)

const settingsChannel = "reviewflow:settings:invalidate"

type redisSettingsBus struct {
	log *utils.Logger
	rdb *goredis.Client
}

// NewRedisSettingsBus connects to REDIS_URL so settings writes on one instance
// clear the caches of all instances.
func NewRedisSettingsBus(log *utils.Logger, redisURL string) (SettingsBus, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		opts = &goredis.Options{Addr: redisURL}
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisSettingsBus{
		log: log.With("service", "RedisSettingsBus"),
		rdb: rdb,
	}, nil
}

func (b *redisSettingsBus) Publish(ctx context.Context) error {
	return b.rdb.Publish(ctx, settingsChannel, time.Now().UTC().Format(time.RFC3339Nano)).Err()
}

func (b *redisSettingsBus) Subscribe(ctx context.Context, onInvalidate func()) error {
	sub := b.rdb.Subscribe(ctx, settingsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				b.log.Debug("settings invalidated remotely")
				onInvalidate()
			}
		}
	}()
	return nil
}
