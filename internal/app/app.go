// Package app wires configuration into the collaborators every console command needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"reward-core/internal/event"
	"reward-core/internal/service/mq"
	"reward-core/pkg/cache"
	"reward-core/pkg/config"
	"reward-core/pkg/database"
	"reward-core/pkg/logger"
	"reward-core/pkg/rewardclient"
	"reward-core/pkg/session"
	"reward-core/pkg/utils/lock"
)

// App holds the wired dependencies of one console invocation.
type App struct {
	Config   *config.Config
	Client   *rewardclient.Client
	Sessions session.Store
	Producer mq.Producer
	Journal  *event.Journal
	// Locker is nil unless lock.enabled is set.
	Locker lock.DistributedLock

	redis *redis.Client
}

// Options lets callers and tests replace pieces before wiring.
type Options struct {
	// OnUnauthorized runs after the backend rejected the stored session.
	OnUnauthorized func()
	// Redis, when set, is used instead of dialing redis.addr.
	Redis *redis.Client
}

// New builds the App described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.RequireAPI(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, redis: opts.Redis}

	// 1. Redis (按需连接)
	if a.redis == nil && needsRedis(cfg) {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
	}

	// 2. 会话存储
	sessions, err := a.sessionStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Sessions = sessions

	// 3. API 客户端
	a.Client = rewardclient.NewClient(rewardclient.Options{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		MaxRetries:     cfg.API.MaxRetries,
		RetryDelay:     500 * time.Millisecond,
		Store:          sessions,
		OnUnauthorized: opts.OnUnauthorized,
	})

	// 4. 事件发布
	producer, err := a.producer()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Producer = producer
	actor := ""
	if creds, err := sessions.Load(ctx); err == nil {
		actor = creds.Email
	}
	a.Journal = event.NewJournal(producer, cfg.Events.Topic, actor)

	// 5. 分布式锁
	if cfg.Lock.Enabled {
		a.Locker = lock.NewRedisLock(a.redis)
	}

	logger.Debug("console wired",
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("session_driver", cfg.Session.Driver),
		zap.String("events_driver", cfg.Events.Driver),
		zap.Bool("lock", cfg.Lock.Enabled))
	return a, nil
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Session.Driver == "redis" || cfg.Events.Driver == "redis" || cfg.Lock.Enabled
}

func (a *App) sessionStore() (session.Store, error) {
	switch a.Config.Session.Driver {
	case "", "file":
		return session.NewFileStore(a.Config.Session.Path), nil
	case "redis":
		return session.NewCacheStore(cache.NewRedisCache(a.redis), a.Config.Session.Key), nil
	case "memory":
		return session.NewCacheStore(cache.NewMemoryCache(0, 10*time.Minute), a.Config.Session.Key), nil
	}
	return nil, fmt.Errorf("unknown session.driver %q", a.Config.Session.Driver)
}

func (a *App) producer() (mq.Producer, error) {
	switch a.Config.Events.Driver {
	case "", "none":
		return mq.NopProducer{}, nil
	case "redis":
		return mq.NewRedisProducer(a.redis), nil
	case "kafka":
		if len(a.Config.Events.Brokers) == 0 {
			return nil, errors.New("events.brokers is empty")
		}
		return mq.NewKafkaProducer(a.Config.Events.Brokers, a.Config.Events.Topic), nil
	}
	return nil, fmt.Errorf("unknown events.driver %q", a.Config.Events.Driver)
}

// Close releases the producer and the Redis connection.
func (a *App) Close() error {
	var errs []error
	if a.Producer != nil {
		errs = append(errs, a.Producer.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
