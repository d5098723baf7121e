package drawlock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-zookeeper/zk"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/lottery/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("draw.lock",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// New picks the lock backend named by LOCK_BACKEND.
func New(p Params) (Locker, error) {
	log := p.Log.Named("draw.lock")

	switch p.Config.Lock.Backend {
	case config.LockBackendRedis:
		addr := strings.TrimSpace(p.Config.Redis.Addr)
		if addr == "" {
			return nil, errors.New("redis lock backend requires REDIS_ADDR")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: p.Config.Redis.Password,
			DB:       p.Config.Redis.DB,
		})
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis ping: %w", err)
				}
				log.Info("redis draw lock ready", zap.String("addr", addr))
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		return NewRedisLocker(client), nil

	case config.LockBackendZooKeeper:
		if len(p.Config.ZooKeeper.Servers) == 0 {
			return nil, errors.New("zookeeper lock backend requires ZOOKEEPER_SERVERS")
		}
		conn, _, err := zk.Connect(p.Config.ZooKeeper.Servers, p.Config.ZooKeeper.SessionTimeout)
		if err != nil {
			return nil, fmt.Errorf("zookeeper connect: %w", err)
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				conn.Close()
				return nil
			},
		})
		log.Info("zookeeper draw lock ready", zap.Strings("servers", p.Config.ZooKeeper.Servers))
		return NewZooKeeperLocker(conn, p.Config.ZooKeeper.Root), nil

	default:
		log.Info("in-memory draw lock in use; draws are serialized per process only")
		return NewMemoryLocker(), nil
	}
}
