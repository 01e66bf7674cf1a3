package initial

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"CaseVault/internal/config"
	"CaseVault/pkg/redis"
	"CaseVault/pkg/zlog"
)

// InitRedis installs the shared client when Redis is configured. Without it
// the run guard degrades to process-local serialization, which is still
// correct for a single-process deployment.
func InitRedis() {
	conf := config.GetConfig()
	host := conf.RedisConfig.Host
	if host == "" {
		zlog.Info("redis not configured, run lock stays process-local")
		return
	}

	port := conf.RedisConfig.Port
	if port == 0 {
		port = 6379
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     conf.RedisConfig.Password,
		DB:           conf.RedisConfig.DB,
		PoolSize:     conf.RedisConfig.PoolSize,
		MinIdleConns: conf.RedisConfig.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Warn("redis unreachable, run lock stays process-local",
			zap.String("addr", addr),
			zap.Error(err))
		_ = client.Close()
		return
	}

	redis.SetClient(client)
	zlog.Info("redis connected", zap.String("addr", addr))
}
