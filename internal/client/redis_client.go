package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-service/internal/config"
	"user-service/internal/util"
)

// ErrKeyNotFound is returned by Get for a missing or expired key.
var ErrKeyNotFound = errors.New("key not found")

// RedisClient owns the connection pool shared by the OTP and session
// caches.
type RedisClient struct {
	Client *redis.Client
	cfg    *config.RedisConfig
}

func NewRedisClient(cfg *config.Config, logger *zap.Logger) (*RedisClient, error) {
	redisCfg := cfg.Redis

	opts, err := redis.ParseURL(redisCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if opts.Password == "" && redisCfg.Password != "" {
		opts.Password = redisCfg.Password
	}

	opts.DB = redisCfg.DB
	opts.PoolSize = redisCfg.PoolSize
	opts.MinIdleConns = max(redisCfg.PoolSize/2, 10)
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	if strings.HasPrefix(redisCfg.URL, "rediss://") {
		tlsCfg, err := redisTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsCfg
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	util.Info("Redis client connected",
		zap.Int("db", redisCfg.DB),
		zap.Int("pool_size", redisCfg.PoolSize))

	return &RedisClient{Client: rdb, cfg: &redisCfg}, nil
}

func redisTLSConfig() (*tls.Config, error) {
	caFile := util.GetEnv("REDIS_TLS_CA_FILE", "/app/certs/ca.crt")
	certFile := util.GetEnv("REDIS_TLS_CERT_FILE", "/app/certs/redis.crt")
	keyFile := util.GetEnv("REDIS_TLS_KEY_FILE", "/app/certs/redis.key")

	caPEM, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("invalid Redis CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load Redis client certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return "", err
	}
	return val, nil
}

func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	return r.Client.Del(ctx, keys...).Err()
}

func (r *RedisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.Client.SMembers(ctx, key).Result()
}

// Pipeline exposes a raw pipeliner for multi-key session updates.
func (r *RedisClient) Pipeline() redis.Pipeliner {
	return r.Client.Pipeline()
}

// HealthCheck pings and round-trips a short-lived key.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	probe := fmt.Sprintf("healthcheck:%d", time.Now().UnixNano())
	if err := r.Client.Set(ctx, probe, "ok", 10*time.Second).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if _, err := r.Client.Get(ctx, probe).Result(); err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	_ = r.Client.Del(ctx, probe)
	return nil
}

func (r *RedisClient) Close() error {
	if r.Client == nil {
		return nil
	}
	if err := r.Client.Close(); err != nil {
		util.Error("Failed to close Redis client", zap.Error(err))
		return err
	}
	util.Info("Redis client closed")
	return nil
}
