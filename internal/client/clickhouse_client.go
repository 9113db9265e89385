package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"user-service/internal/config"
	"user-service/internal/util"
)

// ClickHouseClient backs the security-event audit trail. The workload is
// insert-only, so the pool is tuned small.
type ClickHouseClient struct {
	conn driver.Conn
	cfg  *config.ClickhouseConfig
	mu   sync.RWMutex
}

func NewClickHouseClient(cfg *config.Config, logger *zap.Logger) (*ClickHouseClient, error) {
	chCfg := cfg.Clickhouse
	host, secure := auditAddr(chCfg.URL)

	opts := &ch.Options{
		Addr: []string{host},
		Auth: ch.Auth{
			Username: chCfg.Username,
			Password: chCfg.Password,
			Database: chCfg.Database,
		},
		DialTimeout:      30 * time.Second,
		MaxOpenConns:     20,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: ch.ConnOpenInOrder,
	}

	if cfg.IsProduction() || secure {
		tlsCfg := &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: strings.Split(host, ":")[0],
		}
		if caPath := util.GetEnv("CLICKHOUSE_CA_FILE", ""); caPath != "" {
			pem, err := os.ReadFile(caPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read ClickHouse CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("invalid ClickHouse CA certificate")
			}
			tlsCfg.RootCAs = pool
		}
		opts.TLS = tlsCfg
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	util.Info("ClickHouse audit sink connected",
		zap.String("database", chCfg.Database),
		zap.Bool("tls_enabled", opts.TLS != nil),
	)

	return &ClickHouseClient{conn: conn, cfg: &chCfg}, nil
}

// Exec runs a single insert or DDL statement.
func (c *ClickHouseClient) Exec(ctx context.Context, query string, args ...interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Exec(ctx, query, args...)
}

// BatchInsert appends rows through a prepared batch and sends them in one
// round trip.
func (c *ClickHouseClient) BatchInsert(ctx context.Context, query string, rows [][]interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("failed to append batch row: %w", err)
		}
	}
	return batch.Send()
}

func (c *ClickHouseClient) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Ping(ctx)
}

func (c *ClickHouseClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		util.Error("Failed to close ClickHouse connection", zap.Error(err))
		return err
	}
	util.Info("ClickHouse connection closed")
	return nil
}

// auditAddr strips the scheme off the configured URL and fills in the
// native-protocol default ports.
func auditAddr(url string) (string, bool) {
	secure := strings.HasPrefix(url, "https://")
	host := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if !strings.Contains(host, ":") {
		if secure {
			host += ":9440"
		} else {
			host += ":9000"
		}
	}
	return host, secure
}
