package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"user-service/internal/config"
	"user-service/internal/util"
)

// PreparedStatements holds prepared statements that are actually used by the repositories
type PreparedStatements struct {
	CreateUser       *gocql.Query
	CreatePhoneIndex *gocql.Query
	GetUserByID      *gocql.Query
	GetPhoneIndex    *gocql.Query
	UpdateStatus     *gocql.Query
	UpdateLockout    *gocql.Query
	UpdateLastLogin  *gocql.Query
	UpdatePhotoURL   *gocql.Query
	UpdateFollowers  *gocql.Query
	UpdateFollowing  *gocql.Query

	FollowerExists *gocql.Query
	AddFollower    *gocql.Query
	ListFollowers  *gocql.Query

	GetSettingsByID *gocql.Query
	InsertSettings  *gocql.Query
	UpdateSettings  *gocql.Query
	DeleteSettings  *gocql.Query

	AppendOTPRequest *gocql.Query
	CountOTPRequests *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.RWMutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaCfg := cfg.Scylla

	session, err := newCluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaCfg,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaCfg.Nodes),
		zap.String("keyspace", scyllaCfg.Keyspace))

	return client, nil
}

func newCluster(cfg *config.Config) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Scylla.Nodes...)
	cluster.Keyspace = cfg.Scylla.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if !cfg.IsDevelopment() {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 "/root/certs/ca.pem",
			CertPath:               "/root/certs/server.pem",
			KeyPath:                "/root/certs/server.key",
			EnableHostVerification: true,
		}
	}
	if cfg.Scylla.Username != "" && cfg.Scylla.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Scylla.Username,
			Password: cfg.Scylla.Password,
		}
	}
	return cluster
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateUser = s.Session.Query(`
    INSERT INTO users (
        user_id, bucket_id, phone_hash, phone_encrypted, phone_key_id,
        first_name, last_name, username, gender, dob, bio, email,
        profile_picture_url, account_status, user_type, rank,
        follower_count, following_count, failed_login_count, lockout_time,
        created_at, updated_at, last_login
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreatePhoneIndex = s.Session.Query(`
        INSERT INTO users_by_phone (phone_hash, user_id, created_at)
        VALUES (?, ?, ?)`)

	prepared.GetUserByID = s.Session.Query(`
        SELECT user_id, bucket_id, phone_hash, phone_encrypted, phone_key_id,
            first_name, last_name, username, gender, dob, bio, email,
            profile_picture_url, account_status, user_type, rank,
            follower_count, following_count, failed_login_count, lockout_time,
            created_at, updated_at, last_login
        FROM users WHERE user_id = ?`)

	prepared.GetPhoneIndex = s.Session.Query(`
        SELECT user_id FROM users_by_phone WHERE phone_hash = ?`)

	prepared.UpdateStatus = s.Session.Query(`
        UPDATE users SET account_status = ?, updated_at = ? WHERE user_id = ?`)

	prepared.UpdateLockout = s.Session.Query(`
        UPDATE users SET failed_login_count = ?, lockout_time = ?, account_status = ?, updated_at = ?
        WHERE user_id = ?`)

	prepared.UpdateLastLogin = s.Session.Query(`
        UPDATE users SET last_login = ? WHERE user_id = ?`)

	prepared.UpdatePhotoURL = s.Session.Query(`
        UPDATE users SET profile_picture_url = ?, updated_at = ? WHERE user_id = ?`)

	prepared.UpdateFollowers = s.Session.Query(`
        UPDATE users SET follower_count = ?, updated_at = ? WHERE user_id = ?`)

	prepared.UpdateFollowing = s.Session.Query(`
        UPDATE users SET following_count = ?, updated_at = ? WHERE user_id = ?`)

	prepared.FollowerExists = s.Session.Query(`
        SELECT follower_id FROM followers WHERE user_id = ? AND follower_id = ?`)

	prepared.AddFollower = s.Session.Query(`
        INSERT INTO followers (user_id, follower_id, created_at) VALUES (?, ?, ?)`)

	prepared.ListFollowers = s.Session.Query(`
        SELECT user_id, follower_id, created_at FROM followers WHERE user_id = ? LIMIT ?`)

	prepared.GetSettingsByID = s.Session.Query(`
        SELECT id, time_unit, time_units_count, max_otp_attempts, criteria_status, last_updated
        FROM otp_settings WHERE id = ?`)

	prepared.InsertSettings = s.Session.Query(`
        INSERT INTO otp_settings (id, time_unit, time_units_count, max_otp_attempts, criteria_status, last_updated)
        VALUES (?, ?, ?, ?, ?, ?)`)

	prepared.UpdateSettings = s.Session.Query(`
        UPDATE otp_settings SET time_unit = ?, time_units_count = ?, max_otp_attempts = ?, last_updated = ?
        WHERE id = ?`)

	prepared.DeleteSettings = s.Session.Query(`
        DELETE FROM otp_settings WHERE id = ?`)

	prepared.AppendOTPRequest = s.Session.Query(`
        INSERT INTO otp_requests (phone_hash, requested_at) VALUES (?, ?)`)

	prepared.CountOTPRequests = s.Session.Query(`
        SELECT COUNT(*) FROM otp_requests
        WHERE phone_hash = ? AND requested_at >= ? AND requested_at <= ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

// ExecuteWithRetry retries transient failures with linear backoff on top
// of the driver's own retry policy.
func (s *ScyllaClient) ExecuteWithRetry(query *gocql.Query, maxRetries int) error {
	return withRetry(maxRetries, query.Exec)
}

func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	return withRetry(2, func() error { return query.Scan(dest...) })
}

func withRetry(maxRetries int, op func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op()
		if lastErr == nil || attempt >= maxRetries {
			return lastErr
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
}
