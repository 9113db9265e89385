package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"user-service/internal/models"
	"user-service/internal/util"
)

type followerRepository struct {
	client *ScyllaClient
}

func NewFollowerRepository(client *ScyllaClient, logger *zap.Logger) FollowerRepository {
	return &followerRepository{client: client}
}

func (r *followerRepository) Exists(ctx context.Context, userID, followerID string) (bool, error) {
	var found string
	query := r.client.Prepared.FollowerExists.WithContext(ctx).Bind(userID, followerID)
	err := r.client.ScanWithRetry(query, &found)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		util.Error("Failed to check follower edge",
			zap.String("user_id", userID),
			zap.String("follower_id", followerID),
			zap.Error(err))
		return false, fmt.Errorf("failed to check follower edge: %w", err)
	}
	return true, nil
}

func (r *followerRepository) Add(ctx context.Context, userID, followerID string, at time.Time) error {
	query := r.client.Prepared.AddFollower.WithContext(ctx).Bind(userID, followerID, at)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to add follower edge",
			zap.String("user_id", userID),
			zap.String("follower_id", followerID),
			zap.Error(err))
		return fmt.Errorf("failed to add follower edge: %w", err)
	}

	util.Debug("Follower edge added",
		zap.String("user_id", userID),
		zap.String("follower_id", followerID))
	return nil
}

// ListPage fetches offset+size edges, newest first, and discards the
// first offset rows. Pages past the end come back empty.
func (r *followerRepository) ListPage(ctx context.Context, userID string, offset, size int) ([]*models.FollowerEdge, error) {
	query := r.client.Prepared.ListFollowers.WithContext(ctx).Bind(userID, offset+size)
	iter := query.Iter()

	edges := make([]*models.FollowerEdge, 0, size)
	var row models.FollowerEdge
	index := 0
	for iter.Scan(&row.UserID, &row.FollowerID, &row.CreatedAt) {
		if index >= offset {
			edge := row
			edges = append(edges, &edge)
		}
		index++
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list followers",
			zap.String("user_id", userID),
			zap.Int("offset", offset),
			zap.Int("size", size),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}

	return edges, nil
}
