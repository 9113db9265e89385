package scylla

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"user-service/internal/models"
	"user-service/internal/util"
)

// updatableUserColumns is the whitelist for field-level profile updates.
var updatableUserColumns = map[string]bool{
	"first_name":          true,
	"last_name":           true,
	"username":            true,
	"gender":              true,
	"dob":                 true,
	"bio":                 true,
	"email":               true,
	"profile_picture_url": true,
	"account_status":      true,
	"user_type":           true,
	"rank":                true,
}

type userRepository struct {
	client *ScyllaClient
}

func NewUserRepository(client *ScyllaClient, logger *zap.Logger) UserRepository {
	return &userRepository{client: client}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = &now

	batch := r.client.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.CreateUser.Statement(),
		user.UserID, user.BucketID, user.PhoneHash, user.PhoneEncrypted, user.PhoneKeyID,
		user.FirstName, user.LastName, user.Username, user.Gender, user.DOB, user.Bio, user.Email,
		user.ProfilePictureURL, user.AccountStatus, user.UserType, user.Rank,
		user.FollowerCount, user.FollowingCount, user.FailedLoginCount, user.LockoutTime,
		user.CreatedAt, user.UpdatedAt, user.LastLogin)

	batch.Query(r.client.Prepared.CreatePhoneIndex.Statement(),
		user.PhoneHash, user.UserID, user.CreatedAt)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create user",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.Info("User created",
		zap.String("user_id", user.UserID),
		zap.Int("bucket_id", user.BucketID))

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := r.client.Prepared.GetUserByID.WithContext(ctx).Bind(userID)
	user, err := scanUser(r.client, query)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		util.Error("Failed to get user by ID",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByPhoneHash(ctx context.Context, phoneHash string) (*models.User, error) {
	var userID string
	query := r.client.Prepared.GetPhoneIndex.WithContext(ctx).Bind(phoneHash)
	if err := r.client.ScanWithRetry(query, &userID); err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("phone hash lookup: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve phone hash: %w", err)
	}
	return r.GetByID(ctx, userID)
}

func (r *userRepository) GetActiveByPhoneHash(ctx context.Context, phoneHash string, now time.Time) (*models.User, error) {
	user, err := r.GetByPhoneHash(ctx, phoneHash)
	if err != nil {
		return nil, err
	}
	if user.LockoutTime != nil && now.Before(*user.LockoutTime) {
		return nil, fmt.Errorf("%w until %s", ErrLocked, user.LockoutTime.Format(time.RFC3339))
	}
	return user, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	assignments := make([]string, 0, len(fields)+1)
	values := make([]interface{}, 0, len(fields)+2)
	for column, value := range fields {
		if !updatableUserColumns[column] {
			return fmt.Errorf("column %q is not updatable", column)
		}
		assignments = append(assignments, column+" = ?")
		values = append(values, value)
	}
	assignments = append(assignments, "updated_at = ?")
	values = append(values, time.Now().UTC(), userID)

	stmt := fmt.Sprintf("UPDATE users SET %s WHERE user_id = ?", strings.Join(assignments, ", "))
	query := r.client.Query(stmt, values...).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to update user fields",
			zap.String("user_id", userID),
			zap.Int("field_count", len(fields)),
			zap.Error(err))
		return fmt.Errorf("failed to update user fields: %w", err)
	}

	util.Debug("User fields updated",
		zap.String("user_id", userID),
		zap.Int("field_count", len(fields)))

	return nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, userID, status string) error {
	query := r.client.Prepared.UpdateStatus.WithContext(ctx).Bind(status, time.Now().UTC(), userID)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to update account status",
			zap.String("user_id", userID),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to update account status: %w", err)
	}

	util.Info("Account status updated",
		zap.String("user_id", userID),
		zap.String("status", status))
	return nil
}

func (r *userRepository) UpdateLockout(ctx context.Context, userID string, failedCount int, lockoutTime *time.Time, status string) error {
	query := r.client.Prepared.UpdateLockout.WithContext(ctx).
		Bind(failedCount, lockoutTime, status, time.Now().UTC(), userID)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to update lockout state",
			zap.String("user_id", userID),
			zap.Int("failed_count", failedCount),
			zap.Error(err))
		return fmt.Errorf("failed to update lockout state: %w", err)
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	query := r.client.Prepared.UpdateLastLogin.WithContext(ctx).Bind(at, userID)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePhotoURL(ctx context.Context, userID, url string) error {
	query := r.client.Prepared.UpdatePhotoURL.WithContext(ctx).Bind(url, time.Now().UTC(), userID)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to update profile photo URL",
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to update profile photo URL: %w", err)
	}
	return nil
}

// IncrementFollowerCount reads the current count and writes count+1. The
// read and write are separate statements, so concurrent increments can
// observe the same stale count.
func (r *userRepository) IncrementFollowerCount(ctx context.Context, userID string) error {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	query := r.client.Prepared.UpdateFollowers.WithContext(ctx).
		Bind(user.FollowerCount+1, time.Now().UTC(), userID)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to increment follower count",
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to increment follower count: %w", err)
	}

	util.Debug("Follower count incremented",
		zap.String("user_id", userID),
		zap.Int("follower_count", user.FollowerCount+1))
	return nil
}

func (r *userRepository) IncrementFollowingCount(ctx context.Context, userID string) error {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	query := r.client.Prepared.UpdateFollowing.WithContext(ctx).
		Bind(user.FollowingCount+1, time.Now().UTC(), userID)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		return fmt.Errorf("failed to increment following count: %w", err)
	}
	return nil
}

func (r *userRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}

func scanUser(client *ScyllaClient, query *gocql.Query) (*models.User, error) {
	user := &models.User{}
	var lockoutTime, updatedAt, lastLogin time.Time

	err := client.ScanWithRetry(query,
		&user.UserID, &user.BucketID, &user.PhoneHash, &user.PhoneEncrypted, &user.PhoneKeyID,
		&user.FirstName, &user.LastName, &user.Username, &user.Gender, &user.DOB, &user.Bio, &user.Email,
		&user.ProfilePictureURL, &user.AccountStatus, &user.UserType, &user.Rank,
		&user.FollowerCount, &user.FollowingCount, &user.FailedLoginCount, &lockoutTime,
		&user.CreatedAt, &updatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}

	// Scylla yields zero timestamps for null columns
	if !lockoutTime.IsZero() {
		user.LockoutTime = &lockoutTime
	}
	if !updatedAt.IsZero() {
		user.UpdatedAt = &updatedAt
	}
	if !lastLogin.IsZero() {
		user.LastLogin = &lastLogin
	}

	return user, nil
}
