package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"user-service/internal/bucketing"
	"user-service/internal/events"
	"user-service/internal/models"
	"user-service/internal/repository/scylla"
	"user-service/internal/util"
	"user-service/internal/validation"
)

// Pagination defaults for follower listings.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ProfileUpdateRequest carries the updatable profile fields. Nil fields
// are left untouched.
type ProfileUpdateRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Username  *string `json:"username,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	DOB       *string `json:"dob,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Email     *string `json:"email,omitempty"`

	// Admin-only fields.
	UserType      *string `json:"user_type,omitempty"`
	AccountStatus *string `json:"account_status,omitempty"`
	Rank          *int    `json:"rank,omitempty"`
}

// Actor identifies who is performing a request, as extracted from the
// verified access token.
type Actor struct {
	UserID   string
	UserType string
}

func (a Actor) isAdmin() bool {
	return a.UserType == models.UserTypeAdmin
}

// FollowerPage is one page of a user's followers.
type FollowerPage struct {
	Followers []*models.FollowerEdge `json:"followers"`
	Page      int                    `json:"page"`
	Size      int                    `json:"size"`
}

// UserService handles profile reads, updates, the follower graph, and
// profile photos.
type UserService struct {
	userRepo     scylla.UserRepository
	followerRepo scylla.FollowerRepository
	bucketing    *bucketing.BucketingManager
	publisher    eventPublisher
	audit        auditRecorder
	profiles     profileIndexer
	photos       photoUploader
	now          func() time.Time
}

func NewUserService(
	userRepo scylla.UserRepository,
	followerRepo scylla.FollowerRepository,
	bucketingMgr *bucketing.BucketingManager,
	publisher eventPublisher,
	audit auditRecorder,
	profiles profileIndexer,
	photos photoUploader,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		followerRepo: followerRepo,
		bucketing:    bucketingMgr,
		publisher:    publisher,
		audit:        audit,
		profiles:     profiles,
		photos:       photos,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetProfile fetches one user by ID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial update. Users may edit their own
// profile; only admins may edit other users or touch the restricted
// fields user_type, account_status, and rank.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, userID string, req *ProfileUpdateRequest) (*models.User, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if actor.UserID != userID && !actor.isAdmin() {
		return nil, ErrPermissionDenied
	}

	fields := make(map[string]interface{})
	setString := func(column string, value *string) {
		if value != nil {
			fields[column] = util.SanitizeInput(*value)
		}
	}
	setString("first_name", req.FirstName)
	setString("last_name", req.LastName)
	setString("username", req.Username)
	setString("gender", req.Gender)
	setString("dob", req.DOB)
	setString("bio", req.Bio)
	setString("email", req.Email)

	if req.UserType != nil || req.AccountStatus != nil || req.Rank != nil {
		if !actor.isAdmin() {
			return nil, fmt.Errorf("%w: restricted field", ErrPermissionDenied)
		}
		if req.UserType != nil {
			if *req.UserType != models.UserTypeAdmin && *req.UserType != models.UserTypeIndividual {
				return nil, fmt.Errorf("%w: unknown user_type", ErrInvalidInput)
			}
			fields["user_type"] = *req.UserType
		}
		if req.AccountStatus != nil {
			if err := validation.ValidateAccountStatus(*req.AccountStatus); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			fields["account_status"] = *req.AccountStatus
		}
		if req.Rank != nil {
			fields["rank"] = *req.Rank
		}
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields", ErrInvalidInput)
	}

	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile: %w", err)
	}

	s.indexProfile(ctx, user)

	util.Info("Profile updated",
		zap.String("user_id", userID),
		zap.Int("field_count", len(fields)))

	return user, nil
}

// SetAccountStatus activates or suspends an account. Admin only.
func (s *UserService) SetAccountStatus(ctx context.Context, actor Actor, userID, status string) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateAccountStatus(status); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !actor.isAdmin() {
		return ErrPermissionDenied
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}

	s.recordEvent(ctx, models.EventStatusChanged, userID, user.PhoneHash,
		"status="+status)
	s.publish(ctx, events.TopicStatusChanged, userID, map[string]string{
		"user_id": userID,
		"status":  status,
	})

	util.Info("Account status changed",
		zap.String("user_id", userID),
		zap.String("status", status))
	return nil
}

// AddFollower records that followerID follows userID. The edge insert and
// the two counter updates are separate writes; counters can lag the edge
// briefly after a crash.
func (s *UserService) AddFollower(ctx context.Context, userID, followerID string) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateUserID(followerID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if userID == followerID {
		return fmt.Errorf("%w: cannot follow yourself", ErrInvalidInput)
	}

	if _, err := s.GetProfile(ctx, userID); err != nil {
		return err
	}
	if _, err := s.GetProfile(ctx, followerID); err != nil {
		return err
	}

	exists, err := s.followerRepo.Exists(ctx, userID, followerID)
	if err != nil {
		return fmt.Errorf("failed to check follow edge: %w", err)
	}
	if exists {
		return ErrAlreadyFollowing
	}

	now := s.now()
	if err := s.followerRepo.Add(ctx, userID, followerID, now); err != nil {
		return fmt.Errorf("failed to add follower: %w", err)
	}
	if err := s.userRepo.IncrementFollowerCount(ctx, userID); err != nil {
		util.Warn("Failed to bump follower count", zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, followerID); err != nil {
		util.Warn("Failed to bump following count", zap.String("user_id", followerID), zap.Error(err))
	}

	s.publish(ctx, events.TopicFollowerAdded, userID, map[string]string{
		"user_id":     userID,
		"follower_id": followerID,
	})

	util.Info("Follower added",
		zap.String("user_id", userID),
		zap.String("follower_id", followerID))
	return nil
}

// ListFollowers returns one page of followers, newest first. Pages past
// the end are empty, not errors.
func (s *UserService) ListFollowers(ctx context.Context, userID string, page, size int) (*FollowerPage, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if page <= 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}

	offset := (page - 1) * size
	edges, err := s.followerRepo.ListPage(ctx, userID, offset, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}

	return &FollowerPage{Followers: edges, Page: page, Size: size}, nil
}

// UploadProfilePhoto stores a JPEG or PNG photo keyed by its content hash
// and records the served URL on the profile. Re-uploading identical bytes
// is a no-op beyond the URL write.
func (s *UserService) UploadProfilePhoto(ctx context.Context, actor Actor, userID, contentType string, file io.Reader) (string, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if actor.UserID != userID && !actor.isAdmin() {
		return "", ErrPermissionDenied
	}
	switch contentType {
	case "image/jpeg", "image/png":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}
	if s.photos == nil {
		return "", errors.New("photo storage is not configured")
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	if user.ProfilePictureURL != "" && strings.Contains(user.ProfilePictureURL, contentHash) {
		return user.ProfilePictureURL, nil
	}

	url, err := s.photos.UploadImage(ctx, bytes.NewReader(data), contentHash)
	if err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}

	if err := s.userRepo.UpdatePhotoURL(ctx, userID, url); err != nil {
		return "", fmt.Errorf("failed to save photo url: %w", err)
	}

	user.ProfilePictureURL = url
	s.indexProfile(ctx, user)

	util.Info("Profile photo updated",
		zap.String("user_id", userID),
		zap.String("content_hash", contentHash))
	return url, nil
}

// SearchProfiles queries the search projection.
func (s *UserService) SearchProfiles(ctx context.Context, term string, size int) ([]models.ProfileDocument, error) {
	term = util.SanitizeInput(term)
	if term == "" {
		return nil, fmt.Errorf("%w: empty search term", ErrInvalidInput)
	}
	if s.profiles == nil {
		return []models.ProfileDocument{}, nil
	}
	return s.profiles.Search(ctx, term, size)
}

// HealthCheck verifies the primary store is reachable.
func (s *UserService) HealthCheck(ctx context.Context) error {
	if err := s.userRepo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("user repository health check failed: %w", err)
	}
	return nil
}

func (s *UserService) recordEvent(ctx context.Context, eventType, userID, phoneHash, details string) {
	if s.audit == nil {
		return
	}
	event := &models.SecurityEvent{
		EventBucket: s.bucketing.GetEventBucket(userID),
		UserID:      userID,
		EventType:   eventType,
		PhoneHash:   phoneHash,
		Details:     details,
	}
	if err := s.audit.Record(ctx, event); err != nil {
		util.Warn("Audit write failed", zap.String("event_type", eventType), zap.Error(err))
	}
}

func (s *UserService) publish(ctx context.Context, topic, key string, attributes map[string]string) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, topic, key, attributes)
}

func (s *UserService) indexProfile(ctx context.Context, user *models.User) {
	if s.profiles == nil {
		return
	}
	if err := s.profiles.IndexProfile(ctx, user); err != nil {
		util.Warn("Profile indexing failed", zap.String("user_id", user.UserID), zap.Error(err))
	}
}
