package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"user-service/internal/config"
	"user-service/internal/models"
	"user-service/internal/repository/redis"
	"user-service/internal/repository/scylla"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Hashing: config.HashingConfig{
			Argon2MemoryCost:   8 * 1024,
			Argon2TimeCost:     1,
			Argon2Parallelism:  1,
			PepperRotationDays: 30,
		},
		Bucketing: config.BucketingConfig{UserBuckets: 16, EventBuckets: 8},
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			AccessTokenTTL: time.Hour,
			SessionTTL:     time.Hour,
		},
		OTP: config.OTPConfig{Expiry: 5 * time.Minute},
	}
}

type lockoutCall struct {
	userID      string
	failedCount int
	lockoutTime *time.Time
	status      string
}

type fakeUserRepo struct {
	users        map[string]*models.User
	byPhone      map[string]string
	lockoutCalls []lockoutCall
	fieldUpdates []map[string]interface{}
	photoURLs    map[string]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     make(map[string]*models.User),
		byPhone:   make(map[string]string),
		photoURLs: make(map[string]string),
	}
}

func (f *fakeUserRepo) add(user *models.User) {
	f.users[user.UserID] = user
	if user.PhoneHash != "" {
		f.byPhone[user.PhoneHash] = user.UserID
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, scylla.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByPhoneHash(ctx context.Context, phoneHash string) (*models.User, error) {
	userID, ok := f.byPhone[phoneHash]
	if !ok {
		return nil, fmt.Errorf("phone: %w", scylla.ErrNotFound)
	}
	return f.GetByID(ctx, userID)
}

func (f *fakeUserRepo) GetActiveByPhoneHash(ctx context.Context, phoneHash string, now time.Time) (*models.User, error) {
	user, err := f.GetByPhoneHash(ctx, phoneHash)
	if err != nil {
		return nil, err
	}
	if user.LockoutTime != nil && now.Before(*user.LockoutTime) {
		return nil, fmt.Errorf("%w until %s", scylla.ErrLocked, user.LockoutTime.Format(time.RFC3339))
	}
	return user, nil
}

func (f *fakeUserRepo) UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	user, ok := f.users[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	f.fieldUpdates = append(f.fieldUpdates, fields)
	for column, value := range fields {
		switch column {
		case "first_name":
			user.FirstName = value.(string)
		case "last_name":
			user.LastName = value.(string)
		case "username":
			user.Username = value.(string)
		case "bio":
			user.Bio = value.(string)
		case "email":
			user.Email = value.(string)
		case "gender":
			user.Gender = value.(string)
		case "dob":
			user.DOB = value.(string)
		case "user_type":
			user.UserType = value.(string)
		case "account_status":
			user.AccountStatus = value.(string)
		case "rank":
			user.Rank = value.(int)
		}
	}
	return nil
}

func (f *fakeUserRepo) UpdateStatus(ctx context.Context, userID, status string) error {
	user, ok := f.users[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	user.AccountStatus = status
	return nil
}

func (f *fakeUserRepo) UpdateLockout(ctx context.Context, userID string, failedCount int, lockoutTime *time.Time, status string) error {
	user, ok := f.users[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	f.lockoutCalls = append(f.lockoutCalls, lockoutCall{userID, failedCount, lockoutTime, status})
	user.FailedLoginCount = failedCount
	user.LockoutTime = lockoutTime
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	user, ok := f.users[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	user.LastLogin = &at
	return nil
}

func (f *fakeUserRepo) UpdatePhotoURL(ctx context.Context, userID, url string) error {
	user, ok := f.users[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	user.ProfilePictureURL = url
	f.photoURLs[userID] = url
	return nil
}

func (f *fakeUserRepo) IncrementFollowerCount(ctx context.Context, userID string) error {
	user, ok := f.users[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	user.FollowerCount++
	return nil
}

func (f *fakeUserRepo) IncrementFollowingCount(ctx context.Context, userID string) error {
	user, ok := f.users[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	user.FollowingCount++
	return nil
}

func (f *fakeUserRepo) HealthCheck(ctx context.Context) error { return nil }

type fakeFollowerRepo struct {
	edges map[string][]*models.FollowerEdge
}

func newFakeFollowerRepo() *fakeFollowerRepo {
	return &fakeFollowerRepo{edges: make(map[string][]*models.FollowerEdge)}
}

func (f *fakeFollowerRepo) Exists(ctx context.Context, userID, followerID string) (bool, error) {
	for _, edge := range f.edges[userID] {
		if edge.FollowerID == followerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFollowerRepo) Add(ctx context.Context, userID, followerID string, at time.Time) error {
	f.edges[userID] = append(f.edges[userID], &models.FollowerEdge{
		UserID:     userID,
		FollowerID: followerID,
		CreatedAt:  at,
	})
	return nil
}

func (f *fakeFollowerRepo) ListPage(ctx context.Context, userID string, offset, size int) ([]*models.FollowerEdge, error) {
	edges := make([]*models.FollowerEdge, len(f.edges[userID]))
	copy(edges, f.edges[userID])
	sort.Slice(edges, func(i, j int) bool { return edges[i].CreatedAt.After(edges[j].CreatedAt) })

	if offset >= len(edges) {
		return []*models.FollowerEdge{}, nil
	}
	end := offset + size
	if end > len(edges) {
		end = len(edges)
	}
	return edges[offset:end], nil
}

type fakeSettingsRepo struct {
	rows map[string]*models.OTPSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{rows: make(map[string]*models.OTPSettings)}
}

func (f *fakeSettingsRepo) GetActive(ctx context.Context) (*models.OTPSettings, error) {
	for _, row := range f.rows {
		if row.CriteriaStatus == models.SettingsStatusActive {
			copied := *row
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("active settings: %w", scylla.ErrNotFound)
}

func (f *fakeSettingsRepo) GetByID(ctx context.Context, id string) (*models.OTPSettings, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("settings %s: %w", id, scylla.ErrNotFound)
	}
	copied := *row
	return &copied, nil
}

func (f *fakeSettingsRepo) Insert(ctx context.Context, settings *models.OTPSettings) error {
	copied := *settings
	f.rows[settings.ID] = &copied
	return nil
}

func (f *fakeSettingsRepo) Update(ctx context.Context, settings *models.OTPSettings) error {
	if _, ok := f.rows[settings.ID]; !ok {
		return fmt.Errorf("settings %s: %w", settings.ID, scylla.ErrNotFound)
	}
	copied := *settings
	f.rows[settings.ID] = &copied
	return nil
}

func (f *fakeSettingsRepo) DeleteInactive(ctx context.Context, id string) error {
	row, ok := f.rows[id]
	if !ok {
		return scylla.ErrNotFound
	}
	if row.CriteriaStatus == models.SettingsStatusActive {
		return errors.New("settings row is active")
	}
	delete(f.rows, id)
	return nil
}

type fakeRequestLog struct {
	entries map[string][]time.Time
}

func newFakeRequestLog() *fakeRequestLog {
	return &fakeRequestLog{entries: make(map[string][]time.Time)}
}

func (f *fakeRequestLog) Append(ctx context.Context, phoneHash string, at time.Time) error {
	f.entries[phoneHash] = append(f.entries[phoneHash], at)
	return nil
}

func (f *fakeRequestLog) CountWindow(ctx context.Context, phoneHash string, start, end time.Time) (int, error) {
	count := 0
	for _, at := range f.entries[phoneHash] {
		if !at.Before(start) && !at.After(end) {
			count++
		}
	}
	return count, nil
}

type fakeOTPStore struct {
	values map[string]string
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{values: make(map[string]string)}
}

func (f *fakeOTPStore) SetOTP(ctx context.Context, phoneHash, hashedOTP string, ttl time.Duration) error {
	f.values[phoneHash] = hashedOTP
	return nil
}

func (f *fakeOTPStore) GetOTP(ctx context.Context, phoneHash string) (string, error) {
	value, ok := f.values[phoneHash]
	if !ok {
		return "", redis.ErrOTPNotFound
	}
	return value, nil
}

func (f *fakeOTPStore) DeleteOTP(ctx context.Context, phoneHash string) error {
	delete(f.values, phoneHash)
	return nil
}

type fakeSessionStore struct {
	active   map[string]string
	allByUID map[string][]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		active:   make(map[string]string),
		allByUID: make(map[string][]string),
	}
}

func (f *fakeSessionStore) SetActiveSession(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	f.active[userID] = sessionID
	f.allByUID[userID] = append(f.allByUID[userID], sessionID)
	return nil
}

func (f *fakeSessionStore) InvalidateSession(ctx context.Context, userID string) error {
	if _, ok := f.active[userID]; !ok {
		return redis.ErrNoActiveSession
	}
	delete(f.active, userID)
	return nil
}

func (f *fakeSessionStore) InvalidateAllSessions(ctx context.Context, userID string) error {
	if len(f.allByUID[userID]) == 0 {
		return redis.ErrNoActiveSession
	}
	delete(f.active, userID)
	delete(f.allByUID, userID)
	return nil
}

type fakeUploader struct {
	calls int
	urls  map[string]string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{urls: make(map[string]string)}
}

func (f *fakeUploader) UploadImage(ctx context.Context, file io.Reader, publicID string) (string, error) {
	f.calls++
	url := "https://media.example.com/photos/" + publicID + ".jpg"
	f.urls[publicID] = url
	return url, nil
}
