package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"user-service/internal/auth"
	"user-service/internal/bucketing"
	"user-service/internal/config"
	"user-service/internal/encryption"
	"user-service/internal/events"
	"user-service/internal/hashing"
	"user-service/internal/models"
	"user-service/internal/policy"
	"user-service/internal/repository/redis"
	"user-service/internal/repository/scylla"
	"user-service/internal/util"
	"user-service/internal/validation"
)

// HashPhone derives the storage key for a normalized E.164 phone number.
// The raw number is never persisted or logged.
func HashPhone(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// OTPService issues and verifies one-time passwords. A successful
// verification doubles as registration for unknown phone numbers.
type OTPService struct {
	userRepo     scylla.UserRepository
	settingsRepo scylla.OTPSettingsRepository
	requestLog   scylla.OTPRequestRepository
	otpCache     otpStore
	sessions     sessionStore
	hasher       *hashing.Hasher
	encryption   *encryption.EncryptionManager
	bucketing    *bucketing.BucketingManager
	tokens       *auth.TokenManager
	publisher    eventPublisher
	audit        auditRecorder
	profiles     profileIndexer
	cfg          *config.Config
	now          func() time.Time
}

func NewOTPService(
	userRepo scylla.UserRepository,
	settingsRepo scylla.OTPSettingsRepository,
	requestLog scylla.OTPRequestRepository,
	otpCache otpStore,
	sessions sessionStore,
	hasher *hashing.Hasher,
	encryptionMgr *encryption.EncryptionManager,
	bucketingMgr *bucketing.BucketingManager,
	tokens *auth.TokenManager,
	publisher eventPublisher,
	audit auditRecorder,
	profiles profileIndexer,
	cfg *config.Config,
) *OTPService {
	return &OTPService{
		userRepo:     userRepo,
		settingsRepo: settingsRepo,
		requestLog:   requestLog,
		otpCache:     otpCache,
		sessions:     sessions,
		hasher:       hasher,
		encryption:   encryptionMgr,
		bucketing:    bucketingMgr,
		tokens:       tokens,
		publisher:    publisher,
		audit:        audit,
		profiles:     profiles,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SendResult reports a successful OTP issue.
type SendResult struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyResult reports a successful OTP verification.
type VerifyResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	Created     bool         `json:"created"`
}

// SendOTP validates the phone, applies the configured rolling-window rate
// limit, and stores a hashed OTP for later verification. The window check
// and the send-log append are separate writes; a crash between them loses
// at most one log row.
func (s *OTPService) SendOTP(ctx context.Context, phone string) (*SendResult, error) {
	normalized, err := validation.ValidatePhone(phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	phoneHash := HashPhone(normalized)
	now := s.now()

	user, err := s.lookupActive(ctx, phoneHash, now)
	if err != nil {
		return nil, err
	}

	settings, err := s.settingsRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, policy.ErrConfigMissing
		}
		return nil, fmt.Errorf("failed to load otp settings: %w", err)
	}

	windowStart, err := policy.WindowStart(now, settings.TimeUnit, settings.TimeUnitsCount)
	if err != nil {
		return nil, err
	}

	requestCount, err := s.requestLog.CountWindow(ctx, phoneHash, windowStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count otp requests: %w", err)
	}
	if err := policy.CheckLimit(requestCount, settings.MaxOTPAttempts); err != nil {
		util.Warn("OTP send rate limited",
			zap.String("phone_hash", phoneHash),
			zap.Int("request_count", requestCount),
			zap.Int("limit", settings.MaxOTPAttempts))
		return nil, err
	}

	code, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	hashResult, err := s.hasher.HashOTP(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash otp: %w", err)
	}
	stored, err := json.Marshal(hashResult)
	if err != nil {
		return nil, fmt.Errorf("failed to encode otp hash: %w", err)
	}

	if err := s.otpCache.SetOTP(ctx, phoneHash, string(stored), s.cfg.OTP.Expiry); err != nil {
		return nil, err
	}
	if err := s.requestLog.Append(ctx, phoneHash, now); err != nil {
		return nil, fmt.Errorf("failed to record otp request: %w", err)
	}

	s.recordEvent(ctx, models.EventOTPSent, userIDOf(user), phoneHash, "")
	s.publish(ctx, events.TopicOTPSent, phoneHash, map[string]string{"phone_hash": phoneHash})

	if s.cfg.IsDevelopment() {
		util.Debug("OTP issued", zap.String("phone_hash", phoneHash), zap.String("code", code))
	}

	return &SendResult{ExpiresAt: now.Add(s.cfg.OTP.Expiry)}, nil
}

// VerifyOTP checks the submitted code. On success it logs the user in,
// registering a fresh account first when the phone is unknown. On failure
// it advances the lockout state machine.
func (s *OTPService) VerifyOTP(ctx context.Context, phone, code string) (*VerifyResult, error) {
	normalized, err := validation.ValidatePhone(phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateOTP(code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	phoneHash := HashPhone(normalized)
	now := s.now()

	user, err := s.lookupActive(ctx, phoneHash, now)
	if err != nil {
		return nil, err
	}

	stored, err := s.otpCache.GetOTP(ctx, phoneHash)
	if err != nil {
		if errors.Is(err, redis.ErrOTPNotFound) {
			return nil, s.handleFailedAttempt(ctx, user, phoneHash, now)
		}
		return nil, err
	}

	var hashResult hashing.HashResult
	if err := json.Unmarshal([]byte(stored), &hashResult); err != nil {
		return nil, fmt.Errorf("failed to decode stored otp hash: %w", err)
	}

	ok, err := s.hasher.VerifyOTP(code, &hashResult)
	if err != nil {
		return nil, fmt.Errorf("failed to verify otp: %w", err)
	}
	if !ok {
		return nil, s.handleFailedAttempt(ctx, user, phoneHash, now)
	}

	if err := s.otpCache.DeleteOTP(ctx, phoneHash); err != nil {
		util.Warn("Failed to clear verified OTP", zap.String("phone_hash", phoneHash), zap.Error(err))
	}

	created := false
	if user == nil {
		user, err = s.registerUser(ctx, normalized, phoneHash, now)
		if err != nil {
			return nil, err
		}
		created = true
	} else {
		reset := policy.Apply(lockStateOf(user), policy.EventVerifySucceeded, now)
		if err := s.userRepo.UpdateLockout(ctx, user.UserID, reset.FailedCount, reset.LockedUntil, user.AccountStatus); err != nil {
			return nil, fmt.Errorf("failed to reset lockout state: %w", err)
		}
		if err := s.userRepo.UpdateLastLogin(ctx, user.UserID, now); err != nil {
			util.Warn("Failed to update last login", zap.String("user_id", user.UserID), zap.Error(err))
		}
		user.FailedLoginCount = reset.FailedCount
		user.LockoutTime = reset.LockedUntil
		user.LastLogin = &now
	}

	token, sessionID, err := s.tokens.Mint(user.UserID, user.UserType)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetActiveSession(ctx, user.UserID, sessionID, s.cfg.Auth.SessionTTL); err != nil {
		return nil, err
	}

	util.Info("OTP verified",
		zap.String("user_id", user.UserID),
		zap.Bool("created", created))

	return &VerifyResult{User: user, AccessToken: token, Created: created}, nil
}

// handleFailedAttempt advances the lockout state for a known account and
// reports the failure. Unknown phones only get the invalid-OTP error.
func (s *OTPService) handleFailedAttempt(ctx context.Context, user *models.User, phoneHash string, now time.Time) error {
	if user == nil {
		return ErrOTPInvalid
	}

	next := policy.Apply(lockStateOf(user), policy.EventVerifyFailed, now)
	if err := s.userRepo.UpdateLockout(ctx, user.UserID, next.FailedCount, next.LockedUntil, user.AccountStatus); err != nil {
		return fmt.Errorf("failed to persist lockout state: %w", err)
	}

	s.recordEvent(ctx, models.EventOTPVerifyFail, user.UserID, phoneHash,
		"failed_count="+strconv.Itoa(next.FailedCount))

	if next.LockedUntil != nil {
		s.recordEvent(ctx, models.EventAccountLocked, user.UserID, phoneHash, "")
		s.publish(ctx, events.TopicUserLocked, user.UserID, map[string]string{
			"user_id":      user.UserID,
			"locked_until": next.LockedUntil.Format(time.RFC3339),
		})
		util.Warn("Account locked after repeated OTP failures",
			zap.String("user_id", user.UserID),
			zap.Time("locked_until", *next.LockedUntil))
		return fmt.Errorf("%w until %s", ErrAccountJustLocked, next.LockedUntil.Format(time.RFC3339))
	}

	return ErrOTPInvalid
}

func (s *OTPService) registerUser(ctx context.Context, normalized, phoneHash string, now time.Time) (*models.User, error) {
	userID := uuid.New().String()

	encrypted, err := s.encryption.EncryptField(ctx, normalized, "phone")
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}
	storedPhone, err := encryption.Marshal(encrypted)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		UserID:         userID,
		BucketID:       s.bucketing.GetUserBucket(userID),
		PhoneHash:      phoneHash,
		PhoneEncrypted: []byte(storedPhone),
		PhoneKeyID:     encrypted.KeyID,
		AccountStatus:  models.AccountStatusActive,
		UserType:       models.UserTypeIndividual,
		CreatedAt:      now,
		UpdatedAt:      &now,
		LastLogin:      &now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.recordEvent(ctx, models.EventUserRegistered, userID, phoneHash, "")
	s.publish(ctx, events.TopicUserRegistered, userID, map[string]string{"user_id": userID})
	s.indexProfile(ctx, user)

	util.Info("User registered",
		zap.String("user_id", userID),
		zap.Int("bucket_id", user.BucketID))

	return user, nil
}

// lookupActive resolves the account behind a phone hash. A live lockout
// is a hard gate; an unknown phone resolves to a nil user.
func (s *OTPService) lookupActive(ctx context.Context, phoneHash string, now time.Time) (*models.User, error) {
	user, err := s.userRepo.GetActiveByPhoneHash(ctx, phoneHash, now)
	if err != nil {
		if errors.Is(err, scylla.ErrLocked) {
			return nil, fmt.Errorf("%w: %v", ErrAccountLocked, err)
		}
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	return user, nil
}

// recordEvent writes to the audit trail best effort.
func (s *OTPService) recordEvent(ctx context.Context, eventType, userID, phoneHash, details string) {
	if s.audit == nil {
		return
	}
	event := &models.SecurityEvent{
		EventBucket: s.bucketing.GetEventBucket(phoneHash),
		UserID:      userID,
		EventType:   eventType,
		PhoneHash:   phoneHash,
		Details:     details,
	}
	if err := s.audit.Record(ctx, event); err != nil {
		util.Warn("Audit write failed", zap.String("event_type", eventType), zap.Error(err))
	}
}

func (s *OTPService) publish(ctx context.Context, topic, key string, attributes map[string]string) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, topic, key, attributes)
}

func (s *OTPService) indexProfile(ctx context.Context, user *models.User) {
	if s.profiles == nil {
		return
	}
	if err := s.profiles.IndexProfile(ctx, user); err != nil {
		util.Warn("Profile indexing failed", zap.String("user_id", user.UserID), zap.Error(err))
	}
}

func lockStateOf(user *models.User) policy.LockState {
	return policy.LockState{
		FailedCount: user.FailedLoginCount,
		LockedUntil: user.LockoutTime,
	}
}

func userIDOf(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.UserID
}

func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < validation.OTPLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", validation.OTPLength, n), nil
}
