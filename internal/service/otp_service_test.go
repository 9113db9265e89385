package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/auth"
	"user-service/internal/bucketing"
	"user-service/internal/encryption"
	"user-service/internal/hashing"
	"user-service/internal/models"
	"user-service/internal/policy"
)

const (
	testPhone      = "+919876543210"
	testOtherPhone = "+919876500001"
)

type otpTestEnv struct {
	svc      *OTPService
	users    *fakeUserRepo
	settings *fakeSettingsRepo
	log      *fakeRequestLog
	otps     *fakeOTPStore
	sessions *fakeSessionStore
	hasher   *hashing.Hasher
	now      time.Time
}

func newOTPTestEnv(t *testing.T) *otpTestEnv {
	t.Helper()

	cfg := newTestConfig()
	env := &otpTestEnv{
		users:    newFakeUserRepo(),
		settings: newFakeSettingsRepo(),
		log:      newFakeRequestLog(),
		otps:     newFakeOTPStore(),
		sessions: newFakeSessionStore(),
		hasher:   hashing.NewHasher(cfg),
		now:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	env.svc = NewOTPService(
		env.users,
		env.settings,
		env.log,
		env.otps,
		env.sessions,
		env.hasher,
		encryption.NewEncryptionManager(cfg, nil),
		bucketing.NewBucketingManager(cfg),
		auth.NewTokenManager(cfg),
		nil, // events
		nil, // audit
		nil, // search projection
		cfg,
	)
	env.svc.now = func() time.Time { return env.now }

	return env
}

func (e *otpTestEnv) activeSettings(unit string, count, max int) {
	e.settings.rows["cfg"] = &models.OTPSettings{
		ID:             "cfg",
		TimeUnit:       unit,
		TimeUnitsCount: count,
		MaxOTPAttempts: max,
		CriteriaStatus: models.SettingsStatusActive,
		LastUpdated:    e.now,
	}
}

func (e *otpTestEnv) seedUser(phone string, failedCount int, lockedUntil *time.Time) *models.User {
	user := &models.User{
		UserID:           uuid.New().String(),
		PhoneHash:        HashPhone(phone),
		AccountStatus:    models.AccountStatusActive,
		UserType:         models.UserTypeIndividual,
		FailedLoginCount: failedCount,
		LockoutTime:      lockedUntil,
		CreatedAt:        e.now.Add(-24 * time.Hour),
	}
	e.users.add(user)
	return user
}

// seedOTP stores a hashed code as if SendOTP had issued it.
func (e *otpTestEnv) seedOTP(t *testing.T, phone, code string) {
	t.Helper()
	hashResult, err := e.hasher.HashOTP(code)
	require.NoError(t, err)
	raw, err := json.Marshal(hashResult)
	require.NoError(t, err)
	e.otps.values[HashPhone(phone)] = string(raw)
}

func TestSendOTP(t *testing.T) {
	env := newOTPTestEnv(t)
	env.activeSettings(models.TimeUnitMinutes, 30, 5)

	result, err := env.svc.SendOTP(context.Background(), testPhone)
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(5*time.Minute), result.ExpiresAt)

	phoneHash := HashPhone(testPhone)
	assert.Len(t, env.log.entries[phoneHash], 1)
	assert.NotEmpty(t, env.otps.values[phoneHash])
}

func TestSendOTPInvalidPhone(t *testing.T) {
	env := newOTPTestEnv(t)
	env.activeSettings(models.TimeUnitMinutes, 30, 5)

	_, err := env.svc.SendOTP(context.Background(), "not-a-phone")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, env.log.entries)
}

func TestSendOTPLimitExceeded(t *testing.T) {
	env := newOTPTestEnv(t)
	env.activeSettings(models.TimeUnitHours, 1, 2)

	for i := 0; i < 2; i++ {
		_, err := env.svc.SendOTP(context.Background(), testPhone)
		require.NoError(t, err)
	}

	_, err := env.svc.SendOTP(context.Background(), testPhone)
	assert.ErrorIs(t, err, policy.ErrLimitExceeded)
	assert.Len(t, env.log.entries[HashPhone(testPhone)], 2)
}

func TestSendOTPLimitIsPerPhone(t *testing.T) {
	env := newOTPTestEnv(t)
	env.activeSettings(models.TimeUnitHours, 1, 1)

	_, err := env.svc.SendOTP(context.Background(), testPhone)
	require.NoError(t, err)
	_, err = env.svc.SendOTP(context.Background(), testPhone)
	require.ErrorIs(t, err, policy.ErrLimitExceeded)

	_, err = env.svc.SendOTP(context.Background(), testOtherPhone)
	assert.NoError(t, err)
}

func TestSendOTPOldRequestsOutsideWindow(t *testing.T) {
	env := newOTPTestEnv(t)
	env.activeSettings(models.TimeUnitMinutes, 10, 1)

	phoneHash := HashPhone(testPhone)
	env.log.entries[phoneHash] = []time.Time{env.now.Add(-11 * time.Minute)}

	_, err := env.svc.SendOTP(context.Background(), testPhone)
	assert.NoError(t, err)
}

func TestSendOTPConfigMissing(t *testing.T) {
	env := newOTPTestEnv(t)

	_, err := env.svc.SendOTP(context.Background(), testPhone)
	assert.ErrorIs(t, err, policy.ErrConfigMissing)
}

func TestSendOTPInvalidConfigUnit(t *testing.T) {
	env := newOTPTestEnv(t)
	env.activeSettings("fortnights", 1, 5)

	_, err := env.svc.SendOTP(context.Background(), testPhone)
	assert.ErrorIs(t, err, policy.ErrInvalidConfig)
	assert.Empty(t, env.log.entries)
}

func TestSendOTPLockedAccount(t *testing.T) {
	env := newOTPTestEnv(t)
	env.activeSettings(models.TimeUnitHours, 1, 5)
	lockedUntil := env.now.Add(30 * time.Minute)
	env.seedUser(testPhone, 0, &lockedUntil)

	_, err := env.svc.SendOTP(context.Background(), testPhone)
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestVerifyOTPRegistersNewUser(t *testing.T) {
	env := newOTPTestEnv(t)
	env.seedOTP(t, testPhone, "123456")

	result, err := env.svc.VerifyOTP(context.Background(), testPhone, "123456")
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, models.AccountStatusActive, result.User.AccountStatus)
	assert.Equal(t, models.UserTypeIndividual, result.User.UserType)
	assert.Equal(t, HashPhone(testPhone), result.User.PhoneHash)
	assert.NotEmpty(t, result.User.PhoneEncrypted)

	// OTP is single use.
	assert.Empty(t, env.otps.values)
	// Session recorded for the new user.
	assert.NotEmpty(t, env.sessions.active[result.User.UserID])
}

func TestVerifyOTPExistingUserResetsLockout(t *testing.T) {
	env := newOTPTestEnv(t)
	user := env.seedUser(testPhone, 2, nil)
	env.seedOTP(t, testPhone, "654321")

	result, err := env.svc.VerifyOTP(context.Background(), testPhone, "654321")
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, user.UserID, result.User.UserID)
	assert.Equal(t, 0, result.User.FailedLoginCount)
	assert.Nil(t, result.User.LockoutTime)

	require.Len(t, env.users.lockoutCalls, 1)
	assert.Equal(t, 0, env.users.lockoutCalls[0].failedCount)
	assert.Nil(t, env.users.lockoutCalls[0].lockoutTime)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	env := newOTPTestEnv(t)
	env.seedUser(testPhone, 0, nil)
	env.seedOTP(t, testPhone, "111111")

	_, err := env.svc.VerifyOTP(context.Background(), testPhone, "222222")
	assert.ErrorIs(t, err, ErrOTPInvalid)

	require.Len(t, env.users.lockoutCalls, 1)
	assert.Equal(t, 1, env.users.lockoutCalls[0].failedCount)
	assert.Nil(t, env.users.lockoutCalls[0].lockoutTime)
}

func TestVerifyOTPThirdFailureLocks(t *testing.T) {
	env := newOTPTestEnv(t)
	env.seedUser(testPhone, 2, nil)
	env.seedOTP(t, testPhone, "111111")

	_, err := env.svc.VerifyOTP(context.Background(), testPhone, "222222")
	assert.ErrorIs(t, err, ErrAccountJustLocked)

	require.Len(t, env.users.lockoutCalls, 1)
	call := env.users.lockoutCalls[0]
	assert.Equal(t, 0, call.failedCount)
	require.NotNil(t, call.lockoutTime)
	assert.Equal(t, env.now.Add(policy.LockoutDuration), *call.lockoutTime)
}

func TestVerifyOTPWhileLocked(t *testing.T) {
	env := newOTPTestEnv(t)
	lockedUntil := env.now.Add(59 * time.Minute)
	env.seedUser(testPhone, 0, &lockedUntil)
	env.seedOTP(t, testPhone, "111111")

	_, err := env.svc.VerifyOTP(context.Background(), testPhone, "111111")
	assert.ErrorIs(t, err, ErrAccountLocked)
	// The gate rejects before any comparison; the stored OTP survives.
	assert.NotEmpty(t, env.otps.values)
}

func TestVerifyOTPAfterLockoutExpires(t *testing.T) {
	env := newOTPTestEnv(t)
	lockedUntil := env.now.Add(-time.Minute)
	env.seedUser(testPhone, 0, &lockedUntil)
	env.seedOTP(t, testPhone, "111111")

	result, err := env.svc.VerifyOTP(context.Background(), testPhone, "111111")
	require.NoError(t, err)
	assert.Nil(t, result.User.LockoutTime)
}

func TestVerifyOTPExpiredCountsAsFailure(t *testing.T) {
	env := newOTPTestEnv(t)
	env.seedUser(testPhone, 0, nil)

	_, err := env.svc.VerifyOTP(context.Background(), testPhone, "123456")
	assert.ErrorIs(t, err, ErrOTPInvalid)
	require.Len(t, env.users.lockoutCalls, 1)
	assert.Equal(t, 1, env.users.lockoutCalls[0].failedCount)
}

func TestVerifyOTPUnknownPhoneNoOTP(t *testing.T) {
	env := newOTPTestEnv(t)

	_, err := env.svc.VerifyOTP(context.Background(), testPhone, "123456")
	assert.ErrorIs(t, err, ErrOTPInvalid)
	assert.Empty(t, env.users.lockoutCalls)
}

func TestVerifyOTPBadShape(t *testing.T) {
	env := newOTPTestEnv(t)

	_, err := env.svc.VerifyOTP(context.Background(), testPhone, "123")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.VerifyOTP(context.Background(), testPhone, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
