package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"user-service/internal/models"
	"user-service/internal/repository/scylla"
	"user-service/internal/util"
	"user-service/internal/validation"
)

// SettingsService manages the configurable OTP rate-limit policy rows.
// At most one row is active; the active row drives the limiter.
type SettingsService struct {
	repo scylla.OTPSettingsRepository
	now  func() time.Time
}

func NewSettingsService(repo scylla.OTPSettingsRepository) *SettingsService {
	return &SettingsService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// GetActive returns the row currently driving the limiter.
func (s *SettingsService) GetActive(ctx context.Context) (*models.OTPSettings, error) {
	settings, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to load otp settings: %w", err)
	}
	return settings, nil
}

// Get returns one settings row by ID.
func (s *SettingsService) Get(ctx context.Context, id string) (*models.OTPSettings, error) {
	if err := validation.ValidateUserID(id); err != nil {
		return nil, fmt.Errorf("%w: malformed settings id", ErrInvalidInput)
	}
	settings, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to load otp settings: %w", err)
	}
	return settings, nil
}

// Create inserts a new settings row. The first row ever created becomes
// active; later rows start inactive and must be promoted via Update.
func (s *SettingsService) Create(ctx context.Context, admin Actor, unit, countStr, maxStr string) (*models.OTPSettings, error) {
	if !admin.isAdmin() {
		return nil, ErrPermissionDenied
	}

	timeUnit, count, max, err := validation.ParseSettingsParams(unit, countStr, maxStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	status := models.SettingsStatusInactive
	if _, err := s.repo.GetActive(ctx); errors.Is(err, scylla.ErrNotFound) {
		status = models.SettingsStatusActive
	} else if err != nil {
		return nil, fmt.Errorf("failed to check active otp settings: %w", err)
	}

	settings := &models.OTPSettings{
		ID:             uuid.New().String(),
		TimeUnit:       timeUnit,
		TimeUnitsCount: count,
		MaxOTPAttempts: max,
		CriteriaStatus: status,
		LastUpdated:    s.now(),
	}

	if err := s.repo.Insert(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to create otp settings: %w", err)
	}

	util.Info("OTP settings created",
		zap.String("settings_id", settings.ID),
		zap.String("time_unit", timeUnit),
		zap.Int("time_units_count", count),
		zap.Int("max_otp_attempts", max),
		zap.String("criteria_status", status))

	return settings, nil
}

// Update rewrites an existing settings row. A missing ID is an error,
// never an insert.
func (s *SettingsService) Update(ctx context.Context, admin Actor, id, unit, countStr, maxStr string) (*models.OTPSettings, error) {
	if !admin.isAdmin() {
		return nil, ErrPermissionDenied
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	timeUnit, count, max, err := validation.ParseSettingsParams(unit, countStr, maxStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	existing.TimeUnit = timeUnit
	existing.TimeUnitsCount = count
	existing.MaxOTPAttempts = max
	existing.LastUpdated = s.now()

	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to update otp settings: %w", err)
	}

	util.Info("OTP settings updated",
		zap.String("settings_id", id),
		zap.String("time_unit", timeUnit),
		zap.Int("time_units_count", count),
		zap.Int("max_otp_attempts", max))

	return existing, nil
}

// Delete removes an inactive settings row. The active row cannot be
// deleted; the limiter must never lose its configuration that way.
func (s *SettingsService) Delete(ctx context.Context, admin Actor, id string) error {
	if !admin.isAdmin() {
		return ErrPermissionDenied
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.CriteriaStatus == models.SettingsStatusActive {
		return ErrSettingsActive
	}

	if err := s.repo.DeleteInactive(ctx, id); err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrSettingsNotFound
		}
		return fmt.Errorf("failed to delete otp settings: %w", err)
	}

	util.Info("OTP settings deleted", zap.String("settings_id", id))
	return nil
}
