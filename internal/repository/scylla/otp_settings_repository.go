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

type otpSettingsRepository struct {
	client *ScyllaClient
}

func NewOTPSettingsRepository(client *ScyllaClient, logger *zap.Logger) OTPSettingsRepository {
	return &otpSettingsRepository{client: client}
}

// GetActive returns the single active settings row. The table holds a
// handful of rows at most, so the filtered scan is cheap.
func (r *otpSettingsRepository) GetActive(ctx context.Context) (*models.OTPSettings, error) {
	settings := &models.OTPSettings{}
	query := r.client.Query(`
        SELECT id, time_unit, time_units_count, max_otp_attempts, criteria_status, last_updated
        FROM otp_settings WHERE criteria_status = ? ALLOW FILTERING`,
		models.SettingsStatusActive).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&settings.ID, &settings.TimeUnit, &settings.TimeUnitsCount,
		&settings.MaxOTPAttempts, &settings.CriteriaStatus, &settings.LastUpdated)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("active otp settings: %w", ErrNotFound)
		}
		util.Error("Failed to get active otp settings", zap.Error(err))
		return nil, fmt.Errorf("failed to get active otp settings: %w", err)
	}

	return settings, nil
}

func (r *otpSettingsRepository) GetByID(ctx context.Context, id string) (*models.OTPSettings, error) {
	settings := &models.OTPSettings{}
	query := r.client.Prepared.GetSettingsByID.WithContext(ctx).Bind(id)

	err := r.client.ScanWithRetry(query,
		&settings.ID, &settings.TimeUnit, &settings.TimeUnitsCount,
		&settings.MaxOTPAttempts, &settings.CriteriaStatus, &settings.LastUpdated)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("otp settings %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get otp settings: %w", err)
	}

	return settings, nil
}

func (r *otpSettingsRepository) Insert(ctx context.Context, settings *models.OTPSettings) error {
	settings.LastUpdated = time.Now().UTC()
	query := r.client.Prepared.InsertSettings.WithContext(ctx).Bind(
		settings.ID, settings.TimeUnit, settings.TimeUnitsCount,
		settings.MaxOTPAttempts, settings.CriteriaStatus, settings.LastUpdated)

	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to insert otp settings",
			zap.String("id", settings.ID),
			zap.Error(err))
		return fmt.Errorf("failed to insert otp settings: %w", err)
	}

	util.Info("OTP settings inserted",
		zap.String("id", settings.ID),
		zap.String("time_unit", settings.TimeUnit),
		zap.Int("time_units_count", settings.TimeUnitsCount),
		zap.Int("max_otp_attempts", settings.MaxOTPAttempts))
	return nil
}

// Update targets an existing row id; a missing row is an error, not an
// upsert.
func (r *otpSettingsRepository) Update(ctx context.Context, settings *models.OTPSettings) error {
	if _, err := r.GetByID(ctx, settings.ID); err != nil {
		return err
	}

	settings.LastUpdated = time.Now().UTC()
	query := r.client.Prepared.UpdateSettings.WithContext(ctx).Bind(
		settings.TimeUnit, settings.TimeUnitsCount, settings.MaxOTPAttempts,
		settings.LastUpdated, settings.ID)

	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to update otp settings",
			zap.String("id", settings.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update otp settings: %w", err)
	}

	util.Info("OTP settings updated", zap.String("id", settings.ID))
	return nil
}

// DeleteInactive refuses to remove the active row.
func (r *otpSettingsRepository) DeleteInactive(ctx context.Context, id string) error {
	settings, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if settings.CriteriaStatus == models.SettingsStatusActive {
		return fmt.Errorf("otp settings %s is active and cannot be deleted", id)
	}

	query := r.client.Prepared.DeleteSettings.WithContext(ctx).Bind(id)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to delete otp settings",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete otp settings: %w", err)
	}

	util.Info("OTP settings deleted", zap.String("id", id))
	return nil
}
