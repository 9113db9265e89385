package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/models"
)

func TestSettingsCreateDefaults(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewSettingsService(repo)

	settings, err := svc.Create(context.Background(), adminActor(), "", "", "")
	require.NoError(t, err)

	assert.Equal(t, models.TimeUnitDays, settings.TimeUnit)
	assert.Equal(t, 1, settings.TimeUnitsCount)
	assert.Equal(t, 15, settings.MaxOTPAttempts)
	// First row ever becomes the active one.
	assert.Equal(t, models.SettingsStatusActive, settings.CriteriaStatus)
}

func TestSettingsCreateSecondRowInactive(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewSettingsService(repo)

	_, err := svc.Create(context.Background(), adminActor(), "min", "30", "5")
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), adminActor(), "hours", "2", "10")
	require.NoError(t, err)
	assert.Equal(t, models.SettingsStatusInactive, second.CriteriaStatus)
}

func TestSettingsCreateRejectsUnknownUnit(t *testing.T) {
	svc := NewSettingsService(newFakeSettingsRepo())

	for _, unit := range []string{"minutes", "weeks", "seconds"} {
		_, err := svc.Create(context.Background(), adminActor(), unit, "1", "5")
		assert.ErrorIs(t, err, ErrInvalidInput, "unit %q must be rejected", unit)
	}
}

func TestSettingsCreateRejectsBadCounts(t *testing.T) {
	svc := NewSettingsService(newFakeSettingsRepo())

	_, err := svc.Create(context.Background(), adminActor(), "days", "0", "5")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), adminActor(), "days", "1", "-2")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), adminActor(), "days", "abc", "5")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSettingsAdminOnly(t *testing.T) {
	svc := NewSettingsService(newFakeSettingsRepo())
	individual := Actor{UserID: uuid.New().String(), UserType: models.UserTypeIndividual}

	_, err := svc.Create(context.Background(), individual, "days", "1", "5")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.Update(context.Background(), individual, uuid.New().String(), "days", "1", "5")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = svc.Delete(context.Background(), individual, uuid.New().String())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSettingsUpdate(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewSettingsService(repo)

	created, err := svc.Create(context.Background(), adminActor(), "min", "30", "5")
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), adminActor(), created.ID, "hours", "2", "8")
	require.NoError(t, err)
	assert.Equal(t, models.TimeUnitHours, updated.TimeUnit)
	assert.Equal(t, 2, updated.TimeUnitsCount)
	assert.Equal(t, 8, updated.MaxOTPAttempts)
	// Status is untouched by parameter updates.
	assert.Equal(t, created.CriteriaStatus, updated.CriteriaStatus)
}

func TestSettingsUpdateMissingRow(t *testing.T) {
	svc := NewSettingsService(newFakeSettingsRepo())

	_, err := svc.Update(context.Background(), adminActor(), uuid.New().String(), "days", "1", "5")
	assert.ErrorIs(t, err, ErrSettingsNotFound)
}

func TestSettingsDelete(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewSettingsService(repo)

	active, err := svc.Create(context.Background(), adminActor(), "days", "1", "5")
	require.NoError(t, err)
	inactive, err := svc.Create(context.Background(), adminActor(), "hours", "1", "5")
	require.NoError(t, err)

	// The active row is protected.
	err = svc.Delete(context.Background(), adminActor(), active.ID)
	assert.ErrorIs(t, err, ErrSettingsActive)

	require.NoError(t, svc.Delete(context.Background(), adminActor(), inactive.ID))
	_, err = svc.Get(context.Background(), inactive.ID)
	assert.ErrorIs(t, err, ErrSettingsNotFound)
}

func TestSettingsGetActive(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewSettingsService(repo)

	_, err := svc.GetActive(context.Background())
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	created, err := svc.Create(context.Background(), adminActor(), "min", "15", "3")
	require.NoError(t, err)

	active, err := svc.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, created.ID, active.ID)
}
