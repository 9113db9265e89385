package scylla

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-service/internal/util"
)

type otpRequestRepository struct {
	client *ScyllaClient
}

func NewOTPRequestRepository(client *ScyllaClient, logger *zap.Logger) OTPRequestRepository {
	return &otpRequestRepository{client: client}
}

func (r *otpRequestRepository) Append(ctx context.Context, phoneHash string, at time.Time) error {
	query := r.client.Prepared.AppendOTPRequest.WithContext(ctx).Bind(phoneHash, at)
	if err := r.client.ExecuteWithRetry(query, 2); err != nil {
		util.Error("Failed to append otp request",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return fmt.Errorf("failed to append otp request: %w", err)
	}

	util.Debug("OTP request logged",
		zap.String("phone_hash", phoneHash),
		zap.Time("requested_at", at))
	return nil
}

// CountWindow counts sends in [start, end]; both bounds are inclusive.
func (r *otpRequestRepository) CountWindow(ctx context.Context, phoneHash string, start, end time.Time) (int, error) {
	var count int
	query := r.client.Prepared.CountOTPRequests.WithContext(ctx).Bind(phoneHash, start, end)
	if err := r.client.ScanWithRetry(query, &count); err != nil {
		util.Error("Failed to count otp requests",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count otp requests: %w", err)
	}
	return count, nil
}
