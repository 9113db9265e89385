package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-service/internal/client"
	"user-service/internal/util"
)

const otpPrefix = "otp:"

// ErrOTPNotFound means no pending OTP exists for the phone, either
// because none was sent or because it expired.
var ErrOTPNotFound = errors.New("no pending otp")

// OTPCache holds hashed OTP material keyed by phone hash. Entries expire
// with the configured OTP TTL; Redis does the cleanup.
type OTPCache struct {
	client *client.RedisClient
}

func NewOTPCache(client *client.RedisClient) *OTPCache {
	return &OTPCache{client: client}
}

func (c *OTPCache) SetOTP(ctx context.Context, phoneHash, hashedOTP string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := otpPrefix + phoneHash
	if err := c.client.Set(ctx, key, hashedOTP, ttl); err != nil {
		util.Error("Failed to set OTP in cache",
			zap.String("phone_hash", phoneHash),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to set OTP in cache: %w", err)
	}

	util.Debug("OTP cached",
		zap.String("phone_hash", phoneHash),
		zap.Duration("ttl", ttl))
	return nil
}

func (c *OTPCache) GetOTP(ctx context.Context, phoneHash string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := otpPrefix + phoneHash

	hashedOTP, err := c.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return "", ErrOTPNotFound
		}
		util.Error("Failed to get OTP from cache",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return "", fmt.Errorf("failed to get OTP from cache: %w", err)
	}

	return hashedOTP, nil
}

func (c *OTPCache) DeleteOTP(ctx context.Context, phoneHash string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := otpPrefix + phoneHash
	if err := c.client.Del(ctx, key); err != nil {
		util.Error("Failed to delete OTP from cache",
			zap.String("phone_hash", phoneHash),
			zap.Error(err))
		return fmt.Errorf("failed to delete OTP from cache: %w", err)
	}

	util.Debug("OTP deleted from cache", zap.String("phone_hash", phoneHash))
	return nil
}
