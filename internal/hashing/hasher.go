package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"user-service/internal/config"
	"user-service/internal/util"
)

var ErrInvalidHash = errors.New("invalid hash format")

// retainedPeppers is how many superseded pepper versions stay verifiable
// after a rotation. Two generations outlive any OTP TTL by a wide margin.
const retainedPeppers = 2

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher produces argon2id hashes of OTP codes. Every hash mixes in a
// server-side pepper; peppers rotate on a schedule and each HashResult
// records which version produced it.
type Hasher struct {
	params  Argon2Params
	peppers map[int]string
	version int
	cfg     *config.Config
	mu      sync.RWMutex
}

type HashResult struct {
	Hash          string `json:"hash"`
	Salt          string `json:"salt"`
	PepperVersion int    `json:"pepper_version"`
	Algorithm     string `json:"algorithm"`
}

func NewHasher(cfg *config.Config) *Hasher {
	h := &Hasher{
		params: Argon2Params{
			Memory:      uint32(cfg.Hashing.Argon2MemoryCost),
			Iterations:  uint32(cfg.Hashing.Argon2TimeCost),
			Parallelism: uint8(cfg.Hashing.Argon2Parallelism),
			SaltLength:  32,
			KeyLength:   32,
		},
		peppers: make(map[int]string),
		cfg:     cfg,
	}
	h.rotatePepper()
	return h
}

func (h *Hasher) rotatePepper() {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		util.Fatal("Failed to generate pepper", zap.Error(err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.version++
	h.peppers[h.version] = base64.RawURLEncoding.EncodeToString(secret)
	for v := range h.peppers {
		if v <= h.version-1-retainedPeppers {
			delete(h.peppers, v)
		}
	}

	util.Info("Pepper rotated", zap.Int("version", h.version))
}

// StartPepperRotation rotates the pepper on the configured interval in a
// background goroutine.
func (h *Hasher) StartPepperRotation() {
	interval := time.Duration(h.cfg.Hashing.PepperRotationDays) * 24 * time.Hour
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			h.rotatePepper()
		}
	}()
}

func (h *Hasher) HashOTP(otp string) (*HashResult, error) {
	h.mu.RLock()
	version := h.version
	pepper := h.peppers[version]
	h.mu.RUnlock()

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := h.derive(otp, pepper, salt, h.params.KeyLength)

	return &HashResult{
		Hash:          base64.RawURLEncoding.EncodeToString(key),
		Salt:          base64.RawURLEncoding.EncodeToString(salt),
		PepperVersion: version,
		Algorithm:     "argon2id-v1",
	}, nil
}

func (h *Hasher) VerifyOTP(otp string, hashResult *HashResult) (bool, error) {
	h.mu.RLock()
	pepper, ok := h.peppers[hashResult.PepperVersion]
	h.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("pepper version %d not available", hashResult.PepperVersion)
	}

	salt, err := base64.RawURLEncoding.DecodeString(hashResult.Salt)
	if err != nil {
		return false, ErrInvalidHash
	}
	expected, err := base64.RawURLEncoding.DecodeString(hashResult.Hash)
	if err != nil {
		return false, ErrInvalidHash
	}

	computed := h.derive(otp, pepper, salt, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (h *Hasher) derive(otp, pepper string, salt []byte, keyLen uint32) []byte {
	return argon2.IDKey(
		[]byte(otp+pepper),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		keyLen,
	)
}
