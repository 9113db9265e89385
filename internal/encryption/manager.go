package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"user-service/internal/config"
	"user-service/internal/util"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// EncryptedData is the stored form of an envelope-encrypted field.
type EncryptedData struct {
	EncryptedValue string    `json:"encrypted_value"`
	EncryptedDEK   string    `json:"encrypted_dek"`
	KeyID          string    `json:"key_id"`
	Version        string    `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
}

// DataKey pairs a plaintext AES key with its wrapped form.
type DataKey struct {
	Plaintext  []byte
	Ciphertext []byte
	KeyID      string
}

// EncryptionManager envelope-encrypts sensitive fields. Each field gets a
// fresh data key wrapped by KMS; when KMS is disabled the wrap degrades to
// base64 for local development.
type EncryptionManager struct {
	kmsClient *kms.Client
	cfg       *config.Config
	keyCache  sync.Map // unwrapped DEKs keyed by wrapped form
}

func NewEncryptionManager(cfg *config.Config, kmsClient *kms.Client) *EncryptionManager {
	return &EncryptionManager{kmsClient: kmsClient, cfg: cfg}
}

// EncryptField seals a value under a fresh data key and caches the key
// for later decrypts.
func (m *EncryptionManager) EncryptField(ctx context.Context, plaintext, keyPurpose string) (*EncryptedData, error) {
	dataKey, err := m.GenerateDataKey(ctx, keyPurpose)
	if err != nil {
		return nil, err
	}

	sealed, err := sealWithKey([]byte(plaintext), dataKey.Plaintext)
	if err != nil {
		return nil, err
	}

	wrapped := base64.StdEncoding.EncodeToString(dataKey.Ciphertext)
	m.keyCache.Store(wrapped, dataKey.Plaintext)

	return &EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(sealed),
		EncryptedDEK:   wrapped,
		KeyID:          dataKey.KeyID,
		Version:        "v1",
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// DecryptField reverses EncryptField, unwrapping the DEK through KMS
// unless a cached copy exists.
func (m *EncryptionManager) DecryptField(ctx context.Context, data *EncryptedData) (string, error) {
	if cached, ok := m.keyCache.Load(data.EncryptedDEK); ok {
		return openWithKey(data.EncryptedValue, cached.([]byte))
	}

	dek, err := m.unwrapDEK(ctx, data.EncryptedDEK)
	if err != nil {
		return "", err
	}
	m.keyCache.Store(data.EncryptedDEK, dek)

	return openWithKey(data.EncryptedValue, dek)
}

func (m *EncryptionManager) GenerateDataKey(ctx context.Context, keyPurpose string) (*DataKey, error) {
	if !m.cfg.KMS.Enabled {
		return localDataKey(), nil
	}

	out, err := m.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(m.cfg.KMS.KeyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	return &DataKey{
		Plaintext:  out.Plaintext,
		Ciphertext: out.CiphertextBlob,
		KeyID:      m.cfg.KMS.KeyID,
	}, nil
}

func (m *EncryptionManager) unwrapDEK(ctx context.Context, wrapped string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid DEK format", ErrDecryptionFailed)
	}

	if !m.cfg.KMS.Enabled {
		// Local wrap is plain base64 of the key itself.
		return blob, nil
	}

	out, err := m.kmsClient.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unwrap DEK: %v", ErrDecryptionFailed, err)
	}
	return out.Plaintext, nil
}

func localDataKey() *DataKey {
	key := make([]byte, 32) // AES-256
	if _, err := rand.Read(key); err != nil {
		util.Fatal("Failed to generate local encryption key", zap.Error(err))
	}
	return &DataKey{
		Plaintext:  key,
		Ciphertext: []byte(base64.StdEncoding.EncodeToString(key)),
		KeyID:      uuid.New().String(),
	}
}

// sealWithKey encrypts with AES-GCM, prefixing the nonce.
func sealWithKey(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func openWithKey(encryptedValue string, key []byte) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedValue)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext format", ErrDecryptionFailed)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Marshal serializes encrypted data for storage in a text column.
func Marshal(data *EncryptedData) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return string(raw), nil
}

// Unmarshal parses encrypted data back out of its stored form.
func Unmarshal(stored string) (*EncryptedData, error) {
	var data EncryptedData
	if err := json.Unmarshal([]byte(stored), &data); err != nil {
		return nil, fmt.Errorf("%w: malformed stored value", ErrDecryptionFailed)
	}
	return &data, nil
}

// ClearCache drops all cached DEKs.
func (m *EncryptionManager) ClearCache() {
	m.keyCache.Range(func(key, value interface{}) bool {
		m.keyCache.Delete(key)
		return true
	})
}
