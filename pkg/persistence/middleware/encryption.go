package middleware

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
	"strings"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/ports"
)

const envelopePrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.DraftStore
	config EncryptionConfig
}

// sealed is the part of a draft that gets encrypted.
type sealed struct {
	Title string `json:"title"`
	Path  string `json:"path,omitempty"`
	Text  string `json:"text"`
}

// NewEncryptionMiddleware creates a middleware that encrypts draft content
// using AES-GCM. The stored draft is an envelope: id, view and dirty flag
// stay readable, title, path and text are sealed.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("%w: active key must be 32 bytes (AES-256)", domain.ErrInvalidValue)
	}
	return func(next ports.DraftStore) ports.DraftStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

// ParseKey decodes a base64 AES-256 key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: draft key is not base64: %v", domain.ErrInvalidValue, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: draft key must decode to 32 bytes, got %d", domain.ErrInvalidValue, len(key))
	}
	return key, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, id string, draft *domain.Draft) error {
	plainText, err := json.Marshal(sealed{Title: draft.Title, Path: draft.Path, Text: draft.Text})
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt draft: %w", err)
	}

	envelope := *draft
	envelope.Title = "encrypted"
	envelope.Path = ""
	envelope.Text = envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext)
	return m.next.Save(ctx, id, &envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (*domain.Draft, error) {
	envelope, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	encoded, ok := strings.CutPrefix(envelope.Text, envelopePrefix)
	if !ok {
		// Fail secure: with encryption configured, plain drafts are rejected.
		return nil, errors.New("draft is missing encrypted data envelope")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt draft: %w", err)
	}

	var content sealed
	if err := json.Unmarshal(plainText, &content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted draft: %w", err)
	}

	draft := *envelope
	draft.Title, draft.Path, draft.Text = content.Title, content.Path, content.Text
	return &draft, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
