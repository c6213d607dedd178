// Package securecache wraps a backend.Buffered to add SHA-256 key
// hashing (always enabled, so raw cache keys never touch the
// underlying store) and optional AES-256-GCM encryption of the stored
// response body.
package securecache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
	"github.com/htcacheio/cachekit/internal/logging"
)

const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
	nonceSize = 12
)

// SecureCache wraps a backend.Buffered, adding:
//   - SHA-256 hashing of all cache keys (always on)
//   - optional AES-256-GCM encryption of the response body (when a
//     passphrase is configured)
type SecureCache struct {
	backend    backend.Buffered
	gcm        cipher.AEAD
	passphrase string
}

// Config configures a SecureCache.
type Config struct {
	// Backend is the underlying store to wrap (required).
	Backend backend.Buffered

	// Passphrase derives the AES-256-GCM key via scrypt. If empty,
	// only key hashing is performed and the body is stored as-is.
	Passphrase string
}

// New returns a backend.Buffered that hashes keys and, if
// config.Passphrase is set, encrypts stored response bodies.
func New(config Config) (*SecureCache, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("securecache: backend cannot be nil")
	}

	sc := &SecureCache{backend: config.Backend, passphrase: config.Passphrase}
	if config.Passphrase != "" {
		if err := sc.initEncryption(); err != nil {
			return nil, fmt.Errorf("securecache: init encryption: %w", err)
		}
	}
	return sc, nil
}

func (sc *SecureCache) initEncryption() error {
	salt := sha256.Sum256([]byte("cachekit-securecache-salt-v1"))
	key, err := scrypt.Key([]byte(sc.passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("create GCM: %w", err)
	}

	sc.gcm = gcm
	return nil
}

func (sc *SecureCache) hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func (sc *SecureCache) encrypt(data []byte) ([]byte, error) {
	if sc.gcm == nil {
		return data, nil
	}
	nonce := make([]byte, sc.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return sc.gcm.Seal(nonce, nonce, data, nil), nil
}

func (sc *SecureCache) decrypt(data []byte) ([]byte, error) {
	if sc.gcm == nil {
		return data, nil
	}
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := sc.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// Get implements backend.Buffered.
func (sc *SecureCache) Get(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	hashedKey := sc.hashKey(key)
	entry, ok, err := sc.backend.Get(ctx, hashedKey)
	if err != nil || !ok {
		return cachekit.CacheEntry{}, false, err
	}

	if sc.gcm != nil {
		plaintext, err := sc.decrypt(entry.Response.Buffered)
		if err != nil {
			logging.Get().Warn("securecache: failed to decrypt cached data", "key", hashedKey, "error", err)
			return cachekit.CacheEntry{}, false, err
		}
		entry.Response.Buffered = plaintext
	}
	return entry, true, nil
}

// Put implements backend.Buffered.
func (sc *SecureCache) Put(ctx context.Context, key string, entry cachekit.CacheEntry) error {
	hashedKey := sc.hashKey(key)

	if sc.gcm != nil {
		encrypted, err := sc.encrypt(entry.Response.Buffered)
		if err != nil {
			logging.Get().Warn("securecache: failed to encrypt data", "key", hashedKey, "error", err)
			return err
		}
		entry.Response.Buffered = encrypted
	}
	return sc.backend.Put(ctx, hashedKey, entry)
}

// Delete implements backend.Buffered.
func (sc *SecureCache) Delete(ctx context.Context, key string) error {
	return sc.backend.Delete(ctx, sc.hashKey(key))
}

// UpdateHeaders implements backend.Buffered.
func (sc *SecureCache) UpdateHeaders(ctx context.Context, key string, headers cachekit.Header, policy cachekit.CachePolicyBlob) (bool, error) {
	return sc.backend.UpdateHeaders(ctx, sc.hashKey(key), headers, policy)
}

// IsEncrypted reports whether a passphrase was configured.
func (sc *SecureCache) IsEncrypted() bool {
	return sc.gcm != nil
}

var _ backend.Buffered = (*SecureCache)(nil)
