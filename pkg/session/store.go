package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// Store persists the opaque session blob between runs. The core only needs
// the blob to round-trip.
type Store interface {
	Exists() bool
	Load() ([]byte, error)
	Save(blob []byte) error
	Delete() error
}

// FileStore keeps the session blob in a single file. With a passphrase the
// blob is encrypted at rest (PBKDF2 key derivation + AES-GCM); without one
// it is written as-is, which matches the plain cookie file the CI secret
// path produces.
type FileStore struct {
	path       string
	passphrase string
}

// encryptedEnvelope is the on-disk shape of an encrypted session file.
type encryptedEnvelope struct {
	Salt      string `json:"salt"`
	Encrypted string `json:"encrypted"`
}

// NewFileStore creates a file-backed session store.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}
	return &FileStore{path: path, passphrase: passphrase}, nil
}

// Exists reports whether a persisted session is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and, if needed, decrypts the persisted session blob.
func (s *FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if s.passphrase == "" {
		return data, nil
	}

	var envelope encryptedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Encrypted == "" {
		// Plain blob written before encryption was enabled.
		return data, nil
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid session file salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(envelope.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("invalid session file payload: %w", err)
	}

	gcm, err := s.cipher(salt)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("session file payload too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	blob, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session file: %w", err)
	}
	return blob, nil
}

// Save writes the session blob, encrypting it when a passphrase is set.
func (s *FileStore) Save(blob []byte) error {
	if s.passphrase == "" {
		return os.WriteFile(s.path, blob, 0600)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.cipher(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, blob, nil)
	data, err := json.Marshal(encryptedEnvelope{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return fmt.Errorf("failed to encode session envelope: %w", err)
	}

	return os.WriteFile(s.path, data, 0600)
}

// Delete removes the persisted session.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

func (s *FileStore) cipher(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(s.passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
