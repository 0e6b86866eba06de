// Package keyring stores connection passwords outside settings files. The system
// keyring is used when it answers; headless hosts fall back to an encrypted file.
package keyring

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
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service connection passwords are stored under.
const Service = "redb-nosql"

// Environment variables read by DefaultPath and MasterPasswordFromEnv.
const (
	EnvPath           = "REDB_NOSQL_KEYRING_PATH"
	EnvMasterPassword = "REDB_NOSQL_KEYRING_PASSWORD"
)

// ErrNotFound is returned when no password is stored for a connection id.
var ErrNotFound = errors.New("credential not found")

// Store keeps one secret per connection id.
type Store interface {
	Set(id, secret string) error
	Get(id string) (string, error)
	Delete(id string) error
}

// SystemStore uses the operating system keyring.
type SystemStore struct {
	service string
}

// NewSystemStore returns a store for the service name.
func NewSystemStore(service string) *SystemStore {
	return &SystemStore{service: service}
}

func (s *SystemStore) Set(id, secret string) error {
	return keyring.Set(s.service, id, secret)
}

func (s *SystemStore) Get(id string) (string, error) {
	secret, err := keyring.Get(s.service, id)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return secret, err
}

// Delete removes the secret; deleting an absent id is not an error.
func (s *SystemStore) Delete(id string) error {
	err := keyring.Delete(s.service, id)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// FileStore keeps AES-GCM encrypted secrets in a JSON file keyed by id. The key is
// derived from a master password.
type FileStore struct {
	path string
	key  []byte
	mu   sync.Mutex
}

// fileEntry is one stored secret.
type fileEntry struct {
	Service string `json:"service"`
	ID      string `json:"id"`
	Data    string `json:"data"` // encrypted data
}

// NewFileStore creates a file store. The directory is created on first write.
func NewFileStore(path, masterPassword string) (*FileStore, error) {
	if masterPassword == "" {
		return nil, fmt.Errorf("a master password is required for the file keyring (set %s)", EnvMasterPassword)
	}
	hash := sha256.Sum256([]byte(masterPassword))
	return &FileStore{path: path, key: hash[:]}, nil
}

func (f *FileStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(f.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileStore) encrypt(plaintext string) (string, error) {
	gcm, err := f.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (f *FileStore) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	gcm, err := f.gcm()
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plaintext), nil
}

func (f *FileStore) load() (map[string]fileEntry, error) {
	entries := make(map[string]fileEntry)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse keyring file %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *FileStore) save(entries map[string]fileEntry) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileStore) Set(id, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	encrypted, err := f.encrypt(secret)
	if err != nil {
		return err
	}
	entries[id] = fileEntry{Service: Service, ID: id, Data: encrypted}
	return f.save(entries)
}

func (f *FileStore) Get(id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", err
	}
	entry, ok := entries[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f.decrypt(entry.Data)
}

func (f *FileStore) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[id]; !ok {
		return nil
	}
	delete(entries, id)
	return f.save(entries)
}

// systemAvailable probes the system keyring, giving up after timeout since some
// desktop-less hosts block on the keyring service.
func systemAvailable(timeout time.Duration) bool {
	const probeID = "probe"
	done := make(chan error, 1)
	go func() {
		err := keyring.Set(Service+"-probe", probeID, "ok")
		if err == nil {
			_ = keyring.Delete(Service+"-probe", probeID)
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err == nil
	case <-time.After(timeout):
		return false
	}
}

// Open returns the system keyring when it responds within timeout, and a file store
// at path otherwise.
func Open(path, masterPassword string, timeout time.Duration) (Store, error) {
	if systemAvailable(timeout) {
		return NewSystemStore(Service), nil
	}
	return NewFileStore(path, masterPassword)
}

// MasterPasswordFromEnv returns the file keyring master password.
func MasterPasswordFromEnv() string {
	return os.Getenv(EnvMasterPassword)
}

// DefaultPath returns the file keyring path, honouring the environment override.
func DefaultPath() string {
	if path := os.Getenv(EnvPath); path != "" {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "redb-nosql-keyring.json")
	}
	return filepath.Join(homeDir, ".local", "share", "redb-nosql", "keyring.json")
}
