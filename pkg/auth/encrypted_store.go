package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize        = 16
	pbkdf2Iter      = 100_000
	keySize         = 32
	storeKeyEnvName = "VKDUMP_STORE_KEY"
)

// EncryptedFileStore implements TokenStore with an AES-GCM encrypted file.
// The file key is derived from the VKDUMP_STORE_KEY passphrase; without it
// the store reports itself unavailable.
type EncryptedFileStore struct {
	path       string
	passphrase string
}

// NewEncryptedFileStore creates a file backed store at path
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	passphrase := os.Getenv(storeKeyEnvName)
	if passphrase == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrStoreUnavailable, storeKeyEnvName)
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store saves the account into the encrypted file
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Name == "" || account.AccessToken == "" {
		return ErrInvalidAccount
	}

	accounts, err := e.load()
	if err != nil {
		return err
	}
	accounts[account.Name] = account
	return e.save(accounts)
}

// Retrieve gets the account from the encrypted file
func (e *EncryptedFileStore) Retrieve(name string) (*Account, error) {
	if name == "" {
		return nil, ErrInvalidAccount
	}

	accounts, err := e.load()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[name]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return account, nil
}

// Delete removes the account from the encrypted file
func (e *EncryptedFileStore) Delete(name string) error {
	accounts, err := e.load()
	if err != nil {
		return err
	}
	if _, ok := accounts[name]; !ok {
		return ErrTokenNotFound
	}
	delete(accounts, name)
	return e.save(accounts)
}

// Exists checks whether an account is stored under name
func (e *EncryptedFileStore) Exists(name string) bool {
	accounts, err := e.load()
	if err != nil {
		return false
	}
	_, ok := accounts[name]
	return ok
}

// load decrypts and decodes the account map; a missing file is an empty map
func (e *EncryptedFileStore) load() (map[string]*Account, error) {
	raw, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return make(map[string]*Account), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}
	if len(raw) < saltSize {
		return nil, fmt.Errorf("token store is corrupted")
	}

	salt := raw[:saltSize]
	gcm, err := e.cipherFor(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < saltSize+nonceSize {
		return nil, fmt.Errorf("token store is corrupted")
	}
	nonce := raw[saltSize : saltSize+nonceSize]
	plaintext, err := gcm.Open(nil, nonce, raw[saltSize+nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token store: %w", err)
	}

	var accounts map[string]*Account
	if err := json.Unmarshal(plaintext, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode token store: %w", err)
	}
	return accounts, nil
}

// save encodes and encrypts the account map with a fresh salt and nonce
func (e *EncryptedFileStore) save(accounts map[string]*Account) error {
	plaintext, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to encode token store: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := e.cipherFor(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := append(salt, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)

	if err := os.WriteFile(e.path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write token store: %w", err)
	}
	return nil
}

// cipherFor builds the AES-GCM cipher for a given salt
func (e *EncryptedFileStore) cipherFor(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(e.passphrase), salt, pbkdf2Iter, keySize, sha256.New)
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
