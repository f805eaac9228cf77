package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/term"

	"mysql-drift-guard/internal/errors"
)

const (
	encryptionSaltSize   = 16
	encryptionIterations = 100_000
	encryptionKeySize    = 32
)

// Encryptor performs AES-256-GCM encryption of backup files with a key
// derived from a passphrase. The salt and nonce are stored in the output, so
// only the passphrase is needed to decrypt.
type Encryptor struct {
	passphrase []byte
}

// NewEncryptor creates an encryptor from a passphrase
func NewEncryptor(passphrase string) (*Encryptor, error) {
	if passphrase == "" {
		return nil, errors.NewValidationError("encryption passphrase cannot be empty", nil)
	}
	return &Encryptor{passphrase: []byte(passphrase)}, nil
}

// Encrypt seals plaintext as salt || nonce || ciphertext
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, encryptionSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.NewBackupIOError("failed to generate encryption salt", err)
	}

	gcm, err := e.newGCM(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.NewBackupIOError("failed to generate nonce", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt reverses Encrypt. A wrong passphrase fails authentication rather
// than producing garbage output.
func (e *Encryptor) Decrypt(data []byte) ([]byte, error) {
	if len(data) < encryptionSaltSize {
		return nil, errors.NewBackupIOError("encrypted backup is too short", nil)
	}
	salt, rest := data[:encryptionSaltSize], data[encryptionSaltSize:]

	gcm, err := e.newGCM(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, errors.NewBackupIOError("encrypted backup is too short", nil)
	}
	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.NewBackupIOError("failed to decrypt backup (wrong passphrase or corrupted file)", err)
	}
	return plaintext, nil
}

func (e *Encryptor) newGCM(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, salt, encryptionIterations, encryptionKeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.NewBackupIOError("failed to create AES cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.NewBackupIOError("failed to create GCM cipher", err)
	}
	return gcm, nil
}

// PromptPassphrase reads a passphrase from the terminal without echo. Falls
// back to the MYSQL_DRIFT_GUARD_BACKUP_PASSPHRASE environment variable when
// stdin is not a terminal.
func PromptPassphrase(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		if pass := os.Getenv("MYSQL_DRIFT_GUARD_BACKUP_PASSPHRASE"); pass != "" {
			return pass, nil
		}
		return "", errors.NewValidationError(
			"stdin is not a terminal; set MYSQL_DRIFT_GUARD_BACKUP_PASSPHRASE to supply the passphrase", nil)
	}

	fmt.Fprint(os.Stderr, prompt)
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.NewValidationError("failed to read passphrase", err)
	}
	if len(passBytes) == 0 {
		return "", errors.NewValidationError("passphrase cannot be empty", nil)
	}
	return string(passBytes), nil
}
