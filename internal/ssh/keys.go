package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// KeyPair represents an SSH key pair
type KeyPair struct {
	// PublicKey is in authorized_keys format without the trailing newline.
	PublicKey  string
	PrivateKey []byte
}

// ValidatePublicKey checks that key is a single authorized_keys line and
// returns it trimmed.
func ValidatePublicKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("public key is empty")
	}
	if _, _, _, rest, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	} else if len(strings.TrimSpace(string(rest))) > 0 {
		return "", fmt.Errorf("invalid public key: expected a single key")
	}
	return key, nil
}

// ReadPublicKey reads and validates a public key file.
func ReadPublicKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read public key: %w", err)
	}
	return ValidatePublicKey(string(data))
}

// GenerateKeyPair generates a new ed25519 key pair; comment ends up on the
// public key.
func GenerateKeyPair(comment string) (*KeyPair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(privateKey, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to encode private key: %w", err)
	}

	sshPublicKey, err := ssh.NewPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate public key: %w", err)
	}
	authorized := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPublicKey)))
	if comment != "" {
		authorized += " " + comment
	}

	return &KeyPair{
		PublicKey:  authorized,
		PrivateKey: pem.EncodeToMemory(block),
	}, nil
}

// SavePrivateKey writes a PEM private key readable by the owner only.
// An existing file is never overwritten.
func SavePrivateKey(path string, pemBytes []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create private key file: %w", err)
	}
	if _, err := f.Write(pemBytes); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	// umask may have narrowed the mode further, never widened it
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set private key permissions: %w", err)
	}
	return nil
}
