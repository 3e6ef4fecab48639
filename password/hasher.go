// Package password provides the server-wide secret hasher: a salted,
// memory-hard argon2id hash in PHC string format. It is used for account
// passwords, refresh-token secrets, and verification secrets alike.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// ErrMalformedHash is returned by VerifyStored when the stored hash cannot
// be parsed. It is distinct from a legitimate mismatch (false, nil) so the
// caller can log the corruption without crashing the request pipeline.
var ErrMalformedHash = errors.New("malformed stored hash")

// Config carries the argon2id cost parameters, fixed server-wide.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher is a one-way, salted, slow hash function.
type Hasher struct {
	config Config
}

// NewHasher validates the cost parameters and creates a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return nil, errors.New("time cost must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("key length must be >= 16")
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives a PHC-encoded argon2id hash with a fresh random salt.
// Plaintext policy (length, character classes) is the caller's concern.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// VerifyStored checks plaintext against a stored PHC hash. A mismatch is
// (false, nil). A stored hash that is empty or cannot be parsed yields
// (false, ErrMalformedHash): verification fails but the caller decides
// whether to log. The comparison is constant-time.
func (h *Hasher) VerifyStored(stored, plaintext string) (bool, error) {
	memory, timeCost, parallelism, salt, key, err := parsePHC(stored)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		salt,
		timeCost,
		memory,
		parallelism,
		uint32(len(key)),
	)

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// parsePHC splits "$argon2id$v=19$m=...,t=...,p=...$salt$hash".
func parsePHC(encoded string) (memory, timeCost uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return 0, 0, 0, nil, nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return 0, 0, 0, nil, nil, errors.New("unsupported algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return 0, 0, 0, nil, nil, errors.New("invalid parameters")
	}
	if m < minMemoryKB || t < minTimeCost || p < minParallelism {
		return 0, 0, 0, nil, nil, errors.New("parameters below minimum")
	}

	salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || uint32(len(salt)) < minSaltLength {
		return 0, 0, 0, nil, nil, errors.New("invalid salt")
	}
	key, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid key")
	}

	return m, t, p, salt, key, nil
}
