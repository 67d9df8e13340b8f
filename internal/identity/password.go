package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	SchemeSHA256   = "sha256"
	SchemeArgon2ID = "argon2id"

	argon2Prefix = SchemeArgon2ID + "$"
)

// PasswordHasher produces the password_digest stored on an account row.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// SHA256Hasher stores the unsalted hex digest, the format of existing tables.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) (string, error) {
	return Digest(password), nil
}

func (SHA256Hasher) Verify(password, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Digest(password)), []byte(digest)) == 1
}

// Argon2Params mirrors the argon2.* config keys.
type Argon2Params struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength int
}

// DefaultArgon2Params returns the parameters used when config leaves them unset.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLength: 32, SaltLength: 16}
}

// Argon2Hasher stores digests as "argon2id$<salt>$<hash>", base64 encoded.
type Argon2Hasher struct {
	Params Argon2Params
}

func (h Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.Params.Time, h.Params.Memory, h.Params.Threads, h.Params.KeyLength)
	return fmt.Sprintf("%s%s$%s", argon2Prefix,
		base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func (h Argon2Hasher) Verify(password, digest string) bool {
	parts := strings.Split(strings.TrimPrefix(digest, argon2Prefix), "$")
	if !strings.HasPrefix(digest, argon2Prefix) || len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, h.Params.Time, h.Params.Memory, h.Params.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}

// NewPasswordHasher returns the hasher for scheme. Unknown schemes are an error.
func NewPasswordHasher(scheme string, params Argon2Params) (PasswordHasher, error) {
	switch scheme {
	case "", SchemeSHA256:
		return SHA256Hasher{}, nil
	case SchemeArgon2ID:
		return Argon2Hasher{Params: params}, nil
	}
	return nil, fmt.Errorf("unknown password scheme %q", scheme)
}

// VerifyPassword checks password against digest in whichever format the
// digest was written, so rows survive a change of password scheme.
func VerifyPassword(password, digest string, params Argon2Params) bool {
	if strings.HasPrefix(digest, argon2Prefix) {
		return Argon2Hasher{Params: params}.Verify(password, digest)
	}
	return SHA256Hasher{}.Verify(password, digest)
}
