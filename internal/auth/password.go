package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2i parameters. Embedded in every encoded hash, so changing them only
// affects newly created credentials.
const (
	argon2Memory  = 4096 // KiB
	argon2Time    = 10   // iterations
	argon2Threads = 4    // lanes
	argon2KeyLen  = 32   // digest length in bytes
	SaltLen       = 32   // salt length in bytes
)

// ErrBadSalt is returned when a salt of the wrong size is supplied.
var ErrBadSalt = errors.New("salt must be exactly 32 bytes")

// GenerateSalt returns SaltLen cryptographically secure random bytes. An
// entropy failure is an error, never a degraded substitute.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	return salt, nil
}

// HashPassword derives an argon2i hash of the password with the given salt
// and returns it PHC-encoded:
//
//	$argon2i$v=19$m=4096,t=10,p=4$<salt>$<digest>
func HashPassword(password string, salt []byte) (string, error) {
	if len(salt) != SaltLen {
		return "", ErrBadSalt
	}

	digest := argon2.Key([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2i$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
	return encoded, nil
}

// VerifyPassword checks the password against a PHC-encoded argon2i hash
// using the parameters embedded in it. A malformed or corrupt encoded hash
// verifies to false rather than erroring; the comparison is constant time.
func VerifyPassword(encodedHash, password string) bool {
	salt, digest, time, memory, threads, ok := decodeHash(encodedHash)
	if !ok {
		return false
	}

	computed := argon2.Key([]byte(password), salt, time, memory, threads, uint32(len(digest)))
	return subtle.ConstantTimeCompare(computed, digest) == 1
}

func decodeHash(encodedHash string) (salt, digest []byte, time, memory uint32, threads uint8, ok bool) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2i" {
		return nil, nil, 0, 0, 0, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, false
	}

	var lanes uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &lanes); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if lanes == 0 || lanes > 255 || memory == 0 || time == 0 {
		return nil, nil, 0, 0, 0, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, false
	}
	digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	return salt, digest, time, memory, uint8(lanes), true
}
