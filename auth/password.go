package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"
)

// Password hashes are base64("v01" + salt + iterations + key), iterations being
// a 3 byte big-endian integer.
const (
	hashVersion    = "v01"
	hashIterations = 10000
	saltSize       = 16
	keySize        = 32
	iterSize       = 3
	encodedSize    = len(hashVersion) + saltSize + iterSize + keySize
)

// HashPassword derives a key from password with a fresh random salt.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return encodeHash(password, salt, hashIterations), nil
}

func encodeHash(password string, salt []byte, iterations int) string {
	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	buf := make([]byte, 0, encodedSize)
	buf = append(buf, hashVersion...)
	buf = append(buf, salt...)
	buf = append(buf, byte(iterations>>16), byte(iterations>>8), byte(iterations))
	buf = append(buf, key...)
	return base64.StdEncoding.EncodeToString(buf)
}

// VerifyPassword reports whether password matches hash. Any malformed hash
// is a mismatch.
func VerifyPassword(password, hash string) bool {
	raw, err := base64.StdEncoding.DecodeString(hash)
	if err != nil || len(raw) != encodedSize || string(raw[:len(hashVersion)]) != hashVersion {
		return false
	}
	rest := raw[len(hashVersion):]
	salt := rest[:saltSize]
	iter := rest[saltSize : saltSize+iterSize]
	key := rest[saltSize+iterSize:]
	iterations := int(iter[0])<<16 | int(iter[1])<<8 | int(iter[2])
	if iterations == 0 {
		return false
	}
	derived := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return subtle.ConstantTimeCompare(derived, key) == 1
}
