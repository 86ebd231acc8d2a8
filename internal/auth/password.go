package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// NewSalt returns 16 random bytes, hex encoded.
func NewSalt() (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return hex.EncodeToString(salt), nil
}

// digest is the SHA-256 of salt+password. It keeps the bcrypt input under
// bcrypt's 72 byte limit and is also the complete hash of the older scheme.
func digest(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

// HashPassword hashes the salted password with bcrypt.
func HashPassword(password, salt string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(digest(password, salt)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored salt and hash.
func VerifyPassword(password, salt, hash string) bool {
	if hash == "" {
		return false
	}
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(digest(password, salt))) == nil
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(digest(password, salt))) == 1
}

// NeedsRehash reports hashes written by the plain SHA-256 scheme.
func NeedsRehash(hash string) bool {
	return !isBcrypt(hash)
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2")
}

// Credentials creates a fresh salt and the matching hash.
func Credentials(password string) (salt, hash string, err error) {
	salt, err = NewSalt()
	if err != nil {
		return "", "", err
	}
	hash, err = HashPassword(password, salt)
	if err != nil {
		return "", "", err
	}
	return salt, hash, nil
}
