package admin

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2Prefix = "$pbkdf2-sha256$"

var errUnsupportedHash = errors.New("unsupported password hash")

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares password with a stored hash. bcrypt hashes and
// passlib-style "$pbkdf2-sha256$rounds$salt$checksum" hashes are accepted.
func CheckPassword(hash, password string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	case strings.HasPrefix(hash, pbkdf2Prefix):
		return checkPBKDF2(hash, password)
	default:
		return false, errUnsupportedHash
	}
}

func checkPBKDF2(hash, password string) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(hash, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return false, errUnsupportedHash
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 {
		return false, errUnsupportedHash
	}
	salt, err := ab64Decode(parts[1])
	if err != nil {
		return false, errUnsupportedHash
	}
	want, err := ab64Decode(parts[2])
	if err != nil {
		return false, errUnsupportedHash
	}
	got := pbkdf2.Key([]byte(password), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// ab64Decode decodes passlib's adapted base64 ('.' instead of '+', no padding).
func ab64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(strings.TrimRight(s, "="), ".", "+"))
}
