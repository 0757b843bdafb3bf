package admin

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func ab64(b []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
}

func passlibHash(password string, salt []byte, rounds int) string {
	sum := pbkdf2.Key([]byte(password), salt, rounds, 32, sha256.New)
	return "$pbkdf2-sha256$" + strconv.Itoa(rounds) + "$" + ab64(salt) + "$" + ab64(sum)
}

func TestCheckPasswordBcrypt(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckPasswordPBKDF2(t *testing.T) {
	hash := passlibHash("s3cret", []byte{0xfb, 0xef, 0xbe, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d}, 1000)

	ok, err := CheckPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "S3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckPasswordUnsupported(t *testing.T) {
	for _, h := range []string{"plain", "$pbkdf2-sha256$x$salt$hash", "$pbkdf2-sha256$1000$onlysalt"} {
		_, err := CheckPassword(h, "pw")
		assert.Error(t, err, h)
	}
}

func TestAuthenticate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := NewService(db, zerolog.Nop())

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "email", "password"}).
			AddRow("0b8e6c1e-3f2a-4c55-9f0e-0d8f6f1d2a10", "admin@example.org", hash)
	}

	mock.ExpectQuery(`FROM admin WHERE lower\(email\) = lower\(\$1\)`).WithArgs("admin@example.org").WillReturnRows(rows())
	a, err := svc.Authenticate(context.Background(), " admin@example.org ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "0b8e6c1e-3f2a-4c55-9f0e-0d8f6f1d2a10", a.ID)

	mock.ExpectQuery(`FROM admin`).WillReturnRows(rows())
	_, err = svc.Authenticate(context.Background(), "admin@example.org", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery(`FROM admin`).WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password"}))
	_, err = svc.Authenticate(context.Background(), "ghost@example.org", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO admin`).WithArgs(sqlmock.AnyArg(), "admin@example.org", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := NewService(db, zerolog.Nop()).Create(context.Background(), "Admin@Example.org", "s3cret")
	require.NoError(t, err)
	assert.Len(t, a.ID, 36)
	assert.True(t, strings.HasPrefix(a.PasswordHash, "$2a$"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
