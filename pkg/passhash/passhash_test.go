package passhash_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/portal-nfse/pkg/passhash"
)

func TestHash_VerificaYRechaza(t *testing.T) {
	h, err := passhash.Hash("admin123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$pbkdf2-sha256$29000$"))

	ok, err := passhash.Verify("admin123", h)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = passhash.Verify("admin124", h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SalDistintaHashDistinto(t *testing.T) {
	a, err := passhash.Hash("x")
	require.NoError(t, err)
	b, err := passhash.Hash("x")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashWithSalt_Determinista(t *testing.T) {
	salt := []byte("0123456789abcdef")
	a := passhash.HashWithSalt("senha", salt, 1000)
	b := passhash.HashWithSalt("senha", salt, 1000)
	assert.Equal(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "=")

	ok, err := passhash.Verify("senha", a)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_BcryptLegado(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("antiga"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := passhash.Verify("antiga", string(raw))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = passhash.Verify("outra", string(raw))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_FormatoDesconocido(t *testing.T) {
	_, err := passhash.Verify("x", "md5$abc")
	assert.ErrorIs(t, err, passhash.ErrUnsupported)

	_, err = passhash.Verify("x", "$pbkdf2-sha256$abc")
	assert.Error(t, err)
}
