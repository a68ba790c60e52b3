package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portal-nfse/internal/application/auth"
	"github.com/jhoicas/portal-nfse/internal/application/dto"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	"github.com/jhoicas/portal-nfse/pkg/jwt"
	"github.com/jhoicas/portal-nfse/pkg/passhash"
)

const secret = "segredo-de-teste"

type memOperators struct {
	ops map[string]*entity.Operator
	err error
}

func (m *memOperators) FindByUsername(u string) (*entity.Operator, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ops[u], nil
}

func (m *memOperators) Save(op *entity.Operator) error {
	if m.ops == nil {
		m.ops = map[string]*entity.Operator{}
	}
	m.ops[op.Username] = op
	return nil
}

func newUC(t *testing.T) (*auth.AuthUseCase, *memOperators) {
	t.Helper()
	repo := &memOperators{}
	uc := auth.NewAuthUseCase(repo, auth.JWTConfig{Secret: secret, ExpMinutes: 30, Issuer: "portal-nfse-test"})
	_, err := uc.SaveOperator("ana", "Ana", "s3nha", entity.RoleAdmin)
	require.NoError(t, err)
	return uc, repo
}

func TestLogin_EmiteTokenConRol(t *testing.T) {
	uc, _ := newUC(t)
	out, err := uc.Login(dto.LoginRequest{Username: " ana ", Password: "s3nha"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", out.User.Name)

	user, role, err := jwt.Parse(secret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana", user)
	assert.Equal(t, entity.RoleAdmin, role)
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	uc, _ := newUC(t)

	_, err := uc.Login(dto.LoginRequest{Username: "ana", Password: "errada"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(dto.LoginRequest{Username: "ninguem", Password: "s3nha"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_ErrorDelRepositorio(t *testing.T) {
	repo := &memOperators{err: errors.New("users.json ilegível")}
	uc := auth.NewAuthUseCase(repo, auth.JWTConfig{Secret: secret})
	_, err := uc.Login(dto.LoginRequest{Username: "ana", Password: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSaveOperator_HasheaYValida(t *testing.T) {
	uc, repo := newUC(t)

	out, err := uc.SaveOperator("bia", "", "123", "")
	require.NoError(t, err)
	assert.Equal(t, "bia", out.Name)
	assert.Equal(t, entity.RoleUser, out.Role)

	stored := repo.ops["bia"]
	assert.NotEqual(t, "123", stored.PasswordHash)
	ok, err := passhash.Verify("123", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = uc.SaveOperator("", "x", "y", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.SaveOperator("c", "x", "y", "superuser")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
