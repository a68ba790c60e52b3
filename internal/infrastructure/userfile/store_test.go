package userfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/userfile"
	"github.com/jhoicas/portal-nfse/pkg/passhash"
)

func TestNew_CreaAdministradorPorDefecto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s, err := userfile.New(path)
	require.NoError(t, err)

	op, err := s.FindByUsername("admin")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, entity.RoleAdmin, op.Role)

	ok, err := passhash.Verify(userfile.DefaultAdminPassword, op.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew_NoPisaArchivoExistente(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":{"maria":{"name":"Maria","role":"user","password_hash":"x"}}}`), 0o600))

	s, err := userfile.New(path)
	require.NoError(t, err)

	op, err := s.FindByUsername("admin")
	require.NoError(t, err)
	assert.Nil(t, op)

	op, err = s.FindByUsername("maria")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, "Maria", op.Name)
}

func TestSave_AgregaYActualiza(t *testing.T) {
	s, err := userfile.New(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	require.NoError(t, s.Save(&entity.Operator{Username: "joao", Name: "João", Role: entity.RoleUser, PasswordHash: "h1"}))
	require.NoError(t, s.Save(&entity.Operator{Username: "joao", Name: "João Silva", Role: entity.RoleUser, PasswordHash: "h2"}))

	op, err := s.FindByUsername("joao")
	require.NoError(t, err)
	assert.Equal(t, "João Silva", op.Name)
	assert.Equal(t, "h2", op.PasswordHash)

	admin, err := s.FindByUsername("admin")
	require.NoError(t, err)
	assert.NotNil(t, admin)
}
