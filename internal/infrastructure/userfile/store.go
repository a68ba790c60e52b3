// Package userfile operadores en un archivo JSON (users.json).
package userfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	"github.com/jhoicas/portal-nfse/internal/domain/repository"
	"github.com/jhoicas/portal-nfse/pkg/passhash"
)

// Operador creado cuando el archivo no existe.
const (
	DefaultAdminUser     = "admin"
	DefaultAdminPassword = "admin123"
)

var _ repository.OperatorRepository = (*Store)(nil)

type record struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"password_hash"`
}

type document struct {
	Users map[string]record `json:"users"`
}

// Store lee el archivo en cada consulta: se edita a mano entre reinicios.
type Store struct {
	mu   sync.Mutex
	path string
}

// New store sobre path; crea el administrador por defecto si el archivo falta.
func New(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.ensureDefaultAdmin(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureDefaultAdmin() error {
	if _, err := os.Stat(s.path); !errors.Is(err, os.ErrNotExist) {
		return err
	}
	hash, err := passhash.Hash(DefaultAdminPassword)
	if err != nil {
		return err
	}
	return s.write(document{Users: map[string]record{
		DefaultAdminUser: {Name: "Administrador", Role: entity.RoleAdmin, PasswordHash: hash},
	}})
}

func (s *Store) FindByUsername(username string) (*entity.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Users[username]
	if !ok {
		return nil, nil
	}
	op := &entity.Operator{Username: username, Name: rec.Name, Role: rec.Role, PasswordHash: rec.PasswordHash}
	if op.Name == "" {
		op.Name = username
	}
	if op.Role == "" {
		op.Role = entity.RoleUser
	}
	return op, nil
}

// Save crea o reemplaza el operador.
func (s *Store) Save(op *entity.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if doc.Users == nil {
		doc.Users = map[string]record{}
	}
	doc.Users[op.Username] = record{Name: op.Name, Role: op.Role, PasswordHash: op.PasswordHash}
	return s.write(doc)
}

func (s *Store) read() (document, error) {
	var doc document
	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("%s: %w", filepath.Base(s.path), err)
	}
	return doc, nil
}

// write reemplaza el archivo vía temporal + rename.
func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
