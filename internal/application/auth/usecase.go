package auth

import (
	"fmt"
	"strings"

	"github.com/jhoicas/portal-nfse/internal/application/dto"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	"github.com/jhoicas/portal-nfse/internal/domain/repository"
	"github.com/jhoicas/portal-nfse/pkg/jwt"
	"github.com/jhoicas/portal-nfse/pkg/passhash"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase login de operadores y alta desde el CLI.
type AuthUseCase struct {
	repo   repository.OperatorRepository
	jwtCfg JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(repo repository.OperatorRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{repo: repo, jwtCfg: jwtCfg}
}

// Login verifica usuario/contraseña, genera JWT y retorna token + operador.
// Usuario inexistente y contraseña incorrecta son indistinguibles (ErrUnauthorized).
func (uc *AuthUseCase) Login(in dto.LoginRequest) (*dto.LoginResponse, error) {
	op, err := uc.repo.FindByUsername(strings.TrimSpace(in.Username))
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, domain.ErrUnauthorized
	}
	ok, err := passhash.Verify(in.Password, op.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("operador %s: %w", op.Username, err)
	}
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, op.Username, op.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, User: toOperatorResponse(op)}, nil
}

// SaveOperator crea o reemplaza un operador con la contraseña hasheada.
func (uc *AuthUseCase) SaveOperator(username, name, password, role string) (*dto.OperatorResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("usuario y contraseña requeridos: %w", domain.ErrInvalidInput)
	}
	if role == "" {
		role = entity.RoleUser
	}
	if role != entity.RoleAdmin && role != entity.RoleUser {
		return nil, fmt.Errorf("rol %q: %w", role, domain.ErrInvalidInput)
	}
	if name == "" {
		name = username
	}
	hash, err := passhash.Hash(password)
	if err != nil {
		return nil, err
	}
	op := &entity.Operator{Username: username, Name: name, Role: role, PasswordHash: hash}
	if err := uc.repo.Save(op); err != nil {
		return nil, err
	}
	out := toOperatorResponse(op)
	return &out, nil
}

func toOperatorResponse(op *entity.Operator) dto.OperatorResponse {
	return dto.OperatorResponse{Username: op.Username, Name: op.Name, Role: op.Role}
}
