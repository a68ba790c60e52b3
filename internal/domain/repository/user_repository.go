package repository

import "github.com/jhoicas/portal-nfse/internal/domain/entity"

// OperatorRepository define el puerto de persistencia para Operator (DIP).
type OperatorRepository interface {
	// FindByUsername devuelve nil, nil si no existe.
	FindByUsername(username string) (*entity.Operator, error)
	Save(op *entity.Operator) error
}
