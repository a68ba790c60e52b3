package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Taxonomía del robot NFS-e. Se envuelven con fmt.Errorf("...: %w", err)
	// y se clasifican con errors.Is en la frontera de cliente.
	ErrAuthentication  = errors.New("falla de autenticación en el portal")
	ErrNavigation      = errors.New("página o menú esperado inaccesible")
	ErrElementNotFound = errors.New("elemento esperado ausente dentro del timeout")
	ErrDownloadTimeout = errors.New("archivo descargado no apareció dentro del timeout")
	ErrParse           = errors.New("documento ilegible o malformado")
	ErrRunLevel        = errors.New("error a nivel de ejecución")
)
