//go:build !windows

// Package dialog inspección de ventanas nativas (selector de certificados de Windows).
package dialog

import "github.com/jhoicas/portal-nfse/internal/application/ports"

// Inspector fuera de Windows no hay selector nativo que inspeccionar; el
// acceso por certificado sigue por OCR o por imagen.
type Inspector struct{}

var _ ports.DialogInspector = Inspector{}

// New inspector nulo.
func New() Inspector { return Inspector{} }

func (Inspector) FindDialog([]string) (ports.Dialog, bool, error) {
	return nil, false, ports.ErrInspectionUnavailable
}
