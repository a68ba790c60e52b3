package entity

import (
	"fmt"
	"strings"
)

// AccessType forma de acceso de un cliente al portal.
type AccessType string

// Tipos de acceso admitidos (valores de la columna TIPO_ACESSO).
const (
	AccessCredential  AccessType = "CREDENTIAL"  // LOGIN_SENHA en la planilla
	AccessCertificate AccessType = "CERTIFICATE" // CERTIFICADO en la planilla
)

// ParseAccessType normaliza el valor de la planilla. Un valor desconocido
// devuelve error; el orquestador lo convierte en falla del cliente.
func ParseAccessType(raw string) (AccessType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LOGIN_SENHA", "CREDENTIAL":
		return AccessCredential, nil
	case "CERTIFICADO", "CERTIFICATE":
		return AccessCertificate, nil
	default:
		return "", fmt.Errorf("TIPO_ACESSO inválido: %q", raw)
	}
}

// ClientAccount fila del roster de clientes. Solo lectura para el robot.
type ClientAccount struct {
	Company      string // EMPRESA
	TaxID        string // CNPJ
	AccessRaw    string // TIPO_ACESSO tal cual viene de la planilla
	Login        string
	Password     string
	Active       bool   // ATIVO == "S"
	Municipality string // PREFEITURA
	CertIdent    string // IDENT_CERT: texto del certificado en el selector nativo
	CertImage    string // IMG_CERT: nombre del PNG del certificado
}

// AccessType devuelve el tipo de acceso normalizado.
func (c ClientAccount) AccessType() (AccessType, error) {
	return ParseAccessType(c.AccessRaw)
}

// DisplayName nombre de la empresa en mayúsculas, usado como respaldo de razón social.
func (c ClientAccount) DisplayName() string {
	return strings.ToUpper(strings.TrimSpace(c.Company))
}
