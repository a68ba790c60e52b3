// Package certificate lectura de certificados A1 (.pfx/.p12) de los clientes.
package certificate

import (
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/portal-nfse/pkg/nfse"
)

// Info datos del titular relevantes para IDENT_CERT.
type Info struct {
	CommonName string
	Holder     string // CN sin el sufijo :<CNPJ/CPF>
	TaxID      string // dígitos tras ':' en certificados ICP-Brasil
	Issuer     string
	Serial     string
	NotAfter   time.Time
}

// Expired true si el certificado venció en now.
func (i Info) Expired(now time.Time) bool { return now.After(i.NotAfter) }

// Resolver implementa xlsx.CertResolver.
type Resolver struct{}

// NewResolver construye el lector.
func NewResolver() Resolver { return Resolver{} }

// CommonName CN del titular de path.
func (Resolver) CommonName(path, password string) (string, error) {
	info, err := Load(path, password)
	if err != nil {
		return "", err
	}
	return info.CommonName, nil
}

// Load decodifica el .pfx. El password puede ser vacío si el archivo no está protegido.
func Load(path, password string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("leer p12: %w", err)
	}
	return Decode(data, password)
}

// Decode igual que Load sobre bytes ya leídos.
func Decode(data []byte, password string) (Info, error) {
	_, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return Info{}, fmt.Errorf("decodificar p12: %w", err)
	}
	return FromX509(cert), nil
}

// FromX509 arma Info desde el certificado hoja.
func FromX509(cert *x509.Certificate) Info {
	holder, taxID := SplitCommonName(cert.Subject.CommonName)
	return Info{
		CommonName: cert.Subject.CommonName,
		Holder:     holder,
		TaxID:      taxID,
		Issuer:     cert.Issuer.CommonName,
		Serial:     cert.SerialNumber.Text(16),
		NotAfter:   cert.NotAfter,
	}
}

// SplitCommonName "EMPRESA LTDA:12345678000199" → ("EMPRESA LTDA", "12345678000199").
func SplitCommonName(cn string) (holder, taxID string) {
	name, rest, ok := strings.Cut(cn, ":")
	if !ok {
		return strings.TrimSpace(cn), ""
	}
	return strings.TrimSpace(name), nfse.DigitsOnly(rest)
}
