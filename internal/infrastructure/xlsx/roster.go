// Package xlsx planillas del robot: roster de clientes (entrada) y libro LOG_NFSE (salida).
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	"github.com/jhoicas/portal-nfse/pkg/nfse"
)

// RosterColumns columnas obligatorias de la planilla de clientes.
var RosterColumns = []string{
	"EMPRESA", "CNPJ", "TIPO_ACESSO", "LOGIN", "SENHA",
	"ATIVO", "PREFEITURA", "IDENT_CERT", "IMG_CERT",
}

// CertResolver obtiene el CN del titular de un certificado .pfx/.p12.
type CertResolver interface {
	CommonName(path, password string) (string, error)
}

// Roster lee la planilla de clientes en cada ejecución (se edita a mano entre corridas).
type Roster struct {
	Path         string
	CertPassword string
	Certs        CertResolver
	log          zerolog.Logger
}

var _ ports.RosterSource = (*Roster)(nil)

// NewRoster roster sobre path. certs puede ser nil.
func NewRoster(path, certPassword string, certs CertResolver, log zerolog.Logger) *Roster {
	return &Roster{
		Path:         path,
		CertPassword: certPassword,
		Certs:        certs,
		log:          log.With().Str("component", "roster").Logger(),
	}
}

// Load todas las filas de la primera hoja. Si el archivo no existe se crea
// una plantilla vacía y se devuelve una lista vacía.
func (r *Roster) Load(ctx context.Context) ([]entity.ClientAccount, error) {
	if _, err := os.Stat(r.Path); errors.Is(err, os.ErrNotExist) {
		if err := WriteRosterTemplate(r.Path); err != nil {
			return nil, err
		}
		r.log.Warn().Str("path", r.Path).Msg("planilla de clientes inexistente: se creó una plantilla vacía")
		return nil, nil
	}

	f, err := excelize.OpenFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("abrir %s: %w", r.Path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: planilla sin hojas", r.Path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("leer %s: %w", r.Path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: faltan columnas %s", r.Path, strings.Join(RosterColumns, ", "))
	}

	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Path, err)
	}

	var out []entity.ClientAccount
	for _, row := range rows[1:] {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		cell := func(col string) string {
			i := idx[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		c := entity.ClientAccount{
			Company:      cell("EMPRESA"),
			TaxID:        cell("CNPJ"),
			AccessRaw:    cell("TIPO_ACESSO"),
			Login:        cell("LOGIN"),
			Password:     cell("SENHA"),
			Active:       strings.ToUpper(cell("ATIVO")) == "S",
			Municipality: cell("PREFEITURA"),
			CertIdent:    cell("IDENT_CERT"),
			CertImage:    cell("IMG_CERT"),
		}
		if c.Company == "" && c.TaxID == "" {
			continue
		}
		if c.Active {
			if err := nfse.ValidateTaxID(c.TaxID); err != nil {
				r.log.Warn().Str("empresa", c.Company).Err(err).Msg("CNPJ da planilha não confere")
			}
		}
		c.CertIdent = r.resolveIdent(c.CertIdent)
		out = append(out, c)
	}
	return out, nil
}

// resolveIdent IDENT_CERT que apunta a un .pfx se reemplaza por el CN del titular.
func (r *Roster) resolveIdent(ident string) string {
	ext := strings.ToLower(filepath.Ext(ident))
	if r.Certs == nil || r.CertPassword == "" || (ext != ".pfx" && ext != ".p12") {
		return ident
	}
	path := ident
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(r.Path), path)
	}
	cn, err := r.Certs.CommonName(path, r.CertPassword)
	if err != nil {
		r.log.Warn().Err(err).Str("cert", ident).Msg("no se pudo leer el CN del certificado")
		return ident
	}
	return cn
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range RosterColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("faltan columnas %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// WriteRosterTemplate planilla vacía con el encabezado esperado.
func WriteRosterTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "CLIENTES"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := make([]any, len(RosterColumns))
	for i, c := range RosterColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("crear plantilla %s: %w", path, err)
	}
	return nil
}
