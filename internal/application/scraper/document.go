package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	"github.com/jhoicas/portal-nfse/internal/domain/nfse"
	pkgnfse "github.com/jhoicas/portal-nfse/pkg/nfse"
)

// NoNumber número usado cuando ni el XML ni el nombre del archivo lo traen.
const NoNumber = "SEM_NUMERO"

// DocumentProcessor descarga el XML (y el PDF si se puede) de la vista de detalle
// abierta, arma el registro normalizado y reubica los archivos en la carpeta de salida.
type DocumentProcessor struct {
	DownloadDir string
	Timings     Timings
	log         zerolog.Logger
}

// NewDocumentProcessor construye el procesador sobre el directorio de descargas del navegador.
func NewDocumentProcessor(downloadDir string, t Timings, log zerolog.Logger) *DocumentProcessor {
	return &DocumentProcessor{DownloadDir: downloadDir, Timings: t, log: log}
}

// Process devuelve el registro de la nota visible en b. Sin XML descargado no hay
// registro: el error envuelve domain.ErrElementNotFound o domain.ErrDownloadTimeout.
// Un XML ilegible no es error: el registro sale con los campos disponibles.
func (p *DocumentProcessor) Process(ctx context.Context, b ports.Browser, c entity.ClientAccount, row entity.InvoiceRow, outDir string) (entity.ExtractedInvoice, error) {
	xmlPath, err := p.download(ctx, b, ".xml", LocXMLButton, LocXMLButtonFallback)
	if err != nil {
		return entity.ExtractedInvoice{}, fmt.Errorf("descarga xml: %w", err)
	}

	doc, perr := nfse.ParseFile(xmlPath)
	if perr != nil {
		p.log.Warn().Err(perr).Str("archivo", filepath.Base(xmlPath)).Msg("xml ilegible, registro con campos parciales")
		doc = &nfse.Document{}
	}
	inv := BuildRecord(doc, c, row, xmlPath)

	base := fmt.Sprintf("%s - NF %s", inv.TakerName, inv.Number)
	if dst, err := MoveWithBaseName(xmlPath, outDir, base); err != nil {
		p.log.Warn().Err(err).Str("archivo", xmlPath).Msg("no se pudo mover el xml")
	} else {
		p.log.Debug().Str("destino", dst).Msg("xml guardado")
	}

	// El PDF es opcional: su falla nunca invalida el registro.
	if pdfPath, err := p.download(ctx, b, ".pdf", LocPDFButton, LocPDFButtonFallback); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return inv, nil
		}
		p.log.Warn().Err(err).Str("nf", inv.Number).Msg("pdf no disponible")
	} else if _, err := MoveWithBaseName(pdfPath, outDir, base); err != nil {
		p.log.Warn().Err(err).Str("archivo", pdfPath).Msg("no se pudo mover el pdf")
	}
	return inv, nil
}

// download espera el botón, toma la línea base del directorio justo antes del click
// y espera el archivo nuevo. Lo que aparezca mientras se busca el botón no cuenta.
func (p *DocumentProcessor) download(ctx context.Context, b ports.Browser, ext string, locs ...ports.Locator) (string, error) {
	btn, err := waitFind(ctx, b, p.Timings.ElementTimeout, p.Timings.ElementInterval, locs...)
	if err != nil {
		return "", err
	}
	baseline, err := listFiles(p.DownloadDir, ext)
	if err != nil {
		return "", err
	}
	if err := btn.Click(); err != nil {
		if err := btn.ScriptClick(); err != nil {
			return "", fmt.Errorf("click en botón %s: %w", ext, err)
		}
	}
	return waitNewFile(ctx, p.DownloadDir, ext, baseline, p.Timings.DownloadTimeout, p.Timings.DownloadInterval)
}

// BuildRecord completa el registro extraído con los datos de la fila y del cliente,
// y aplica la regla de cancelación.
func BuildRecord(doc *nfse.Document, c entity.ClientAccount, row entity.InvoiceRow, xmlPath string) entity.ExtractedInvoice {
	inv := doc.Invoice

	if inv.Number == "" {
		name := strings.TrimSuffix(filepath.Base(xmlPath), filepath.Ext(xmlPath))
		if digits := pkgnfse.DigitsOnly(name); digits != "" {
			inv.Number = digits
		} else {
			inv.Number = NoNumber
		}
	}
	if inv.IssueDate == "" && row.IssueDateText != entity.RowUnknown {
		inv.IssueDate = row.IssueDateText
	}
	if inv.CompetencyDate == "" && row.CompetencyText != entity.RowUnknown {
		inv.CompetencyDate = row.CompetencyText
	}
	if inv.ProviderName == "" {
		inv.ProviderName = strings.TrimSpace(c.Company)
	}
	if inv.TakerName == "" {
		inv.TakerName = c.DisplayName()
	}
	inv.TakerName = strings.ToUpper(inv.TakerName)

	nfse.Finalize(&inv, doc.StatusCode, row.Cancelled)
	return inv
}

// isNotFound errores esperables de la interacción con la página.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrElementNotFound) || errors.Is(err, domain.ErrDownloadTimeout)
}
