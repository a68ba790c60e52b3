package scraper_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/application/scraper"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// lateLeftoverPortal en la primera búsqueda del botón XML no lo encuentra y deja caer
// en descargas el XML de una nota anterior; después el botón aparece pero su click
// no descarga nada.
type lateLeftoverPortal struct {
	*fakePortal
	leftover string
	searches int
	clicked  bool
}

func (p *lateLeftoverPortal) Find(loc ports.Locator) (ports.Element, error) {
	switch loc {
	case scraper.LocXMLButton:
		p.searches++
		if p.searches == 1 {
			if err := p.download(xmlNormal, p.leftover); err != nil {
				return nil, err
			}
			return nil, domain.ErrElementNotFound
		}
		return &fakeElement{click: func() error { p.clicked = true; return nil }}, nil
	case scraper.LocXMLButtonFallback:
		return nil, domain.ErrElementNotFound
	}
	return p.fakePortal.Find(loc)
}

func TestProcess_ArchivoViejoDuranteLaBusquedaNoSeAtribuye(t *testing.T) {
	dir := t.TempDir()
	p := &lateLeftoverPortal{fakePortal: newFakePortal("u", "p"), leftover: "NFSe_anterior.xml"}
	p.downloadDir = dir

	proc := scraper.NewDocumentProcessor(dir, fastTimings(), zerolog.Nop())
	_, err := proc.Process(context.Background(), p, acme, entity.InvoiceRow{}, t.TempDir())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDownloadTimeout), "sin descarga tras el click: %v", err)
	assert.True(t, p.clicked)
	assert.GreaterOrEqual(t, p.searches, 2)
	_, serr := os.Stat(filepath.Join(dir, "NFSe_anterior.xml"))
	assert.NoError(t, serr, "el archivo viejo queda donde estaba")
}

func TestProcess_ArchivoPrevioEnDescargasNoSeAtribuye(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(xmlNormal)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NFSe_viejo.xml"), data, 0o644))

	// botón disponible desde la primera búsqueda, click sin descarga
	p := &lateLeftoverPortal{fakePortal: newFakePortal("u", "p"), searches: 1}
	p.downloadDir = dir

	proc := scraper.NewDocumentProcessor(dir, fastTimings(), zerolog.Nop())
	_, err = proc.Process(context.Background(), p, acme, entity.InvoiceRow{}, t.TempDir())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDownloadTimeout))
	assert.True(t, p.clicked)
}
