package scraper_test

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/application/scraper"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

const (
	xmlNormal    = "../../domain/nfse/testdata/nfse_normal.xml"
	xmlCancelada = "../../domain/nfse/testdata/nfse_cancelada.xml"
)

// fastTimings esperas mínimas para tests.
func fastTimings() scraper.Timings {
	return scraper.Timings{
		LoginTimeout:      200 * time.Millisecond,
		LoginInterval:     5 * time.Millisecond,
		ElementTimeout:    50 * time.Millisecond,
		ElementInterval:   5 * time.Millisecond,
		DownloadTimeout:   200 * time.Millisecond,
		DownloadInterval:  5 * time.Millisecond,
		CertButtonTimeout: 50 * time.Millisecond,
		CertPickerTimeout: 50 * time.Millisecond,
		CertPollInterval:  5 * time.Millisecond,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Portal falso en memoria
// ──────────────────────────────────────────────────────────────────────────────

// fakeRow fila de la lista; XML es la ruta del documento que baja "Visualizar".
type fakeRow struct {
	Number     string
	Issue      string
	Competency string
	Cancelled  bool
	XML        string
	NoXML      bool
}

type fakePortal struct {
	mu sync.Mutex

	Login, Password string
	Pages           [][]fakeRow
	NewTab          bool
	NoPDF           bool
	// StickyLast la última página tiene "Próxima" pero no avanza.
	StickyLast bool
	NoMenu     bool

	downloadDir string
	typed       map[string]string
	loggedIn    bool
	page        int
	flyoutRow   int
	detailRow   *fakeRow
	windows     []string
	current     string
	closed      bool

	Visits    []int // página de cada HTML() que inició un recorrido de página
	Navigated []string
}

func newFakePortal(login, pass string, pages ...[]fakeRow) *fakePortal {
	return &fakePortal{
		Login: login, Password: pass, Pages: pages,
		typed: map[string]string{}, flyoutRow: -1,
		windows: []string{"main"}, current: "main",
	}
}

var _ ports.Browser = (*fakePortal)(nil)

func (p *fakePortal) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigated = append(p.Navigated, url)
	return nil
}

func (p *fakePortal) setLoggedIn() {
	p.mu.Lock()
	p.loggedIn = true
	p.mu.Unlock()
}

func (p *fakePortal) Find(loc ports.Locator) (ports.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch loc {
	case scraper.LocLoginInput, scraper.LocPasswordInput:
		return &fakeElement{input: func(s string) { p.typed[loc.Value] = s }}, nil
	case scraper.LocLoginSubmit:
		return &fakeElement{click: func() error {
			if p.typed["Inscricao"] == p.Login && p.typed["Senha"] == p.Password {
				p.loggedIn = true
			}
			return nil
		}}, nil
	case scraper.LocMenuIssued:
		if !p.loggedIn || p.NoMenu {
			return nil, domain.ErrElementNotFound
		}
		return &fakeElement{click: func() error { p.page = 0; return nil }}, nil
	case scraper.LocNextPage:
		if p.page == len(p.Pages)-1 && !p.StickyLast {
			return nil, domain.ErrElementNotFound
		}
		return &fakeElement{click: func() error {
			if p.page < len(p.Pages)-1 {
				p.page++
			}
			return nil
		}}, nil
	case scraper.LocViewAction:
		if p.flyoutRow < 0 {
			return nil, domain.ErrElementNotFound
		}
		row := p.Pages[p.page][p.flyoutRow]
		return &fakeElement{click: func() error {
			p.detailRow = &row
			p.flyoutRow = -1
			if p.NewTab {
				h := fmt.Sprintf("tab-%d", len(p.windows))
				p.windows = append(p.windows, h)
			}
			return nil
		}}, nil
	case scraper.LocXMLButton:
		if p.detailRow == nil || p.detailRow.NoXML {
			return nil, domain.ErrElementNotFound
		}
		row := *p.detailRow
		return &fakeElement{click: func() error { return p.download(row.XML, "NFSe_"+row.Number+".xml") }}, nil
	case scraper.LocPDFButton:
		if p.detailRow == nil || p.NoPDF {
			return nil, domain.ErrElementNotFound
		}
		row := *p.detailRow
		return &fakeElement{click: func() error { return p.writeDownload("DANFSe_"+row.Number+".pdf", []byte("%PDF-1.4")) }}, nil
	}
	return nil, domain.ErrElementNotFound
}

func (p *fakePortal) FindAll(loc ports.Locator) ([]ports.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if loc != scraper.LocListingRows || p.detailRow != nil {
		return nil, domain.ErrElementNotFound
	}
	var out []ports.Element
	for i := range p.Pages[p.page] {
		i := i
		trigger := &fakeElement{scriptClick: func() error { p.flyoutRow = i; return nil }}
		out = append(out, &fakeElement{children: map[ports.Locator]ports.Element{scraper.LocRowTrigger: trigger}})
	}
	return out, nil
}

func (p *fakePortal) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detailRow != nil {
		return "<html><body><div id=\"searchbar\"></div></body></html>", nil
	}
	p.Visits = append(p.Visits, p.page)
	return listingHTML(p.Pages[p.page]), nil
}

func (p *fakePortal) WindowHandles() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.windows...), nil
}

func (p *fakePortal) CurrentWindow() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakePortal) SwitchTo(h string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = h
	return nil
}

func (p *fakePortal) CloseWindow() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.windows {
		if h == p.current && h != "main" {
			p.windows = append(p.windows[:i], p.windows[i+1:]...)
			break
		}
	}
	p.detailRow = nil
	return nil
}

func (p *fakePortal) Back() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detailRow = nil
	return nil
}

func (p *fakePortal) Screenshot() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 100, 100)), nil
}

func (p *fakePortal) ClickAt(x, y int) error { return nil }

func (p *fakePortal) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return fmt.Errorf("chrome ya cerrado") // el orquestador debe ignorarlo
}

func (p *fakePortal) download(src, name string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return p.writeDownload(name, data)
}

func (p *fakePortal) writeDownload(name string, data []byte) error {
	return os.WriteFile(filepath.Join(p.downloadDir, name), data, 0o644)
}

func listingHTML(rows []fakeRow) string {
	var sb strings.Builder
	sb.WriteString("<html><body><table><thead><tr><th>Emissão</th></tr></thead><tbody>")
	for _, r := range rows {
		icon := `<img src="/EmissorNacional/img/tb-gerada.svg" title="Gerada">`
		if r.Cancelled {
			icon = `<img src="/EmissorNacional/img/tb-cancelada.svg" data-original-title="NFS-e Cancelada">`
		}
		fmt.Fprintf(&sb, `<tr><td>%s</td><td>%s</td><td>%s</td><td>TOMADOR</td><td>1.000,00</td><td>%s</td><td><a class="icone-trigger" href="#">...</a></td></tr>`,
			r.Issue, r.Number, r.Competency, icon)
	}
	sb.WriteString("</tbody></table></body></html>")
	return sb.String()
}

// ──────────────────────────────────────────────────────────────────────────────
// Elementos
// ──────────────────────────────────────────────────────────────────────────────

type fakeElement struct {
	text        string
	click       func() error
	scriptClick func() error
	input       func(string)
	children    map[ports.Locator]ports.Element
}

func (e *fakeElement) Text() (string, error)            { return e.text, nil }
func (e *fakeElement) Attribute(string) (string, error) { return "", nil }
func (e *fakeElement) FindAll(ports.Locator) ([]ports.Element, error) {
	return nil, domain.ErrElementNotFound
}

func (e *fakeElement) Click() error {
	if e.click != nil {
		return e.click()
	}
	if e.scriptClick != nil {
		return e.scriptClick()
	}
	return nil
}

func (e *fakeElement) ScriptClick() error {
	if e.scriptClick != nil {
		return e.scriptClick()
	}
	return e.Click()
}

func (e *fakeElement) Input(s string) error {
	if e.input != nil {
		e.input(s)
	}
	return nil
}

func (e *fakeElement) Find(loc ports.Locator) (ports.Element, error) {
	if el, ok := e.children[loc]; ok {
		return el, nil
	}
	return nil, domain.ErrElementNotFound
}

// ──────────────────────────────────────────────────────────────────────────────
// Colaboradores de la ejecución
// ──────────────────────────────────────────────────────────────────────────────

type fakeFactory struct {
	portals     []*fakePortal
	opened      int
	downloadDir string
}

func (f *fakeFactory) Open(_ context.Context, downloadDir string) (ports.Browser, error) {
	if f.opened >= len(f.portals) {
		return nil, fmt.Errorf("sin navegador disponible")
	}
	p := f.portals[f.opened]
	f.opened++
	p.downloadDir = downloadDir
	return p, nil
}

type fakeRoster struct {
	clients []entity.ClientAccount
	err     error
}

func (r fakeRoster) Load(context.Context) ([]entity.ClientAccount, error) { return r.clients, r.err }

type memLedger struct {
	dir  string
	rows []entity.ExtractedInvoice
	err  error
}

func (l *memLedger) WriteLedger(_ context.Context, dir string, run *entity.LedgerRun) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.dir = dir
	l.rows = run.Rows()
	return filepath.Join(dir, entity.LedgerName(run.Competency)+".xlsx"), nil
}

type memSummary struct {
	statuses []entity.StatusRow
}

func (s *memSummary) WriteSummary(_ context.Context, dir string, run *entity.LedgerRun, st []entity.StatusRow) (string, error) {
	s.statuses = st
	return filepath.Join(dir, "RESUMO.pdf"), nil
}

type sinkRecorder struct {
	mu  sync.Mutex
	evs []entity.ProgressEvent
}

func (s *sinkRecorder) Emit(ev entity.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, ev)
}

func (s *sinkRecorder) kinds() []entity.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.EventKind, len(s.evs))
	for i, ev := range s.evs {
		out[i] = ev.Kind
	}
	return out
}

func (s *sinkRecorder) ends() []entity.StatusRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.StatusRow
	for _, ev := range s.evs {
		if ev.Kind == entity.EventClientEnd {
			out = append(out, *ev.Row)
		}
	}
	return out
}

func (s *sinkRecorder) last() entity.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evs[len(s.evs)-1]
}

type neverCancel struct{}

func (neverCancel) Cancelled() bool { return false }
