// Package browser implementa ports.Browser sobre Chrome vía go-rod (CDP).
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain"
)

// Options toggles de arranque (no afectan la lógica del robot).
type Options struct {
	Headless bool
	Bin      string // binario de Chrome explícito
	// Control URL de DevTools (ws://...) de un Chrome ya levantado, o binario
	// alternativo cuando Bin está vacío.
	Control        string
	ViewportWidth  int
	ViewportHeight int
	// ActionTimeout tope de cada interacción (click, input, navegación, consultas).
	ActionTimeout time.Duration
}

// DefaultActionTimeout tope por interacción cuando Options no lo fija.
const DefaultActionTimeout = 20 * time.Second

// Factory abre una sesión de Chrome nueva por cliente.
type Factory struct {
	opts Options
	log  zerolog.Logger
}

var _ ports.BrowserFactory = (*Factory)(nil)

// NewFactory construye la fábrica.
func NewFactory(opts Options, log zerolog.Logger) *Factory {
	if opts.ViewportWidth == 0 {
		opts.ViewportWidth = 1366
	}
	if opts.ViewportHeight == 0 {
		opts.ViewportHeight = 768
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}
	return &Factory{opts: opts, log: log}
}

// Open lanza (o se conecta a) Chrome con descargas permitidas en downloadDir.
func (f *Factory) Open(ctx context.Context, downloadDir string) (ports.Browser, error) {
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("directorio de descargas: %w", err)
	}

	var l *launcher.Launcher
	controlURL := f.opts.Control
	if !isControlURL(controlURL) {
		l = launcher.New().
			Headless(f.opts.Headless).
			Leakless(false).
			Set("disable-gpu").
			Set("no-sandbox").
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled").
			Set("start-maximized")
		switch {
		case f.opts.Bin != "":
			l = l.Bin(f.opts.Bin)
		case controlURL != "":
			l = l.Bin(controlURL)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("iniciar navegador: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("conectar al navegador: %w", err)
	}
	// Conexión sin el contexto del cliente: Close debe funcionar aunque ctx termine.
	b = b.Context(context.Background())

	if err := (proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  downloadDir,
		EventsEnabled: true,
	}).Call(b); err != nil {
		f.log.Warn().Err(err).Msg("no se pudo fijar el directorio de descargas")
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("crear página: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             f.opts.ViewportWidth,
		Height:            f.opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		f.log.Warn().Err(err).Msg("no se pudo configurar el viewport")
	}

	return &Session{browser: b, page: page, launcher: l, timeout: f.opts.ActionTimeout, log: f.log}, nil
}

func isControlURL(s string) bool {
	return strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://") ||
		strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Session una sesión de Chrome; page es la pestaña activa.
type Session struct {
	mu       sync.Mutex
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	timeout  time.Duration
	log      zerolog.Logger
}

var _ ports.Browser = (*Session)(nil)

func (s *Session) current() *rod.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// bounded pestaña activa con el tope por interacción; llamar al cancel al terminar.
func (s *Session) bounded() (*rod.Page, func()) {
	p := s.current().Timeout(s.timeout)
	return p, func() { p.CancelTimeout() }
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.current().Context(ctx).Timeout(s.timeout)
	defer p.CancelTimeout()
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navegar a %s: %w", url, err)
	}
	return p.WaitLoad()
}

func (s *Session) Find(loc ports.Locator) (ports.Element, error) {
	els, err := s.FindAll(loc)
	if err != nil {
		return nil, err
	}
	return els[0], nil
}

func (s *Session) FindAll(loc ports.Locator) ([]ports.Element, error) {
	parent := s.current().GetContext()
	p, cancel := s.bounded()
	defer cancel()
	return findAll(p, loc, parent, s.timeout)
}

func (s *Session) HTML() (string, error) {
	p, cancel := s.bounded()
	defer cancel()
	return p.HTML()
}

func (s *Session) WindowHandles() ([]string, error) {
	pages, err := s.browser.Pages()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, string(p.TargetID))
	}
	return out, nil
}

func (s *Session) CurrentWindow() string {
	return string(s.current().TargetID)
}

func (s *Session) SwitchTo(handle string) error {
	p, err := s.browser.PageFromTarget(proto.TargetTargetID(handle))
	if err != nil {
		return fmt.Errorf("pestaña %s: %w", handle, err)
	}
	if _, err := p.Activate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.page = p
	s.mu.Unlock()
	return nil
}

func (s *Session) CloseWindow() error {
	p, cancel := s.bounded()
	defer cancel()
	return p.Close()
}

func (s *Session) Back() error {
	p, cancel := s.bounded()
	defer cancel()
	if err := p.NavigateBack(); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *Session) Screenshot() (image.Image, error) {
	p, cancel := s.bounded()
	defer cancel()
	data, err := p.Screenshot(false, nil)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}

func (s *Session) ClickAt(x, y int) error {
	p := s.current()
	if err := p.Mouse.MoveTo(proto.NewPoint(float64(x), float64(y))); err != nil {
		return err
	}
	return p.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

// Close cierra el navegador y mata el proceso lanzado.
func (s *Session) Close() error {
	err := s.browser.Close()
	if s.launcher != nil {
		s.launcher.Kill()
	}
	return err
}

// ── elementos ─────────────────────────────────────────────────────────────────

type searcher interface {
	Elements(selector string) (rod.Elements, error)
	ElementsX(xpath string) (rod.Elements, error)
}

// findAll búsqueda inmediata, sin los reintentos por defecto de rod. root ya viene
// acotado; los elementos devueltos vuelven al contexto parent.
func findAll(root searcher, loc ports.Locator, parent context.Context, timeout time.Duration) ([]ports.Element, error) {
	var (
		els rod.Elements
		err error
	)
	switch loc.Kind {
	case ports.KindXPath:
		els, err = root.ElementsX(loc.Value)
	case ports.KindCSS:
		els, err = root.Elements(loc.Value)
	case ports.KindID:
		els, err = root.Elements(`[id="` + loc.Value + `"]`)
	default:
		return nil, fmt.Errorf("localizador desconocido %s", loc)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrElementNotFound, loc)
	}
	out := make([]ports.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el.Context(parent), timeout: timeout}
	}
	return out, nil
}

type element struct {
	el      *rod.Element
	timeout time.Duration
}

func (e *element) bounded() (*rod.Element, func()) {
	el := e.el.Timeout(e.timeout)
	return el, func() { el.CancelTimeout() }
}

func (e *element) Text() (string, error) {
	el, cancel := e.bounded()
	defer cancel()
	return el.Text()
}

func (e *element) Attribute(name string) (string, error) {
	el, cancel := e.bounded()
	defer cancel()
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

// Click con tope: un elemento tapado devuelve error y el llamador cae a ScriptClick.
func (e *element) Click() error {
	el, cancel := e.bounded()
	defer cancel()
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) ScriptClick() error {
	el, cancel := e.bounded()
	defer cancel()
	_, err := el.Eval(`() => this.click()`)
	return err
}

func (e *element) Input(text string) error {
	el, cancel := e.bounded()
	defer cancel()
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (e *element) Find(loc ports.Locator) (ports.Element, error) {
	els, err := e.FindAll(loc)
	if err != nil {
		return nil, err
	}
	return els[0], nil
}

func (e *element) FindAll(loc ports.Locator) ([]ports.Element, error) {
	el, cancel := e.bounded()
	defer cancel()
	return findAll(el, loc, e.el.GetContext(), e.timeout)
}
