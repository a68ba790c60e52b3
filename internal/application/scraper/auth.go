package scraper

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// DefaultPortalURL página de login del Emissor Nacional.
const DefaultPortalURL = "https://www.nfse.gov.br/EmissorNacional/Login?ReturnUrl=%2fEmissorNacional"

// CertConfidence similitud mínima para aceptar una coincidencia de imagen.
const CertConfidence = 0.8

// Authenticator inicia sesión en el portal según el tipo de acceso del cliente.
// Screen, Matcher, OCR y Dialogs solo se usan en el acceso por certificado;
// OCR y Dialogs pueden ser nil.
type Authenticator struct {
	PortalURL string
	ImagesDir string
	Timings   Timings

	Screen  ports.ScreenDriver
	Matcher ports.ImageMatcher
	OCR     ports.TextLocator
	Dialogs ports.DialogInspector

	// LoadImage lee un PNG de referencia; por defecto desde disco.
	LoadImage func(path string) (image.Image, error)

	log zerolog.Logger
}

// NewAuthenticator construye el autenticador con los valores por defecto.
func NewAuthenticator(portalURL, imagesDir string, t Timings, log zerolog.Logger) *Authenticator {
	if portalURL == "" {
		portalURL = DefaultPortalURL
	}
	return &Authenticator{
		PortalURL: portalURL,
		ImagesDir: imagesDir,
		Timings:   t,
		LoadImage: loadPNG,
		log:       log,
	}
}

// Login abre el portal y autentica. Cualquier falla se devuelve envolviendo
// domain.ErrAuthentication.
func (a *Authenticator) Login(ctx context.Context, b ports.Browser, c entity.ClientAccount) error {
	kind, err := c.AccessType()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
	}
	switch kind {
	case entity.AccessCredential:
		return a.loginCredential(ctx, b, c)
	case entity.AccessCertificate:
		return a.loginCertificate(ctx, b, c)
	}
	return fmt.Errorf("%w: tipo de acceso %q", domain.ErrAuthentication, kind)
}

func (a *Authenticator) loginCredential(ctx context.Context, b ports.Browser, c entity.ClientAccount) error {
	if strings.TrimSpace(c.Login) == "" || c.Password == "" {
		return fmt.Errorf("%w: LOGIN/SENHA vacíos", domain.ErrAuthentication)
	}
	if err := b.Navigate(ctx, a.PortalURL); err != nil {
		return fmt.Errorf("%w: abrir portal: %v", domain.ErrAuthentication, err)
	}
	if err := sleep(ctx, a.Timings.ActionDelay); err != nil {
		return err
	}

	user, err := waitFind(ctx, b, a.Timings.ElementTimeout, a.Timings.ElementInterval, LocLoginInput)
	if err != nil {
		return fmt.Errorf("%w: campo de login: %v", domain.ErrAuthentication, err)
	}
	if err := user.Input(c.Login); err != nil {
		return fmt.Errorf("%w: escribir login: %v", domain.ErrAuthentication, err)
	}
	pass, err := b.Find(LocPasswordInput)
	if err != nil {
		return fmt.Errorf("%w: campo de senha: %v", domain.ErrAuthentication, err)
	}
	if err := pass.Input(c.Password); err != nil {
		return fmt.Errorf("%w: escribir senha: %v", domain.ErrAuthentication, err)
	}
	submit, err := b.Find(LocLoginSubmit)
	if err != nil {
		return fmt.Errorf("%w: botón Acessar: %v", domain.ErrAuthentication, err)
	}
	if err := submit.Click(); err != nil {
		return fmt.Errorf("%w: click en Acessar: %v", domain.ErrAuthentication, err)
	}
	if err := sleep(ctx, a.Timings.ActionDelay); err != nil {
		return err
	}
	return a.waitLoggedIn(ctx, b)
}

// waitLoggedIn espera el menú de notas emitidas.
func (a *Authenticator) waitLoggedIn(ctx context.Context, b ports.Browser) error {
	ok, err := poll(ctx, a.Timings.LoginTimeout, a.Timings.LoginInterval, func() bool {
		_, ferr := b.Find(LocMenuIssued)
		return ferr == nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: el portal no mostró el menú tras el login", domain.ErrAuthentication)
	}
	a.log.Debug().Msg("sesión iniciada")
	return nil
}

// waitFind prueba los localizadores en orden hasta encontrar uno o vencer el timeout.
func waitFind(ctx context.Context, b ports.Browser, timeout, interval time.Duration, locs ...ports.Locator) (ports.Element, error) {
	var found ports.Element
	ok, err := poll(ctx, timeout, interval, func() bool {
		for _, loc := range locs {
			if el, ferr := b.Find(loc); ferr == nil {
				found = el
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrElementNotFound, locs[0])
	}
	return found, nil
}

func center(r image.Rectangle) (int, int) {
	return r.Min.X + r.Dx()/2, r.Min.Y + r.Dy()/2
}
