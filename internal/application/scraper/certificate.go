package scraper

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// errPickerSkipped la estrategia no aplica o no encontró nada; se prueba la siguiente.
var errPickerSkipped = errors.New("estrategia de selector no aplicable")

func (a *Authenticator) loginCertificate(ctx context.Context, b ports.Browser, c entity.ClientAccount) error {
	if a.Matcher == nil {
		return fmt.Errorf("%w: acceso por certificado sin comparador de imágenes", domain.ErrAuthentication)
	}
	if err := b.Navigate(ctx, a.PortalURL); err != nil {
		return fmt.Errorf("%w: abrir portal: %v", domain.ErrAuthentication, err)
	}
	if err := sleep(ctx, a.Timings.CertPopupSettle); err != nil {
		return err
	}
	if err := a.clickCertButton(ctx, b); err != nil {
		return err
	}
	if err := sleep(ctx, a.Timings.CertPopupSettle); err != nil {
		return err
	}
	if err := a.pickCertificate(ctx, c); err != nil {
		return err
	}
	return a.waitLoggedIn(ctx, b)
}

// clickCertButton busca el botón "Acesso via certificado" en la captura de la pestaña.
func (a *Authenticator) clickCertButton(ctx context.Context, b ports.Browser) error {
	tpl, err := a.LoadImage(filepath.Join(a.ImagesDir, CertButtonImage))
	if err != nil {
		return fmt.Errorf("%w: imagen %s: %v", domain.ErrAuthentication, CertButtonImage, err)
	}
	var hit image.Rectangle
	ok, err := poll(ctx, a.Timings.CertButtonTimeout, a.Timings.CertPollInterval, func() bool {
		shot, serr := b.Screenshot()
		if serr != nil {
			return false
		}
		r, found := a.Matcher.Match(shot, tpl, CertConfidence)
		if found {
			hit = r
		}
		return found
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: botón de acceso por certificado no encontrado", domain.ErrAuthentication)
	}
	x, y := center(hit)
	if err := b.ClickAt(x, y); err != nil {
		return fmt.Errorf("%w: click en botón de certificado: %v", domain.ErrAuthentication, err)
	}
	return nil
}

// pickCertificate elige el certificado en el selector nativo: inspección del diálogo,
// luego OCR sobre la pantalla, y por último imagen del certificado + ENTER.
func (a *Authenticator) pickCertificate(ctx context.Context, c entity.ClientAccount) error {
	strategies := []struct {
		name string
		fn   func(context.Context, entity.ClientAccount) error
	}{
		{"diálogo", a.pickByDialog},
		{"ocr", a.pickByText},
		{"imagen", a.pickByImage},
	}
	for _, s := range strategies {
		err := s.fn(ctx, c)
		if err == nil {
			a.log.Debug().Str("estrategia", s.name).Msg("certificado seleccionado")
			return nil
		}
		if !errors.Is(err, errPickerSkipped) {
			return err
		}
		a.log.Debug().Str("estrategia", s.name).Msg("selector de certificado: se prueba la siguiente estrategia")
	}
	return fmt.Errorf("%w: no fue posible seleccionar el certificado %q", domain.ErrAuthentication, c.CertIdent)
}

func (a *Authenticator) pickByDialog(ctx context.Context, c entity.ClientAccount) error {
	if a.Dialogs == nil || strings.TrimSpace(c.CertIdent) == "" {
		return errPickerSkipped
	}
	var dlg ports.Dialog
	var inspectErr error
	ok, err := poll(ctx, a.Timings.CertPickerTimeout, a.Timings.CertPollInterval, func() bool {
		d, found, ferr := a.Dialogs.FindDialog(CertDialogTitles)
		if ferr != nil {
			inspectErr = ferr
			return true
		}
		dlg = d
		return found
	})
	if err != nil {
		return err
	}
	if inspectErr != nil || !ok {
		return errPickerSkipped
	}

	_ = dlg.Focus()
	controls, err := dlg.Controls()
	if err != nil {
		return errPickerSkipped
	}
	ident := strings.ToLower(strings.TrimSpace(c.CertIdent))
	var target ports.DialogControl
	for _, ctl := range controls {
		if strings.Contains(strings.ToLower(ctl.Text()), ident) {
			target = ctl
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: certificado %q no está en %q", domain.ErrAuthentication, c.CertIdent, dlg.Title())
	}
	if err := target.Click(); err != nil {
		return fmt.Errorf("%w: click en certificado: %v", domain.ErrAuthentication, err)
	}
	for _, ctl := range controls {
		if isOKLabel(ctl.Text()) {
			if err := ctl.Click(); err != nil {
				return fmt.Errorf("%w: click en OK: %v", domain.ErrAuthentication, err)
			}
			return nil
		}
	}
	return a.pressEnter()
}

func (a *Authenticator) pickByText(ctx context.Context, c entity.ClientAccount) error {
	if a.OCR == nil || a.Screen == nil || strings.TrimSpace(c.CertIdent) == "" {
		return errPickerSkipped
	}
	hit, ok, err := a.locateOnScreen(ctx, c.CertIdent)
	if err != nil {
		return err
	}
	if !ok {
		return errPickerSkipped
	}
	x, y := center(hit)
	if err := a.Screen.Click(x, y); err != nil {
		return fmt.Errorf("%w: click en certificado: %v", domain.ErrAuthentication, err)
	}
	if err := sleep(ctx, a.Timings.CertKeypressSettle); err != nil {
		return err
	}

	shot, err := a.Screen.Capture()
	if err == nil {
		for _, label := range CertDialogOKLabels {
			r, found, lerr := a.OCR.LocateText(shot, label)
			if lerr != nil || !found {
				continue
			}
			x, y := center(r)
			if err := a.Screen.Click(x, y); err != nil {
				return fmt.Errorf("%w: click en OK: %v", domain.ErrAuthentication, err)
			}
			return nil
		}
	}
	return a.pressEnter()
}

func (a *Authenticator) locateOnScreen(ctx context.Context, text string) (image.Rectangle, bool, error) {
	var hit image.Rectangle
	ok, err := poll(ctx, a.Timings.CertPickerTimeout, a.Timings.CertPollInterval, func() bool {
		shot, cerr := a.Screen.Capture()
		if cerr != nil {
			return false
		}
		r, found, lerr := a.OCR.LocateText(shot, text)
		if lerr != nil || !found {
			return false
		}
		hit = r
		return true
	})
	return hit, ok, err
}

func (a *Authenticator) pickByImage(ctx context.Context, c entity.ClientAccount) error {
	if a.Screen == nil || strings.TrimSpace(c.CertImage) == "" {
		return errPickerSkipped
	}
	tpl, err := a.LoadImage(filepath.Join(a.ImagesDir, c.CertImage))
	if err != nil {
		return fmt.Errorf("%w: imagen %s: %v", domain.ErrAuthentication, c.CertImage, err)
	}
	var hit image.Rectangle
	ok, err := poll(ctx, a.Timings.CertPickerTimeout, a.Timings.CertPollInterval, func() bool {
		shot, cerr := a.Screen.Capture()
		if cerr != nil {
			return false
		}
		r, found := a.Matcher.Match(shot, tpl, CertConfidence)
		if found {
			hit = r
		}
		return found
	})
	if err != nil {
		return err
	}
	if !ok {
		return errPickerSkipped
	}
	x, y := center(hit)
	if err := a.Screen.Click(x, y); err != nil {
		return fmt.Errorf("%w: click en certificado: %v", domain.ErrAuthentication, err)
	}
	if err := sleep(ctx, a.Timings.CertKeypressSettle); err != nil {
		return err
	}
	return a.pressEnter()
}

func (a *Authenticator) pressEnter() error {
	if a.Screen == nil {
		return fmt.Errorf("%w: sin acceso al teclado para confirmar", domain.ErrAuthentication)
	}
	if err := a.Screen.PressKey("enter"); err != nil {
		return fmt.Errorf("%w: ENTER en el selector: %v", domain.ErrAuthentication, err)
	}
	return nil
}

func isOKLabel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, l := range CertDialogOKLabels {
		if t == l {
			return true
		}
	}
	return false
}

// loadPNG decodifica una imagen de referencia desde disco.
func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
