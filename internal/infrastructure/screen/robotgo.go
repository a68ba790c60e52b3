// Package screen acceso a la pantalla del escritorio (fuera del navegador) con robotgo.
// Lo usa solo el acceso por certificado, donde el selector de Windows es una
// ventana nativa.
package screen

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
)

// Driver captura, mouse y teclado del escritorio.
type Driver struct {
	mu sync.Mutex
	// ClickDelay pausa entre mover el mouse y hacer click.
	ClickDelay time.Duration
}

var _ ports.ScreenDriver = (*Driver)(nil)

// NewDriver construye el driver.
func NewDriver() *Driver {
	return &Driver{ClickDelay: 150 * time.Millisecond}
}

func (d *Driver) Capture() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("captura de pantalla: %w", err)
	}
	return img, nil
}

func (d *Driver) Click(x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	robotgo.Move(x, y)
	time.Sleep(d.ClickDelay)
	robotgo.Click("left", false)
	return nil
}

func (d *Driver) PressKey(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("tecla %s: %w", key, err)
	}
	return nil
}
