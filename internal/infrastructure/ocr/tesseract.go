// Package ocr localiza texto en capturas de pantalla con Tesseract (gosseract).
// Requiere libtesseract y los datos del idioma instalados en la máquina.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
)

// Locator implementa ports.TextLocator reconociendo líneas de texto.
type Locator struct {
	mu        sync.Mutex
	Languages []string
}

var _ ports.TextLocator = (*Locator)(nil)

// New locator para portugués e inglés (selector de Windows en cualquiera de los dos).
func New() *Locator {
	return &Locator{Languages: []string{"por", "eng"}}
}

// LocateText primera línea (orden de lectura) que contiene text, sin distinguir mayúsculas.
func (l *Locator) LocateText(img image.Image, text string) (image.Rectangle, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return image.Rectangle{}, false, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return image.Rectangle{}, false, fmt.Errorf("codificar captura: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	client := gosseract.NewClient()
	defer client.Close()
	if len(l.Languages) > 0 {
		if err := client.SetLanguage(l.Languages...); err != nil {
			return image.Rectangle{}, false, err
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return image.Rectangle{}, false, fmt.Errorf("ocr: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return image.Rectangle{}, false, fmt.Errorf("ocr: %w", err)
	}

	offset := img.Bounds().Min
	for _, b := range boxes {
		if MatchLine(b.Word, needle) {
			return b.Box.Add(offset), true, nil
		}
	}
	return image.Rectangle{}, false, nil
}

// MatchLine contención sin distinguir mayúsculas ni espacios repetidos.
func MatchLine(line, needle string) bool {
	norm := func(s string) string { return strings.Join(strings.Fields(strings.ToLower(s)), " ") }
	n := norm(needle)
	return n != "" && strings.Contains(norm(line), n)
}
