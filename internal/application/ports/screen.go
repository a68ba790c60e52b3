package ports

import (
	"errors"
	"image"
)

// ErrInspectionUnavailable la plataforma o el diálogo no permiten enumerar controles.
var ErrInspectionUnavailable = errors.New("inspección de diálogos nativos no disponible")

// ScreenDriver acceso a la pantalla real (fuera del navegador): captura, mouse y teclado.
type ScreenDriver interface {
	Capture() (image.Image, error)
	Click(x, y int) error
	PressKey(key string) error
}

// ImageMatcher busca template dentro de haystack. Devuelve el rectángulo del mejor
// candidato si su similitud supera confidence (0..1).
type ImageMatcher interface {
	Match(haystack, template image.Image, confidence float64) (image.Rectangle, bool)
}

// TextLocator OCR: rectángulo de la línea de texto que contiene text (sin distinguir mayúsculas).
type TextLocator interface {
	LocateText(img image.Image, text string) (image.Rectangle, bool, error)
}

// DialogInspector enumera ventanas nativas del sistema operativo.
type DialogInspector interface {
	// FindDialog ventana de nivel superior con algún control cuyo texto contenga
	// uno de titles. ErrInspectionUnavailable si no se puede inspeccionar.
	FindDialog(titles []string) (Dialog, bool, error)
}

// Dialog ventana nativa encontrada.
type Dialog interface {
	Title() string
	Focus() error
	Controls() ([]DialogControl, error)
}

// DialogControl control descendiente de un Dialog.
type DialogControl interface {
	Text() string
	Click() error
}
