package ports

import (
	"context"
	"image"
)

// LocatorKind estrategia de búsqueda de un elemento.
type LocatorKind string

const (
	KindXPath LocatorKind = "xpath"
	KindCSS   LocatorKind = "css"
	KindID    LocatorKind = "id"
)

// Locator selector de elemento independiente del driver.
type Locator struct {
	Kind  LocatorKind
	Value string
}

func ByXPath(x string) Locator { return Locator{Kind: KindXPath, Value: x} }
func ByCSS(css string) Locator { return Locator{Kind: KindCSS, Value: css} }
func ByID(id string) Locator   { return Locator{Kind: KindID, Value: id} }

func (l Locator) String() string { return string(l.Kind) + "=" + l.Value }

// Element nodo del DOM de la pestaña actual.
// Find/FindAll devuelven domain.ErrElementNotFound cuando no hay coincidencia.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, error)
	Click() error
	// ScriptClick dispara el click vía JavaScript (tolera overlays y popovers).
	ScriptClick() error
	// Input reemplaza el contenido del campo por text.
	Input(text string) error
	Find(loc Locator) (Element, error)
	FindAll(loc Locator) ([]Element, error)
}

// Browser una sesión de navegador abierta para un único cliente.
// Las búsquedas son inmediatas; las esperas acotadas son responsabilidad del llamador.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Find(loc Locator) (Element, error)
	FindAll(loc Locator) ([]Element, error)
	// HTML contenido actual de la pestaña activa.
	HTML() (string, error)

	// WindowHandles identificadores de las pestañas abiertas.
	WindowHandles() ([]string, error)
	CurrentWindow() string
	SwitchTo(handle string) error
	// CloseWindow cierra la pestaña activa.
	CloseWindow() error
	Back() error

	// Screenshot render de la pestaña activa, en píxeles CSS.
	Screenshot() (image.Image, error)
	// ClickAt click de mouse en coordenadas de la pestaña.
	ClickAt(x, y int) error

	Close() error
}

// BrowserFactory abre una sesión nueva que descarga en downloadDir.
type BrowserFactory interface {
	Open(ctx context.Context, downloadDir string) (Browser, error)
}
