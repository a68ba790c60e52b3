//go:build windows

// Package dialog inspección de ventanas nativas (selector de certificados de Windows).
package dialog

import (
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
)

const bmClick = 0x00F5

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procSendMessageW        = user32.NewProc("SendMessageW")

	// Los callbacks de NewCallback son un recurso limitado: se crean una sola vez.
	enumMu       sync.Mutex
	enumSink     func(windows.HWND) bool
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if enumSink(hwnd) {
			return 1
		}
		return 0
	})
)

// Inspector enumera ventanas de nivel superior con user32.
type Inspector struct{}

var _ ports.DialogInspector = Inspector{}

// New inspector de Windows.
func New() Inspector { return Inspector{} }

// FindDialog ventana visible cuyo título o algún control contenga uno de titles.
func (Inspector) FindDialog(titles []string) (ports.Dialog, bool, error) {
	var found *window
	for _, hwnd := range topLevel() {
		if !windows.IsWindowVisible(hwnd) {
			continue
		}
		w := &window{hwnd: hwnd, title: windowText(hwnd)}
		if containsAny(w.title, titles) {
			found = w
			break
		}
		for _, c := range children(hwnd) {
			if containsAny(windowText(c), titles) {
				found = w
				break
			}
		}
		if found != nil {
			break
		}
	}
	if found == nil {
		return nil, false, nil
	}
	return found, true, nil
}

type window struct {
	hwnd  windows.HWND
	title string
}

func (w *window) Title() string { return w.title }

func (w *window) Focus() error {
	procSetForegroundWindow.Call(uintptr(w.hwnd))
	return nil
}

// Controls descendientes con texto. Un selector dibujado sin HWND hijos
// (DirectUI) no es inspeccionable.
func (w *window) Controls() ([]ports.DialogControl, error) {
	var out []ports.DialogControl
	for _, c := range children(w.hwnd) {
		if t := strings.TrimSpace(windowText(c)); t != "" {
			out = append(out, &control{hwnd: c, text: t})
		}
	}
	if len(out) == 0 {
		return nil, ports.ErrInspectionUnavailable
	}
	return out, nil
}

type control struct {
	hwnd windows.HWND
	text string
}

func (c *control) Text() string { return c.text }

func (c *control) Click() error {
	procSendMessageW.Call(uintptr(c.hwnd), bmClick, 0, 0)
	return nil
}

func topLevel() []windows.HWND {
	enumMu.Lock()
	defer enumMu.Unlock()
	var out []windows.HWND
	enumSink = func(h windows.HWND) bool { out = append(out, h); return true }
	_ = windows.EnumWindows(enumCallback, unsafe.Pointer(nil))
	return out
}

func children(parent windows.HWND) []windows.HWND {
	enumMu.Lock()
	defer enumMu.Unlock()
	var out []windows.HWND
	enumSink = func(h windows.HWND) bool { out = append(out, h); return true }
	windows.EnumChildWindows(parent, enumCallback, unsafe.Pointer(nil))
	return out
}

func windowText(h windows.HWND) string {
	buf := make([]uint16, 512)
	n, err := windows.GetWindowText(h, &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func containsAny(s string, subs []string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
