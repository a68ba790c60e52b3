// Package imagematch búsqueda de una imagen de referencia dentro de una captura
// por correlación cruzada normalizada (NCC) en escala de grises.
package imagematch

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
)

// DefaultMaxWidth ancho máximo de la captura tras reducir; acota el costo del barrido.
const DefaultMaxWidth = 640

// minTemplateSide lado mínimo de la plantilla reducida para que la correlación sea útil.
const minTemplateSide = 8

// Matcher implementa ports.ImageMatcher.
type Matcher struct {
	MaxWidth int
}

var _ ports.ImageMatcher = Matcher{}

// New matcher con el ancho por defecto.
func New() Matcher {
	return Matcher{MaxWidth: DefaultMaxWidth}
}

// Match devuelve el rectángulo (en coordenadas de haystack) del mejor candidato
// si su NCC es >= confidence.
func (m Matcher) Match(haystack, template image.Image, confidence float64) (image.Rectangle, bool) {
	hb, tb := haystack.Bounds(), template.Bounds()
	if tb.Dx() == 0 || tb.Dy() == 0 || tb.Dx() > hb.Dx() || tb.Dy() > hb.Dy() {
		return image.Rectangle{}, false
	}

	scale := 1.0
	if m.MaxWidth > 0 && hb.Dx() > m.MaxWidth {
		scale = float64(m.MaxWidth) / float64(hb.Dx())
	}
	if side := float64(min(tb.Dx(), tb.Dy())) * scale; side < minTemplateSide {
		scale = math.Min(1, minTemplateSide/float64(min(tb.Dx(), tb.Dy())))
	}

	h := toGray(haystack, scale)
	t := toGray(template, scale)
	x, y, score := bestMatch(h, t)
	if score < confidence {
		return image.Rectangle{}, false
	}

	// de vuelta a coordenadas originales
	x0 := hb.Min.X + int(math.Round(float64(x)/scale))
	y0 := hb.Min.Y + int(math.Round(float64(y)/scale))
	return image.Rect(x0, y0, x0+tb.Dx(), y0+tb.Dy()), true
}

// gray matriz de luminancias.
type gray struct {
	w, h int
	px   []float64
}

func toGray(img image.Image, scale float64) gray {
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	g := gray{w: w, h: h, px: make([]float64, w*h)}
	for i, v := range dst.Pix[:w*h] {
		g.px[i] = float64(v)
	}
	return g
}

// bestMatch barrido completo con imágenes integrales para media y varianza de
// cada ventana. Devuelve la esquina y el puntaje NCC (-1..1).
func bestMatch(h, t gray) (int, int, float64) {
	n := float64(t.w * t.h)
	var tSum, tSq float64
	for _, v := range t.px {
		tSum += v
		tSq += v * v
	}
	tMean := tSum / n
	tVar := tSq - n*tMean*tMean
	if tVar <= 0 {
		// plantilla uniforme: la NCC no está definida
		return 0, 0, -1
	}

	sum, sq := integral(h)
	stride := h.w + 1
	rect := func(a []float64, x, y int) float64 {
		return a[(y+t.h)*stride+x+t.w] - a[y*stride+x+t.w] - a[(y+t.h)*stride+x] + a[y*stride+x]
	}

	bestX, bestY, best := 0, 0, -2.0
	for y := 0; y+t.h <= h.h; y++ {
		for x := 0; x+t.w <= h.w; x++ {
			s := rect(sum, x, y)
			wVar := rect(sq, x, y) - s*s/n
			if wVar <= 0 {
				continue
			}
			var cross float64
			for ty := 0; ty < t.h; ty++ {
				row := (y+ty)*h.w + x
				trow := ty * t.w
				for tx := 0; tx < t.w; tx++ {
					cross += h.px[row+tx] * t.px[trow+tx]
				}
			}
			score := (cross - s*tMean) / math.Sqrt(wVar*tVar)
			if score > best {
				bestX, bestY, best = x, y, score
			}
		}
	}
	return bestX, bestY, best
}

// integral tablas de suma y suma de cuadrados con borde cero.
func integral(g gray) ([]float64, []float64) {
	stride := g.w + 1
	sum := make([]float64, stride*(g.h+1))
	sq := make([]float64, stride*(g.h+1))
	for y := 0; y < g.h; y++ {
		var rs, rq float64
		for x := 0; x < g.w; x++ {
			v := g.px[y*g.w+x]
			rs += v
			rq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rs
			sq[(y+1)*stride+x+1] = sq[y*stride+x+1] + rq
		}
	}
	return sum, sq
}
