package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// ParseListingRows lee las filas de la tabla de notas emitidas a partir del HTML
// de la página. Una celda ilegible queda como entity.RowUnknown.
func ParseListingRows(html string) ([]entity.InvoiceRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: html de la lista: %v", domain.ErrParse, err)
	}

	var rows []entity.InvoiceRow
	doc.Find("table tbody tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		rows = append(rows, entity.InvoiceRow{
			Index:          i,
			Fingerprint:    normalizeSpace(tr.Text()),
			IssueDateText:  cellText(cells, 0),
			CompetencyText: cellText(cells, 2),
			Cancelled:      isCancelledCell(cells.Eq(5)),
		})
	})
	return rows, nil
}

// FirstRowFingerprint texto de la primera fila, "" si la tabla está vacía.
func FirstRowFingerprint(rows []entity.InvoiceRow) string {
	if len(rows) == 0 {
		return ""
	}
	return rows[0].Fingerprint
}

func cellText(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return entity.RowUnknown
	}
	return normalizeSpace(cells.Eq(i).Text())
}

// isCancelledCell ícono tb-cancelada.svg o tooltip con "cancelada".
func isCancelledCell(cell *goquery.Selection) bool {
	cancelled := false
	cell.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		title, _ := img.Attr("title")
		tip, _ := img.Attr("data-original-title")
		if strings.Contains(strings.ToLower(src), cancelledIcon) ||
			strings.Contains(strings.ToLower(title), cancelledTooltip) ||
			strings.Contains(strings.ToLower(tip), cancelledTooltip) {
			cancelled = true
			return false
		}
		return true
	})
	return cancelled
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
