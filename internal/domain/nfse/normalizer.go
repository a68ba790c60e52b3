// Package nfse normaliza el XML de la NFS-e Nacional en un registro tipado
// (entity.ExtractedInvoice) y aplica la regla de notas canceladas.
package nfse

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	pkgnfse "github.com/jhoicas/portal-nfse/pkg/nfse"
)

// Códigos cStat del layout nacional.
const (
	StatusAuthorized = "100"
)

// cancelledCodes cStat que indican cancelación o sustitución.
var cancelledCodes = map[string]bool{"135": true, "136": true, "151": true}

// retentionTolerance diferencias estrictamente menores se tratan como cero en "outras retenções".
var retentionTolerance = decimal.RequireFromString("0.009")

// Document resultado de la extracción antes de la regla de cancelación.
type Document struct {
	Invoice       entity.ExtractedInvoice
	StatusCode    string // cStat crudo
	Namespace     string // URI del elemento raíz
	TotalRetained decimal.NullDecimal
}

// ParseFile lee y extrae un XML descargado. Error => domain.ErrParse envuelto.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer xml %s: %w", path, domain.ErrParse)
	}
	return Parse(bytes.NewReader(data))
}

// Parse lee el XML (UTF-8 o ISO-8859-1) y extrae los campos.
func Parse(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: xml sin elemento raíz", domain.ErrParse)
	}
	return Extract(doc), nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") || strings.EqualFold(charset, "latin1") {
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	}
	return input, nil
}

// Extract recorre el documento. Las rutas sin prefijo de etree coinciden con
// cualquier namespace, así que basta con el nombre local de cada tag.
func Extract(doc *etree.Document) *Document {
	root := doc.Root()
	out := &Document{Namespace: root.NamespaceURI()}
	inv := &out.Invoice

	if n := firstText(root, ".//nNFSe", ".//nDFSe", ".//nDPS"); n != "" {
		inv.Number = pkgnfse.InvoiceNumber(n)
	}

	inv.IssueDate = pkgnfse.FormatISODate(firstText(root, ".//DPS/infDPS/dhEmi", ".//dhProc"))
	inv.CompetencyDate = pkgnfse.FormatISODate(firstText(root, ".//DPS/infDPS/dCompet"))

	if emit := root.FindElement(".//emit"); emit != nil {
		inv.ProviderTaxID = pkgnfse.TaxIDForSheet(partyTaxID(emit))
		inv.ProviderName = strings.ToUpper(firstText(emit, "xNome"))
	}
	if toma := root.FindElement(".//DPS/infDPS/toma"); toma != nil {
		inv.TakerTaxID = pkgnfse.TaxIDForSheet(partyTaxID(toma))
		inv.TakerName = strings.ToUpper(firstText(toma, "xNome"))
	}

	// Heurística sin tabla oficial: 2 o 3 = optante.
	if op := firstText(root, ".//DPS/infDPS/prest/regTrib/opSimpNac"); op != "" {
		if op == "2" || op == "3" {
			inv.SimplesOptant = "S"
		} else {
			inv.SimplesOptant = "N"
		}
	}

	inv.NationalTaxCode = firstText(root, ".//DPS/infDPS/serv/cServ/cTribNac", ".//cTribNac")

	inv.ServiceValue = moneyAt(root, ".//DPS/infDPS/valores/vServPrest/vServ")
	inv.TaxBase = moneyAt(root, ".//infNFSe/valores/vBC")
	inv.NetValue = moneyAt(root, ".//infNFSe/valores/vLiq")
	out.TotalRetained = moneyAt(root, ".//infNFSe/valores/vTotalRet")
	inv.Aliquot = moneyAt(root, ".//DPS/infDPS/valores/trib/tribMun/pAliq")
	inv.ISS = moneyAt(root, ".//infNFSe/valores/vISSQN", ".//valores/vISSQN")

	if el := firstByLocalName(root, "vissqnret", "vretissqn"); el != nil {
		inv.ISSRetained = pkgnfse.ParseMoney(el.Text())
	}

	if fed := root.FindElement(".//DPS/infDPS/valores/trib/tribFed"); fed != nil {
		inv.PIS = moneyAt(fed, "piscofins/vPis")
		inv.COFINS = moneyAt(fed, "piscofins/vCofins")
		inv.CSLL = moneyAt(fed, "vRetCSLL")
		if el := firstByLocalName(fed, "vretinss", "vinss"); el != nil {
			inv.INSS = pkgnfse.ParseMoney(el.Text())
		}
		if el := firstByLocalName(fed, "vretir", "vretirrf", "virrf"); el != nil {
			inv.IR = pkgnfse.ParseMoney(el.Text())
		}
	}

	extractDiscounts(root, inv)

	inv.OtherRetentions = OtherRetentions(out.TotalRetained,
		inv.IR, inv.ISSRetained, inv.CSLL, inv.PIS, inv.COFINS, inv.INSS)

	out.StatusCode = firstText(root, ".//infNFSe/cStat")
	inv.Situation = MapSituation(out.StatusCode)
	return out
}

// MapSituation "100" => NORMAL; 135/136/151 => CANCELADA; otro => COD_<n>; vacío => "".
func MapSituation(code string) string {
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return ""
	case code == StatusAuthorized:
		return entity.SituationNormal
	case cancelledCodes[code]:
		return entity.SituationCancelled
	default:
		return entity.SituationCodePrefix + code
	}
}

// OtherRetentions vTotalRet menos la suma de las retenciones explícitas
// (IR, ISS retenido, CSLL, PIS, COFINS, INSS). Sin total => ausente.
func OtherRetentions(total decimal.NullDecimal, explicit ...decimal.NullDecimal) decimal.NullDecimal {
	if !total.Valid {
		return decimal.NullDecimal{}
	}
	sum := decimal.Zero
	for _, v := range explicit {
		if v.Valid {
			sum = sum.Add(v.Decimal)
		}
	}
	diff := total.Decimal.Sub(sum)
	if diff.Abs().LessThan(retentionTolerance) {
		return decimal.NewNullDecimal(decimal.Zero)
	}
	return decimal.NewNullDecimal(diff)
}

// Finalize aplica la regla de cancelación (bandera de la fila, cStat o texto
// de situación) y redondea los montos. Una nota cancelada nunca aporta valor.
func Finalize(inv *entity.ExtractedInvoice, statusCode string, rowCancelled bool) {
	if rowCancelled || cancelledCodes[strings.TrimSpace(statusCode)] || inv.IsCancelled() {
		inv.ApplyCancellation()
		return
	}
	inv.RoundMoney()
}

// extractDiscounts vDesc*Incond* => incondicionado, vDesc*Cond* => condicionado,
// otro vDesc* => incondicionado; deducciones: primer tag que contenga "dedu".
// Se toma la primera ocurrencia de cada uno e ignora "-".
func extractDiscounts(root *etree.Element, inv *entity.ExtractedInvoice) {
	walk(root, func(el *etree.Element) {
		txt := strings.TrimSpace(el.Text())
		if txt == "" || txt == "-" {
			return
		}
		tag := strings.ToLower(el.Tag)
		if strings.HasPrefix(tag, "vdesc") {
			switch {
			case strings.Contains(tag, "incond"):
				setFirst(&inv.UncondDiscount, txt)
			case strings.Contains(tag, "cond"):
				setFirst(&inv.CondDiscount, txt)
			default:
				setFirst(&inv.UncondDiscount, txt)
			}
		}
		if strings.Contains(tag, "dedu") {
			setFirst(&inv.Deductions, txt)
		}
	})
}

func setFirst(dst *decimal.NullDecimal, txt string) {
	if !dst.Valid {
		*dst = pkgnfse.ParseMoney(txt)
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func firstText(el *etree.Element, paths ...string) string {
	for _, p := range paths {
		if found := el.FindElement(p); found != nil {
			if t := strings.TrimSpace(found.Text()); t != "" {
				return t
			}
		}
	}
	return ""
}

func moneyAt(el *etree.Element, paths ...string) decimal.NullDecimal {
	t := firstText(el, paths...)
	if t == "" {
		return decimal.NullDecimal{}
	}
	return pkgnfse.ParseMoney(t)
}

func partyTaxID(party *etree.Element) string {
	return pkgnfse.DigitsOnly(firstText(party, "CNPJ", "CPF", "NIF"))
}

// firstByLocalName primer descendiente (orden de documento) cuyo tag en minúsculas
// esté en names y tenga texto.
func firstByLocalName(root *etree.Element, names ...string) *etree.Element {
	var found *etree.Element
	walk(root, func(el *etree.Element) {
		if found != nil || strings.TrimSpace(el.Text()) == "" {
			return
		}
		tag := strings.ToLower(el.Tag)
		for _, n := range names {
			if tag == n {
				found = el
				return
			}
		}
	})
	return found
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, c := range el.ChildElements() {
		walk(c, fn)
	}
}
