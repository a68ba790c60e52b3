package scraper

import "github.com/jhoicas/portal-nfse/internal/application/ports"

// Localizadores del Emissor Nacional (www.nfse.gov.br).
var (
	LocLoginInput    = ports.ByID("Inscricao")
	LocPasswordInput = ports.ByID("Senha")
	// El botón de login no tiene id fijo: a/button con Acessar|Entrar que no sea el de certificado.
	LocLoginSubmit = ports.ByXPath("//*[ (self::a or self::button) and (contains(., 'Acessar') or contains(., 'Entrar')) and not(contains(., 'certificado')) ]")

	// Menú "NFS-e Emitidas": su presencia es la señal de sesión iniciada.
	LocMenuIssued = ports.ByXPath(`//*[@id="navbar"]/ul/li[3]/a`)

	LocListingRows = ports.ByCSS("table tbody tr")
	LocRowTrigger  = ports.ByXPath("./td[7]//a[contains(@class,'icone-trigger')]")
	LocViewAction  = ports.ByXPath("//div[contains(@class,'popover') and contains(@style,'display: block')]//a[contains(@class,'list-group-item') and contains(., 'Visualizar')]")

	LocNextPage         = ports.ByXPath("/html/body/div[1]/div[3]/div[1]/ul/li[8]/a")
	LocNextPageFallback = ports.ByXPath("//ul/li/a[contains(., 'Próxima') or contains(., '>') or contains(., '>>')]")

	LocXMLButton         = ports.ByXPath(`//*[@id="searchbar"]/ul/li[3]/a`)
	LocXMLButtonFallback = ports.ByXPath("//a[contains(@class,'btn') and (contains(., 'XML') or contains(@title,'XML'))]")
	LocPDFButton         = ports.ByXPath(`//*[@id="searchbar"]/ul/li[4]/a`)
	LocPDFButtonFallback = ports.ByXPath("//a[contains(@class,'btn') and (contains(., 'DANFS') or contains(., 'DANF') or contains(., 'PDF') or contains(@title,'DANFSe'))]")
)

// Imagen de referencia del botón "Acesso via certificado digital".
const CertButtonImage = "btn_acesso_cert.png"

// Títulos del selector nativo de certificados (Windows pt-BR / en).
var CertDialogTitles = []string{
	"Selecione um certificado",
	"Selecionar um certificado",
	"Select a Certificate",
}

// Textos aceptados como botón de confirmación del selector.
var CertDialogOKLabels = []string{"ok", "ok.", "continuar", "confirmar", "concluir"}

// Marcadores de fila cancelada en la columna Situação.
const (
	cancelledIcon    = "tb-cancelada.svg"
	cancelledTooltip = "cancelada"
)
