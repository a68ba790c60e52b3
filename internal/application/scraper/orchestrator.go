// Package scraper automatiza el Emissor Nacional: login por cliente, recorrido de
// la lista de notas emitidas, descarga y normalización de cada NFS-e.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/application/relay"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// Mensajes al operador.
const (
	MsgInterrupted = "[INFO] Execução interrompida pelo operador."
	MsgNoClients   = "Nenhum cliente selecionado (ou nenhum ATIVO)."
)

// RunRequest entrada de una ejecución. Clients nombres de EMPRESA en el orden de
// proceso; vacío = todos los activos.
type RunRequest struct {
	Competency entity.Competency
	Clients    []string
}

// Runner orquesta una ejecución completa sobre un único worker. Mirror y Summary
// son opcionales.
type Runner struct {
	Roster    ports.RosterSource
	Browsers  ports.BrowserFactory
	Auth      *Authenticator
	Paginator *Paginator
	Ledger    ports.LedgerWriter
	Mirror    ports.LedgerMirror
	Summary   ports.SummaryWriter

	OutputDir   string
	DownloadDir string
	Timings     Timings

	log zerolog.Logger
}

// RunnerDeps colaboradores externos del Runner.
type RunnerDeps struct {
	Roster   ports.RosterSource
	Browsers ports.BrowserFactory
	Ledger   ports.LedgerWriter
	Mirror   ports.LedgerMirror
	Summary  ports.SummaryWriter

	Screen  ports.ScreenDriver
	Matcher ports.ImageMatcher
	OCR     ports.TextLocator
	Dialogs ports.DialogInspector
}

// RunnerConfig rutas y esperas.
type RunnerConfig struct {
	PortalURL   string
	OutputDir   string
	DownloadDir string
	ImagesDir   string
	Timings     Timings
}

// NewRunner arma la cadena Authenticator → Paginator → Retriever → DocumentProcessor.
func NewRunner(cfg RunnerConfig, deps RunnerDeps, log zerolog.Logger) *Runner {
	auth := NewAuthenticator(cfg.PortalURL, cfg.ImagesDir, cfg.Timings, log.With().Str("component", "auth").Logger())
	auth.Screen = deps.Screen
	auth.Matcher = deps.Matcher
	auth.OCR = deps.OCR
	auth.Dialogs = deps.Dialogs

	docs := NewDocumentProcessor(cfg.DownloadDir, cfg.Timings, log.With().Str("component", "documentos").Logger())
	retr := NewRetriever(docs, cfg.Timings, log.With().Str("component", "retriever").Logger())
	pag := NewPaginator(retr, cfg.Timings, log.With().Str("component", "paginador").Logger())

	return &Runner{
		Roster:      deps.Roster,
		Browsers:    deps.Browsers,
		Auth:        auth,
		Paginator:   pag,
		Ledger:      deps.Ledger,
		Mirror:      deps.Mirror,
		Summary:     deps.Summary,
		OutputDir:   cfg.OutputDir,
		DownloadDir: cfg.DownloadDir,
		Timings:     cfg.Timings,
		log:         log,
	}
}

// Func adapta Run al tipo que ejecuta el relay.Manager.
func (r *Runner) Func(req RunRequest) relay.RunFunc {
	return func(ctx context.Context, sink ports.EventSink, cancel ports.CancelSignal) {
		r.Run(ctx, req, sink, cancel)
	}
}

// Run procesa los clientes en orden y termina siempre con exactamente un evento
// done o error. Devuelve el libro (posiblemente vacío o parcial).
func (r *Runner) Run(ctx context.Context, req RunRequest, sink ports.EventSink, cancel ports.CancelSignal) *entity.LedgerRun {
	ledger := entity.NewLedgerRun(uuid.New().String(), req.Competency, time.Now())
	log := r.log.With().Str("run_id", ledger.ID).Str("competencia", req.Competency.Label()).Logger()
	logf := func(format string, args ...any) {
		sink.Emit(relay.LogEvent(fmt.Sprintf(format, args...)))
	}

	outDir := filepath.Join(r.OutputDir, req.Competency.Folder())
	sink.Emit(relay.InitEvent(outDir))

	clients, err := r.selectClients(ctx, req.Clients)
	if err != nil {
		log.Error().Err(err).Msg("ejecución abortada")
		sink.Emit(relay.ErrorEvent("[ERRO] " + err.Error()))
		return ledger
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", outDir).Msg("no se pudo crear la carpeta de salida")
		sink.Emit(relay.ErrorEvent(fmt.Sprintf("[ERRO] Pasta de saída %s: %v", outDir, err)))
		return ledger
	}
	logf("[INFO] Competência %s: %d cliente(s).", req.Competency.Label(), len(clients))

	var statuses []entity.StatusRow
	for _, c := range clients {
		if cancel.Cancelled() || ctx.Err() != nil {
			logf(MsgInterrupted)
			log.Info().Msg("ejecución interrumpida por el operador")
			break
		}
		sink.Emit(relay.ClientStartEvent(c))
		logf("[INFO] Iniciando %s (%s).", c.Company, c.AccessRaw)

		status, detail := r.runClient(ctx, c, req.Competency, outDir, ledger, logf)
		statuses = append(statuses, entity.StatusRow{
			Company: c.Company, TaxID: c.TaxID, Access: c.AccessRaw, Status: status, Detail: detail,
		})
		sink.Emit(relay.ClientEndEvent(c, status, detail))
		log.Info().Str("cliente", c.Company).Str("status", status).Str("detalle", detail).Msg("cliente procesado")
	}

	// La persistencia no depende de que el operador haya cancelado.
	pctx := context.WithoutCancel(ctx)
	if ledger.Len() > 0 {
		path, err := r.Ledger.WriteLedger(pctx, outDir, ledger)
		if err != nil {
			log.Error().Err(err).Msg("no se pudo escribir el libro")
			sink.Emit(relay.ErrorEvent(fmt.Sprintf("[ERRO] Falha ao salvar %s: %v", entity.LedgerName(req.Competency), err)))
			return ledger
		}
		logf("[INFO] Planilha salva: %s", path)
		if r.Mirror != nil {
			if err := r.Mirror.SaveRun(pctx, ledger, statuses); err != nil {
				log.Warn().Err(err).Msg("copia del libro en base de datos falló")
			}
		}
	} else {
		logf("[INFO] Nenhuma nota encontrada para %s.", req.Competency.Label())
	}
	if r.Summary != nil && len(statuses) > 0 {
		if path, err := r.Summary.WriteSummary(pctx, outDir, ledger, statuses); err != nil {
			log.Warn().Err(err).Msg("resumen pdf falló")
		} else {
			logf("[INFO] Resumo salvo: %s", path)
		}
	}

	sink.Emit(relay.DoneEvent(ledger.Len()))
	return ledger
}

// runLevelError termina la ejecución con un único evento error.
type runLevelError struct{ msg string }

func (e *runLevelError) Error() string { return e.msg }
func (e *runLevelError) Unwrap() error { return domain.ErrRunLevel }

// selectClients filtra los activos por nombre, en el orden pedido.
func (r *Runner) selectClients(ctx context.Context, names []string) ([]entity.ClientAccount, error) {
	roster, err := r.Roster.Load(ctx)
	if err != nil {
		return nil, &runLevelError{msg: fmt.Sprintf("Falha ao carregar planilha de clientes: %v", err)}
	}
	out := SelectClients(roster, names)
	if len(out) == 0 {
		return nil, &runLevelError{msg: MsgNoClients}
	}
	return out, nil
}

// SelectClients clientes activos cuyo EMPRESA coincide con names (sin distinguir
// mayúsculas), en el orden de names. names vacío = todos los activos.
func SelectClients(roster []entity.ClientAccount, names []string) []entity.ClientAccount {
	var out []entity.ClientAccount
	if len(names) == 0 {
		for _, c := range roster {
			if c.Active {
				out = append(out, c)
			}
		}
		return out
	}
	byName := make(map[string]entity.ClientAccount, len(roster))
	for _, c := range roster {
		if c.Active {
			byName[strings.ToUpper(strings.TrimSpace(c.Company))] = c
		}
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		key := strings.ToUpper(strings.TrimSpace(n))
		if c, ok := byName[key]; ok && !seen[key] {
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}

// runClient nunca propaga: todo error o pánico se convierte en FALHA + detalle.
func (r *Runner) runClient(ctx context.Context, c entity.ClientAccount, comp entity.Competency, outDir string, ledger *entity.LedgerRun, logf LogFunc) (status, detail string) {
	log := r.log.With().Str("cliente", c.Company).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("pánico procesando cliente")
			status, detail = entity.StatusFailed, fmt.Sprintf("Erro inesperado: %v", rec)
		}
	}()
	fail := func(prefix string, err error) (string, string) {
		log.Warn().Err(err).Msg(prefix)
		logf("[ERRO] %s: %s", c.Company, prefix)
		return entity.StatusFailed, fmt.Sprintf("%s: %v", prefix, err)
	}

	if _, err := c.AccessType(); err != nil {
		return fail("Tipo de acesso inválido", err)
	}

	b, err := r.Browsers.Open(ctx, r.DownloadDir)
	if err != nil {
		return fail("Falha ao abrir navegador", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("cierre del navegador con error")
		}
	}()

	if err := r.Auth.Login(ctx, b, c); err != nil {
		return fail("Falha no login", err)
	}
	logf("[INFO] %s: login efetuado.", c.Company)

	if err := r.openIssued(ctx, b); err != nil {
		return fail("Falha na navegação", err)
	}

	stats, err := r.Paginator.Traverse(ctx, b, c, comp, outDir, ledger.Append, logf)
	if err != nil {
		return fail("Falha na listagem", err)
	}
	detail = fmt.Sprintf("%d nota(s) em %d página(s)", stats.Retrieved, stats.Pages)
	if stats.Failed > 0 {
		detail += fmt.Sprintf(", %d com erro", stats.Failed)
	}
	return entity.StatusOK, detail
}

// openIssued entra en "NFS-e Emitidas".
func (r *Runner) openIssued(ctx context.Context, b ports.Browser) error {
	if err := sleep(ctx, r.Timings.PostLoginSettle); err != nil {
		return err
	}
	menu, err := waitFind(ctx, b, r.Timings.ElementTimeout, r.Timings.ElementInterval, LocMenuIssued)
	if err != nil {
		if errors.Is(err, domain.ErrElementNotFound) {
			return fmt.Errorf("%w: menu NFS-e Emitidas", domain.ErrNavigation)
		}
		return err
	}
	if err := menu.Click(); err != nil {
		if err := menu.ScriptClick(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrNavigation, err)
		}
	}
	return sleep(ctx, r.Timings.MenuSettle)
}
