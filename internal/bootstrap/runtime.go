// Package bootstrap arma el Runner con los adaptadores reales; lo comparten la API y el CLI.
package bootstrap

import (
	"context"
	"time"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/application/scraper"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/browser"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/certificate"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/dialog"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/imagematch"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/ocr"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/pdf"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/postgres"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/screen"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/xlsx"
	"github.com/jhoicas/portal-nfse/pkg/config"
	"github.com/jhoicas/portal-nfse/pkg/logger"
)

// Runtime Runner listo más los recursos a liberar al salir.
type Runtime struct {
	Runner *scraper.Runner
	Roster *xlsx.Roster

	closers []func()
}

// Close libera pool de PostgreSQL y demás recursos.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// New arma el Runtime. El espejo en PostgreSQL es opcional: si la conexión
// falla se sigue sin él.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) *Runtime {
	rt := &Runtime{}

	rt.Roster = xlsx.NewRoster(cfg.Portal.RosterPath, cfg.Portal.CertPassword, certificate.NewResolver(), log.Component("roster"))

	deps := scraper.RunnerDeps{
		Roster: rt.Roster,
		Browsers: browser.NewFactory(browser.Options{
			Headless: cfg.Browser.Headless,
			Bin:      cfg.Browser.Bin,
			Control:  cfg.Browser.DriverPath,
		}, log.Component("browser")),
		Ledger:  xlsx.NewLedgerWriter(log.Zerolog()),
		Summary: pdf.NewMarotoSummaryWriter(),
		Screen:  screen.NewDriver(),
		Matcher: imagematch.New(),
		OCR:     ocr.New(),
		Dialogs: dialog.New(),
	}

	if cfg.DB.Enabled() {
		pctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		pool, err := postgres.NewPool(pctx, cfg.DB)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("espejo PostgreSQL deshabilitado")
		} else {
			rt.closers = append(rt.closers, pool.Close)
			var mirror ports.LedgerMirror = postgres.NewLedgerMirror(pool, log.Zerolog())
			deps.Mirror = mirror
		}
	}

	timings := scraper.DefaultTimings(time.Duration(cfg.Portal.ActionDelay * float64(time.Second)))
	rt.Runner = scraper.NewRunner(scraper.RunnerConfig{
		PortalURL:   cfg.Portal.URL,
		OutputDir:   cfg.Portal.OutputDir,
		DownloadDir: cfg.Portal.DownloadDir,
		ImagesDir:   cfg.Portal.ImagesDir,
		Timings:     timings,
	}, deps, log.Component("runner"))
	return rt
}
