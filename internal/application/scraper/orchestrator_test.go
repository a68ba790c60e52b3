package scraper_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portal-nfse/internal/application/scraper"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

func credClient(name, login, pass string) entity.ClientAccount {
	return entity.ClientAccount{Company: name, TaxID: "11222333000181", AccessRaw: "LOGIN_SENHA", Login: login, Password: pass, Active: true}
}

type runFixture struct {
	runner  *scraper.Runner
	factory *fakeFactory
	ledger  *memLedger
	summary *memSummary
	sink    *sinkRecorder
	out     string
}

func newRunFixture(t *testing.T, roster fakeRoster, portals ...*fakePortal) *runFixture {
	t.Helper()
	f := &runFixture{
		factory: &fakeFactory{portals: portals},
		ledger:  &memLedger{},
		summary: &memSummary{},
		sink:    &sinkRecorder{},
		out:     t.TempDir(),
	}
	f.runner = scraper.NewRunner(scraper.RunnerConfig{
		OutputDir:   f.out,
		DownloadDir: t.TempDir(),
		Timings:     fastTimings(),
	}, scraper.RunnerDeps{
		Roster:   roster,
		Browsers: f.factory,
		Ledger:   f.ledger,
		Summary:  f.summary,
	}, zerolog.Nop())
	return f
}

func TestRun_DosClientesUnaNotaCancelada(t *testing.T) {
	a := newFakePortal("alfa", "1", []fakeRow{{Number: "42", Issue: "03/11/2025", Competency: "11/2025", XML: xmlNormal}})
	// La fila está marcada cancelada en la lista aunque el XML diga cStat 100.
	b := newFakePortal("beta", "2", []fakeRow{{Number: "42", Issue: "04/11/2025", Competency: "11/2025", Cancelled: true, XML: xmlNormal}})
	roster := fakeRoster{clients: []entity.ClientAccount{credClient("ALFA", "alfa", "1"), credClient("BETA", "beta", "2")}}
	f := newRunFixture(t, roster, a, b)

	run := f.runner.Run(context.Background(), scraper.RunRequest{Competency: nov2025}, f.sink, neverCancel{})

	require.Equal(t, 2, run.Len())
	require.Len(t, f.ledger.rows, 2)
	assert.Equal(t, filepath.Join(f.out, "2025-11"), f.ledger.dir)

	normal, cancelled := f.ledger.rows[0], f.ledger.rows[1]
	assert.Equal(t, entity.SituationNormal, normal.Situation)
	assert.True(t, normal.ServiceValue.Valid)
	assert.False(t, normal.ServiceValue.Decimal.IsZero())

	assert.Equal(t, entity.SituationCancelled, cancelled.Situation)
	for _, m := range cancelled.MonetaryFields() {
		assert.True(t, m.Valid && m.Decimal.IsZero())
	}
	for _, row := range f.ledger.rows {
		assert.Len(t, row.LedgerValues(), len(entity.LedgerColumns))
	}

	assert.Equal(t, []entity.EventKind{
		entity.EventInit, entity.EventLog,
		entity.EventClientStart, entity.EventLog,
	}, f.sink.kinds()[:4])
	last := f.sink.last()
	assert.Equal(t, entity.EventDone, last.Kind)
	assert.Equal(t, 2, last.LedgerRows)

	ends := f.sink.ends()
	require.Len(t, ends, 2)
	assert.Equal(t, entity.StatusOK, ends[0].Status)
	assert.Equal(t, entity.StatusOK, ends[1].Status)
	assert.True(t, a.closed && b.closed, "cada navegador se cierra aunque Close devuelva error")
	assert.Len(t, f.summary.statuses, 2)

	// mismo tomador y número: el segundo archivo lleva sufijo
	assert.FileExists(t, filepath.Join(f.out, "2025-11", "CLIENTE TOMADOR S A - NF 42.xml"))
	assert.FileExists(t, filepath.Join(f.out, "2025-11", "CLIENTE TOMADOR S A - NF 42 (2).xml"))
}

func TestRun_FallaDeLoginNoDetieneLaEjecucion(t *testing.T) {
	a := newFakePortal("alfa", "1", []fakeRow{})
	b := newFakePortal("beta", "2", []fakeRow{{Number: "42", Issue: "03/11/2025", Competency: "11/2025", XML: xmlNormal}})
	roster := fakeRoster{clients: []entity.ClientAccount{credClient("ALFA", "alfa", "errada"), credClient("BETA", "beta", "2")}}
	f := newRunFixture(t, roster, a, b)

	run := f.runner.Run(context.Background(), scraper.RunRequest{Competency: nov2025}, f.sink, neverCancel{})

	ends := f.sink.ends()
	require.Len(t, ends, 2)
	assert.Equal(t, entity.StatusFailed, ends[0].Status)
	assert.Contains(t, ends[0].Detail, "Falha no login")
	assert.Equal(t, entity.StatusOK, ends[1].Status)
	assert.Equal(t, 1, run.Len())
	assert.True(t, a.closed)
	assert.Equal(t, entity.EventDone, f.sink.last().Kind)
}

func TestRun_TipoDeAccesoInvalidoNoAbreNavegador(t *testing.T) {
	c := credClient("GAMA", "g", "g")
	c.AccessRaw = "PROCURACAO"
	f := newRunFixture(t, fakeRoster{clients: []entity.ClientAccount{c}})

	f.runner.Run(context.Background(), scraper.RunRequest{Competency: nov2025}, f.sink, neverCancel{})

	ends := f.sink.ends()
	require.Len(t, ends, 1)
	assert.Equal(t, entity.StatusFailed, ends[0].Status)
	assert.Zero(t, f.factory.opened)
	assert.Nil(t, f.ledger.rows, "sin filas no se escribe el libro")
	assert.Equal(t, entity.EventDone, f.sink.last().Kind)
}

type cancelAfter struct{ checks, limit int }

func (c *cancelAfter) Cancelled() bool {
	c.checks++
	return c.checks > c.limit
}

func TestRun_CancelacionEntreClientes(t *testing.T) {
	a := newFakePortal("alfa", "1", []fakeRow{{Number: "42", Issue: "03/11/2025", Competency: "11/2025", XML: xmlNormal}})
	roster := fakeRoster{clients: []entity.ClientAccount{credClient("ALFA", "alfa", "1"), credClient("BETA", "beta", "2")}}
	f := newRunFixture(t, roster, a)

	run := f.runner.Run(context.Background(), scraper.RunRequest{Competency: nov2025}, f.sink, &cancelAfter{limit: 1})

	assert.Len(t, f.sink.ends(), 1, "el segundo cliente no empieza")
	assert.Equal(t, 1, f.factory.opened)
	assert.Equal(t, 1, run.Len())
	assert.Len(t, f.ledger.rows, 1, "el libro parcial se persiste")

	var interrupted bool
	for _, ev := range f.sink.evs {
		if ev.Kind == entity.EventLog && ev.Message == scraper.MsgInterrupted {
			interrupted = true
		}
	}
	assert.True(t, interrupted)
	assert.Equal(t, entity.EventDone, f.sink.last().Kind)
}

func TestRun_ErrorDePlanillaEsDeEjecucion(t *testing.T) {
	f := newRunFixture(t, fakeRoster{err: errors.New("arquivo bloqueado")})

	f.runner.Run(context.Background(), scraper.RunRequest{Competency: nov2025}, f.sink, neverCancel{})

	last := f.sink.last()
	assert.Equal(t, entity.EventError, last.Kind)
	assert.Contains(t, last.Message, "arquivo bloqueado")
	assert.NotContains(t, f.sink.kinds(), entity.EventDone)
	assert.NotContains(t, f.sink.kinds(), entity.EventClientStart)
}

func TestRun_SeleccionVaciaEsDeEjecucion(t *testing.T) {
	roster := fakeRoster{clients: []entity.ClientAccount{credClient("ALFA", "a", "1")}}
	f := newRunFixture(t, roster)

	f.runner.Run(context.Background(), scraper.RunRequest{Competency: nov2025, Clients: []string{"NAO EXISTE"}}, f.sink, neverCancel{})

	last := f.sink.last()
	assert.Equal(t, entity.EventError, last.Kind)
	assert.Equal(t, "[ERRO] "+scraper.MsgNoClients, last.Message)
}

func TestRun_FallaAlGuardarElLibroEsError(t *testing.T) {
	a := newFakePortal("alfa", "1", []fakeRow{{Number: "42", Issue: "03/11/2025", Competency: "11/2025", XML: xmlNormal}})
	f := newRunFixture(t, fakeRoster{clients: []entity.ClientAccount{credClient("ALFA", "alfa", "1")}}, a)
	f.ledger.err = errors.New("disco cheio")

	f.runner.Run(context.Background(), scraper.RunRequest{Competency: nov2025}, f.sink, neverCancel{})

	last := f.sink.last()
	assert.Equal(t, entity.EventError, last.Kind)
	assert.Contains(t, last.Message, "LOG_NFSE_2025-11")
}

func TestSelectClients_OrdenPedidoYSoloActivos(t *testing.T) {
	inactive := credClient("DELTA", "d", "d")
	inactive.Active = false
	roster := []entity.ClientAccount{credClient("ALFA", "a", "a"), credClient("Beta", "b", "b"), inactive}

	got := scraper.SelectClients(roster, []string{"beta", "DELTA", "alfa", "BETA"})
	require.Len(t, got, 2)
	assert.Equal(t, "Beta", got[0].Company)
	assert.Equal(t, "ALFA", got[1].Company)

	all := scraper.SelectClients(roster, nil)
	assert.Len(t, all, 2)
}
