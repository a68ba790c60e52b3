package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain"
)

// RunFunc cuerpo de una ejecución: emite por sink y consulta cancel entre clientes.
type RunFunc func(ctx context.Context, sink ports.EventSink, cancel ports.CancelSignal)

// Manager mantiene como máximo una ejecución activa en un worker dedicado y
// expone su snapshot. Solo el consumidor (Current) drena el relay.
type Manager struct {
	mu      sync.Mutex
	relay   *Relay
	flag    *CancelFlag
	snap    Snapshot
	running bool
	abort   context.CancelFunc
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// NewManager construye el manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Start lanza fn en una goroutine propia. domain.ErrConflict si ya hay una activa.
func (m *Manager) Start(competency string, fn RunFunc) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return "", domain.ErrConflict
	}

	runID := uuid.New().String()
	m.relay = New(DefaultBuffer)
	m.flag = &CancelFlag{}
	m.snap = Snapshot{RunID: runID, Competency: competency, Active: true, StartedAt: time.Now()}
	m.running = true

	ctx, cancel := context.WithCancel(context.Background())
	m.abort = cancel

	relay, flag := m.relay, m.flag
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				m.log.Error().Interface("panic", r).Str("run_id", runID).Msg("ejecución abortada por pánico")
				relay.Emit(ErrorEvent("[ERRO] Falha inesperada na execução."))
			}
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
		}()
		m.log.Info().Str("run_id", runID).Str("competencia", competency).Msg("ejecución iniciada")
		fn(ctx, relay, flag)
		m.log.Info().Str("run_id", runID).Int64("eventos_descartados", relay.Dropped()).Msg("ejecución finalizada")
	}()
	return runID, nil
}

// Stop pide la detención cooperativa. false si no hay ejecución activa.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.flag == nil {
		return false
	}
	m.flag.Set()
	return true
}

// Current drena los eventos pendientes en el snapshot y devuelve una copia.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.relay != nil {
		m.snap.ApplyAll(m.relay.Drain())
	}
	out := m.snap.Clone()
	out.Active = m.running && !out.Done && out.Error == ""
	return out
}

// Running true mientras el worker no terminó.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Shutdown pide la detención y espera al worker; si ctx vence, cancela su contexto.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.Stop()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		if m.abort != nil {
			m.abort()
		}
		m.mu.Unlock()
		return ctx.Err()
	}
}
