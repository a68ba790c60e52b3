// Package relay transporta eventos de progreso del worker a la capa de presentación
// y la bandera de cancelación en sentido contrario.
package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// DefaultBuffer capacidad del canal; un run típico emite unos cientos de eventos.
const DefaultBuffer = 4096

var _ ports.EventSink = (*Relay)(nil)

// Relay canal productor único / consumidor único.
type Relay struct {
	ch      chan entity.ProgressEvent
	dropped atomic.Int64

	// terminal done/error que no entró en el canal; Drain lo entrega al final.
	mu       sync.Mutex
	terminal *entity.ProgressEvent
}

// New crea el relay con el buffer indicado (<=0 usa DefaultBuffer).
func New(buffer int) *Relay {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Relay{ch: make(chan entity.ProgressEvent, buffer)}
}

// Emit encola sin bloquear. Con el buffer lleno el evento se descarta y se cuenta,
// salvo done/error: esos quedan en un lugar aparte y nunca se pierden.
func (r *Relay) Emit(ev entity.ProgressEvent) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case r.ch <- ev:
	default:
		if isTerminal(ev.Kind) {
			r.mu.Lock()
			r.terminal = &ev
			r.mu.Unlock()
			return
		}
		r.dropped.Add(1)
	}
}

// Drain devuelve todos los eventos encolados en este momento, sin esperar.
// Un terminal guardado fuera del canal va último.
func (r *Relay) Drain() []entity.ProgressEvent {
	var out []entity.ProgressEvent
	for {
		select {
		case ev := <-r.ch:
			out = append(out, ev)
		default:
			r.mu.Lock()
			if r.terminal != nil {
				out = append(out, *r.terminal)
				r.terminal = nil
			}
			r.mu.Unlock()
			return out
		}
	}
}

func isTerminal(k entity.EventKind) bool {
	return k == entity.EventDone || k == entity.EventError
}

// Dropped eventos descartados por buffer lleno.
func (r *Relay) Dropped() int64 {
	return r.dropped.Load()
}

// ── constructores de eventos ──────────────────────────────────────────────────

func InitEvent(outputDir string) entity.ProgressEvent {
	return entity.ProgressEvent{Kind: entity.EventInit, OutputDir: outputDir}
}

func ClientStartEvent(c entity.ClientAccount) entity.ProgressEvent {
	return entity.ProgressEvent{Kind: entity.EventClientStart, Row: &entity.StatusRow{
		Company: c.Company,
		TaxID:   c.TaxID,
		Access:  c.AccessRaw,
		Status:  entity.StatusRunning,
	}}
}

func ClientEndEvent(c entity.ClientAccount, status, detail string) entity.ProgressEvent {
	return entity.ProgressEvent{Kind: entity.EventClientEnd, Row: &entity.StatusRow{
		Company: c.Company,
		TaxID:   c.TaxID,
		Access:  c.AccessRaw,
		Status:  status,
		Detail:  detail,
	}}
}

func LogEvent(msg string) entity.ProgressEvent {
	return entity.ProgressEvent{Kind: entity.EventLog, Message: msg}
}

func ErrorEvent(msg string) entity.ProgressEvent {
	return entity.ProgressEvent{Kind: entity.EventError, Message: msg}
}

func DoneEvent(ledgerRows int) entity.ProgressEvent {
	return entity.ProgressEvent{Kind: entity.EventDone, LedgerRows: ledgerRows}
}

// ── cancelación ───────────────────────────────────────────────────────────────

var _ ports.CancelSignal = (*CancelFlag)(nil)

// CancelFlag bandera atómica compartida entre presentación y worker.
type CancelFlag struct {
	v atomic.Bool
}

func (f *CancelFlag) Set()            { f.v.Store(true) }
func (f *CancelFlag) Reset()          { f.v.Store(false) }
func (f *CancelFlag) Cancelled() bool { return f.v.Load() }
