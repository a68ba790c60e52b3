package relay

import (
	"time"

	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// MaxLogLines cola de logs conservada en el snapshot.
const MaxLogLines = 500

// Snapshot estado de una ejecución reconstruido a partir de los eventos.
type Snapshot struct {
	RunID      string             `json:"run_id"`
	Competency string             `json:"competencia,omitempty"`
	Active     bool               `json:"active"`
	Done       bool               `json:"done"`
	OutputDir  string             `json:"output_dir,omitempty"`
	Statuses   []entity.StatusRow `json:"statuses"`
	Logs       []string           `json:"logs"`
	Error      string             `json:"error,omitempty"`
	LedgerRows int                `json:"ledger_rows"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`

	index map[string]int
}

// Apply pliega un evento en el snapshot.
func (s *Snapshot) Apply(ev entity.ProgressEvent) {
	if s.index == nil {
		s.index = make(map[string]int, len(s.Statuses))
		for i, r := range s.Statuses {
			s.index[r.Company] = i
		}
	}
	switch ev.Kind {
	case entity.EventInit:
		s.OutputDir = ev.OutputDir
		s.Active = true
	case entity.EventClientStart, entity.EventClientEnd:
		if ev.Row != nil {
			s.upsert(*ev.Row)
		}
	case entity.EventLog:
		s.appendLog(ev.Message)
	case entity.EventError:
		s.Error = ev.Message
		s.appendLog(ev.Message)
		s.finish(ev.At)
	case entity.EventDone:
		s.LedgerRows = ev.LedgerRows
		s.Done = true
		s.finish(ev.At)
	}
}

// ApplyAll pliega una tanda drenada, en orden.
func (s *Snapshot) ApplyAll(evs []entity.ProgressEvent) {
	for _, ev := range evs {
		s.Apply(ev)
	}
}

// Clone copia independiente para entregar fuera del consumidor.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	out.Statuses = append([]entity.StatusRow(nil), s.Statuses...)
	out.Logs = append([]string(nil), s.Logs...)
	out.index = nil
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

func (s *Snapshot) upsert(row entity.StatusRow) {
	if i, ok := s.index[row.Company]; ok {
		s.Statuses[i] = row
		return
	}
	s.index[row.Company] = len(s.Statuses)
	s.Statuses = append(s.Statuses, row)
}

func (s *Snapshot) appendLog(msg string) {
	s.Logs = append(s.Logs, msg)
	if n := len(s.Logs); n > MaxLogLines {
		s.Logs = append([]string(nil), s.Logs[n-MaxLogLines:]...)
	}
}

func (s *Snapshot) finish(at time.Time) {
	s.Active = false
	if at.IsZero() {
		at = time.Now()
	}
	s.FinishedAt = &at
}
