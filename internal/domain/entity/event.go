package entity

import "time"

// EventKind tipo de evento de progreso.
type EventKind string

const (
	EventInit        EventKind = "init"         // ubicación de salida
	EventClientStart EventKind = "client_start" // esqueleto de la fila de estado
	EventClientEnd   EventKind = "client_end"   // estado final + detalle
	EventLog         EventKind = "log"          // texto libre
	EventError       EventKind = "error"        // fatal, termina la ejecución
	EventDone        EventKind = "done"         // terminal
)

// Estados por cliente en la tabla de progreso.
const (
	StatusRunning = "EM EXECUÇÃO"
	StatusOK      = "OK"
	StatusFailed  = "FALHA"
)

// StatusRow fila de la tabla de estado de una ejecución.
type StatusRow struct {
	Company string `json:"empresa"`
	TaxID   string `json:"cnpj"`
	Access  string `json:"tipo_acesso"`
	Status  string `json:"status"`
	Detail  string `json:"detalhe"`
}

// ProgressEvent unión etiquetada por Kind; solo los campos del tipo vienen llenos.
type ProgressEvent struct {
	ID         string     `json:"id"`
	Kind       EventKind  `json:"kind"`
	At         time.Time  `json:"at"`
	OutputDir  string     `json:"output_dir,omitempty"`  // init
	Row        *StatusRow `json:"row,omitempty"`         // client_start, client_end
	Message    string     `json:"message,omitempty"`     // log, error
	LedgerRows int        `json:"ledger_rows,omitempty"` // done
}
