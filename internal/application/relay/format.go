package relay

import (
	"fmt"

	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// FormatEvent línea legible para salidas de texto (CLI). Vacío si no hay nada que mostrar.
func FormatEvent(ev entity.ProgressEvent) string {
	switch ev.Kind {
	case entity.EventInit:
		return "[INFO] Saída: " + ev.OutputDir
	case entity.EventClientStart:
		if ev.Row == nil {
			return ""
		}
		return fmt.Sprintf("==> %s (%s)", ev.Row.Company, ev.Row.Access)
	case entity.EventClientEnd:
		if ev.Row == nil {
			return ""
		}
		if ev.Row.Detail == "" {
			return fmt.Sprintf("<== %s: %s", ev.Row.Company, ev.Row.Status)
		}
		return fmt.Sprintf("<== %s: %s - %s", ev.Row.Company, ev.Row.Status, ev.Row.Detail)
	case entity.EventLog, entity.EventError:
		return ev.Message
	case entity.EventDone:
		return fmt.Sprintf("[OK] Concluído: %d nota(s) na planilha.", ev.LedgerRows)
	}
	return ""
}
