package relay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/portal-nfse/internal/application/relay"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

func TestFormatEvent(t *testing.T) {
	c := entity.ClientAccount{Company: "ALFA", AccessRaw: "LOGIN_SENHA"}
	tests := []struct {
		name string
		ev   entity.ProgressEvent
		want string
	}{
		{"init", relay.InitEvent("saida/2025-11"), "[INFO] Saída: saida/2025-11"},
		{"inicio", relay.ClientStartEvent(c), "==> ALFA (LOGIN_SENHA)"},
		{"fin_ok", relay.ClientEndEvent(c, entity.StatusOK, "2 nota(s) em 1 página(s)"), "<== ALFA: OK - 2 nota(s) em 1 página(s)"},
		{"fin_sin_detalle", relay.ClientEndEvent(c, entity.StatusOK, ""), "<== ALFA: OK"},
		{"log", relay.LogEvent("[INFO] Página 1: 3 linha(s)."), "[INFO] Página 1: 3 linha(s)."},
		{"error", relay.ErrorEvent("[ERRO] falhou"), "[ERRO] falhou"},
		{"done", relay.DoneEvent(7), "[OK] Concluído: 7 nota(s) na planilha."},
		{"sin_fila", entity.ProgressEvent{Kind: entity.EventClientEnd}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relay.FormatEvent(tt.ev))
		})
	}
}
