package nfse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/portal-nfse/pkg/nfse"
)

func TestValidateTaxID(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"11.222.333/0001-81", true},
		{"11222333000181", true},
		{"11222333000182", false},
		{"11222333000144", false},
		{"00000000000000", false},
		{"1122233300018", false},
		{"529.982.247-25", true},
		{"52998224724", false},
		{"11111111111", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := nfse.ValidateTaxID(tt.in)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
