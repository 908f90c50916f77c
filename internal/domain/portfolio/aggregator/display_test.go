package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayAmount(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		currency string
		want     string
	}{
		{"known currency", 1234.5, "USD", "$1,234.50"},
		{"unknown currency", 1234.5, "XYZ", "1234.50 XYZ"},
		{"no currency", -12, "", "-12.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayAmount(tt.value, tt.currency))
		})
	}
}

func TestDisplayRatio(t *testing.T) {
	assert.Equal(t, "12.50%", DisplayRatio(0.125))
	assert.Equal(t, "-5.00%", DisplayRatio(-0.05))
}
