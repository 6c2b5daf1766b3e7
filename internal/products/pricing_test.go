package products

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		discount int
		want     int64
	}{
		{"no discount", 10000, 0, 10000},
		{"negative discount ignored", 10000, -5, 10000},
		{"simple percent", 10000, 25, 7500},
		{"floors fractional result", 999, 10, 899},
		{"full discount", 10000, 100, 0},
		{"discount above hundred", 10000, 150, 0},
		{"zero price", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinalPrice(tt.price, tt.discount))
		})
	}
}
