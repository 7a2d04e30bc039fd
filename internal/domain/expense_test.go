package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountCents(t *testing.T) {
	tests := []struct {
		amount float64
		cents  int64
		exact  bool
	}{
		{12.5, 1250, true},
		{0.1, 10, true},
		{4500, 450000, true},
		{1.005, 101, false},
		{0.004, 0, false},
		{0.005, 1, false},
		{-2.25, -225, true},
	}
	for _, tt := range tests {
		cents, exact := AmountCents(tt.amount)
		assert.Equal(t, tt.cents, cents, "amount %v", tt.amount)
		assert.Equal(t, tt.exact, exact, "amount %v", tt.amount)
	}

	assert.Equal(t, int64(101), Expense{Amount: 1.005}.Cents())
}
