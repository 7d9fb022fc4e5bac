package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertPosition(t *testing.T) {
	tests := []struct {
		requested int
		existing  int
		want      int
	}{
		{-1, 5, 5},
		{0, 5, 0},
		{3, 5, 3},
		{5, 5, 5},
		{9, 5, 5},
		{-1, 0, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, insertPosition(tt.requested, tt.existing),
			"requested=%d existing=%d", tt.requested, tt.existing)
	}
}
