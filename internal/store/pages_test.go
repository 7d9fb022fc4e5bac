package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidReorder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	current := map[uuid.UUID]int{a: 1, b: 2, c: 3}

	ok := []PageMove{
		{ID: a, OldNumber: 1, NewNumber: 3},
		{ID: b, OldNumber: 2, NewNumber: 1},
		{ID: c, OldNumber: 3, NewNumber: 2},
	}
	assert.True(t, validReorder(ok, current))

	tests := map[string][]PageMove{
		"partial coverage": {
			{ID: a, OldNumber: 1, NewNumber: 2},
			{ID: b, OldNumber: 2, NewNumber: 1},
		},
		"duplicate target": {
			{ID: a, OldNumber: 1, NewNumber: 2},
			{ID: b, OldNumber: 2, NewNumber: 2},
			{ID: c, OldNumber: 3, NewNumber: 1},
		},
		"target out of range": {
			{ID: a, OldNumber: 1, NewNumber: 4},
			{ID: b, OldNumber: 2, NewNumber: 1},
			{ID: c, OldNumber: 3, NewNumber: 2},
		},
		"stale old number": {
			{ID: a, OldNumber: 2, NewNumber: 3},
			{ID: b, OldNumber: 2, NewNumber: 1},
			{ID: c, OldNumber: 3, NewNumber: 2},
		},
		"unknown page": {
			{ID: uuid.New(), OldNumber: 1, NewNumber: 3},
			{ID: b, OldNumber: 2, NewNumber: 1},
			{ID: c, OldNumber: 3, NewNumber: 2},
		},
	}
	for name, moves := range tests {
		assert.False(t, validReorder(moves, current), name)
	}
}

func TestValidReorderIdentity(t *testing.T) {
	a := uuid.New()
	assert.True(t, validReorder(
		[]PageMove{{ID: a, OldNumber: 1, NewNumber: 1}},
		map[uuid.UUID]int{a: 1},
	))
}
