package taskmon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskFieldsRoundTrip(t *testing.T) {
	task := Task{
		ID:         "a8f2",
		Name:       "docshelf.tasks.ingest_document",
		DocumentID: "d-1",
		State:      StateFailed,
		Error:      "boom",
	}

	got := taskFromFields(task.ID, taskFields(task))
	assert.Equal(t, task, got)
}

func TestMemStoreTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	task := Task{ID: "t-1", Name: "docshelf.tasks.ingest_document", DocumentID: "d-1", State: StateReceived}
	require.NoError(t, store.Set(ctx, task))

	task.State = StateStarted
	require.NoError(t, store.Set(ctx, task))

	got, err := store.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, StateStarted, got.State)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
