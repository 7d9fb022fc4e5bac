package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"docshelf/internal/event"
	"docshelf/internal/store"
	"docshelf/internal/taskmon"
)

// documentStore is what ingesting needs from the persistence layer.
type documentStore interface {
	ReplacePages(ctx context.Context, docID uuid.UUID, lang string, texts []string) error
	SetOCRStatus(ctx context.Context, docID uuid.UUID, status string) error
}

type consumer struct {
	docs  documentStore
	tasks taskmon.Store
}

func (c *consumer) handle(msg *nats.Msg) {
	var payload event.DocumentIngest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		zap.L().Error("discard malformed task",
			zap.String("subject", msg.Subject), zap.Error(err))
		return
	}

	if err := c.ingest(context.Background(), payload); err != nil {
		zap.L().Error("task failed",
			zap.String("task_id", payload.TaskID),
			zap.String("document_id", payload.DocumentID),
			zap.Error(err))
		return
	}
	zap.L().Info("task succeeded",
		zap.String("task", event.ShortName(event.IngestDocument)),
		zap.String("task_id", payload.TaskID),
		zap.String("document_id", payload.DocumentID))
}

func (c *consumer) ingest(ctx context.Context, p event.DocumentIngest) error {
	task := taskmon.Task{
		ID:         p.TaskID,
		Name:       event.IngestDocument,
		DocumentID: p.DocumentID,
		State:      taskmon.StateStarted,
	}
	c.setStatus(ctx, task)

	docID, err := uuid.Parse(p.DocumentID)
	if err != nil {
		return c.fail(ctx, task, fmt.Errorf("parse document id: %w", err))
	}

	if err := c.docs.ReplacePages(ctx, docID, p.Lang, splitPages(p.Content)); err != nil {
		_ = c.docs.SetOCRStatus(ctx, docID, store.OCRStatusFailed)
		return c.fail(ctx, task, err)
	}
	if err := c.docs.SetOCRStatus(ctx, docID, store.OCRStatusSucceeded); err != nil {
		return c.fail(ctx, task, err)
	}

	task.State = taskmon.StateSucceeded
	c.setStatus(ctx, task)
	return nil
}

func (c *consumer) fail(ctx context.Context, task taskmon.Task, err error) error {
	task.State = taskmon.StateFailed
	task.Error = err.Error()
	c.setStatus(ctx, task)
	return err
}

// Status updates are best effort: losing one must not fail the task itself.
func (c *consumer) setStatus(ctx context.Context, task taskmon.Task) {
	if err := c.tasks.Set(ctx, task); err != nil {
		zap.L().Warn("record task status", zap.String("task_id", task.ID), zap.Error(err))
	}
}

// splitPages cuts submitted content into page texts on form feeds, the page
// separator OCR tools emit in plain-text output. Leading/trailing whitespace
// per page is dropped, as are empty trailing pages; a document always gets at
// least one page.
func splitPages(content string) []string {
	parts := strings.Split(content, "\f")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
