package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"docshelf/internal/event"
)

// OCR status values carried by documents.
const (
	OCRStatusUnknown   = "UNKNOWN"
	OCRStatusReceived  = "RECEIVED"
	OCRStatusStarted   = "STARTED"
	OCRStatusSucceeded = "SUCCEEDED"
	OCRStatusFailed    = "FAILED"
)

type CreateDocumentParams struct {
	// ID and TaskID are generated when zero. Callers that pre-generate them
	// can record task state before the transaction commits.
	ID       uuid.UUID
	TaskID   string
	FolderID uuid.UUID
	Title    string
	Lang     string
	Content  string
}

// CreateDocument inserts the document row and, in the same transaction, an
// outbox row describing the ingest task. The relay turns that row into a NATS
// message once the transaction commits, so the task can never be published
// for a document that was rolled back.
func (s *Store) CreateDocument(ctx context.Context, p CreateDocumentParams) (Document, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.TaskID == "" {
		p.TaskID = uuid.NewString()
	}
	if p.Lang == "" {
		p.Lang = "eng"
	}
	doc := Document{ID: p.ID, FolderID: p.FolderID, Title: p.Title, Lang: p.Lang, OCRStatus: OCRStatusReceived, Version: 1}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT user_id FROM folders WHERE id = @folderID;`,
			pgx.NamedArgs{"folderID": p.FolderID}).Scan(&doc.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("folder %s: %w", p.FolderID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load folder: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO documents (id, user_id, folder_id, title, lang, ocr_status)
			 VALUES (@id, @userID, @folderID, @title, @lang, @status);`,
			pgx.NamedArgs{
				"id":       doc.ID,
				"userID":   doc.UserID,
				"folderID": p.FolderID,
				"title":    p.Title,
				"lang":     p.Lang,
				"status":   OCRStatusReceived,
			})
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}

		data, err := json.Marshal(event.DocumentIngest{
			TaskID:     p.TaskID,
			DocumentID: doc.ID.String(),
			Lang:       p.Lang,
			Content:    p.Content,
		})
		if err != nil {
			return fmt.Errorf("marshal task payload: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO outbox (event_name, object_name, object_id, data)
			 VALUES (@eventName, @objectName, @objectID, @data);`,
			pgx.NamedArgs{
				"eventName":  event.IngestDocument,
				"objectName": "document",
				"objectID":   doc.ID.String(),
				"data":       string(data),
			})
		if err != nil {
			return fmt.Errorf("insert outbox row: %w", err)
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	var doc Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, folder_id, title, lang, ocr_status, version
		 FROM documents WHERE id = $1;`, id,
	).Scan(&doc.ID, &doc.UserID, &doc.FolderID, &doc.Title, &doc.Lang, &doc.OCRStatus, &doc.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("load document: %w", err)
	}

	if doc.Pages, err = s.documentPages(ctx, id); err != nil {
		return Document{}, err
	}
	if doc.Tags, err = s.documentTags(ctx, id); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *Store) documentPages(ctx context.Context, docID uuid.UUID) ([]Page, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, number, text, lang, angle
		 FROM pages WHERE document_id = $1 ORDER BY number;`, docID)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Number, &p.Text, &p.Lang, &p.Angle); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (s *Store) documentTags(ctx context.Context, docID uuid.UUID) ([]Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name, t.fg_color, t.bg_color
		 FROM tags t JOIN document_tags dt ON dt.tag_id = t.id
		 WHERE dt.document_id = $1 ORDER BY t.name;`, docID)
	if err != nil {
		return nil, fmt.Errorf("load document tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.FGColor, &t.BGColor); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ReplacePages swaps the document's pages for the given texts. Deleting first
// keeps redelivered ingest tasks idempotent.
func (s *Store) ReplacePages(ctx context.Context, docID uuid.UUID, lang string, texts []string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM pages WHERE document_id = $1;`, docID); err != nil {
			return fmt.Errorf("clear pages: %w", err)
		}
		for i, text := range texts {
			_, err := tx.Exec(ctx,
				`INSERT INTO pages (document_id, number, text, lang)
				 VALUES (@docID, @number, @text, @lang);`,
				pgx.NamedArgs{"docID": docID, "number": i + 1, "text": text, "lang": lang})
			if err != nil {
				return fmt.Errorf("insert page %d: %w", i+1, err)
			}
		}
		return nil
	})
}

func (s *Store) SetOCRStatus(ctx context.Context, docID uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET ocr_status = $2 WHERE id = $1;`, docID, status)
	if err != nil {
		return fmt.Errorf("update ocr status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
