package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrMoveIntoSource rejects moving pages into the document they already
// belong to.
var ErrMoveIntoSource = errors.New("pages cannot be moved into their own document")

type MovePagesToFolderParams struct {
	Pages      []uuid.UUID
	FolderID   uuid.UUID
	SinglePage bool
}

// MovePagesToFolder extracts the given pages into new documents inside the
// target folder. With SinglePage each page becomes its own one-page document,
// otherwise all pages land in a single document, keeping their relative
// order. The source document is renumbered and version-bumped; the new
// documents carry the text as-is and need no further processing.
func (s *Store) MovePagesToFolder(ctx context.Context, p MovePagesToFolderParams) ([]Document, error) {
	if len(p.Pages) == 0 {
		return nil, ErrNotFound
	}
	var created []Document
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		srcID, err := singleDocument(ctx, tx, p.Pages)
		if err != nil {
			return err
		}

		var userID uuid.UUID
		err = tx.QueryRow(ctx,
			`SELECT user_id FROM folders WHERE id = @folderID;`,
			pgx.NamedArgs{"folderID": p.FolderID}).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("folder %s: %w", p.FolderID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load folder: %w", err)
		}

		pages, err := loadPagesByID(ctx, tx, p.Pages)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM pages WHERE id = ANY($1);`, p.Pages); err != nil {
			return fmt.Errorf("detach pages: %w", err)
		}
		if err := renumberPages(ctx, tx, srcID); err != nil {
			return err
		}
		if err := bumpVersion(ctx, tx, srcID); err != nil {
			return err
		}

		groups := [][]Page{pages}
		if p.SinglePage {
			groups = groups[:0]
			for _, page := range pages {
				groups = append(groups, []Page{page})
			}
		}
		for _, group := range groups {
			title := "noname.pdf"
			if p.SinglePage {
				title = fmt.Sprintf("noname-%s.pdf", group[0].ID)
			}
			doc, err := insertExtractedDocument(ctx, tx, userID, p.FolderID, title, group)
			if err != nil {
				return err
			}
			created = append(created, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

type MovePagesToDocumentParams struct {
	Pages      []uuid.UUID
	DocumentID uuid.UUID
	// Position is the 0-based insert point; out-of-range values append.
	Position int
}

// MovePagesToDocument moves the given pages into another document at the
// requested position. Both documents are renumbered to stay contiguous from 1
// and both versions are bumped.
func (s *Store) MovePagesToDocument(ctx context.Context, p MovePagesToDocumentParams) error {
	if len(p.Pages) == 0 {
		return ErrNotFound
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		srcID, err := singleDocument(ctx, tx, p.Pages)
		if err != nil {
			return err
		}
		if srcID == p.DocumentID {
			return ErrMoveIntoSource
		}

		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1);`, p.DocumentID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check target document: %w", err)
		}
		if !exists {
			return fmt.Errorf("document %s: %w", p.DocumentID, ErrNotFound)
		}

		var dstCount int
		err = tx.QueryRow(ctx,
			`SELECT count(*) FROM pages WHERE document_id = $1;`, p.DocumentID).Scan(&dstCount)
		if err != nil {
			return fmt.Errorf("count target pages: %w", err)
		}

		pages, err := loadPagesByID(ctx, tx, p.Pages)
		if err != nil {
			return err
		}
		pos := insertPosition(p.Position, dstCount)

		// Make room in the target, then drop the moved rows into the gap in
		// their source order.
		_, err = tx.Exec(ctx,
			`UPDATE pages SET number = number + $3 WHERE document_id = $1 AND number > $2;`,
			p.DocumentID, pos, len(pages))
		if err != nil {
			return fmt.Errorf("shift target pages: %w", err)
		}
		for i, page := range pages {
			_, err := tx.Exec(ctx,
				`UPDATE pages SET document_id = $2, number = $3 WHERE id = $1;`,
				page.ID, p.DocumentID, pos+i+1)
			if err != nil {
				return fmt.Errorf("move page %s: %w", page.ID, err)
			}
		}

		if err := renumberPages(ctx, tx, srcID); err != nil {
			return err
		}
		if err := bumpVersion(ctx, tx, srcID); err != nil {
			return err
		}
		return bumpVersion(ctx, tx, p.DocumentID)
	})
}

// insertPosition clamps the requested 0-based insert index into
// [0, existing]; negative or too-large values append.
func insertPosition(requested, existing int) int {
	if requested < 0 || requested > existing {
		return existing
	}
	return requested
}

// loadPagesByID loads the pages in their stored order and requires every
// requested id to exist.
func loadPagesByID(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]Page, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, document_id, number, text, lang, angle
		 FROM pages WHERE id = ANY($1) ORDER BY number;`, ids)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pages) != len(ids) {
		return nil, ErrNotFound
	}
	return pages, nil
}

func insertExtractedDocument(ctx context.Context, tx pgx.Tx, userID, folderID uuid.UUID, title string, pages []Page) (Document, error) {
	doc := Document{
		ID:        uuid.New(),
		UserID:    userID,
		FolderID:  folderID,
		Title:     title,
		Lang:      pages[0].Lang,
		OCRStatus: OCRStatusSucceeded,
		Version:   1,
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO documents (id, user_id, folder_id, title, lang, ocr_status)
		 VALUES (@id, @userID, @folderID, @title, @lang, @status);`,
		pgx.NamedArgs{
			"id":       doc.ID,
			"userID":   userID,
			"folderID": folderID,
			"title":    title,
			"lang":     doc.Lang,
			"status":   OCRStatusSucceeded,
		})
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}

	for i, page := range pages {
		moved := Page{DocumentID: doc.ID, Number: i + 1, Text: page.Text, Lang: page.Lang, Angle: page.Angle}
		err := tx.QueryRow(ctx,
			`INSERT INTO pages (document_id, number, text, lang, angle)
			 VALUES (@docID, @number, @text, @lang, @angle)
			 RETURNING id;`,
			pgx.NamedArgs{
				"docID":  doc.ID,
				"number": moved.Number,
				"text":   moved.Text,
				"lang":   moved.Lang,
				"angle":  moved.Angle,
			}).Scan(&moved.ID)
		if err != nil {
			return Document{}, fmt.Errorf("insert page %d: %w", i+1, err)
		}
		doc.Pages = append(doc.Pages, moved)
	}
	return doc, nil
}
