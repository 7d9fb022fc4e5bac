package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) GetPage(ctx context.Context, id uuid.UUID) (Page, error) {
	var p Page
	err := s.pool.QueryRow(ctx,
		`SELECT id, document_id, number, text, lang, angle FROM pages WHERE id = $1;`, id,
	).Scan(&p.ID, &p.DocumentID, &p.Number, &p.Text, &p.Lang, &p.Angle)
	if errors.Is(err, pgx.ErrNoRows) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("load page: %w", err)
	}
	return p, nil
}

// DeletePages removes the given pages, renumbers the survivors so that page
// numbers stay contiguous from 1, and bumps the document version. All pages
// must belong to the same document, and at least one page must remain.
func (s *Store) DeletePages(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return ErrNotFound
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		docID, err := singleDocument(ctx, tx, ids)
		if err != nil {
			return err
		}

		var total int
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM pages WHERE document_id = $1;`, docID).Scan(&total); err != nil {
			return fmt.Errorf("count pages: %w", err)
		}
		if total <= len(ids) {
			return ErrLastPage
		}

		if _, err := tx.Exec(ctx, `DELETE FROM pages WHERE id = ANY($1);`, ids); err != nil {
			return fmt.Errorf("delete pages: %w", err)
		}
		if err := renumberPages(ctx, tx, docID); err != nil {
			return err
		}
		return bumpVersion(ctx, tx, docID)
	})
}

type PageMove struct {
	ID        uuid.UUID `json:"id"`
	OldNumber int       `json:"old_number"`
	NewNumber int       `json:"new_number"`
}

// ReorderPages assigns new positions to the document's pages. The moves must
// cover every page of the document, the stated old numbers must match the
// stored ones, and the new numbers must form a permutation of 1..n.
func (s *Store) ReorderPages(ctx context.Context, moves []PageMove) error {
	if len(moves) == 0 {
		return ErrBadReorder
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ids := make([]uuid.UUID, len(moves))
		for i, m := range moves {
			ids[i] = m.ID
		}
		docID, err := singleDocument(ctx, tx, ids)
		if err != nil {
			return err
		}

		current := map[uuid.UUID]int{}
		rows, err := tx.Query(ctx,
			`SELECT id, number FROM pages WHERE document_id = $1;`, docID)
		if err != nil {
			return fmt.Errorf("load page numbers: %w", err)
		}
		for rows.Next() {
			var id uuid.UUID
			var number int
			if err := rows.Scan(&id, &number); err != nil {
				rows.Close()
				return fmt.Errorf("scan page number: %w", err)
			}
			current[id] = number
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if !validReorder(moves, current) {
			return ErrBadReorder
		}

		for _, m := range moves {
			_, err := tx.Exec(ctx,
				`UPDATE pages SET number = $2 WHERE id = $1;`, m.ID, m.NewNumber)
			if err != nil {
				return fmt.Errorf("move page %s: %w", m.ID, err)
			}
		}
		return bumpVersion(ctx, tx, docID)
	})
}

type PageRotation struct {
	ID    uuid.UUID `json:"id"`
	Angle int       `json:"angle"`
}

// RotatePages adds the given relative angles, normalized into [0, 360).
func (s *Store) RotatePages(ctx context.Context, rotations []PageRotation) error {
	if len(rotations) == 0 {
		return ErrNotFound
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ids := make([]uuid.UUID, len(rotations))
		for i, r := range rotations {
			ids[i] = r.ID
		}
		docID, err := singleDocument(ctx, tx, ids)
		if err != nil {
			return err
		}

		for _, r := range rotations {
			_, err := tx.Exec(ctx,
				`UPDATE pages SET angle = ((angle + $2) % 360 + 360) % 360 WHERE id = $1;`,
				r.ID, r.Angle)
			if err != nil {
				return fmt.Errorf("rotate page %s: %w", r.ID, err)
			}
		}
		return bumpVersion(ctx, tx, docID)
	})
}

// validReorder checks that moves cover the whole document, agree with the
// stored numbering, and assign a permutation of 1..n.
func validReorder(moves []PageMove, current map[uuid.UUID]int) bool {
	if len(moves) != len(current) {
		return false
	}
	seen := make(map[int]bool, len(moves))
	for _, m := range moves {
		old, ok := current[m.ID]
		if !ok || old != m.OldNumber {
			return false
		}
		if m.NewNumber < 1 || m.NewNumber > len(moves) || seen[m.NewNumber] {
			return false
		}
		seen[m.NewNumber] = true
	}
	return true
}

// singleDocument resolves the one document the pages belong to. Missing pages
// map to ErrNotFound, mixed documents to ErrPagesSpanDocuments.
func singleDocument(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (uuid.UUID, error) {
	rows, err := tx.Query(ctx,
		`SELECT DISTINCT document_id FROM pages WHERE id = ANY($1);`, ids)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve document: %w", err)
	}
	defer rows.Close()

	var docIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return uuid.Nil, fmt.Errorf("scan document id: %w", err)
		}
		docIDs = append(docIDs, id)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, err
	}

	switch len(docIDs) {
	case 0:
		return uuid.Nil, ErrNotFound
	case 1:
		return docIDs[0], nil
	default:
		return uuid.Nil, ErrPagesSpanDocuments
	}
}

func renumberPages(ctx context.Context, tx pgx.Tx, docID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE pages p SET number = r.rn
		 FROM (SELECT id, row_number() OVER (ORDER BY number) AS rn
		       FROM pages WHERE document_id = $1) r
		 WHERE p.id = r.id AND p.number <> r.rn;`, docID)
	if err != nil {
		return fmt.Errorf("renumber pages: %w", err)
	}
	return nil
}

func bumpVersion(ctx context.Context, tx pgx.Tx, docID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE documents SET version = version + 1 WHERE id = $1;`, docID)
	if err != nil {
		return fmt.Errorf("bump document version: %w", err)
	}
	return nil
}
