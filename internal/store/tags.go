package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, fg_color, bg_color FROM tags ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.FGColor, &t.BGColor); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) CreateTag(ctx context.Context, tag Tag) (Tag, error) {
	if tag.FGColor == "" {
		tag.FGColor = "#ffffff"
	}
	if tag.BGColor == "" {
		tag.BGColor = "#c41fff"
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tags (name, fg_color, bg_color)
		 VALUES (@name, @fg, @bg)
		 RETURNING id;`,
		pgx.NamedArgs{"name": tag.Name, "fg": tag.FGColor, "bg": tag.BGColor},
	).Scan(&tag.ID)
	if err != nil {
		return Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	return tag, nil
}

// TagDocument attaches a tag to a document. Re-tagging is a no-op.
func (s *Store) TagDocument(ctx context.Context, docID, tagID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING;`, docID, tagID)
	if err != nil {
		return fmt.Errorf("tag document: %w", err)
	}
	return nil
}
