package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateFolder creates a subfolder. The owner is inherited from the parent;
// root folders only come into existence through user provisioning.
func (s *Store) CreateFolder(ctx context.Context, parentID uuid.UUID, title string) (Folder, error) {
	folder := Folder{ParentID: &parentID, Title: title}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT user_id FROM folders WHERE id = @parentID;`,
			pgx.NamedArgs{"parentID": parentID}).Scan(&folder.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("parent folder %s: %w", parentID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load parent folder: %w", err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO folders (user_id, parent_id, title)
			 VALUES (@userID, @parentID, @title)
			 RETURNING id;`,
			pgx.NamedArgs{"userID": folder.UserID, "parentID": parentID, "title": title},
		).Scan(&folder.ID)
		if err != nil {
			return fmt.Errorf("insert folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return Folder{}, err
	}
	return folder, nil
}

func (s *Store) GetFolder(ctx context.Context, id uuid.UUID) (Folder, error) {
	var folder Folder
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, parent_id, title FROM folders WHERE id = $1;`, id,
	).Scan(&folder.ID, &folder.UserID, &folder.ParentID, &folder.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return Folder{}, ErrNotFound
	}
	if err != nil {
		return Folder{}, fmt.Errorf("load folder: %w", err)
	}

	folder.Breadcrumb, err = s.folderBreadcrumb(ctx, id)
	if err != nil {
		return Folder{}, err
	}
	return folder, nil
}

// folderBreadcrumb returns the folder titles from the root down to and
// including the given folder.
func (s *Store) folderBreadcrumb(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`WITH RECURSIVE crumbs AS (
		     SELECT id, parent_id, title, 0 AS depth FROM folders WHERE id = $1
		     UNION ALL
		     SELECT f.id, f.parent_id, f.title, c.depth + 1
		     FROM folders f JOIN crumbs c ON f.id = c.parent_id
		 )
		 SELECT title FROM crumbs ORDER BY depth DESC;`, id)
	if err != nil {
		return nil, fmt.Errorf("load breadcrumb: %w", err)
	}
	defer rows.Close()

	var crumbs []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan breadcrumb: %w", err)
		}
		crumbs = append(crumbs, title)
	}
	return crumbs, rows.Err()
}
