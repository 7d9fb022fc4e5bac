package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// Every user owns two special folders created together with the account.
const (
	HomeFolderTitle  = ".home"
	InboxFolderTitle = ".inbox"
)

// CreateSuperuser provisions the administrative account along with its home
// and inbox folders. A duplicate username surfaces as a unique-violation
// error from Postgres; callers that want idempotent provisioning treat any
// error here as non-fatal.
func (s *Store) CreateSuperuser(ctx context.Context, username, email, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{Username: username, Email: email, IsSuperuser: true}
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash, is_superuser)
			 VALUES (@username, @email, @hash, true)
			 RETURNING id;`,
			pgx.NamedArgs{"username": username, "email": email, "hash": string(hash)},
		).Scan(&user.ID)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		for _, title := range []string{HomeFolderTitle, InboxFolderTitle} {
			_, err := tx.Exec(ctx,
				`INSERT INTO folders (user_id, title) VALUES (@userID, @title);`,
				pgx.NamedArgs{"userID": user.ID, "title": title})
			if err != nil {
				return fmt.Errorf("create %s folder: %w", title, err)
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}
