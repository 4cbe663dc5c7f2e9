// Package bunstore persists identities in PostgreSQL or SQLite through bun.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/cignalottu/authcore/identity"
)

// Store implements identity.Store on a bun database. The unique index on
// email enforces registration uniqueness across processes.
type Store struct {
	db  bun.IDB
	now func() time.Time
}

var _ identity.Store = (*Store)(nil)

func New(db bun.IDB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*identityRow)(nil)).
		Where("email = ?", identity.NormalizeEmail(email)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	row := new(identityRow)
	err := s.db.NewSelect().
		Model(row).
		Where("email = ?", identity.NormalizeEmail(email)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by email: %w", err)
	}
	return row.identity(), nil
}

// Save inserts ident when its ID is zero and updates it otherwise.
func (s *Store) Save(ctx context.Context, ident *identity.Identity) (*identity.Identity, error) {
	if ident == nil {
		return nil, identity.ErrNotFound
	}
	row := rowFrom(ident)
	now := s.now().UTC()

	if row.ID == 0 {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return nil, identity.ErrDuplicateEmail
			}
			return nil, fmt.Errorf("insert identity: %w", err)
		}
		return row.identity(), nil
	}

	row.UpdatedAt = now
	res, err := s.db.NewUpdate().
		Model(row).
		ExcludeColumn("id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, identity.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update identity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, identity.ErrNotFound
	}

	return s.FindByEmail(ctx, row.Email)
}

// Delete removes the identity registered under email. It is idempotent.
func (s *Store) Delete(ctx context.Context, email string) error {
	_, err := s.db.NewDelete().
		Model((*identityRow)(nil)).
		Where("email = ?", identity.NormalizeEmail(email)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key value")
}
