package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the schema history of the identities table.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(upCreateIdentities, downCreateIdentities)
}

func upCreateIdentities(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*identityRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create identities table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*identityRow)(nil)).
		Index("idx_identities_provider").
		Column("provider", "provider_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create identities provider index: %w", err)
	}
	return nil
}

func downCreateIdentities(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().
		Model((*identityRow)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("drop identities table: %w", err)
	}
	return nil
}

// Migrate applies pending migrations under the migration lock and returns
// the applied group. A zero group ID means the schema was already current.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() { _ = migrator.Unlock(ctx) }()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}
