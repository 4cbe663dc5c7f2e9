package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/cignalottu/authcore"
	"github.com/cignalottu/authcore/internal/config"
	"github.com/cignalottu/authcore/password"
	"github.com/cignalottu/authcore/store/bunstore"
	"github.com/cignalottu/authcore/store/memory"
	"github.com/cignalottu/authcore/store/redisstore"
)

var errNotSQL = errors.New("store.driver is not sql")

// openStore builds the identity store selected by store.driver. The returned
// close function is never nil.
func openStore(ctx context.Context, c *config.Config, migrateSQL bool) (authcore.IdentityStore, func(), error) {
	switch c.Store.Driver {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Store.Redis.Addr, err)
		}
		opts := []redisstore.Option{redisstore.WithPrefix(c.Store.Redis.Prefix)}
		if c.Store.Redis.Encoding != "" {
			opts = append(opts, redisstore.WithEncoding(redisstore.Encoding(c.Store.Redis.Encoding)))
		}
		log.Info().Str("addr", c.Store.Redis.Addr).Msg("connected to redis")
		return redisstore.New(client, opts...), func() { _ = client.Close() }, nil

	case config.StoreSQL:
		db, err := openSQL(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		if migrateSQL {
			if err := runMigrations(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return bunstore.New(db), func() { _ = db.Close() }, nil

	default:
		log.Warn().Msg("using in-memory identity store; data is lost on exit")
		return memory.New(), func() {}, nil
	}
}

func openSQL(ctx context.Context, c *config.Config) (*bun.DB, error) {
	if c.Store.Driver != config.StoreSQL {
		return nil, errNotSQL
	}
	db, err := bunstore.Open(ctx, c.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Str("type", string(bunstore.DetectDatabaseType(c.Store.DatabaseURL))).Msg("connected to database")
	return db, nil
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	group, err := bunstore.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if group.ID == 0 {
		log.Info().Msg("no new migrations to apply")
	} else {
		log.Info().Int64("group", group.ID).Msg("applied migration group")
	}
	return nil
}

// newHasher builds the credential verifier for the configured algorithm.
func newHasher(engineCfg authcore.Config) (*password.Hasher, error) {
	return password.New(engineCfg.Password)
}
