package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is a Catalog backed by PostgreSQL. The unique constraint on
// (table_id, version) is what serializes concurrent commits.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres connects to the database and ensures the catalog schema
// exists.
func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing catalog schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		pool: pool,
		log:  logger.With("component", "catalog"),
	}, nil
}

// Current implements Catalog.
func (p *Postgres) Current(ctx context.Context, ref TableRef) (*Entry, error) {
	var e Entry
	err := p.pool.QueryRow(ctx, `
		SELECT s.version, s.snapshot_id, s.metadata_key, s.row_count, s.committed_at
		FROM lake_snapshots s
		JOIN lake_tables t USING (table_id)
		WHERE t.namespace = $1 AND t.table_name = $2
		ORDER BY s.version DESC
		LIMIT 1
	`, ref.Namespace, ref.Table).Scan(&e.Version, &e.SnapshotID, &e.MetadataKey, &e.RowCount, &e.CommittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying current snapshot for %s: %w", ref, err)
	}
	return &e, nil
}

// Commit implements Catalog.
func (p *Postgres) Commit(ctx context.Context, ref TableRef, entry Entry) error {
	tableID, err := p.ensureTable(ctx, ref)
	if err != nil {
		return err
	}

	committedAt := entry.CommittedAt
	if committedAt.IsZero() {
		committedAt = time.Now().UTC()
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO lake_snapshots (table_id, version, snapshot_id, metadata_key, row_count, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tableID, entry.Version, entry.SnapshotID, entry.MetadataKey, entry.RowCount, committedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			p.log.Warn("snapshot version lost the commit race",
				"table", ref.String(),
				"version", entry.Version,
			)
			return ErrVersionConflict
		}
		return fmt.Errorf("committing snapshot %d for %s: %w", entry.Version, ref, err)
	}
	return nil
}

func (p *Postgres) ensureTable(ctx context.Context, ref TableRef) (int64, error) {
	var tableID int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO lake_tables (namespace, table_name)
		VALUES ($1, $2)
		ON CONFLICT (namespace, table_name) DO UPDATE SET namespace = EXCLUDED.namespace
		RETURNING table_id
	`, ref.Namespace, ref.Table).Scan(&tableID)
	if err != nil {
		return 0, fmt.Errorf("ensuring catalog table %s: %w", ref, err)
	}
	return tableID, nil
}

// Close implements Catalog.
func (p *Postgres) Close() {
	p.pool.Close()
}
