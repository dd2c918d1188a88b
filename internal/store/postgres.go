package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps one row per record with the full document in a jsonb
// column and the summary fields denormalized for listing
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects, pings and applies pending migrations
func NewPostgresStore(ctx context.Context, url string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, eris.Wrap(err, "parse database url")
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping postgres")
	}

	s := &PostgresStore{pool: pool, logger: logger.Named("postgres")}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return eris.Wrap(err, "set migration dialect")
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return eris.Wrap(err, "apply migrations")
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err == nil {
		s.logger.Debug("schema ready", zap.Int64("version", version))
	}
	return nil
}

// FindByContentHash returns the record for a content digest
func (s *PostgresStore) FindByContentHash(ctx context.Context, digest string) (*model.ContractRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT record FROM contracts WHERE file_hash = $1 ORDER BY upload_date LIMIT 1`, digest)
	return scanRecord(row)
}

// FindByID returns the record with the given id
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*model.ContractRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT record FROM contracts WHERE id = $1`, id)
	return scanRecord(row)
}

// Upsert replaces or inserts the row. The conflict clause refuses to touch a
// row whose stored hash differs, which surfaces as zero affected rows.
func (s *PostgresStore) Upsert(ctx context.Context, rec *model.ContractRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO contracts (id, file_hash, filename, seller_company, document_type,
			health_score, health_tier, health_tier_label, upload_date, last_updated, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			seller_company = EXCLUDED.seller_company,
			document_type = EXCLUDED.document_type,
			health_score = EXCLUDED.health_score,
			health_tier = EXCLUDED.health_tier,
			health_tier_label = EXCLUDED.health_tier_label,
			last_updated = EXCLUDED.last_updated,
			record = EXCLUDED.record
		WHERE contracts.file_hash = EXCLUDED.file_hash`,
		rec.ID, rec.FileHash, rec.Filename, rec.SellerCompany, rec.DocumentType,
		rec.HealthScore, string(rec.HealthTier), rec.HealthTierLabel, rec.Uploaded, rec.Updated, data,
	)
	if err != nil {
		return eris.Wrapf(err, "upsert contract %s", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrContentHashMismatch, "contract %s", rec.ID)
	}
	return nil
}

// DeleteByID removes the row if present
func (s *PostgresStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "delete contract %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

// ListSummaries reads the denormalized columns only
func (s *PostgresStore) ListSummaries(ctx context.Context) ([]model.ContractSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, seller_company, document_type, health_score,
			health_tier, health_tier_label, upload_date, last_updated
		FROM contracts ORDER BY upload_date`)
	if err != nil {
		return nil, eris.Wrap(err, "list contracts")
	}
	defer rows.Close()

	out := []model.ContractSummary{}
	for rows.Next() {
		var sum model.ContractSummary
		var tier string
		if err := rows.Scan(&sum.ID, &sum.Filename, &sum.SellerCompany, &sum.DocumentType,
			&sum.HealthScore, &tier, &sum.HealthTierLabel, &sum.Uploaded, &sum.Updated); err != nil {
			return nil, eris.Wrap(err, "scan contract summary")
		}
		sum.HealthTier = model.Tier(tier)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate contracts")
	}
	return out, nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (*model.ContractRecord, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "read contract")
	}
	return decodeRecord(data)
}
