// Package postgres implements the primary record store adapter (§4.C) on
// top of PostgreSQL, using sqlx for struct-scanning ergonomics over the
// database/sql connection lib/pq's driver registers.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/northbeam-io/shortlink/internal/domain"
)

// schema is applied idempotently at startup; CREATE ... IF NOT EXISTS
// lets every replica of this service run it without coordination.
const schema = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS urls (
	id                 TEXT PRIMARY KEY,
	code               TEXT NOT NULL,
	original           TEXT NOT NULL,
	normalized         TEXT NOT NULL,
	hit_count          BIGINT NOT NULL DEFAULT 0,
	custom_alias       TEXT,
	expires_at         TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	creator_ip         TEXT,
	creator_user_agent TEXT,
	metadata           JSONB
);

CREATE UNIQUE INDEX IF NOT EXISTS urls_code_key ON urls (code);
CREATE UNIQUE INDEX IF NOT EXISTS urls_normalized_key ON urls (normalized);
CREATE INDEX IF NOT EXISTS urls_created_at_idx ON urls (created_at);
CREATE INDEX IF NOT EXISTS urls_expires_at_idx ON urls (expires_at);
CREATE INDEX IF NOT EXISTS urls_original_trgm_idx ON urls USING gin (original gin_trgm_ops);
`

// Store implements interfaces.PrimaryStore.
type Store struct {
	db *sqlx.DB
}

// New wraps an existing *sql.DB (opened with the lib/pq driver) with sqlx.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// EnsureSchema applies the idempotent DDL above. It is safe to call from
// every replica at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("ensure urls schema: %w", err)
	}
	return nil
}

// row mirrors UrlRecord with metadata flattened to its JSON wire form for
// scanning, since database/sql has no native map[string]any support.
type row struct {
	ID               string         `db:"id"`
	Code             string         `db:"code"`
	Original         string         `db:"original"`
	Normalized       string         `db:"normalized"`
	HitCount         int64          `db:"hit_count"`
	CustomAlias      sql.NullString `db:"custom_alias"`
	ExpiresAt        sql.NullTime   `db:"expires_at"`
	CreatedAt        sql.NullTime   `db:"created_at"`
	UpdatedAt        sql.NullTime   `db:"updated_at"`
	CreatorIP        sql.NullString `db:"creator_ip"`
	CreatorUserAgent sql.NullString `db:"creator_user_agent"`
	Metadata         []byte         `db:"metadata"`
}

func (r *row) toDomain() (*domain.UrlRecord, error) {
	rec := &domain.UrlRecord{
		ID:         r.ID,
		Code:       r.Code,
		Original:   r.Original,
		Normalized: r.Normalized,
		HitCount:   r.HitCount,
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
	}
	if r.CustomAlias.Valid {
		rec.CustomAlias = &r.CustomAlias.String
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		rec.ExpiresAt = &t
	}
	if r.CreatorIP.Valid {
		rec.CreatorIP = &r.CreatorIP.String
	}
	if r.CreatorUserAgent.Valid {
		rec.CreatorUserAgent = &r.CreatorUserAgent.String
	}
	if len(r.Metadata) > 0 {
		var m map[string]any
		if err := json.Unmarshal(r.Metadata, &m); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		rec.Metadata = m
	}
	return rec, nil
}

const selectColumns = `id, code, original, normalized, hit_count, custom_alias, expires_at, created_at, updated_at, creator_ip, creator_user_agent, metadata`

func (s *Store) Insert(ctx context.Context, rec *domain.UrlRecord) error {
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := `
		INSERT INTO urls (id, code, original, normalized, hit_count, custom_alias, expires_at, created_at, updated_at, creator_ip, creator_user_agent, metadata)
		VALUES (:id, :code, :original, :normalized, 0, :custom_alias, :expires_at, :created_at, :updated_at, :creator_ip, :creator_user_agent, :metadata)
	`
	_, err = s.db.NamedExecContext(ctx, query, map[string]any{
		"id":                 rec.ID,
		"code":               rec.Code,
		"original":           rec.Original,
		"normalized":         rec.Normalized,
		"custom_alias":       rec.CustomAlias,
		"expires_at":         rec.ExpiresAt,
		"created_at":         rec.CreatedAt,
		"updated_at":         rec.UpdatedAt,
		"creator_ip":         rec.CreatorIP,
		"creator_user_agent": rec.CreatorUserAgent,
		"metadata":           metadataJSON,
	})
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "urls_code_key":
				return domain.WithDetails(domain.CodeConflict, "code already exists", "code")
			case "urls_normalized_key":
				return domain.WithDetails(domain.CodeConflict, "normalized URL already exists", "normalized")
			}
			return domain.WithDetails(domain.CodeConflict, "unique constraint violated", pqErr.Constraint)
		}
		return domain.Wrap(domain.CodeDependencyUnavailable, "insert url record", err)
	}
	return nil
}

func (s *Store) FindByCode(ctx context.Context, code string) (*domain.UrlRecord, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT `+selectColumns+` FROM urls WHERE code = $1`, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "find url by code", err)
	}
	return r.toDomain()
}

func (s *Store) FindByNormalized(ctx context.Context, normalized string) (*domain.UrlRecord, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT `+selectColumns+` FROM urls WHERE normalized = $1`, normalized)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "find url by normalized", err)
	}
	return r.toDomain()
}

func (s *Store) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM urls WHERE code = $1)`, code)
	if err != nil {
		return false, domain.Wrap(domain.CodeDependencyUnavailable, "check code existence", err)
	}
	return exists, nil
}

func (s *Store) Delete(ctx context.Context, code string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM urls WHERE code = $1`, code)
	if err != nil {
		return false, domain.Wrap(domain.CodeDependencyUnavailable, "delete url record", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, domain.Wrap(domain.CodeInternal, "read rows affected", err)
	}
	return affected > 0, nil
}

func (s *Store) IncrementHitCount(ctx context.Context, code string, delta int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE urls SET hit_count = hit_count + $2, updated_at = updated_at WHERE code = $1`, code, delta)
	if err != nil {
		return fmt.Errorf("increment hit count: %w", err)
	}
	return nil
}

func (s *Store) GetExpired(ctx context.Context, limit int) ([]*domain.UrlRecord, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+selectColumns+` FROM urls
		WHERE expires_at IS NOT NULL AND expires_at <= NOW()
		ORDER BY expires_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "get expired urls", err)
	}
	return toDomainSlice(rows)
}

func (s *Store) Stats(ctx context.Context, now time.Time) (*domain.URLStats, error) {
	var total, expired int64
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE expires_at IS NOT NULL AND expires_at <= $1)
		FROM urls
	`, now)
	if err := row.Scan(&total, &expired); err != nil {
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "compute url stats", err)
	}
	return &domain.URLStats{Total: total, Active: total - expired, Expired: expired}, nil
}

var sortColumnByField = map[domain.SortField]string{
	domain.SortCreatedAt: "created_at",
	domain.SortUpdatedAt: "updated_at",
	domain.SortHitCount:  "hit_count",
	domain.SortOriginal:  "original",
	domain.SortCode:      "code",
}

func (s *Store) List(ctx context.Context, filter domain.ListFilter) (*domain.ListResult, error) {
	where := []string{"1=1"}
	args := []any{}
	argIdx := 1

	switch filter.Status {
	case domain.StatusActive:
		where = append(where, "(expires_at IS NULL OR expires_at > NOW())")
	case domain.StatusExpired:
		where = append(where, "(expires_at IS NOT NULL AND expires_at <= NOW())")
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(original ILIKE '%%' || $%d || '%%' OR code ILIKE '%%' || $%d || '%%')", argIdx, argIdx))
		args = append(args, filter.Search)
		argIdx++
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM urls WHERE " + whereClause
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "count urls", err)
	}

	sortColumn := sortColumnByField[filter.Sort]
	if sortColumn == "" {
		sortColumn = "created_at"
	}
	order := "DESC"
	if filter.Order == domain.OrderAsc {
		order = "ASC"
	}

	limitIdx, offsetIdx := argIdx, argIdx+1
	query := fmt.Sprintf(`SELECT %s FROM urls WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		selectColumns, whereClause, sortColumn, order, limitIdx, offsetIdx)
	args = append(args, filter.Limit, filter.Offset)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "list urls", err)
	}
	records, err := toDomainSlice(rows)
	if err != nil {
		return nil, err
	}
	return &domain.ListResult{Records: records, Total: total}, nil
}

func toDomainSlice(rows []row) ([]*domain.UrlRecord, error) {
	out := make([]*domain.UrlRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
