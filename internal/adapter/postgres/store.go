// Package postgres persists scenarios in Postgres. The aggregate is stored
// as JSONB with the listing and filter fields broken out into columns.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

const table = "scenarios"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store implements scenario.Store on Postgres.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a store over an open pool.
func NewStore(db DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Save upserts a scenario.
func (s *Store) Save(ctx context.Context, sc domain.Scenario) error {
	ctx, span := otel.Tracer("ScenarioStore").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("scenario.id", sc.ID),
	))
	defer span.End()

	data, err := json.Marshal(sc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("encode scenario %s: %w", sc.ID, err)
	}
	var risk *string
	if sc.Assessment != nil {
		l := string(sc.Assessment.Level())
		risk = &l
	}

	query, args, err := psql.Insert(table).
		Columns("id", "owner_id", "location", "location_name", "lang", "note", "state", "risk_level", "data", "created_at", "updated_at").
		Values(sc.ID, sc.OwnerID, sc.Location, sc.LocationName, sc.Lang, sc.Note, string(sc.State), risk, data, sc.CreatedAt, sc.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			location_name = EXCLUDED.location_name,
			note = EXCLUDED.note,
			state = EXCLUDED.state,
			risk_level = EXCLUDED.risk_level,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		s.logger.ErrorContext(ctx, "save scenario failed", "scenario_id", sc.ID, "error", err)
		return fmt.Errorf("save scenario %s: %w", sc.ID, err)
	}
	span.SetStatus(codes.Ok, "Scenario saved")
	return nil
}

// Get loads a scenario by id.
func (s *Store) Get(ctx context.Context, id string) (domain.Scenario, error) {
	ctx, span := otel.Tracer("ScenarioStore").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("scenario.id", id),
	))
	defer span.End()

	query, args, err := psql.Select("data").From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("build select: %w", err)
	}

	var data []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "Scenario not found")
			return domain.Scenario{}, fmt.Errorf("%w: scenario %s", domain.ErrNotFound, id)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return domain.Scenario{}, fmt.Errorf("get scenario %s: %w", id, err)
	}

	sc, err := decode(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return domain.Scenario{}, err
	}
	span.SetStatus(codes.Ok, "Scenario fetched")
	return sc, nil
}

// List returns up to limit scenarios, newest first, filtered by owner when
// one is given.
func (s *Store) List(ctx context.Context, owner *string, limit int) ([]domain.Scenario, error) {
	ctx, span := otel.Tracer("ScenarioStore").Start(ctx, "List", trace.WithAttributes(
		attribute.Bool("filter.owner", owner != nil),
		attribute.Int("limit", limit),
	))
	defer span.End()

	b := psql.Select("data").From(table).OrderBy("created_at DESC", "id DESC")
	if owner != nil {
		b = b.Where(sq.Eq{"owner_id": *owner})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Scenario, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		sc, err := decode(data)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "row iteration failed")
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	span.SetAttributes(attribute.Int("results.count", len(out)))
	span.SetStatus(codes.Ok, "Scenarios listed")
	return out, nil
}

// Delete removes a scenario by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("ScenarioStore").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("scenario.id", id),
	))
	defer span.End()

	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("delete scenario %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: scenario %s", domain.ErrNotFound, id)
	}
	span.SetStatus(codes.Ok, "Scenario deleted")
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func decode(data []byte) (domain.Scenario, error) {
	var sc domain.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return domain.Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	return sc, nil
}
