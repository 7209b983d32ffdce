package visitrepository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ssservicios/s3pay/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Audit trail in Postgres. Upserts are atomic.
type Postgres struct {
	db     *sqlx.DB
	schema string
	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string) *Postgres {
	return &Postgres{
		db:     db,
		schema: schema,
		tracer: otel.Tracer("s3pay/visitrepository/postgres"),
	}
}

type dbVisit struct {
	VisitDate    time.Time `db:"visit_date"`
	Identifier   string    `db:"identifier"`
	LastSeenAt   time.Time `db:"last_seen_at"`
	LastSeenTime string    `db:"last_seen_time"`
	Name         string    `db:"name"`
	Plan         string    `db:"plan"`
	Amount       float64   `db:"amount"`
	Email        string    `db:"email"`
	QueryCount   int       `db:"query_count"`
	ClickCount   int       `db:"click_count"`
}

func (v dbVisit) toDomain() domain.VisitRow {
	return domain.VisitRow{
		Date:       v.VisitDate.Format(domain.VisitDateLayout),
		Time:       v.LastSeenTime,
		Identifier: v.Identifier,
		Name:       v.Name,
		Plan:       v.Plan,
		Amount:     v.Amount,
		Email:      v.Email,
		QueryCount: v.QueryCount,
		ClickCount: v.ClickCount,
	}
}

func (p *Postgres) insert(ctx context.Context, at time.Time, row domain.VisitRow, onConflict string, args ...any) error {
	query := fmt.Sprintf(`INSERT INTO %s.visits
		(visit_date, identifier, last_seen_at, last_seen_time, name, plan, amount, email, query_count, click_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (visit_date, identifier)
		DO UPDATE SET %s`,
		pq.QuoteIdentifier(p.schema),
		onConflict,
	)

	allArgs := append([]any{
		row.Date,
		row.Identifier,
		at,
		row.Time,
		row.Name,
		row.Plan,
		row.Amount,
		row.Email,
		row.QueryCount,
		row.ClickCount,
	}, args...)

	_, err := p.db.ExecContext(ctx, query, allArgs...)
	return err
}

func (p *Postgres) RegisterQuery(ctx context.Context, at time.Time, visit domain.QueryVisit) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.RegisterQuery")
	defer span.End()

	if visit.Identifier == "" {
		return fmt.Errorf("identifier is empty")
	}

	// Placeholders of a click-only row are replaced, a missing email is backfilled
	err := p.insert(ctx, at, domain.NewQueryRow(at, visit), `
			last_seen_at = EXCLUDED.last_seen_at,
			last_seen_time = EXCLUDED.last_seen_time,
			query_count = visits.query_count + 1,
			name = CASE WHEN visits.query_count = 0 AND visits.name = $11 AND visits.plan = $12 THEN EXCLUDED.name ELSE visits.name END,
			plan = CASE WHEN visits.query_count = 0 AND visits.name = $11 AND visits.plan = $12 THEN EXCLUDED.plan ELSE visits.plan END,
			amount = CASE WHEN visits.query_count = 0 AND visits.name = $11 AND visits.plan = $12 THEN EXCLUDED.amount ELSE visits.amount END,
			email = CASE WHEN (btrim(visits.email) IN ('', $13)) AND EXCLUDED.email <> $13 THEN EXCLUDED.email ELSE visits.email END`,
		domain.ClickOnlyName,
		domain.ClickOnlyPlan,
		domain.NoEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert query visit: %w", err)
	}
	return nil
}

func (p *Postgres) RegisterClick(ctx context.Context, at time.Time, identifier string) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.RegisterClick")
	defer span.End()

	if identifier == "" {
		return fmt.Errorf("identifier is empty")
	}

	err := p.insert(ctx, at, domain.NewClickRow(at, identifier), `
			last_seen_at = EXCLUDED.last_seen_at,
			last_seen_time = EXCLUDED.last_seen_time,
			click_count = visits.click_count + 1`,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert click visit: %w", err)
	}
	return nil
}
