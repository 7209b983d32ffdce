package visitrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/ssservicios/s3pay/internal/domain"
)

// Returns the row for the date and identifier, if any
func (p *Postgres) GetVisit(ctx context.Context, date string, identifier string) (domain.VisitRow, bool, error) {
	var visit dbVisit
	err := p.db.QueryRowxContext(
		ctx,
		fmt.Sprintf(`SELECT
			visit_date, identifier, last_seen_at, last_seen_time, name, plan, amount, email, query_count, click_count
			FROM %s.visits
			WHERE visit_date = $1 AND identifier = $2`,
			pq.QuoteIdentifier(p.schema)),
		date,
		identifier,
	).StructScan(&visit)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VisitRow{}, false, nil
	}
	if err != nil {
		return domain.VisitRow{}, false, fmt.Errorf("failed to get visit: %w", err)
	}

	return visit.toDomain(), true, nil
}
