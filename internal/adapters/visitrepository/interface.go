package visitrepository

import (
	"context"
	"time"

	"github.com/ssservicios/s3pay/internal/domain"
)

// Audit trail of balance queries and storefront clicks
//
// `at` is the local time of the event; its calendar date keys the row.
type VisitRepository interface {
	RegisterQuery(ctx context.Context, at time.Time, visit domain.QueryVisit) error
	RegisterClick(ctx context.Context, at time.Time, identifier string) error
}

// Discards every event
type Noop struct{}

func (Noop) RegisterQuery(ctx context.Context, at time.Time, visit domain.QueryVisit) error {
	return nil
}

func (Noop) RegisterClick(ctx context.Context, at time.Time, identifier string) error {
	return nil
}

var _ VisitRepository = Noop{}
var _ VisitRepository = (*Memory)(nil)
var _ VisitRepository = (*Sheets)(nil)
var _ VisitRepository = (*Postgres)(nil)
