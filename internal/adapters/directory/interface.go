package directory

import (
	"context"

	"github.com/ssservicios/s3pay/internal/domain"
)

type Directory interface {
	FindByIdentifier(ctx context.Context, identifier string) ([]domain.Customer, error)
	Search(ctx context.Context, query string) ([]domain.Customer, error)
	GetEmail(ctx context.Context, internalID string) (string, error)
}

var _ Directory = (*Aria)(nil)
var _ Directory = (*mockedDirectory)(nil)
