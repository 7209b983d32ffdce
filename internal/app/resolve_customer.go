package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/ssservicios/s3pay/internal/logging"
	"github.com/ssservicios/s3pay/internal/reporting"
	"github.com/ssservicios/s3pay/internal/strutils"
)

type customerDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) ([]domain.Customer, error)
	Search(ctx context.Context, query string) ([]domain.Customer, error)
	GetEmail(ctx context.Context, internalID string) (string, error)
}

// Resolves a customer by their DNI/CUIT
//
// The only error returned is domain.ErrCustomerNotFound. Directory failures are
// treated as "no result" for the strategy that hit them.
type ResolveCustomer func(ctx context.Context, identifier string) (domain.Customer, error)

type lookupStrategy struct {
	name  string
	fetch func(ctx context.Context, identifier string) ([]domain.Customer, error)
}

func firstMatch(ctx context.Context, strategy lookupStrategy, identifier string, callTimeout time.Duration) (domain.Customer, bool) {
	logger := logging.FromContext(ctx)

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	candidates, err := strategy.fetch(callCtx, identifier)
	if err != nil {
		// NOTE: Directory implementations handle their own error reporting
		logger.InfoContext(ctx, "directory lookup failed", "strategy", strategy.name, "error", err.Error())
		return domain.Customer{}, false
	}

	var (
		match   domain.Customer
		found   bool
		matches int
	)
	for _, candidate := range candidates {
		if !candidate.MatchesIdentifier(identifier) {
			continue
		}
		matches++
		if !found {
			match = candidate
			found = true
		}
	}

	if matches > 1 {
		logger.WarnContext(
			ctx,
			"multiple customers match identifier, using the first",
			"strategy", strategy.name,
			"matches", matches,
			"candidates", len(candidates),
		)
	}

	return match, found
}

func BuildResolveCustomer(directory customerDirectory, callTimeout time.Duration) ResolveCustomer {
	strategies := []lookupStrategy{
		{name: "ident", fetch: directory.FindByIdentifier},
		{name: "search", fetch: directory.Search},
	}

	return func(ctx context.Context, rawIdentifier string) (domain.Customer, error) {
		identifier := strutils.DigitsOnly(rawIdentifier)
		if identifier == "" {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}

		ctx = logging.AddMetaToContext(ctx, slog.String("identifier", identifier))
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{"identifier": identifier})

		var (
			customer domain.Customer
			found    bool
		)
		for _, strategy := range strategies {
			customer, found = firstMatch(ctx, strategy, identifier, callTimeout)
			if found {
				break
			}
		}
		if !found {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}

		customer.Email = domain.NoEmail
		if customer.InternalID == "" {
			return customer, nil
		}

		emailCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		email, err := directory.GetEmail(emailCtx, customer.InternalID)
		if err != nil {
			// Best effort, the card is shown without an email
			logging.FromContext(ctx).InfoContext(ctx, "failed to get customer email", "error", err.Error())
			return customer, nil
		}
		if domain.HasEmail(email) {
			customer.Email = strings.TrimSpace(email)
		}

		return customer, nil
	}
}
