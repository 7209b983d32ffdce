package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/ssservicios/s3pay/internal/strutils"
)

// Looks up the available balance for the given DNI/CUIT input
//
// Returns domain.ErrInvalidIdentifier for input that can't be a DNI, and
// domain.ErrCustomerNotFound when no customer matches.
type LookupBalance func(ctx context.Context, input string) (domain.BalanceLookup, error)

func BuildLookupBalance(resolveCustomer ResolveCustomer, recordQuery RecordQuery) LookupBalance {
	return func(ctx context.Context, input string) (domain.BalanceLookup, error) {
		trimmed := strings.TrimSpace(input)
		length := utf8.RuneCountInString(trimmed)
		if length < domain.MinIdentifierInputLength || length > domain.MaxIdentifierInputLength {
			return domain.BalanceLookup{}, domain.ErrInvalidIdentifier
		}

		identifier := strutils.DigitsOnly(trimmed)
		if identifier == "" {
			return domain.BalanceLookup{}, domain.ErrInvalidIdentifier
		}

		customer, err := resolveCustomer(ctx, identifier)
		if err != nil {
			return domain.BalanceLookup{Identifier: identifier}, err
		}

		lookup := domain.BalanceLookup{
			Identifier: identifier,
			Customer:   customer,
			Tier:       domain.ClassifyTier(customer.FinancingAmount),
			Status:     domain.BalanceApproved,
		}

		if customer.IsDelinquent() {
			lookup.Status = domain.BalanceDeclined
			return lookup, nil
		}

		recordQuery(ctx, domain.NewQueryVisit(lookup))

		return lookup, nil
	}
}
