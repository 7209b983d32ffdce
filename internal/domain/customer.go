package domain

import (
	"strings"

	"github.com/ssservicios/s3pay/internal/strutils"
)

// Shown and stored when no email address is known for a customer
const NoEmail = "—"

// Limits on the raw text typed into the lookup form
const (
	MinIdentifierInputLength = 6
	MaxIdentifierInputLength = 12
)

type Customer struct {
	// Directory internal ID, used for the detail endpoint. May be empty.
	InternalID string
	// National ID as stored in the directory. May carry formatting (dots, dashes, CUIT prefix)
	Identifier string

	FirstName       string
	LastName        string
	FinancingAmount float64
	MonthsPastDue   int
	Email           string
}

func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

func (c Customer) IsDelinquent() bool {
	return c.MonthsPastDue > 0
}

// Whether the stored identifier contains the given normalized identifier
//
// NOTE: This is a substring match, so several customers may match the same identifier.
func (c Customer) MatchesIdentifier(identifier string) bool {
	if identifier == "" {
		return false
	}
	return strings.Contains(strutils.DigitsOnly(c.Identifier), identifier)
}

func HasEmail(email string) bool {
	trimmed := strings.TrimSpace(email)
	return trimmed != "" && trimmed != NoEmail
}
