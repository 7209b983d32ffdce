package domain

import (
	"time"
)

const (
	VisitDateLayout = "2006-01-02"
	VisitTimeLayout = "15:04:05"
)

// Used for rows created by a storefront click without a query the same day
const (
	ClickOnlyName   = "—"
	ClickOnlyPlan   = "—"
	ClickOnlyAmount = 0.0
)

// A successful balance lookup, as recorded in the audit trail
type QueryVisit struct {
	Identifier string
	Name       string
	Plan       string
	Amount     float64
	Email      string
}

func NewQueryVisit(lookup BalanceLookup) QueryVisit {
	email := lookup.Customer.Email
	if !HasEmail(email) {
		email = NoEmail
	}
	return QueryVisit{
		Identifier: lookup.Identifier,
		Name:       lookup.Customer.FullName(),
		Plan:       lookup.Tier.Plan,
		Amount:     lookup.Customer.FinancingAmount,
		Email:      email,
	}
}

// One audit row per (date, identifier)
type VisitRow struct {
	Date       string
	Time       string
	Identifier string
	Name       string
	Plan       string
	Amount     float64
	Email      string
	QueryCount int
	ClickCount int
}

func NewQueryRow(at time.Time, visit QueryVisit) VisitRow {
	email := visit.Email
	if !HasEmail(email) {
		email = NoEmail
	}
	return VisitRow{
		Date:       at.Format(VisitDateLayout),
		Time:       at.Format(VisitTimeLayout),
		Identifier: visit.Identifier,
		Name:       visit.Name,
		Plan:       visit.Plan,
		Amount:     visit.Amount,
		Email:      email,
		QueryCount: 1,
		ClickCount: 0,
	}
}

func NewClickRow(at time.Time, identifier string) VisitRow {
	return VisitRow{
		Date:       at.Format(VisitDateLayout),
		Time:       at.Format(VisitTimeLayout),
		Identifier: identifier,
		Name:       ClickOnlyName,
		Plan:       ClickOnlyPlan,
		Amount:     ClickOnlyAmount,
		Email:      NoEmail,
		QueryCount: 0,
		ClickCount: 1,
	}
}

func (r VisitRow) Matches(date string, identifier string) bool {
	return r.Date == date && r.Identifier == identifier
}

func (r VisitRow) isClickOnly() bool {
	return r.QueryCount == 0 && r.Name == ClickOnlyName && r.Plan == ClickOnlyPlan
}

// Registers another query on an existing row
//
// A missing email is backfilled, and so are the placeholders of a row created by a click.
func (r VisitRow) WithQuery(at time.Time, visit QueryVisit) VisitRow {
	updated := r
	if updated.isClickOnly() {
		updated.Name = visit.Name
		updated.Plan = visit.Plan
		updated.Amount = visit.Amount
	}
	if !HasEmail(updated.Email) {
		if HasEmail(visit.Email) {
			updated.Email = visit.Email
		} else {
			updated.Email = NoEmail
		}
	}
	updated.Time = at.Format(VisitTimeLayout)
	updated.QueryCount++
	return updated
}

func (r VisitRow) WithClick(at time.Time) VisitRow {
	updated := r
	updated.Time = at.Format(VisitTimeLayout)
	updated.ClickCount++
	return updated
}

// Returns the index of the first row for the given date and identifier
func FindVisitRow(rows []VisitRow, date string, identifier string) (int, bool) {
	for i, row := range rows {
		if row.Matches(date, identifier) {
			return i, true
		}
	}
	return -1, false
}
