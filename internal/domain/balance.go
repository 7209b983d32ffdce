package domain

type BalanceStatus string

const (
	BalanceApproved BalanceStatus = "approved"
	// The customer has months past due. No card is shown and nothing is recorded.
	BalanceDeclined BalanceStatus = "declined"
)

type BalanceLookup struct {
	Identifier string
	Customer   Customer
	Tier       Tier
	Status     BalanceStatus
}
