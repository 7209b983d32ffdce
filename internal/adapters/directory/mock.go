package directory

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ssservicios/s3pay/internal/config"
	"github.com/ssservicios/s3pay/internal/domain"
)

// In-process directory with a few canned customers, used in development
type mockedDirectory struct {
	customers []domain.Customer
}

func newMockedDirectory() *mockedDirectory {
	return &mockedDirectory{
		customers: []domain.Customer{
			{InternalID: "1001", Identifier: "30.123.456", FirstName: "Juan", LastName: "Pérez", FinancingAmount: 150000, Email: "juan.perez@example.com"},
			{InternalID: "1002", Identifier: "27111222", FirstName: "María", LastName: "Gómez", FinancingAmount: 350000, Email: domain.NoEmail},
			{InternalID: "1003", Identifier: "20-20999888-3", FirstName: "Carlos", LastName: "López", FinancingAmount: 750000, Email: "carlos.lopez@example.com"},
			{InternalID: "1004", Identifier: "33444555", FirstName: "Ana", LastName: "Torres", FinancingAmount: 420000, MonthsPastDue: 3, Email: domain.NoEmail},
		},
	}
}

func (m *mockedDirectory) matching(identifier string) []domain.Customer {
	result := []domain.Customer{}
	for _, customer := range m.customers {
		if customer.MatchesIdentifier(identifier) {
			customer.Email = domain.NoEmail
			result = append(result, customer)
		}
	}
	return result
}

func (m *mockedDirectory) FindByIdentifier(ctx context.Context, identifier string) ([]domain.Customer, error) {
	return m.matching(identifier), nil
}

func (m *mockedDirectory) Search(ctx context.Context, query string) ([]domain.Customer, error) {
	return m.matching(query), nil
}

func (m *mockedDirectory) GetEmail(ctx context.Context, internalID string) (string, error) {
	for _, customer := range m.customers {
		if customer.InternalID == internalID {
			return customer.Email, nil
		}
	}
	return "", domain.ErrCustomerNotFound
}

func NewAriaOrMock(conf config.Config, httpClient HttpClient) (Directory, error) {
	if conf.DirectoryAPIKey() != "" {
		return NewAria(httpClient, conf.DirectoryBaseURL(), conf.DirectoryAPIKey()), nil
	}
	if conf.IsDevelopment() {
		return newMockedDirectory(), nil
	}
	return nil, fmt.Errorf("%w: DIRECTORY_API_KEY in non-development environment", config.ErrMissingRequiredValue)
}

var _ HttpClient = (*http.Client)(nil)
