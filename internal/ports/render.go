package ports

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"net/url"

	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/ssservicios/s3pay/internal/reporting"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/page.html.tmpl
var pageTemplateSource string

var pageTemplate = template.Must(template.New("page").Parse(pageTemplateSource))

const (
	invalidIdentifierMessage = "Por favor ingresá un DNI válido."
	notFoundMessage          = "No encontramos un cliente con ese DNI."
	unavailableMessage       = "No pudimos consultar tu saldo. Intentá de nuevo en unos minutos."
	declinedMessageFormat    = "Tu cuenta tiene %d meses de mora."
)

type severity string

const (
	severityWarning severity = "warning"
	severityError   severity = "error"
)

type cardView struct {
	Plan string
	// Tier backgrounds are fixed gradients, not user input
	Background     template.CSS
	Name           string
	Amount         string
	StorefrontPath string
}

type resultView struct {
	Severity severity
	Message  string
	Card     *cardView
}

type pageView struct {
	Input          string
	MaxInputLength int
	Result         *resultView
}

var amountPrinter = message.NewPrinter(language.English)

// Formats an amount with thousands separators and two decimals, e.g. $150,000.00
func formatAmount(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	if amount < 0 {
		return "-" + amountPrinter.Sprintf("$%.2f", -amount)
	}
	return amountPrinter.Sprintf("$%.2f", amount)
}

func storefrontPath(identifier string) string {
	query := url.Values{}
	query.Set("dni", identifier)
	return "/tienda?" + query.Encode()
}

func newResultView(lookup domain.BalanceLookup, err error) resultView {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier):
		return resultView{Severity: severityWarning, Message: invalidIdentifierMessage}
	case errors.Is(err, domain.ErrCustomerNotFound):
		return resultView{Severity: severityError, Message: notFoundMessage}
	case err != nil:
		return resultView{Severity: severityError, Message: unavailableMessage}
	case lookup.Status == domain.BalanceDeclined:
		return resultView{
			Severity: severityError,
			Message:  fmt.Sprintf(declinedMessageFormat, lookup.Customer.MonthsPastDue),
		}
	}

	return resultView{
		Card: &cardView{
			Plan:           lookup.Tier.Plan,
			Background:     template.CSS(lookup.Tier.Background),
			Name:           lookup.Customer.FullName(),
			Amount:         formatAmount(lookup.Customer.FinancingAmount),
			StorefrontPath: storefrontPath(lookup.Identifier),
		},
	}
}

func renderPage(ctx context.Context, w http.ResponseWriter, statusCode int, view pageView) {
	view.MaxInputLength = domain.MaxIdentifierInputLength

	var body bytes.Buffer
	err := pageTemplate.Execute(&body, view)
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to render page: %w", err))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	w.Write(body.Bytes())
}
