package ports

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ssservicios/s3pay/internal/app"
	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/ssservicios/s3pay/internal/logging"
	"github.com/ssservicios/s3pay/internal/ratelimiting"
	"github.com/ssservicios/s3pay/internal/reporting"
	"github.com/ssservicios/s3pay/internal/strutils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	maxFormBytes = 4 << 10
	// Longest input echoed back into the form
	maxEchoedInputLength = 64
)

func onLimitExceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte("Demasiadas consultas. Intentá de nuevo en unos minutos."))
}

func echoedInput(input string) string {
	input = strings.TrimSpace(input)
	runes := []rune(input)
	if len(runes) > maxEchoedInputLength {
		return string(runes[:maxEchoedInputLength])
	}
	return input
}

func lookupOutcome(lookup domain.BalanceLookup, err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier):
		return "invalid", http.StatusBadRequest
	case errors.Is(err, domain.ErrCustomerNotFound):
		return "not_found", http.StatusNotFound
	case err != nil:
		return "error", http.StatusServiceUnavailable
	case lookup.Status == domain.BalanceDeclined:
		return "declined", http.StatusOK
	default:
		return "approved", http.StatusOK
	}
}

// Renders the lookup form, with the last result of the session if there is one
func MakeHomeHandler(
	sessions *SessionStore,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("home"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("home"),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx, sessionID := ensureSession(r.Context(), w, r)

		view := pageView{}
		if last, ok := sessions.lastResult(sessionID); ok {
			view.Input = last.input
			result := last.result
			view.Result = &result
		}

		renderPage(ctx, w, http.StatusOK, view)
	}

	return middleware(handler)
}

func MakeConsultHandler(
	lookupBalance app.LookupBalance,
	sessions *SessionStore,
	ipRateLimiter ratelimiting.RequestRateLimiter,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("consultar"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("consultar"),
		NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx, sessionID := ensureSession(r.Context(), w, r)
		logger := logging.FromContext(ctx)

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		err := r.ParseForm()
		if err != nil {
			logger.InfoContext(ctx, "failed to parse form", "error", err.Error())
			result := newResultView(domain.BalanceLookup{}, domain.ErrInvalidIdentifier)
			renderPage(ctx, w, http.StatusBadRequest, pageView{Result: &result})
			return
		}

		input := r.PostForm.Get("dni")

		lookup, err := lookupBalance(ctx, input)
		outcome, statusCode := lookupOutcome(lookup, err)

		metrics.lookupOutcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("plan", lookup.Tier.Plan),
		))
		logger.InfoContext(ctx, "balance lookup", "outcome", outcome, "identifier", lookup.Identifier, "plan", lookup.Tier.Plan)

		if outcome == "error" {
			// NOTE: Unexpected errors from the lookup have not been reported yet
			reporting.Report(ctx, err)
		}

		result := newResultView(lookup, err)
		echoed := echoedInput(input)
		sessions.storeResult(sessionID, sessionResult{input: echoed, result: result})

		renderPage(ctx, w, statusCode, pageView{Input: echoed, Result: &result})
	}

	return middleware(handler)
}

// Records a click on the storefront link and redirects to the storefront
func MakeStorefrontHandler(
	recordClick app.RecordClick,
	storefrontURL string,
	ipRateLimiter ratelimiting.RequestRateLimiter,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("tienda"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("tienda"),
		NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := ensureSession(r.Context(), w, r)

		// Links rendered on the card always carry the normalized identifier
		identifier := r.URL.Query().Get("dni")
		if identifier != "" && len(identifier) <= maxEchoedInputLength && strutils.IsDigitsOnly(identifier) {
			recordClick(ctx, identifier)
		} else {
			logging.FromContext(ctx).InfoContext(ctx, "ignoring click with malformed identifier", "length", len(identifier))
		}

		http.Redirect(w, r, storefrontURL, http.StatusSeeOther)
	}

	return middleware(handler)
}
