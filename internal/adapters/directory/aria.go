package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ssservicios/s3pay/internal/constants"
	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/ssservicios/s3pay/internal/logging"
	"github.com/ssservicios/s3pay/internal/ratelimiting"
	"github.com/ssservicios/s3pay/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	endpointIdent  = "clientes_ident"
	endpointSearch = "clientes_q"
	endpointEmail  = "cliente_email"

	// Upstream quota shared by all instances is unknown, stay well below any sane limit
	requestLimit  = 20
	requestWindow = 1 * time.Second

	// Don't start a request with less time than this left on the context
	minOperationTime = 300 * time.Millisecond
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type directoryMetricsCollection struct {
	requestCount metric.Int64Counter
}

var (
	metrics directoryMetricsCollection
	tracer  trace.Tracer
)

func init() {
	const name = "s3pay/adapters/directory"
	meter := otel.Meter(name)
	tracer = otel.Tracer(name)

	requestCount, err := meter.Int64Counter(
		"directory/request_count",
		metric.WithDescription("Requests sent to the customer directory"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create request count metric: %w", err))
	}

	metrics = directoryMetricsCollection{
		requestCount: requestCount,
	}
}

// Client for the Aria customer directory
type Aria struct {
	httpClient HttpClient
	baseURL    string
	apiKey     string
	limiter    *ratelimiting.WindowLimiter
}

func NewAria(httpClient HttpClient, baseURL string, apiKey string) *Aria {
	return &Aria{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    ratelimiting.NewWindowLimiter(requestLimit, requestWindow, time.Now, time.After),
	}
}

// Look up customers by their national ID
//
// The directory answers with a single object or a list.
func (a *Aria) FindByIdentifier(ctx context.Context, identifier string) ([]domain.Customer, error) {
	query := url.Values{"ident": []string{identifier}}
	data, err := a.get(ctx, endpointIdent, a.baseURL+"/clientes?"+query.Encode())
	if err != nil {
		return nil, err
	}

	return a.decodeCustomers(ctx, endpointIdent, data, shapeObject, shapeList)
}

// Free text search over customers
//
// The directory answers with a single object, a list or an envelope.
func (a *Aria) Search(ctx context.Context, query string) ([]domain.Customer, error) {
	values := url.Values{"q": []string{query}}
	data, err := a.get(ctx, endpointSearch, a.baseURL+"/clientes?"+values.Encode())
	if err != nil {
		return nil, err
	}

	return a.decodeCustomers(ctx, endpointSearch, data, shapeObject, shapeList, shapeEnvelope)
}

// Returns the first email registered for the customer, or domain.NoEmail
func (a *Aria) GetEmail(ctx context.Context, internalID string) (string, error) {
	requestURL := fmt.Sprintf("%s/cliente/%s?relaciones=email", a.baseURL, url.PathEscape(internalID))
	data, err := a.get(ctx, endpointEmail, requestURL)
	if err != nil {
		return "", err
	}

	email, err := emailFromDetailPayload(data)
	if err != nil {
		err := fmt.Errorf("failed to get email from directory response: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"internalID": internalID,
			"data":       truncate(string(data), 1024),
		})
		return "", err
	}

	if email == "" {
		return domain.NoEmail, nil
	}
	return email, nil
}

func (a *Aria) decodeCustomers(ctx context.Context, endpoint string, data []byte, accepted ...payloadShape) ([]domain.Customer, error) {
	wireCustomers, err := decodeCustomerPayload(data, accepted...)
	if err != nil {
		err := fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		reporting.Report(ctx, err, map[string]string{
			"endpoint": endpoint,
			"data":     truncate(string(data), 1024),
		})
		return nil, err
	}

	customers := make([]domain.Customer, 0, len(wireCustomers))
	for _, wireCustomer := range wireCustomers {
		customers = append(customers, wireCustomer.toDomain())
	}
	return customers, nil
}

// Send a GET request and return the body of a 200 response
func (a *Aria) get(ctx context.Context, endpoint string, requestURL string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "directory."+endpoint)
	defer span.End()

	logger := logging.FromContext(ctx)

	var statusCode int
	var data []byte
	start := time.Now()
	err := a.limiter.Do(ctx, minOperationTime, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", constants.USER_AGENT)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-api-key", a.apiKey)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	})

	statusLabel := strconv.Itoa(statusCode)
	if err != nil {
		statusLabel = "error"
	}
	metrics.requestCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status_code", statusLabel),
	))
	span.SetAttributes(attribute.String("directory.status_code", statusLabel))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ratelimiting.ErrDeadlineTooClose) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrTemporarilyUnavailable, err)
		}
		reporting.Report(ctx, fmt.Errorf("directory %s request failed: %w", endpoint, err), map[string]string{
			"endpoint": endpoint,
		})
		return nil, err
	}

	logger.InfoContext(ctx, "directory request completed",
		"endpoint", endpoint,
		"status", statusCode,
		"duration", time.Since(start).String(),
	)

	if err := checkStatus(statusCode); err != nil {
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, domain.ErrCustomerNotFound) {
			reporting.Report(ctx, fmt.Errorf("directory %s request: %w", endpoint, err), map[string]string{
				"endpoint": endpoint,
				"status":   statusLabel,
				"data":     truncate(string(data), 1024),
			})
		}
		return nil, err
	}

	return data, nil
}

func checkStatus(statusCode int) error {
	switch statusCode {
	case http.StatusOK:
		return nil
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return fmt.Errorf("%w: directory returned status code %d", domain.ErrTemporarilyUnavailable, statusCode)
	case http.StatusNotFound,
		http.StatusNoContent:
		return domain.ErrCustomerNotFound
	}
	return fmt.Errorf("directory returned unexpected status code %d", statusCode)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length] + "..."
}
