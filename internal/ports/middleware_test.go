package ports

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssservicios/s3pay/internal/logging"
	"github.com/ssservicios/s3pay/internal/ratelimiting"
	"github.com/ssservicios/s3pay/internal/reporting"
	"github.com/stretchr/testify/require"
)

type keyedRateLimiter struct {
	t *testing.T

	allow       bool
	expectedKey string
	consumed    int
}

func (k *keyedRateLimiter) Consume(key string) bool {
	k.t.Helper()
	require.Equal(k.t, k.expectedKey, key)
	k.consumed++
	return k.allow
}

func newConsultChain(t *testing.T, limiter *keyedRateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	return ComposeMiddlewares(
		buildMetricsMiddleware("consultar"),
		logging.NewRequestLoggerMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))),
		reporting.NewAddMetaMiddleware("consultar"),
		NewRateLimitMiddleware(
			ratelimiting.NewRequestBasedRateLimiter(limiter, ratelimiting.IPKeyFunc),
			onLimitExceeded,
		),
	)
}

func newConsultRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/consultar", nil)
	req.RemoteAddr = "169.254.169.126:58418"
	req.Header.Set("X-Forwarded-For", "10.9.9.9, 200.45.12.7")
	return req
}

func TestConsultMiddlewareChain(t *testing.T) {
	t.Parallel()

	t.Run("allowed requests reach the handler", func(t *testing.T) {
		t.Parallel()

		limiter := &keyedRateLimiter{t: t, allow: true, expectedKey: "ip: 200.45.12.7"}
		handlerCalled := false
		handler := newConsultChain(t, limiter)(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true

			// Context is populated by the outer middlewares
			require.NotNil(t, logging.FromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		handler(w, newConsultRequest())

		require.True(t, handlerCalled)
		require.Equal(t, 1, limiter.consumed)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("limited requests get the spanish 429", func(t *testing.T) {
		t.Parallel()

		limiter := &keyedRateLimiter{t: t, allow: false, expectedKey: "ip: 200.45.12.7"}
		handlerCalled := false
		handler := newConsultChain(t, limiter)(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		w := httptest.NewRecorder()
		handler(w, newConsultRequest())

		require.False(t, handlerCalled)
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		require.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		require.Equal(t, "Demasiadas consultas. Intentá de nuevo en unos minutos.", w.Body.String())
	})
}

func TestComposeMiddlewares(t *testing.T) {
	t.Parallel()

	tagging := func(tag string, trail *[]string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				*trail = append(*trail, "enter "+tag)
				next(w, r)
				*trail = append(*trail, "leave "+tag)
			}
		}
	}

	t.Run("first middleware is outermost", func(t *testing.T) {
		t.Parallel()

		trail := []string{}
		handler := ComposeMiddlewares(
			tagging("metrics", &trail),
			tagging("logger", &trail),
			tagging("limiter", &trail),
		)(func(w http.ResponseWriter, r *http.Request) {
			trail = append(trail, "handler")
		})

		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, []string{
			"enter metrics",
			"enter logger",
			"enter limiter",
			"handler",
			"leave limiter",
			"leave logger",
			"leave metrics",
		}, trail)
	})

	t.Run("no middlewares", func(t *testing.T) {
		t.Parallel()

		called := false
		handler := ComposeMiddlewares()(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.True(t, called)
	})
}
