package ports

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/ssservicios/s3pay/internal/logging"
	"github.com/ssservicios/s3pay/internal/reporting"
)

const (
	SessionCookieName = "s3pay_session"
	sessionTTL        = 30 * time.Minute
)

type sessionResult struct {
	input  string
	result resultView
}

// Holds the last lookup result of each browser session
type SessionStore struct {
	results *ttlcache.Cache[string, sessionResult]
}

// Returns the store and a function stopping its expiry loop
func NewSessionStore() (*SessionStore, func()) {
	results := ttlcache.New[string, sessionResult](
		ttlcache.WithTTL[string, sessionResult](sessionTTL),
	)
	go results.Start()

	return &SessionStore{results: results}, results.Stop
}

func (s *SessionStore) lastResult(sessionID string) (sessionResult, bool) {
	item := s.results.Get(sessionID)
	if item == nil {
		return sessionResult{}, false
	}
	return item.Value(), true
}

func (s *SessionStore) storeResult(sessionID string, result sessionResult) {
	s.results.Set(sessionID, result, ttlcache.DefaultTTL)
}

// Reads the session cookie, issuing a new session when it is missing or malformed
func ensureSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (context.Context, string) {
	sessionID := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if parsed, err := uuid.Parse(cookie.Value); err == nil {
			sessionID = parsed.String()
		}
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(sessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
			SameSite: http.SameSiteLaxMode,
		})
	}

	ctx = reporting.SetSessionIDInContext(ctx, sessionID)
	ctx = logging.AddMetaToContext(ctx, slog.String("sessionID", sessionID))
	return ctx, sessionID
}
