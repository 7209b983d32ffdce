package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type AuditBackend string

const (
	AuditBackendSheets   AuditBackend = "sheets"
	AuditBackendPostgres AuditBackend = "postgres"
	AuditBackendMemory   AuditBackend = "memory"
	AuditBackendNone     AuditBackend = "none"
)

type AuditDetail string

const (
	// One row per day and identifier, with query and click counters
	AuditDetailDaily AuditDetail = "daily"
	// One row per query, clicks are not recorded
	AuditDetailAppend AuditDetail = "append"
)

const (
	defaultPort                 = "8080"
	defaultDirectoryBaseURL     = "https://api.anatod.ar/api"
	defaultDirectoryTimeout     = 5 * time.Second
	defaultAuditSpreadsheetName = "DB_S3Pay"
	defaultStorefrontURL        = "https://ssstore.com.ar"
	defaultTimezone             = "America/Argentina/Buenos_Aires"
)

type Config struct {
	env  environment
	port string

	directoryAPIKey  string
	directoryBaseURL string
	directoryTimeout time.Duration

	sentryDSN string

	auditBackend             AuditBackend
	auditDetail              AuditDetail
	googleServiceAccountJSON string
	auditSpreadsheetName     string
	auditSpreadsheetID       string
	cloudSQLUnixSocketPath   string
	dBUsername               string
	dBPassword               string

	storefrontURL string
	location      *time.Location

	gcpProject  string
	otelEnabled bool
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) DirectoryAPIKey() string {
	return c.directoryAPIKey
}

func (c *Config) DirectoryBaseURL() string {
	return c.directoryBaseURL
}

func (c *Config) DirectoryTimeout() time.Duration {
	return c.directoryTimeout
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) AuditBackend() AuditBackend {
	return c.auditBackend
}

func (c *Config) AuditDetail() AuditDetail {
	return c.auditDetail
}

func (c *Config) GoogleServiceAccountJSON() string {
	return c.googleServiceAccountJSON
}

func (c *Config) AuditSpreadsheetName() string {
	return c.auditSpreadsheetName
}

func (c *Config) AuditSpreadsheetID() string {
	return c.auditSpreadsheetID
}

func (c *Config) CloudSQLUnixSocketPath() string {
	return c.cloudSQLUnixSocketPath
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) StorefrontURL() string {
	return c.storefrontURL
}

// The time zone defining the calendar day of the audit trail
func (c *Config) Location() *time.Location {
	return c.location
}

func (c *Config) GCPProject() string {
	return c.gcpProject
}

func (c *Config) OTelEnabled() bool {
	return c.otelEnabled
}

func (c *Config) Environment() string {
	return string(c.env)
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %s, directoryBaseURL: %s, directoryTimeout: %s, auditBackend: %s, auditDetail: %s, auditSpreadsheetName: %s, storefrontURL: %s, location: %s, otelEnabled: %t, ...}",
		c.env,
		c.port,
		c.directoryBaseURL,
		c.directoryTimeout,
		c.auditBackend,
		c.auditDetail,
		c.auditSpreadsheetName,
		c.storefrontURL,
		c.location,
		c.otelEnabled,
	)
}

func getenvOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}
	invalidValue := func(key string, value string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, value)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("S3PAY_ENVIRONMENT")
	if !ok {
		return missingKey("S3PAY_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return invalidValue("S3PAY_ENVIRONMENT", rawEnv)
	}
	deployed := env == production || env == staging

	port := getenvOr("PORT", defaultPort)
	if portNumber, err := strconv.Atoi(port); err != nil || portNumber <= 0 || portNumber > 65535 {
		return invalidValue("PORT", port)
	}

	directoryAPIKey := os.Getenv("DIRECTORY_API_KEY")
	directoryBaseURL := getenvOr("DIRECTORY_BASE_URL", defaultDirectoryBaseURL)
	if parsed, err := url.Parse(directoryBaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return invalidValue("DIRECTORY_BASE_URL", directoryBaseURL)
	}

	directoryTimeout := defaultDirectoryTimeout
	if rawTimeout := os.Getenv("DIRECTORY_TIMEOUT_SECONDS"); rawTimeout != "" {
		seconds, err := strconv.Atoi(rawTimeout)
		if err != nil || seconds <= 0 {
			return invalidValue("DIRECTORY_TIMEOUT_SECONDS", rawTimeout)
		}
		directoryTimeout = time.Duration(seconds) * time.Second
	}

	sentryDSN := os.Getenv("SENTRY_DSN")

	defaultBackend := AuditBackendSheets
	if env == development {
		defaultBackend = AuditBackendMemory
	}
	auditBackend := AuditBackend(getenvOr("AUDIT_BACKEND", string(defaultBackend)))
	switch auditBackend {
	case AuditBackendSheets, AuditBackendPostgres, AuditBackendMemory, AuditBackendNone:
	default:
		return invalidValue("AUDIT_BACKEND", string(auditBackend))
	}

	auditDetail := AuditDetail(getenvOr("AUDIT_DETAIL", string(AuditDetailDaily)))
	switch auditDetail {
	case AuditDetailDaily:
	case AuditDetailAppend:
		if auditBackend != AuditBackendSheets {
			return invalidValue("AUDIT_DETAIL", fmt.Sprintf("%s requires AUDIT_BACKEND=sheets", auditDetail))
		}
	default:
		return invalidValue("AUDIT_DETAIL", string(auditDetail))
	}

	googleServiceAccountJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	auditSpreadsheetName := getenvOr("AUDIT_SPREADSHEET_NAME", defaultAuditSpreadsheetName)
	auditSpreadsheetID := os.Getenv("AUDIT_SPREADSHEET_ID")

	cloudSQLUnixSocketPath := os.Getenv("CLOUDSQL_UNIX_SOCKET")
	dbUsername := os.Getenv("DB_USERNAME")
	dbPassword := os.Getenv("DB_PASSWORD")

	storefrontURL := getenvOr("STOREFRONT_URL", defaultStorefrontURL)
	if parsed, err := url.Parse(storefrontURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return invalidValue("STOREFRONT_URL", storefrontURL)
	}

	rawTimezone := getenvOr("S3PAY_TIMEZONE", defaultTimezone)
	location, err := time.LoadLocation(rawTimezone)
	if err != nil {
		return invalidValue("S3PAY_TIMEZONE", rawTimezone)
	}

	gcpProject := os.Getenv("GOOGLE_CLOUD_PROJECT")

	otelEnabled := false
	if rawOTelEnabled := os.Getenv("OTEL_ENABLED"); rawOTelEnabled != "" {
		otelEnabled, err = strconv.ParseBool(rawOTelEnabled)
		if err != nil {
			return invalidValue("OTEL_ENABLED", rawOTelEnabled)
		}
	}

	if deployed {
		if directoryAPIKey == "" {
			return missingKey("DIRECTORY_API_KEY")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	switch auditBackend {
	case AuditBackendSheets:
		if googleServiceAccountJSON == "" {
			return missingKey("GOOGLE_SERVICE_ACCOUNT_JSON")
		}
	case AuditBackendPostgres:
		if deployed {
			if cloudSQLUnixSocketPath == "" {
				return missingKey("CLOUDSQL_UNIX_SOCKET")
			}
			if dbUsername == "" {
				return missingKey("DB_USERNAME")
			}
			if dbPassword == "" {
				return missingKey("DB_PASSWORD")
			}
		}
	}

	return Config{
		env:  env,
		port: port,

		directoryAPIKey:  directoryAPIKey,
		directoryBaseURL: directoryBaseURL,
		directoryTimeout: directoryTimeout,

		sentryDSN: sentryDSN,

		auditBackend:             auditBackend,
		auditDetail:              auditDetail,
		googleServiceAccountJSON: googleServiceAccountJSON,
		auditSpreadsheetName:     auditSpreadsheetName,
		auditSpreadsheetID:       auditSpreadsheetID,
		cloudSQLUnixSocketPath:   cloudSQLUnixSocketPath,
		dBUsername:               dbUsername,
		dBPassword:               dbPassword,

		storefrontURL: storefrontURL,
		location:      location,

		gcpProject:  gcpProject,
		otelEnabled: otelEnabled,
	}, nil
}
