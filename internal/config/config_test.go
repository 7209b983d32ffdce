package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/ssservicios/s3pay/internal/config"
	"github.com/stretchr/testify/require"
)

var allVariablesExceptEnv = []string{
	"PORT",
	"DIRECTORY_API_KEY",
	"DIRECTORY_BASE_URL",
	"DIRECTORY_TIMEOUT_SECONDS",
	"SENTRY_DSN",
	"AUDIT_BACKEND",
	"AUDIT_DETAIL",
	"GOOGLE_SERVICE_ACCOUNT_JSON",
	"AUDIT_SPREADSHEET_NAME",
	"AUDIT_SPREADSHEET_ID",
	"CLOUDSQL_UNIX_SOCKET",
	"DB_USERNAME",
	"DB_PASSWORD",
	"STOREFRONT_URL",
	"S3PAY_TIMEZONE",
	"GOOGLE_CLOUD_PROJECT",
	"OTEL_ENABLED",
}

// Clears the variables so values from the outer environment don't leak into a test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, variable := range allVariablesExceptEnv {
		t.Setenv(variable, "")
	}
}

func setFullEnv(t *testing.T, env string) {
	t.Helper()
	t.Setenv("S3PAY_ENVIRONMENT", env)
	t.Setenv("PORT", "9090")
	t.Setenv("DIRECTORY_API_KEY", "directory-key")
	t.Setenv("DIRECTORY_BASE_URL", "https://directory.example.com/api")
	t.Setenv("DIRECTORY_TIMEOUT_SECONDS", "3")
	t.Setenv("SENTRY_DSN", "https://key@sentry.example.com/1")
	t.Setenv("AUDIT_BACKEND", "sheets")
	t.Setenv("AUDIT_DETAIL", "append")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
	t.Setenv("AUDIT_SPREADSHEET_NAME", "Audit")
	t.Setenv("AUDIT_SPREADSHEET_ID", "spreadsheet-id")
	t.Setenv("CLOUDSQL_UNIX_SOCKET", "/cloudsql/project:region:instance")
	t.Setenv("DB_USERNAME", "db-user")
	t.Setenv("DB_PASSWORD", "db-password")
	t.Setenv("STOREFRONT_URL", "https://store.example.com")
	t.Setenv("S3PAY_TIMEZONE", "UTC")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")
	t.Setenv("OTEL_ENABLED", "true")
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("environment is missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("S3PAY_ENVIRONMENT", "")
		require.NoError(t, os.Unsetenv("S3PAY_ENVIRONMENT"))

		// S3PAY_ENVIRONMENT is required, so this should fail
		_, err := config.ConfigFromEnv()
		require.ErrorIs(t, err, config.ErrMissingRequiredValue)
	})

	t.Run("development defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("S3PAY_ENVIRONMENT", "development")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)

		require.True(t, conf.IsDevelopment())
		require.False(t, conf.IsProduction())
		require.False(t, conf.IsStaging())
		require.Equal(t, "development", conf.Environment())
		require.Equal(t, "8080", conf.Port())
		require.Equal(t, "", conf.DirectoryAPIKey())
		require.Equal(t, "https://api.anatod.ar/api", conf.DirectoryBaseURL())
		require.Equal(t, 5*time.Second, conf.DirectoryTimeout())
		require.Equal(t, "", conf.SentryDSN())
		require.Equal(t, config.AuditBackendMemory, conf.AuditBackend())
		require.Equal(t, config.AuditDetailDaily, conf.AuditDetail())
		require.Equal(t, "DB_S3Pay", conf.AuditSpreadsheetName())
		require.Equal(t, "", conf.AuditSpreadsheetID())
		require.Equal(t, "https://ssstore.com.ar", conf.StorefrontURL())
		require.Equal(t, "America/Argentina/Buenos_Aires", conf.Location().String())
		require.Equal(t, "", conf.GCPProject())
		require.False(t, conf.OTelEnabled())
	})

	t.Run("values are read correctly", func(t *testing.T) {
		for _, env := range []string{"production", "staging", "development"} {
			t.Run(env, func(t *testing.T) {
				setFullEnv(t, env)

				conf, err := config.ConfigFromEnv()
				require.NoError(t, err)

				require.Equal(t, env == "production", conf.IsProduction())
				require.Equal(t, env == "staging", conf.IsStaging())
				require.Equal(t, env == "development", conf.IsDevelopment())
				require.Equal(t, "9090", conf.Port())
				require.Equal(t, "directory-key", conf.DirectoryAPIKey())
				require.Equal(t, "https://directory.example.com/api", conf.DirectoryBaseURL())
				require.Equal(t, 3*time.Second, conf.DirectoryTimeout())
				require.Equal(t, "https://key@sentry.example.com/1", conf.SentryDSN())
				require.Equal(t, config.AuditBackendSheets, conf.AuditBackend())
				require.Equal(t, config.AuditDetailAppend, conf.AuditDetail())
				require.Equal(t, `{"type":"service_account"}`, conf.GoogleServiceAccountJSON())
				require.Equal(t, "Audit", conf.AuditSpreadsheetName())
				require.Equal(t, "spreadsheet-id", conf.AuditSpreadsheetID())
				require.Equal(t, "/cloudsql/project:region:instance", conf.CloudSQLUnixSocketPath())
				require.Equal(t, "db-user", conf.DBUsername())
				require.Equal(t, "db-password", conf.DBPassword())
				require.Equal(t, "https://store.example.com", conf.StorefrontURL())
				require.Equal(t, time.UTC, conf.Location())
				require.Equal(t, "my-project", conf.GCPProject())
				require.True(t, conf.OTelEnabled())
			})
		}
	})

	t.Run("non-sensitive string omits secrets", func(t *testing.T) {
		setFullEnv(t, "production")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)

		str := conf.NonSensitiveString()
		require.Contains(t, str, "production")
		require.NotContains(t, str, "directory-key")
		require.NotContains(t, str, "db-password")
		require.NotContains(t, str, "service_account")
		require.NotContains(t, str, "sentry.example.com")
	})

	t.Run("production and staging fail when missing variables", func(t *testing.T) {
		for _, env := range []string{"production", "staging"} {
			t.Run(env, func(t *testing.T) {
				for _, variable := range []string{"DIRECTORY_API_KEY", "SENTRY_DSN", "GOOGLE_SERVICE_ACCOUNT_JSON"} {
					t.Run(variable, func(t *testing.T) {
						setFullEnv(t, env)
						t.Setenv(variable, "")

						_, err := config.ConfigFromEnv()
						require.ErrorIs(t, err, config.ErrMissingRequiredValue)
					})
				}
			})
		}
	})

	t.Run("postgres backend", func(t *testing.T) {
		for _, variable := range []string{"CLOUDSQL_UNIX_SOCKET", "DB_USERNAME", "DB_PASSWORD"} {
			t.Run("production missing "+variable, func(t *testing.T) {
				setFullEnv(t, "production")
				t.Setenv("AUDIT_BACKEND", "postgres")
				t.Setenv("AUDIT_DETAIL", "daily")
				t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
				t.Setenv(variable, "")

				_, err := config.ConfigFromEnv()
				require.ErrorIs(t, err, config.ErrMissingRequiredValue)
			})
		}

		t.Run("development without database variables", func(t *testing.T) {
			clearEnv(t)
			t.Setenv("S3PAY_ENVIRONMENT", "development")
			t.Setenv("AUDIT_BACKEND", "postgres")

			conf, err := config.ConfigFromEnv()
			require.NoError(t, err)
			require.Equal(t, config.AuditBackendPostgres, conf.AuditBackend())
		})
	})

	t.Run("development sheets backend requires credentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("S3PAY_ENVIRONMENT", "development")
		t.Setenv("AUDIT_BACKEND", "sheets")

		_, err := config.ConfigFromEnv()
		require.ErrorIs(t, err, config.ErrMissingRequiredValue)
	})

	t.Run("audit disabled in production", func(t *testing.T) {
		setFullEnv(t, "production")
		t.Setenv("AUDIT_BACKEND", "none")
		t.Setenv("AUDIT_DETAIL", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)
		require.Equal(t, config.AuditBackendNone, conf.AuditBackend())
		require.Equal(t, config.AuditDetailDaily, conf.AuditDetail())
	})

	t.Run("invalid values", func(t *testing.T) {
		cases := []struct {
			variable string
			value    string
		}{
			{variable: "S3PAY_ENVIRONMENT", value: "invalid"},
			{variable: "S3PAY_ENVIRONMENT", value: "my-env"},
			{variable: "PORT", value: "http"},
			{variable: "PORT", value: "0"},
			{variable: "PORT", value: "70000"},
			{variable: "DIRECTORY_BASE_URL", value: "not a url"},
			{variable: "DIRECTORY_TIMEOUT_SECONDS", value: "0"},
			{variable: "DIRECTORY_TIMEOUT_SECONDS", value: "five"},
			{variable: "AUDIT_BACKEND", value: "excel"},
			{variable: "AUDIT_DETAIL", value: "hourly"},
			{variable: "STOREFRONT_URL", value: "ssstore"},
			{variable: "S3PAY_TIMEZONE", value: "Mars/Olympus_Mons"},
			{variable: "OTEL_ENABLED", value: "maybe"},
		}

		for _, c := range cases {
			t.Run(c.variable+"="+c.value, func(t *testing.T) {
				setFullEnv(t, "production")
				t.Setenv(c.variable, c.value)

				_, err := config.ConfigFromEnv()
				require.ErrorIs(t, err, config.ErrInvalidValue)
			})
		}

		t.Run("empty environment", func(t *testing.T) {
			setFullEnv(t, "")

			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrInvalidValue)
		})

		t.Run("append detail requires sheets", func(t *testing.T) {
			setFullEnv(t, "production")
			t.Setenv("AUDIT_BACKEND", "postgres")
			t.Setenv("AUDIT_DETAIL", "append")

			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrInvalidValue)
		})
	})
}
