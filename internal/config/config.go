// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes provider credentials,
// the caller allow-list, audit sheet naming, timeouts, and rate limiting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opsdesk/workspace-bot/internal/sysutil"
)

// GoogleConfig holds the Workspace provider settings. The admin account is
// the user the service account impersonates for Admin SDK, Sheets, and Drive
// calls; the workspace domain is derived from it.
type GoogleConfig struct {
	CredentialsFile string // GWORKSPACE_CREDS_FILE: service-account JSON key
	AdminAccount    string // GWORKSPACE_ADMIN_ACCOUNT: impersonated admin
	Domain          string // derived: everything after "@" in AdminAccount
}

// GmailConfig holds the notification sender settings. Gmail sends use a
// three-legged OAuth token persisted in TokenFile.
type GmailConfig struct {
	CredentialsFile string // GMAIL_CREDENTIALS_FILE: OAuth client JSON
	TokenFile       string // GMAIL_TOKEN_FILE: cached token JSON
	SenderAddress   string // GMAIL_SENDER_ADDRESS
	ReplyTo         string // REPLY_TO, defaults to the admin account
	SignatureLine   string // EMAIL_SIGNATURE_LASTLINE: closing line of the mail
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Transport
	BotToken  string  // BOT_TOKEN
	RateRPS   float64 // tokens per second per caller (0 disables)
	RateBurst int     // bucket size (>= 1)

	// Access control
	AllowedUsers      []string // BOT_ALLOWED_USERS, comma-separated usernames
	ProtectedAccounts []string // BOT_PROTECTED_ACCOUNTS, comma-separated emails

	// Providers
	Google          GoogleConfig
	Gmail           GmailConfig
	SpreadsheetName string        // SPREADSHEET_FILENAME: audit sheet title
	ProviderTimeout time.Duration // per-call deadline for every provider call

	// Tunables
	PasswordLength    int    // PASSWORD_LENGTH
	DirectoryPageSize int64  // DIRECTORY_PAGE_SIZE, capped at 500 by the adapter
	ListPageRows      int    // LIST_PAGE_ROWS: /listusers rows per reply
	SpoolPath         string // SPOOL_PATH: SQLite buffer for failed audit rows

	// Ops / logging
	OpsAddr   string // OPS_ADDR: health + metrics listener
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		BotToken:  os.Getenv("BOT_TOKEN"),
		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 3),

		AllowedUsers:      sysutil.SplitList(os.Getenv("BOT_ALLOWED_USERS")),
		ProtectedAccounts: sysutil.SplitList(os.Getenv("BOT_PROTECTED_ACCOUNTS")),

		Google: GoogleConfig{
			CredentialsFile: os.Getenv("GWORKSPACE_CREDS_FILE"),
			AdminAccount:    strings.TrimSpace(os.Getenv("GWORKSPACE_ADMIN_ACCOUNT")),
		},
		Gmail: GmailConfig{
			CredentialsFile: os.Getenv("GMAIL_CREDENTIALS_FILE"),
			TokenFile:       os.Getenv("GMAIL_TOKEN_FILE"),
			SenderAddress:   strings.TrimSpace(os.Getenv("GMAIL_SENDER_ADDRESS")),
			ReplyTo:         strings.TrimSpace(os.Getenv("REPLY_TO")),
			SignatureLine:   os.Getenv("EMAIL_SIGNATURE_LASTLINE"),
		},
		SpreadsheetName: os.Getenv("SPREADSHEET_FILENAME"),
		ProviderTimeout: getdur("PROVIDER_TIMEOUT", 20*time.Second),

		PasswordLength:    getint("PASSWORD_LENGTH", 12),
		DirectoryPageSize: int64(getint("DIRECTORY_PAGE_SIZE", 500)),
		ListPageRows:      getint("LIST_PAGE_ROWS", 50),
		SpoolPath:         getenv("SPOOL_PATH", "audit-spool.db"),

		OpsAddr:   getenv("OPS_ADDR", ":8081"),
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "workspace-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if i := strings.IndexByte(cfg.Google.AdminAccount, '@'); i > 0 {
		cfg.Google.Domain = cfg.Google.AdminAccount[i+1:]
	}
	cfg.Gmail.ReplyTo = sysutil.FirstNonEmpty(cfg.Gmail.ReplyTo, cfg.Google.AdminAccount)

	// --- validation ---
	for _, req := range []struct{ name, val string }{
		{"BOT_TOKEN", cfg.BotToken},
		{"GWORKSPACE_CREDS_FILE", cfg.Google.CredentialsFile},
		{"GWORKSPACE_ADMIN_ACCOUNT", cfg.Google.AdminAccount},
		{"GMAIL_CREDENTIALS_FILE", cfg.Gmail.CredentialsFile},
		{"GMAIL_TOKEN_FILE", cfg.Gmail.TokenFile},
		{"GMAIL_SENDER_ADDRESS", cfg.Gmail.SenderAddress},
		{"EMAIL_SIGNATURE_LASTLINE", cfg.Gmail.SignatureLine},
		{"SPREADSHEET_FILENAME", cfg.SpreadsheetName},
	} {
		if strings.TrimSpace(req.val) == "" {
			return cfg, fmt.Errorf("config: %s must be set", req.name)
		}
	}
	if len(cfg.AllowedUsers) == 0 {
		return cfg, fmt.Errorf("config: BOT_ALLOWED_USERS must list at least one username")
	}
	if cfg.Google.Domain == "" {
		return cfg, fmt.Errorf("config: GWORKSPACE_ADMIN_ACCOUNT must be an email address")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, fmt.Errorf("config: LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.ProviderTimeout < 10*time.Second || cfg.ProviderTimeout > 30*time.Second {
		return cfg, fmt.Errorf("config: PROVIDER_TIMEOUT must be between 10s and 30s")
	}
	if cfg.RateRPS < 0 {
		return cfg, fmt.Errorf("config: RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, fmt.Errorf("config: RATE_BURST must be >= 1")
	}
	if cfg.PasswordLength < 8 {
		return cfg, fmt.Errorf("config: PASSWORD_LENGTH must be >= 8")
	}
	if cfg.DirectoryPageSize < 1 {
		return cfg, fmt.Errorf("config: DIRECTORY_PAGE_SIZE must be >= 1")
	}
	if cfg.ListPageRows < 1 {
		return cfg, fmt.Errorf("config: LIST_PAGE_ROWS must be >= 1")
	}
	if strings.TrimSpace(cfg.SpoolPath) == "" {
		return cfg, fmt.Errorf("config: SPOOL_PATH must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, fmt.Errorf("config: OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return sysutil.IsTruthy(v)
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
