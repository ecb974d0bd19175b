package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Dan9191/daybal/internal/apperr"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string
	Location *time.Location

	// Bank gateway
	EBAPIURL        string
	EBApplicationID string
	EBPrivateKeyB64 string
	ASPSPName       string
	ASPSPCountry    string
	RedirectURL     string
	AccessDays      int
	HTTPTimeout     time.Duration
	HTTPRetryCount  int

	// Access gate
	PIN            string
	PINHash        string
	AccessTokenTTL time.Duration
	CronSecret     string
	CronSchedule   string
	AllowedOrigins []string

	// Digest mail
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SenderEmail     string
	DigestRecipient string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBConn:          getEnv("DB_CONN", ""),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		EBAPIURL:        getEnv("EB_API_URL", "https://api.enablebanking.com"),
		EBApplicationID: getEnv("EB_APPLICATION_ID", ""),
		EBPrivateKeyB64: getEnv("EB_PRIVATE_KEY_B64", ""),
		ASPSPName:       getEnv("EB_ASPSP_NAME", "ABN AMRO"),
		ASPSPCountry:    getEnv("EB_ASPSP_COUNTRY", "NL"),
		RedirectURL:     getEnv("REDIRECT_URL", "https://daybal.vercel.app/callback"),
		PIN:             getEnv("APP_PIN", ""),
		PINHash:         getEnv("APP_PIN_HASH", ""),
		CronSecret:      getEnv("CRON_SECRET", ""),
		CronSchedule:    getEnv("CRON_SCHEDULE", ""),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,https://daybal.vercel.app")),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", ""),
		DigestRecipient: getEnv("DIGEST_RECIPIENT", ""),
	}

	if cfg.DBConn == "" {
		return nil, &apperr.ConfigError{Key: "DB_CONN"}
	}

	var err error
	if cfg.AccessDays, err = getInt("EB_ACCESS_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.HTTPRetryCount, err = getInt("HTTP_RETRY_COUNT", 2); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 12*time.Hour); err != nil {
		return nil, err
	}

	tz := getEnv("TZ_NAME", "Europe/Amsterdam")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, &apperr.ConfigError{Key: "TZ_NAME", Reason: err.Error()}
	}

	return cfg, nil
}

// MailEnabled reports whether the daily digest can be sent
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != "" && c.DigestRecipient != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &apperr.ConfigError{Key: key, Reason: "not an integer"}
	}
	return v, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &apperr.ConfigError{Key: key, Reason: "not a duration"}
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
