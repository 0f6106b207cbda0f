package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
	BackendMemory   = "memory"
)

type Config struct {
	StoreBackend string
	DatabaseURL  string

	SpreadsheetID            string
	GoogleServiceAccountJSON string

	HTTPAddr  string
	APISecret string

	TelegramToken string
	AdminTGIDs    map[int64]bool

	BatchConcurrency int

	LogLevel  string
	LogFormat string
	Location  *time.Location
}

func FromEnv() (Config, error) {
	var c Config
	c.StoreBackend = strings.ToLower(env("STORE_BACKEND", BackendPostgres))
	c.DatabaseURL = env("DATABASE_URL", "")
	c.SpreadsheetID = env("GOOGLE_SHEETS_SPREADSHEET_ID", "")
	c.GoogleServiceAccountJSON = env("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	c.HTTPAddr = env("HTTP_ADDR", ":8080")
	c.APISecret = env("API_SECRET", "")
	c.TelegramToken = env("TELEGRAM_BOT_TOKEN", "")
	c.AdminTGIDs = parseAdminIDs(os.Getenv("ADMIN_TG_IDS"))
	c.LogLevel = strings.ToLower(env("LOG_LEVEL", "info"))
	c.LogFormat = strings.ToLower(env("LOG_FORMAT", "json"))

	conc, err := strconv.Atoi(env("BATCH_CONCURRENCY", "1"))
	if err != nil || conc < 1 {
		return c, fmt.Errorf("BATCH_CONCURRENCY must be a positive integer, got %q", os.Getenv("BATCH_CONCURRENCY"))
	}
	c.BatchConcurrency = conc

	tz := env("TIMEZONE", "Asia/Tokyo")
	c.Location, err = time.LoadLocation(tz)
	if err != nil {
		return c, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return c, fmt.Errorf("DATABASE_URL is empty")
		}
	case BackendSheets:
		if c.SpreadsheetID == "" {
			return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID is empty")
		}
		if c.GoogleServiceAccountJSON == "" {
			return c, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
		}
	case BackendMemory:
	default:
		return c, fmt.Errorf("STORE_BACKEND %q is not one of postgres, sheets, memory", c.StoreBackend)
	}

	if c.APISecret == "" {
		return c, fmt.Errorf("API_SECRET is empty")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return c, fmt.Errorf("LOG_FORMAT %q is not one of json, console", c.LogFormat)
	}

	return c, nil
}

// Now returns the current time in the configured zone.
func (c Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseAdminIDs(raw string) map[int64]bool {
	m := map[int64]bool{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return m
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		m[v] = true
	}
	return m
}
