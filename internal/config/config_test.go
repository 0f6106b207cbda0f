package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STORE_BACKEND", "DATABASE_URL", "GOOGLE_SHEETS_SPREADSHEET_ID", "GOOGLE_SERVICE_ACCOUNT_JSON",
		"HTTP_ADDR", "TELEGRAM_BOT_TOKEN", "ADMIN_TG_IDS", "BATCH_CONCURRENCY",
		"LOG_LEVEL", "LOG_FORMAT", "TIMEZONE",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("API_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://portal@localhost/portal")
}

func TestFromEnv_Defaults(t *testing.T) {
	setBaseEnv(t)

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, c.StoreBackend)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 1, c.BatchConcurrency)
	assert.Equal(t, "Asia/Tokyo", c.Location.String())
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.AdminTGIDs)

	logger, err := c.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestFromEnv_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("ADMIN_TG_IDS", "1, 2,bad,,3")
	t.Setenv("BATCH_CONCURRENCY", "4")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.StoreBackend)
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, c.AdminTGIDs)
	assert.Equal(t, 4, c.BatchConcurrency)
	assert.Equal(t, "UTC", c.Now().Location().String())

	_, err = c.NewLogger()
	require.NoError(t, err)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no secret", map[string]string{"API_SECRET": ""}, "API_SECRET"},
		{"no database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"sheets without id", map[string]string{"STORE_BACKEND": "sheets"}, "GOOGLE_SHEETS_SPREADSHEET_ID"},
		{"sheets without credentials", map[string]string{"STORE_BACKEND": "sheets", "GOOGLE_SHEETS_SPREADSHEET_ID": "x"}, "GOOGLE_SERVICE_ACCOUNT_JSON"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "mysql"}, "STORE_BACKEND"},
		{"bad concurrency", map[string]string{"BATCH_CONCURRENCY": "0"}, "BATCH_CONCURRENCY"},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := Config{LogLevel: "loud", LogFormat: "json"}.NewLogger()
	assert.Error(t, err)
}
