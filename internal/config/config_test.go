package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
api:
  environment: "test"
  base_url: "localhost:9999"
  port: "9999"
  allowed_cors_domains:
    - "http://localhost:3000"

gin:
  mode: "test"

postgres:
  host: "localhost"
  port: "5432"
  user: "postgres"
  password: "postgres"
  db_name: "scav_hunt_test"
  ssl_mode: "disable"

engine:
  event_name: "Test Hunt"
  allow_reset_after_finish: true
  queue_capacity: 16
  dedupe_ttl_seconds: 60
  congestion:
    medium: 2
    high: 3
    critical: 5
  insights:
    low_participation_below: 40
    stalled_after_minutes: 45
  dispatch:
    retry_attempts: 2
    retry_backoff_millis: 100
    messages_per_minute: 10
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	conf, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "test", conf.API.Environment)
	assert.Equal(t, "9999", conf.API.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, conf.API.AllowedCORSDomains)
	assert.Equal(t, "test", conf.Gin.Mode)
	assert.Equal(t, "scav_hunt_test", conf.Postgres.DBName)

	require.NotNil(t, conf.Engine)
	assert.Equal(t, "Test Hunt", conf.Engine.EventName)
	assert.True(t, conf.Engine.AllowResetAfterFinish)
	assert.Equal(t, 16, conf.Engine.QueueCapacity)
	assert.Equal(t, time.Minute, conf.Engine.DedupeTTL())

	require.NotNil(t, conf.Engine.Congestion)
	assert.Equal(t, 5, conf.Engine.Congestion.Critical)

	require.NotNil(t, conf.Engine.Insights)
	assert.Equal(t, 45*time.Minute, conf.Engine.Insights.StalledAfter())

	require.NotNil(t, conf.Engine.Dispatch)
	assert.Equal(t, 100*time.Millisecond, conf.Engine.Dispatch.RetryBackoff())
	assert.Equal(t, 10, conf.Engine.Dispatch.MessagesPerMinute)
}

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load(writeConfig(t, "engine:\n  event_name: \"Bare\"\n"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, conf.Engine.DedupeTTL())

	insights := InsightConfig{}
	assert.Equal(t, 30*time.Minute, insights.StalledAfter())

	dispatch := DispatchConfig{}
	assert.Equal(t, 250*time.Millisecond, dispatch.RetryBackoff())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
