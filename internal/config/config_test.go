package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.True(t, cfg.DBMigrate)
	assert.False(t, cfg.IsLocalDev)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", StorageMemory)
	t.Setenv("IS_LOCAL_DEV", "true")
	t.Setenv("WORKER_CONCURRENCY", "9")
	t.Setenv("PAYROLL_SQS_QUEUE_URL", "http://queue/payroll")
	t.Setenv("LOCATION", "Asia/Tokyo")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.True(t, cfg.IsLocalDev)
	assert.Equal(t, 9, cfg.WorkerConcurrency)
	assert.Equal(t, "http://queue/payroll", cfg.PayrollQueueURL)

	loc, err := cfg.TimeLocation()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestTimeLocationInvalid(t *testing.T) {
	_, err := Config{Location: "Nowhere/Special"}.TimeLocation()
	assert.Error(t, err)
}
