package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInitConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"project_name": "test ledger",
		"data_source": {"dns": "postgres://localhost:5432/ledger"},
		"redis": {"dns": "localhost:6379"},
		"payout": {"minimum_amount": 100, "low_balance_threshold": 500}
	}`)

	require.NoError(t, InitConfig(path))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "test ledger", cnf.ProjectName)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, "new:webhook", cnf.Queue.WebhookQueue)
	assert.Equal(t, 5, cnf.Queue.MaxRetryAttempts)
	assert.Equal(t, int64(100), cnf.Payout.MinimumAmount)
	assert.Equal(t, int64(500), cnf.Payout.LowBalanceThreshold)
	assert.Equal(t, 30, cnf.Payout.LockTimeoutSec)
}

func TestInitConfigRequiresDataSource(t *testing.T) {
	path := writeConfigFile(t, `{"redis": {"dns": "localhost:6379"}}`)
	assert.Error(t, InitConfig(path))
}

func TestInitConfigRequiresRedis(t *testing.T) {
	path := writeConfigFile(t, `{"data_source": {"dns": "postgres://localhost:5432/ledger"}}`)
	assert.Error(t, InitConfig(path))
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"data_source": {"dns": "postgres://localhost:5432/ledger"},
		"redis": {"dns": "localhost:6379"}
	}`)

	t.Setenv("LEDGER_SERVER_PORT", "9090")
	require.NoError(t, InitConfig(path))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "9090", cnf.Server.Port)
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := &Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost/ledger"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
}
