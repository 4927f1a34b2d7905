package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"CONFIG_FILE", "APP_ID", "APP_SECRET", "VERIFY_TOKEN", "ACCESS_TOKEN", "ORG_NAME",
	"ADMIN_IDS", "LEDGER_DSN", "LEDGER_TABLE", "DEBUG", "ENV", "LOG_LEVEL", "LOG_FORMAT",
	"PORT", "SHUTDOWN_GRACE_PERIOD", "GRAPH_BASE_URL", "GRAPH_TIMEOUT", "ROSTER_PAGE_SIZE",
	"OPERATOR_IDS", "INACTIVITY_COMMAND", "INACTIVITY_SCAN_INTERVAL", "INACTIVITY_CONCURRENCY",
	"WARN_AFTER", "DEACTIVATE_AFTER", "ONBOARDING_PROMPT_BURST", "ONBOARDING_PROMPT_INTERVAL",
	"LEDGER_MONOTONIC", "KAFKA_BROKERS", "AUDIT_TOPIC",
}

// clearEnv blanks every recognised key so the host environment cannot leak
// into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ID", "123")
	t.Setenv("APP_SECRET", "secret")
	t.Setenv("VERIFY_TOKEN", "verify")
	t.Setenv("ACCESS_TOKEN", "token")
	t.Setenv("ORG_NAME", "Acme")
	t.Setenv("ADMIN_IDS", "A1, A2,,A1")
	t.Setenv("LEDGER_DSN", "steward.db")
	t.Setenv("LEDGER_TABLE", "activity_log")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, []string{"A1", "A2"}, cfg.AdminIDs)
	require.Equal(t, cfg.AdminIDs, cfg.OperatorIDs)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 30*24*time.Hour, cfg.WarnAfter)
	require.Equal(t, 45*24*time.Hour, cfg.DeactivateAfter)
	require.Equal(t, 24*time.Hour, cfg.InactivityScanInterval)
	require.Equal(t, "check inactivity", cfg.InactivityCommand)
	require.Equal(t, 5, cfg.OnboardingPromptBurst)
	require.Equal(t, 10*time.Minute, cfg.OnboardingPromptInterval)
	require.Equal(t, "steward.enforcement", cfg.AuditTopic)
	require.False(t, cfg.LedgerMonotonic)
	require.False(t, cfg.Debug)
	require.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfigReportsAllMissingKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ID", "123")
	t.Setenv("ADMIN_IDS", " , ")

	_, err := LoadConfig()
	require.ErrorIs(t, err, ErrMissingConfig)
	for _, k := range []string{"APP_SECRET", "VERIFY_TOKEN", "ACCESS_TOKEN", "ORG_NAME", "ADMIN_IDS", "LEDGER_DSN", "LEDGER_TABLE"} {
		require.Contains(t, err.Error(), k)
	}
	require.NotContains(t, err.Error(), "APP_ID")
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("WARN_AFTER", "7d")
	t.Setenv("DEACTIVATE_AFTER", "240h")
	t.Setenv("INACTIVITY_SCAN_INTERVAL", "0")
	t.Setenv("ONBOARDING_PROMPT_INTERVAL", "15")
	t.Setenv("OPERATOR_IDS", "OPS")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LEDGER_MONOTONIC", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.Debug)
	require.Equal(t, 7*24*time.Hour, cfg.WarnAfter)
	require.Equal(t, 10*24*time.Hour, cfg.DeactivateAfter)
	require.Zero(t, cfg.InactivityScanInterval)
	require.Equal(t, 15*time.Minute, cfg.OnboardingPromptInterval)
	require.Equal(t, []string{"OPS"}, cfg.OperatorIDs)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.LedgerMonotonic)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Run("unparsable", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("PORT", "eighty")
		t.Setenv("GRAPH_TIMEOUT", "soon")

		_, err := LoadConfig()
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.Contains(t, err.Error(), "PORT")
		require.Contains(t, err.Error(), "GRAPH_TIMEOUT")
	})

	t.Run("thresholds out of order", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("WARN_AFTER", "45d")
		t.Setenv("DEACTIVATE_AFTER", "30d")

		_, err := LoadConfig()
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unsafe table", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("LEDGER_TABLE", "log; DROP TABLE x")

		_, err := LoadConfig()
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "steward.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_id: 42
app_secret: file-secret
verify_token: file-verify
access_token: file-token
org_name: Acme From File
admin_ids: [A1, A2]
ledger_dsn: postgres://steward@db/steward
ledger_table: activity_log
inactivity_concurrency: 3
welcome_messages:
  - Read the handbook.
  - Say hi in the lobby.
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ORG_NAME", "Acme From Env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "42", cfg.AppID)
	require.Equal(t, "Acme From Env", cfg.OrgName)
	require.Equal(t, []string{"A1", "A2"}, cfg.AdminIDs)
	require.Equal(t, 3, cfg.InactivityConcurrency)
	require.Equal(t, []string{"Read the handbook.", "Say hi in the lobby."}, cfg.WelcomeMessages)
	require.True(t, isPostgresDSN(cfg.LedgerDSN))
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadConfig()
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"90s": 90 * time.Second,
		"30d": 30 * 24 * time.Hour,
		"5":   5 * time.Minute,
		"0":   0,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := parseDuration("xd")
	require.Error(t, err)
}
