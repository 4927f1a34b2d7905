package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/steward/internal/steward/audit"
	"github.com/aussiebroadwan/steward/internal/steward/service"
	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/aussiebroadwan/steward/pkg/workplace"
)

var (
	ErrMissingConfig = errors.New("missing required configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

type Config struct {
	AppID       string   // Required: Workplace app id
	AppSecret   string   // Required: signs appsecret_proof on every Graph call
	VerifyToken string   // Required: webhook subscription handshake token
	AccessToken string   // Required: Graph API token
	OrgName     string   // Required: used in the welcome greeting
	AdminIDs    []string // Required: accounts that receive enforcement notices
	LedgerDSN   string   // Required: sqlite path/DSN or postgres:// URL
	LedgerTable string   // Required: activity ledger table name

	Debug               bool          // Optional: force debug logging (default: false)
	Env                 string        // Environment (dev, staging, prod) (default: prod)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	GraphBaseURL   string        // Graph API root (default: workplace.DefaultBaseURL)
	GraphTimeout   time.Duration // Per-request Graph timeout (default: 10s)
	RosterPageSize int           // Members per roster page (default: 100)

	OperatorIDs            []string      // Receive sweep failure alerts (default: AdminIDs)
	InactivityCommand      string        // Admin command that starts a sweep (default: "check inactivity")
	InactivityScanInterval time.Duration // Periodic sweep interval, 0 disables (default: 24h)
	InactivityConcurrency  int           // Accounts evaluated in parallel (default: 8)
	WarnAfter              time.Duration // Inactivity before a warning (default: 30d)
	DeactivateAfter        time.Duration // Inactivity before deactivation (default: 45d)

	OnboardingPromptBurst    int           // Reminders an account may receive back to back (default: 5)
	OnboardingPromptInterval time.Duration // Time to earn one more reminder (default: 10m)
	WelcomeMessages          []string      // Sent after the greeting (config file only)

	LedgerMonotonic bool     // Ignore activity older than the stored timestamp (default: false)
	KafkaBrokers    []string // Audit publisher brokers; empty disables auditing
	AuditTopic      string   // Audit topic (default: steward.enforcement)
}

// fileConfig is the optional YAML config file. Keys are the environment
// variable names in lower case; welcome_messages is only available here.
type fileConfig struct {
	WelcomeMessages []string       `yaml:"welcome_messages"`
	Values          map[string]any `yaml:",inline"`
}

var requiredKeys = []string{
	"APP_ID", "APP_SECRET", "VERIFY_TOKEN", "ACCESS_TOKEN",
	"ORG_NAME", "ADMIN_IDS", "LEDGER_DSN", "LEDGER_TABLE",
}

// LoadConfig reads CONFIG_FILE, if set, then lets environment variables
// override it. Every missing or unparsable key is reported at once.
func LoadConfig() (Config, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppID:       src.getOrDefault("APP_ID", ""),
		AppSecret:   src.getOrDefault("APP_SECRET", ""),
		VerifyToken: src.getOrDefault("VERIFY_TOKEN", ""),
		AccessToken: src.getOrDefault("ACCESS_TOKEN", ""),
		OrgName:     src.getOrDefault("ORG_NAME", ""),
		AdminIDs:    src.list("ADMIN_IDS"),
		LedgerDSN:   src.getOrDefault("LEDGER_DSN", ""),
		LedgerTable: src.getOrDefault("LEDGER_TABLE", ""),

		Debug:               src.boolOrDefault("DEBUG", false),
		Env:                 src.getOrDefault("ENV", "prod"),
		LogLevel:            src.getOrDefault("LOG_LEVEL", "info"),
		LogFormat:           src.getOrDefault("LOG_FORMAT", "json"),
		Port:                src.intOrDefault("PORT", 8080),
		ShutdownGracePeriod: src.durationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		GraphBaseURL:   src.getOrDefault("GRAPH_BASE_URL", workplace.DefaultBaseURL),
		GraphTimeout:   src.durationOrDefault("GRAPH_TIMEOUT", workplace.DefaultTimeout),
		RosterPageSize: src.intOrDefault("ROSTER_PAGE_SIZE", workplace.DefaultPageSize),

		OperatorIDs:            src.list("OPERATOR_IDS"),
		InactivityCommand:      src.getOrDefault("INACTIVITY_COMMAND", service.DefaultInactivityCommand),
		InactivityScanInterval: src.durationOrDefault("INACTIVITY_SCAN_INTERVAL", 24*time.Hour),
		InactivityConcurrency:  src.intOrDefault("INACTIVITY_CONCURRENCY", service.DefaultConcurrency),
		WarnAfter:              src.durationOrDefault("WARN_AFTER", service.DefaultWarnAfter),
		DeactivateAfter:        src.durationOrDefault("DEACTIVATE_AFTER", service.DefaultDeactivateAfter),

		OnboardingPromptBurst:    src.intOrDefault("ONBOARDING_PROMPT_BURST", 5),
		OnboardingPromptInterval: src.durationOrDefault("ONBOARDING_PROMPT_INTERVAL", 10*time.Minute),
		WelcomeMessages:          src.file.WelcomeMessages,

		LedgerMonotonic: src.boolOrDefault("LEDGER_MONOTONIC", false),
		KafkaBrokers:    src.list("KAFKA_BROKERS"),
		AuditTopic:      src.getOrDefault("AUDIT_TOPIC", audit.DefaultTopic),
	}

	if missing := src.missing(requiredKeys); len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	if len(src.invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(src.invalid, "; "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if len(cfg.OperatorIDs) == 0 {
		cfg.OperatorIDs = cfg.AdminIDs
	}
	return cfg, nil
}

func (c Config) validate() error {
	var problems []string
	if c.WarnAfter <= 0 || c.DeactivateAfter <= c.WarnAfter {
		problems = append(problems, "DEACTIVATE_AFTER must be greater than WARN_AFTER and both positive")
	}
	if c.InactivityScanInterval < 0 {
		problems = append(problems, "INACTIVITY_SCAN_INTERVAL must not be negative")
	}
	if c.InactivityConcurrency < 1 {
		problems = append(problems, "INACTIVITY_CONCURRENCY must be at least 1")
	}
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, "PORT out of range")
	}
	if c.RosterPageSize < 1 {
		problems = append(problems, "ROSTER_PAGE_SIZE must be at least 1")
	}
	if c.OnboardingPromptBurst < 1 || c.OnboardingPromptInterval <= 0 {
		problems = append(problems, "ONBOARDING_PROMPT_BURST and ONBOARDING_PROMPT_INTERVAL must be positive")
	}
	if err := store.ValidateTableName(c.LedgerTable); err != nil {
		problems = append(problems, "LEDGER_TABLE must be a plain SQL identifier")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// source resolves keys from the environment first, then the config file.
type source struct {
	file    fileConfig
	invalid []string
}

func newSource(path string) (*source, error) {
	src := &source{}
	if path == "" {
		return src, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: config file %s does not exist", ErrInvalidConfig, path)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &src.file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	return src, nil
}

func (s *source) lookup(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	switch v := s.file.Values[strings.ToLower(key)].(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (s *source) missing(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k == "ADMIN_IDS" {
			if len(s.list(k)) == 0 {
				out = append(out, k)
			}
			continue
		}
		if s.lookup(k) == "" {
			out = append(out, k)
		}
	}
	return out
}

func (s *source) getOrDefault(key, defaultValue string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return defaultValue
}

func (s *source) intOrDefault(key string, defaultValue int) int {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		s.invalid = append(s.invalid, fmt.Sprintf("%s=%q is not an integer", key, value))
		return defaultValue
	}
	return n
}

func (s *source) boolOrDefault(key string, defaultValue bool) bool {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		s.invalid = append(s.invalid, fmt.Sprintf("%s=%q is not a boolean", key, value))
		return defaultValue
	}
	return b
}

func (s *source) durationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}

	d, err := parseDuration(value)
	if err != nil {
		s.invalid = append(s.invalid, fmt.Sprintf("%s=%q is not a duration", key, value))
		return defaultValue
	}
	return d
}

// list splits a comma separated value, dropping blanks and duplicates.
func (s *source) list(key string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s.lookup(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// parseDuration accepts Go durations ("90s", "720h"), whole days ("30d") and
// bare integers as minutes.
func parseDuration(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	if n, ok := strings.CutSuffix(value, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	minutes, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(minutes) * time.Minute, nil
}
