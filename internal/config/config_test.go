package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForZeroValues(t *testing.T) {
	path := writeConfig(t, "http:\n  addr: \"\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("HTTP.Addr = %q, want :8080 default", cfg.HTTP.Addr)
	}
	if cfg.WriteDB.DSNEnv != "PERPWATCH_WRITE_DSN" {
		t.Fatalf("WriteDB.DSNEnv = %q, want default", cfg.WriteDB.DSNEnv)
	}
	if cfg.ReadDB.DSNEnv != "PERPWATCH_READ_DSN" {
		t.Fatalf("ReadDB.DSNEnv = %q, want default", cfg.ReadDB.DSNEnv)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("Logging.Level = %q, want info default", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("Logging.Format = %q, want console default", cfg.Logging.Format)
	}
}

func TestLoadPreservesExplicitValues(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9090"
write_db:
  dsn_env: "CUSTOM_WRITE_DSN"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("HTTP.Addr = %q, want :9090", cfg.HTTP.Addr)
	}
	if cfg.WriteDB.DSNEnv != "CUSTOM_WRITE_DSN" {
		t.Fatalf("WriteDB.DSNEnv = %q, want CUSTOM_WRITE_DSN", cfg.WriteDB.DSNEnv)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	path := writeConfig(t, "http: [this is not a mapping")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for invalid YAML")
	}
}

func TestDatabaseConfigDSNReadsFromEnv(t *testing.T) {
	t.Setenv("PERPWATCH_TEST_DSN", "postgres://example")
	d := DatabaseConfig{DSNEnv: "PERPWATCH_TEST_DSN"}
	if d.DSN() != "postgres://example" {
		t.Fatalf("DSN() = %q, want postgres://example", d.DSN())
	}
}

func TestTimeoutDefaultsWhenZero(t *testing.T) {
	d := DatabaseConfig{}
	if d.Timeout() != 10*time.Second {
		t.Fatalf("Timeout() = %v, want 10s default", d.Timeout())
	}
}

func TestRetentionHorizonDefaults(t *testing.T) {
	r := RetentionConfig{}
	if r.MinuteHorizon() != 14*24*time.Hour {
		t.Fatalf("MinuteHorizon() = %v, want 14 days", r.MinuteHorizon())
	}
	if r.HourHorizon() != 365*24*time.Hour {
		t.Fatalf("HourHorizon() = %v, want 365 days", r.HourHorizon())
	}
}

func TestJobsConfigIntervalDefaults(t *testing.T) {
	j := JobsConfig{}
	cases := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"RawToMinuteInterval", j.RawToMinuteInterval(), 300 * time.Second},
		{"MinuteToHourInterval", j.MinuteToHourInterval(), 3600 * time.Second},
		{"RetentionInterval", j.RetentionInterval(), 86400 * time.Second},
		{"LatestProjectionInterval", j.LatestProjectionInterval(), 300 * time.Second},
		{"BackfillInterval", j.BackfillInterval(), 86400 * time.Second},
		{"FundingMAInterval", j.FundingMAInterval(), 3600 * time.Second},
		{"ArbitrageInterval", j.ArbitrageInterval(), 3600 * time.Second},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}
