package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadPathOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
watchlist:
  - ticker: "0005.HK"
    companyName: "HSBC"
  - "9988.HK"
scraping:
  daysLookback: 3
report:
  maxItems: 5
`)

	cfg := LoadPath(path)

	if len(cfg.Watchlist) != 2 {
		t.Fatalf("expected 2 watchlist entries, got %d", len(cfg.Watchlist))
	}
	if cfg.Watchlist[0].CompanyName != "HSBC" {
		t.Fatalf("mapping form not parsed: %+v", cfg.Watchlist[0])
	}
	if cfg.Watchlist[1].Ticker != "9988.HK" {
		t.Fatalf("bare ticker form not parsed: %+v", cfg.Watchlist[1])
	}
	if cfg.Scraping.DaysLookback != 3 {
		t.Fatalf("override lost: %d", cfg.Scraping.DaysLookback)
	}
	if cfg.Report.MaxItems != 5 {
		t.Fatalf("override lost: %d", cfg.Report.MaxItems)
	}

	// Keys omitted from the file keep their defaults.
	if !cfg.Scraping.HKEXEnabled || !cfg.Scraping.YahooEnabled {
		t.Fatal("omitted source toggles must keep their defaults")
	}
	if cfg.Scheduler.CronExpression != "0 7 * * *" {
		t.Fatalf("default schedule lost: %s", cfg.Scheduler.CronExpression)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg := LoadPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEWS_DIGEST_CONFIG", "")
	t.Setenv("SMTP_USER", "digest@example.com")
	t.Setenv("SMTP_PASS", "hunter2")
	t.Setenv("DATABASE_DSN", "postgres://env/override")

	cfg := Load()
	if cfg.Email.SMTPUser != "digest@example.com" || cfg.Email.SMTPPass != "hunter2" {
		t.Fatalf("smtp env overrides lost: %+v", cfg.Email)
	}
	if cfg.Database.DSN != "postgres://env/override" {
		t.Fatalf("dsn env override lost: %s", cfg.Database.DSN)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty watchlist", func(c *Config) { c.Watchlist = nil }, "watchlist"},
		{"bad ticker", func(c *Config) { c.Watchlist = []WatchlistItem{{Ticker: "700"}} }, "watchlist"},
		{"zero lookback", func(c *Config) { c.Scraping.DaysLookback = 0 }, "scraping.daysLookback"},
		{"zero max items", func(c *Config) { c.Report.MaxItems = 0 }, "report.maxItems"},
		{"zero half life", func(c *Config) { c.Ranking.HalfLifeDays = 0 }, "ranking.halfLifeDays"},
		{"email without server", func(c *Config) { c.Email.Enabled = true }, "email"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "database.driver"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var confErr *ConfigurationError
			if !errors.As(err, &confErr) || confErr.Field != tc.field {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestSchedulerLocation(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  timezone: "UTC"
`)
	cfg := LoadPath(path)
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("timezone not bound: %s", cfg.Scheduler.Location())
	}
}
