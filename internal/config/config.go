// Package config holds the externally loaded rule tables that drive the
// pipeline: category keywords, amount thresholds, risk cutoffs, the
// area-code region map, OTP signatures, and phone/date settings. Rules are
// plain data so they can be extended without touching pipeline logic.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// CategoryRule is one scored category and its message keywords. Rules are
// kept as an ordered slice, not a map: score ties between categories break
// on declaration order.
type CategoryRule struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

// CountryConfig describes the dialing plan phone numbers are normalized to.
type CountryConfig struct {
	// DialCode is the international prefix including the leading "+".
	DialCode string `toml:"dial_code"`
	// SubscriberDigits is the length of a bare national number that may
	// be prefixed with the dial code directly.
	SubscriberDigits int `toml:"subscriber_digits"`
}

// Thresholds bucket amounts into small/medium/large/very_large.
type Thresholds struct {
	Small  float64 `toml:"small"`
	Medium float64 `toml:"medium"`
	Large  float64 `toml:"large"`
}

// RiskConfig holds the three ascending amount cutoffs contributing 1, 2
// and 3 points to the risk score.
type RiskConfig struct {
	Cutoffs []float64 `toml:"cutoffs"`
}

// PipelineConfig carries run-level knobs.
type PipelineConfig struct {
	// SnapshotLimit bounds the transaction sample in the reporting
	// snapshot.
	SnapshotLimit int `toml:"snapshot_limit"`
	// DeadLetterDir, when set, receives JSONL files with the records each
	// stage dropped. Empty disables durable dead-letter capture.
	DeadLetterDir string `toml:"dead_letter_dir"`
}

// Config is the full rule configuration, loadable from TOML.
type Config struct {
	Country     CountryConfig     `toml:"country"`
	DateFormats []string          `toml:"date_formats"`
	Categories  []CategoryRule    `toml:"categories"`
	Thresholds  Thresholds        `toml:"thresholds"`
	Risk        RiskConfig        `toml:"risk"`
	Regions     map[string]string `toml:"regions"`
	OTPKeywords []string          `toml:"otp_keywords"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
}

// Default returns the built-in rule set. The tables mirror the MoMo SMS
// phrasing the pipeline was tuned on.
func Default() *Config {
	return &Config{
		Country: CountryConfig{
			DialCode:         "+233",
			SubscriberDigits: 9,
		},
		DateFormats: []string{
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"02/01/2006 15:04",
			"02-01-2006 15:04",
			"2006-01-02",
		},
		Categories: []CategoryRule{
			{Name: "payment", Keywords: []string{
				"payment", "pay", "bill", "utility", "cash power", "mtn cash power",
				"has been completed", "completed", "token", "merchant", "direct payment",
			}},
			{Name: "transfer", Keywords: []string{
				"transfer", "transferred", "send", "money", "cash", "p2p", "to ", "from ",
				"you have received", "received",
			}},
			{Name: "withdrawal", Keywords: []string{
				"withdraw", "withdrawal", "atm", "cashout", "withdrawn",
				"collect your money in cash", "cash out", "cash-out",
			}},
			{Name: "deposit", Keywords: []string{
				"deposit", "topup", "recharge", "add", "added to your mobile money account",
				"cash deposit", "bank deposit", "has been added",
			}},
		},
		Thresholds: Thresholds{Small: 1000, Medium: 5000, Large: 10000},
		Risk:       RiskConfig{Cutoffs: []float64{5000, 10000, 50000}},
		Regions:    defaultRegions(),
		OTPKeywords: []string{
			"one-time password", "otp", "does not recommend that you share",
			"verification code", "do not share", "be vigilant",
		},
		Pipeline: PipelineConfig{SnapshotLimit: 100},
	}
}

// defaultRegions maps the two digits after the dial code to a region name.
func defaultRegions() map[string]string {
	regions := make(map[string]string, 40)
	fill := func(lo, hi int, name string) {
		for code := lo; code <= hi; code++ {
			regions[fmt.Sprintf("%02d", code)] = name
		}
	}
	fill(20, 29, "Greater Accra")
	fill(30, 39, "Ashanti")
	fill(40, 49, "Western")
	fill(50, 59, "Central")
	return regions
}

// Load reads a TOML rule file. An empty path returns the built-in
// defaults; a missing or invalid file is an error so a misconfigured run
// never falls back silently.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault marshals the built-in rule set to path, creating parent
// directories. Existing files are not overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Country.DialCode, "+") || len(c.Country.DialCode) < 2 {
		return fmt.Errorf("country.dial_code %q must start with '+'", c.Country.DialCode)
	}
	if c.Country.SubscriberDigits <= 0 {
		return fmt.Errorf("country.subscriber_digits must be positive, got %d", c.Country.SubscriberDigits)
	}
	if !(c.Thresholds.Small < c.Thresholds.Medium && c.Thresholds.Medium < c.Thresholds.Large) {
		return fmt.Errorf("thresholds must be ascending: %v < %v < %v",
			c.Thresholds.Small, c.Thresholds.Medium, c.Thresholds.Large)
	}
	if len(c.Risk.Cutoffs) != 3 {
		return fmt.Errorf("risk.cutoffs needs exactly 3 values, got %d", len(c.Risk.Cutoffs))
	}
	if !(c.Risk.Cutoffs[0] < c.Risk.Cutoffs[1] && c.Risk.Cutoffs[1] < c.Risk.Cutoffs[2]) {
		return fmt.Errorf("risk.cutoffs must be ascending: %v", c.Risk.Cutoffs)
	}
	for i, rule := range c.Categories {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("categories[%d] has an empty name", i)
		}
	}
	if c.Pipeline.SnapshotLimit <= 0 {
		return fmt.Errorf("pipeline.snapshot_limit must be positive, got %d", c.Pipeline.SnapshotLimit)
	}
	return nil
}

// DialDigits returns the dial code without the leading "+".
func (c *Config) DialDigits() string {
	return strings.TrimPrefix(c.Country.DialCode, "+")
}
