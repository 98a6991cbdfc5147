package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"catbot/internal/timespec"
)

// Config is the whole config file.
//
// All durations are Go duration strings (e.g. "30m", "6h"). Times of day are
// "HH:MM" strings.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Care     CareConfig     `json:"care"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// PollTimeout is the long-poll timeout; default "10s".
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// Console is a pointer so an omitted field defaults to true.
	Console *bool         `json:"console,omitempty"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ConsoleEnabled resolves the Console default.
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./catbot.json" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// CareConfig holds the pet-care knobs.
type CareConfig struct {
	// Timezone is the wall-clock zone every time-of-day below refers to.
	Timezone string `json:"timezone,omitempty"`

	// NightStart/NightEnd bound the quiet hours during which stats do not
	// decay. Inclusive, may wrap midnight. Defaults: 22:00 and 06:00.
	NightStart string `json:"night_start,omitempty"`
	NightEnd   string `json:"night_end,omitempty"`

	// StatsDecayEvery is the decay tick interval; default "6h".
	StatsDecayEvery string `json:"stats_decay_every,omitempty"`

	// CodeTTL is how long a connection code stays redeemable; default "24h".
	CodeTTL string `json:"code_ttl,omitempty"`

	// MessageCooldown is the per-user relay rate limit; default "24h".
	MessageCooldown string `json:"message_cooldown,omitempty"`

	// WalkWindow is the allowed-hours policy for walk times, hours in
	// [from, to). Default [6, 22). Set both to 0 to disable the check.
	WalkWindow *WalkWindowConfig `json:"walk_window,omitempty"`

	// NotifyRatePerSec bounds outbound sends; default 3.
	NotifyRatePerSec int `json:"notify_rate_per_sec,omitempty"`
}

type WalkWindowConfig struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Validate rejects configs that cannot be run at all. Derived values are
// resolved by the accessor methods below.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if _, err := c.Care.Location(); err != nil {
		return err
	}
	if _, _, err := c.Care.NightWindow(); err != nil {
		return err
	}
	for _, d := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"care.stats_decay_every", c.Care.StatsDecayEvery},
		{"care.code_ttl", c.Care.CodeTTL},
		{"care.message_cooldown", c.Care.MessageCooldown},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if _, err := parseDuration(d.path, d.raw); err != nil {
			return err
		}
	}
	if w := c.Care.WalkWindowPolicy(); w.Enabled() {
		if w.From < 0 || w.To > 24 || w.From >= w.To {
			return fmt.Errorf("care.walk_window: invalid hour range [%d, %d)", w.From, w.To)
		}
	}
	return nil
}

// Location resolves the configured timezone (default UTC).
func (c CareConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("care.timezone: %w", err)
	}
	return loc, nil
}

// NightWindow parses the quiet-hours bounds.
func (c CareConfig) NightWindow() (start, end timespec.Result, err error) {
	start, err = parseTimeOfDay("care.night_start", c.NightStart, timespec.Result{Hour: 22})
	if err != nil {
		return
	}
	end, err = parseTimeOfDay("care.night_end", c.NightEnd, timespec.Result{Hour: 6})
	return
}

// DecayEvery resolves the decay interval.
func (c CareConfig) DecayEvery() time.Duration {
	return durationOr(c.StatsDecayEvery, 6*time.Hour)
}

// CodeTTLValue resolves the connection-code lifetime.
func (c CareConfig) CodeTTLValue() time.Duration {
	return durationOr(c.CodeTTL, 24*time.Hour)
}

// MessageCooldownValue resolves the relay cooldown.
func (c CareConfig) MessageCooldownValue() time.Duration {
	return durationOr(c.MessageCooldown, 24*time.Hour)
}

// PollTimeoutValue resolves the long-poll timeout.
func (c TelegramConfig) PollTimeoutValue() time.Duration {
	return durationOr(c.PollTimeout, 10*time.Second)
}

// BusyTimeoutValue resolves the sqlite busy timeout (zero means the driver
// default).
func (c StorageConfig) BusyTimeoutValue() time.Duration {
	return durationOr(c.BusyTimeout, 0)
}

// WalkWindowPolicy resolves the allowed-hours window, defaulting to [6, 22).
func (c CareConfig) WalkWindowPolicy() timespec.Window {
	if c.WalkWindow == nil {
		return timespec.Window{From: 6, To: 22}
	}
	return timespec.Window{From: c.WalkWindow.From, To: c.WalkWindow.To}
}

// parseDuration validates one duration field. Empty means "use the default"
// and parses as zero.
func parseDuration(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// durationOr resolves an already-validated duration field against its
// default. Accessors run after Validate, so a parse failure here cannot
// happen and falls back to def.
func durationOr(raw string, def time.Duration) time.Duration {
	d, err := parseDuration("", raw)
	if err != nil || d == 0 {
		return def
	}
	return d
}

func parseTimeOfDay(path, raw string, def timespec.Result) (timespec.Result, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	r, err := timespec.Parse(raw)
	if err != nil || r.Cancelled {
		return timespec.Result{}, fmt.Errorf("%s: invalid time of day %q", path, raw)
	}
	return r, nil
}
