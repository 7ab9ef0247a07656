package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ritual/internal/model"
)

// Defaults.
const (
	DefaultLeadMinutes  = 10
	DefaultProvider     = "aladhan"
	DefaultBaseURL      = "https://api.aladhan.com"
	DefaultStaleAfter   = "24h"
	DefaultScheduleDays = 7
	DefaultFreezeEvery  = 7
	DefaultMaxFreeze    = 2
	DefaultRenewCron    = "*/30 * * * *"
	DefaultRefreshCron  = "15 3 * * *"
	DefaultRolloverCron = "1 0 * * *"
)

// Provider names.
const (
	ProviderAladhan = "aladhan"
	ProviderICS     = "ics"
	ProviderFixed   = "fixed"
)

// NotificationsConfig holds reminder preferences.
type NotificationsConfig struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	LeadMinutes int  `yaml:"lead_minutes" json:"lead_minutes"`
	// ActiveEvents lists the events that get reminders. A missing key means
	// all default events; an explicit empty list means none.
	ActiveEvents []string `yaml:"active_events" json:"active_events"`
	// PermissionGranted mirrors the user's OS-level permission decision.
	PermissionGranted bool `yaml:"permission_granted" json:"permission_granted"`
}

// LocationConfig identifies where the timetable applies.
type LocationConfig struct {
	City    string `yaml:"city" json:"city"`
	Country string `yaml:"country" json:"country"`
	// Timezone is an IANA zone name, or "Local".
	Timezone string `yaml:"timezone" json:"timezone"`
	// Method is the Aladhan calculation method id.
	Method int `yaml:"method" json:"method"`
}

// TimetableConfig selects and tunes the timetable provider.
type TimetableConfig struct {
	Provider     string            `yaml:"provider" json:"provider"`
	ICSPath      string            `yaml:"ics_path" json:"ics_path"`
	FixedTimes   map[string]string `yaml:"fixed_times" json:"fixed_times"`
	BaseURL      string            `yaml:"base_url" json:"base_url"`
	StaleAfter   string            `yaml:"stale_after" json:"stale_after"`
	ScheduleDays int               `yaml:"schedule_days" json:"schedule_days"`
}

// StreakConfig is the freeze award policy.
type StreakConfig struct {
	FreezeEvery int `yaml:"freeze_every" json:"freeze_every"`
	MaxFreeze   int `yaml:"max_freeze" json:"max_freeze"`
}

// DatabaseConfig locates the SQLite database. An empty path means
// ritual.db next to the settings file.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// DaemonConfig holds the cron schedules of the background jobs.
type DaemonConfig struct {
	RenewCron    string `yaml:"renew_cron" json:"renew_cron"`
	RefreshCron  string `yaml:"refresh_cron" json:"refresh_cron"`
	RolloverCron string `yaml:"rollover_cron" json:"rollover_cron"`
}

// Config is the whole settings file.
type Config struct {
	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"`
	Location      LocationConfig      `yaml:"location" json:"location"`
	Timetable     TimetableConfig     `yaml:"timetable" json:"timetable"`
	Streak        StreakConfig        `yaml:"streak" json:"streak"`
	Database      DatabaseConfig      `yaml:"database" json:"database"`
	Daemon        DaemonConfig        `yaml:"daemon" json:"daemon"`
}

// DefaultConfig returns the first-run configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Notifications: NotificationsConfig{
			Enabled:           false,
			LeadMinutes:       DefaultLeadMinutes,
			ActiveEvents:      append([]string(nil), model.DefaultEvents...),
			PermissionGranted: true,
		},
		Location: LocationConfig{
			City:     "Mecca",
			Country:  "Saudi Arabia",
			Timezone: "Local",
			Method:   4,
		},
		Streak: StreakConfig{
			FreezeEvery: DefaultFreezeEvery,
			MaxFreeze:   DefaultMaxFreeze,
		},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills missing values with defaults. It never touches values
// that are present, so an out-of-range lead time survives for the engine
// to correct and write back.
func (c *Config) Normalize() {
	if c.Notifications.LeadMinutes == 0 {
		c.Notifications.LeadMinutes = DefaultLeadMinutes
	}
	if c.Notifications.ActiveEvents == nil {
		c.Notifications.ActiveEvents = append([]string(nil), model.DefaultEvents...)
	}
	if c.Location.Timezone == "" {
		c.Location.Timezone = "Local"
	}
	if c.Timetable.Provider == "" {
		c.Timetable.Provider = DefaultProvider
	}
	if c.Timetable.FixedTimes == nil {
		c.Timetable.FixedTimes = map[string]string{}
	}
	if c.Timetable.BaseURL == "" {
		c.Timetable.BaseURL = DefaultBaseURL
	}
	if c.Timetable.StaleAfter == "" {
		c.Timetable.StaleAfter = DefaultStaleAfter
	}
	if c.Timetable.ScheduleDays <= 0 {
		c.Timetable.ScheduleDays = DefaultScheduleDays
	}
	if c.Streak.FreezeEvery <= 0 {
		c.Streak.FreezeEvery = DefaultFreezeEvery
	}
	if c.Streak.MaxFreeze < 0 {
		c.Streak.MaxFreeze = 0
	}
	if c.Daemon.RenewCron == "" {
		c.Daemon.RenewCron = DefaultRenewCron
	}
	if c.Daemon.RefreshCron == "" {
		c.Daemon.RefreshCron = DefaultRefreshCron
	}
	if c.Daemon.RolloverCron == "" {
		c.Daemon.RolloverCron = DefaultRolloverCron
	}
}

// Validate checks c against the CUE schema and the values only Go can
// check: the time zone, the staleness duration and the cron expressions.
func (c *Config) Validate() error {
	if err := validateSchema(c); err != nil {
		return err
	}
	switch c.Timetable.Provider {
	case ProviderICS:
		if c.Timetable.ICSPath == "" {
			return errors.New("timetable.ics_path: required for the ics provider")
		}
	case ProviderFixed:
		if len(c.Timetable.FixedTimes) == 0 {
			return errors.New("timetable.fixed_times: required for the fixed provider")
		}
	case ProviderAladhan:
		if !strings.HasPrefix(c.Timetable.BaseURL, "http://") && !strings.HasPrefix(c.Timetable.BaseURL, "https://") {
			return fmt.Errorf("timetable.base_url: not an http(s) URL: %q", c.Timetable.BaseURL)
		}
	}
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	if _, err := c.StaleAfter(); err != nil {
		return err
	}
	for name, spec := range map[string]string{
		"renew_cron":    c.Daemon.RenewCron,
		"refresh_cron":  c.Daemon.RefreshCron,
		"rollover_cron": c.Daemon.RolloverCron,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("daemon.%s: %w", name, err)
		}
	}
	return nil
}

// TimeLocation loads the configured time zone.
func (c *Config) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Location.Timezone)
	if err != nil {
		return nil, fmt.Errorf("location.timezone: %w", err)
	}
	return loc, nil
}

// StaleAfter parses the timetable staleness limit.
func (c *Config) StaleAfter() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timetable.StaleAfter)
	if err != nil {
		return 0, fmt.Errorf("timetable.stale_after: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timetable.stale_after: must be positive, got %s", d)
	}
	return d, nil
}

// NotificationSettings projects the engine-facing preferences.
func (c *Config) NotificationSettings() model.NotificationSettings {
	return model.NotificationSettings{
		Enabled:      c.Notifications.Enabled,
		LeadMinutes:  c.Notifications.LeadMinutes,
		ActiveEvents: append([]string(nil), c.Notifications.ActiveEvents...),
		City:         c.Location.City,
		Country:      c.Location.Country,
	}
}

// ApplyNotificationSettings copies s into c.
func (c *Config) ApplyNotificationSettings(s model.NotificationSettings) {
	c.Notifications.Enabled = s.Enabled
	c.Notifications.LeadMinutes = s.LeadMinutes
	c.Notifications.ActiveEvents = append([]string{}, s.ActiveEvents...)
	c.Location.City = s.City
	c.Location.Country = s.Country
}

// DefaultPath returns $XDG_CONFIG_HOME/ritual/settings.yaml (or the
// platform equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "ritual", "settings.yaml"), nil
}

// DatabasePath resolves the database location for a settings file at path.
func (c *Config) DatabasePath(path string) string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(filepath.Dir(path), "ritual.db")
}

// Load reads the settings file at path, creating it with defaults when it
// does not exist. The result is normalized but not validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("settings path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("settings path is empty")
	}
	if cfg == nil {
		return errors.New("settings are nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ritual-settings-*.tmp")
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
