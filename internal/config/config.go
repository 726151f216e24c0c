package config

import (
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/mutker/powermon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultInterval    = 10  // seconds between runtime ticks
	defaultAutosave    = 300 // seconds between scheduled persists
	defaultHistoryDays = 14
	defaultEventLimit  = 20
	defaultTimeTimeout = 5
	defaultDataDir     = "/var/lib/powermon"
	defaultStateFile   = "powerlog.json"
	defaultHTTPAddr    = ":8080"
	defaultTimeURL     = "https://www.cloudflare.com"
	defaultLEDChip     = "gpiochip0"
	defaultLEDPin      = 2
)

// Retention policies for the persisted history. Rolling keeps a bounded
// ring of recent entries; monthly wipes the whole log when the calendar
// month changes. The two are never combined.
const (
	RetentionRolling = "rolling"
	RetentionMonthly = "monthly"
)

type Config struct {
	Interval    int    `mapstructure:"interval"`
	Autosave    int    `mapstructure:"autosave"`
	HistoryDays int    `mapstructure:"history_days"`
	EventLimit  int    `mapstructure:"event_limit"`
	Retention   string `mapstructure:"retention"`
	DataDir     string `mapstructure:"data_dir"`
	StateFile   string `mapstructure:"state_file"`
	HTTPAddr    string `mapstructure:"http_addr"`
	TimeURL     string `mapstructure:"time_url"`
	TimeTimeout int    `mapstructure:"time_timeout"`
	LED         bool   `mapstructure:"led"`
	LEDChip     string `mapstructure:"led_chip"`
	LEDPin      int    `mapstructure:"led_pin"`
	Broker      string `mapstructure:"broker"`
	Archive     bool   `mapstructure:"archive"`
	ArchiveDB   string `mapstructure:"archive_db"`
	LogLevel    string `mapstructure:"log_level"`
	Debug       bool   `mapstructure:"debug"`
	Verbose     bool   `mapstructure:"verbose"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("powermon", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Int("interval", defaultInterval, "Seconds between runtime ticks")
	flags.Int("autosave", defaultAutosave, "Seconds between scheduled persists")
	flags.String("retention", RetentionRolling, "History retention policy (rolling or monthly)")
	flags.String("data-dir", defaultDataDir, "Directory for persisted state")
	flags.String("http", defaultHTTPAddr, "HTTP status address (empty to disable)")
	flags.String("broker", "", "MQTT broker address (empty to disable)")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	bindings := map[string]string{
		"interval":  "interval",
		"autosave":  "autosave",
		"retention": "retention",
		"data-dir":  "data_dir",
		"http":      "http_addr",
		"broker":    "broker",
		"log-level": "log_level",
		"debug":     "debug",
		"verbose":   "verbose",
	}

	// Load configuration from file, if one exists
	if path := os.Getenv("POWERMON_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("powermon")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Explicit command line flags override the config file
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := bindings[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if config.ArchiveDB == "" {
		config.ArchiveDB = filepath.Join(config.DataDir, "events.db")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("autosave", defaultAutosave)
	v.SetDefault("history_days", defaultHistoryDays)
	v.SetDefault("event_limit", defaultEventLimit)
	v.SetDefault("retention", RetentionRolling)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("state_file", defaultStateFile)
	v.SetDefault("http_addr", defaultHTTPAddr)
	v.SetDefault("time_url", defaultTimeURL)
	v.SetDefault("time_timeout", defaultTimeTimeout)
	v.SetDefault("led", false)
	v.SetDefault("led_chip", defaultLEDChip)
	v.SetDefault("led_pin", defaultLEDPin)
	v.SetDefault("broker", "")
	v.SetDefault("archive", false)
	v.SetDefault("archive_db", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 || c.Autosave <= 0 {
		return errFactory.New(errors.ErrInvalidInterval)
	}
	if c.HistoryDays <= 0 || c.EventLimit <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history_days and event_limit must be positive")
	}
	if c.Retention != RetentionRolling && c.Retention != RetentionMonthly {
		return errFactory.WithData(errors.ErrInvalidConfig, c.Retention)
	}
	if !isValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}
