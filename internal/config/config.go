// Package config handles application configuration from environment variables
// and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"codescanner/internal/model"
	"codescanner/internal/scanner"
)

// Config holds the application configuration.
type Config struct {
	ScanMode          model.ScanMode
	ScanInterval      time.Duration
	CodeKinds         []model.CodeKind
	PreferSpeed       bool
	ShowViewfinder    bool
	FeedbackOnSuccess bool
	TorchOn           bool
	CaptureDevice     string
	SimulatedData     []string
	FrameInterval     time.Duration

	DatabasePath     string
	LogLevel         string
	TelegramBotToken string
	NotifyChatID     int64
	AllowedUsers     []int64
	MetricsAddr      string
	FeedPreview      bool
}

// source resolves a setting by its environment variable name.
type source struct {
	file map[string][]string
}

// lookup returns the raw values for key: the environment wins over the file.
// sep splits a single environment value into a list.
func (s source) lookup(key, sep string) ([]string, bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if sep == "" {
			return []string{v}, true
		}
		return strings.Split(v, sep), true
	}
	v, ok := s.file[strings.ToLower(key)]
	return v, ok && len(v) > 0
}

func (s source) str(key, def string) string {
	if v, ok := s.lookup(key, ""); ok {
		return strings.TrimSpace(v[0])
	}
	return def
}

func (s source) boolean(key string, def bool) (bool, error) {
	v, ok := s.lookup(key, "")
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v[0]))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v[0], err)
	}
	return b, nil
}

func (s source) duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := s.lookup(key, "")
	if !ok {
		return def, nil
	}
	raw := strings.TrimSpace(v[0])
	d, err := time.ParseDuration(raw)
	if err != nil {
		// Plain numbers are seconds.
		secs, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, raw)
	}
	return d, nil
}

// Load reads configuration from environment variables. When SCANNER_CONFIG
// names a YAML file, its keys (lower-case variable names) provide values for
// variables that are not set.
func Load() (*Config, error) {
	src := source{}
	if path := os.Getenv("SCANNER_CONFIG"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	var err error
	cfg := &Config{
		CaptureDevice:    src.str("CAPTURE_DEVICE", ""),
		DatabasePath:     src.str("DATABASE_PATH", "./data/scanner.db"),
		LogLevel:         src.str("LOG_LEVEL", "info"),
		TelegramBotToken: src.str("TELEGRAM_BOT_TOKEN", ""),
		MetricsAddr:      src.str("METRICS_ADDR", ""),
	}

	if cfg.ScanMode, err = model.ParseScanMode(src.str("SCAN_MODE", string(model.ModeOnce))); err != nil {
		return nil, fmt.Errorf("invalid SCAN_MODE: %w", err)
	}
	if cfg.ScanInterval, err = src.duration("SCAN_INTERVAL", scanner.DefaultInterval); err != nil {
		return nil, err
	}
	if cfg.FrameInterval, err = src.duration("FRAME_INTERVAL", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.PreferSpeed, err = src.boolean("PREFER_SPEED", false); err != nil {
		return nil, err
	}
	if cfg.ShowViewfinder, err = src.boolean("SHOW_VIEWFINDER", false); err != nil {
		return nil, err
	}
	if cfg.FeedbackOnSuccess, err = src.boolean("FEEDBACK_ON_SUCCESS", true); err != nil {
		return nil, err
	}
	if cfg.TorchOn, err = src.boolean("TORCH_ON", false); err != nil {
		return nil, err
	}
	if cfg.FeedPreview, err = src.boolean("FEED_PREVIEW", false); err != nil {
		return nil, err
	}

	cfg.CodeKinds = []model.CodeKind{model.KindQR}
	if raw, ok := src.lookup("CODE_KINDS", ","); ok {
		cfg.CodeKinds = nil
		for _, s := range raw {
			if strings.TrimSpace(s) == "" {
				continue
			}
			k, err := model.ParseCodeKind(s)
			if err != nil {
				return nil, fmt.Errorf("invalid CODE_KINDS: %w", err)
			}
			cfg.CodeKinds = append(cfg.CodeKinds, k)
		}
		if len(cfg.CodeKinds) == 0 {
			return nil, fmt.Errorf("CODE_KINDS must name at least one code kind")
		}
	}

	if raw, ok := src.lookup("SIMULATED_DATA", "|"); ok {
		cfg.SimulatedData = raw
	}

	if raw, ok := src.lookup("ALLOWED_USERS", ","); ok {
		for _, s := range raw {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	if raw := src.str("NOTIFY_CHAT_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid NOTIFY_CHAT_ID %q: %w", raw, err)
		}
		cfg.NotifyChatID = id
	}
	if cfg.TelegramBotToken != "" && cfg.NotifyChatID == 0 {
		return nil, fmt.Errorf("NOTIFY_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return cfg, nil
}

// readFile loads a YAML mapping of settings. Scalars become one-element lists.
func readFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		key := strings.ToLower(k)
		switch val := v.(type) {
		case nil:
		case []any:
			for _, item := range val {
				out[key] = append(out[key], fmt.Sprint(item))
			}
		default:
			out[key] = []string{fmt.Sprint(val)}
		}
	}
	return out, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// ScannerOptions returns the scan controller options.
func (c *Config) ScannerOptions() scanner.Options {
	return scanner.Options{
		Mode:              c.ScanMode,
		Interval:          c.ScanInterval,
		FeedbackOnSuccess: c.FeedbackOnSuccess,
	}
}
