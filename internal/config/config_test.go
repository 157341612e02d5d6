package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"codescanner/internal/model"
	"codescanner/internal/scanner"
)

var allKeys = []string{
	"SCANNER_CONFIG", "SCAN_MODE", "SCAN_INTERVAL", "CODE_KINDS", "PREFER_SPEED",
	"SHOW_VIEWFINDER", "FEEDBACK_ON_SUCCESS", "TORCH_ON", "CAPTURE_DEVICE",
	"SIMULATED_DATA", "FRAME_INTERVAL", "DATABASE_PATH", "LOG_LEVEL",
	"TELEGRAM_BOT_TOKEN", "NOTIFY_CHAT_ID", "ALLOWED_USERS", "METRICS_ADDR", "FEED_PREVIEW",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func defaults() *Config {
	return &Config{
		ScanMode:          model.ModeOnce,
		ScanInterval:      2 * time.Second,
		CodeKinds:         []model.CodeKind{model.KindQR},
		FeedbackOnSuccess: true,
		FrameInterval:     200 * time.Millisecond,
		DatabasePath:      "./data/scanner.db",
		LogLevel:          "info",
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    func(c *Config)
		wantErr bool
	}{
		{
			name: "defaults applied",
			env:  map[string]string{},
			want: func(*Config) {},
		},
		{
			name: "scanner values set",
			env: map[string]string{
				"SCAN_MODE":           "continuous",
				"SCAN_INTERVAL":       "500ms",
				"CODE_KINDS":          "qr, ean13,aztec",
				"PREFER_SPEED":        "true",
				"SHOW_VIEWFINDER":     "1",
				"FEEDBACK_ON_SUCCESS": "false",
				"TORCH_ON":            "true",
				"CAPTURE_DEVICE":      "usb-cam",
				"SIMULATED_DATA":      "https://a.example|WIFI:S:x;;",
				"FRAME_INTERVAL":      "1s",
			},
			want: func(c *Config) {
				c.ScanMode = model.ModeContinuous
				c.ScanInterval = 500 * time.Millisecond
				c.CodeKinds = []model.CodeKind{model.KindQR, model.KindEAN13, model.KindAztec}
				c.PreferSpeed = true
				c.ShowViewfinder = true
				c.FeedbackOnSuccess = false
				c.TorchOn = true
				c.CaptureDevice = "usb-cam"
				c.SimulatedData = []string{"https://a.example", "WIFI:S:x;;"}
				c.FrameInterval = time.Second
			},
		},
		{
			name: "interval in plain seconds",
			env:  map[string]string{"SCAN_INTERVAL": "2.5"},
			want: func(c *Config) { c.ScanInterval = 2500 * time.Millisecond },
		},
		{
			name: "telegram values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"NOTIFY_CHAT_ID":     "-100123",
				"ALLOWED_USERS":      " 10 , 20 , ",
				"DATABASE_PATH":      "/tmp/scan.db",
				"LOG_LEVEL":          "debug",
				"METRICS_ADDR":       ":9090",
				"FEED_PREVIEW":       "true",
			},
			want: func(c *Config) {
				c.TelegramBotToken = "tok"
				c.NotifyChatID = -100123
				c.AllowedUsers = []int64{10, 20}
				c.DatabasePath = "/tmp/scan.db"
				c.LogLevel = "debug"
				c.MetricsAddr = ":9090"
				c.FeedPreview = true
			},
		},
		{
			name:    "token without chat",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok"},
			wantErr: true,
		},
		{
			name:    "invalid mode",
			env:     map[string]string{"SCAN_MODE": "sometimes"},
			wantErr: true,
		},
		{
			name:    "negative interval",
			env:     map[string]string{"SCAN_INTERVAL": "-1s"},
			wantErr: true,
		},
		{
			name:    "unknown code kind",
			env:     map[string]string{"CODE_KINDS": "qr,hologram"},
			wantErr: true,
		},
		{
			name:    "invalid bool",
			env:     map[string]string{"TORCH_ON": "maybe"},
			wantErr: true,
		},
		{
			name:    "invalid user id",
			env:     map[string]string{"ALLOWED_USERS": "123,abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := defaults()
			tt.want(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "scanner.yaml")
	content := `scan_mode: once_per_code
scan_interval: 3s
code_kinds: [qr, pdf417]
simulated_data:
  - "first, with comma"
  - second
torch_on: true
notify_chat_id: 42
telegram_bot_token: from-file
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCANNER_CONFIG", path)
	t.Setenv("SCAN_INTERVAL", "4s")

	got, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := defaults()
	want.ScanMode = model.ModeOncePerCode
	want.ScanInterval = 4 * time.Second
	want.CodeKinds = []model.CodeKind{model.KindQR, model.KindPDF417}
	want.SimulatedData = []string{"first, with comma", "second"}
	want.TorchOn = true
	want.NotifyChatID = 42
	want.TelegramBotToken = "from-file"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCANNER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scan_mode: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCANNER_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestScannerOptions(t *testing.T) {
	cfg := &Config{ScanMode: model.ModeContinuous, ScanInterval: time.Second, FeedbackOnSuccess: true}
	want := scanner.Options{Mode: model.ModeContinuous, Interval: time.Second, FeedbackOnSuccess: true}
	if diff := cmp.Diff(want, cfg.ScannerOptions()); diff != "" {
		t.Errorf("ScannerOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{
			name:         "empty list allows everyone",
			allowedUsers: nil,
			userID:       42,
			want:         true,
		},
		{
			name:         "user in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       20,
			want:         true,
		},
		{
			name:         "user not in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       99,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AllowedUsers: tt.allowedUsers}
			got := cfg.IsUserAllowed(tt.userID)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IsUserAllowed() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
