package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				BaseURL:      "http://file:8080",
				Org:          "file-org",
				PollInterval: "5s",
				WriteRate:    0.5,
				Count:        50,
				SkipPurge:    &trueVal,
			},
			changed: map[string]bool{},
			expected: Config{
				BaseURL:      "http://file:8080",
				Org:          "file-org",
				PollInterval: 5 * time.Second,
				WriteRate:    0.5,
				Count:        50,
				SkipPurge:    true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Org: "file-org",
				App: "file-app",
			},
			changed: map[string]bool{"org": true},
			initial: Config{Org: "flag-org"},
			expected: Config{
				Org: "flag-org", // unchanged because flag was set
				App: "file-app",
			},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{MaxWait: "forever"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "explicit false overrides default",
			fileConfig: FileConfig{NoStdout: &falseVal},
			changed:    map[string]bool{},
			initial:    Config{NoStdout: true},
			expected:   Config{NoStdout: false},
		},
		{
			name: "handles all field types correctly",
			fileConfig: FileConfig{
				BaseURL:          "http://example.com",
				Org:              "org",
				App:              "app",
				Collection:       "coll",
				ClientID:         "id",
				ClientSecret:     "secret",
				Count:            10,
				Concurrency:      4,
				WriteRate:        2,
				PollInterval:     "2s",
				MaxWait:          "3m",
				MaxPolls:         5,
				QueryLimit:       20,
				MarkerField:      "kind",
				MarkerValue:      "canary",
				TemplateFile:     "/t.json",
				PurgeMaxAttempts: 9,
				PurgeDelay:       "100ms",
				SkipPurge:        &trueVal,
				HTTPTimeout:      "5s",
				LogFile:          "/var/log/ic.log",
				LogMaxSizeMB:     50,
				LogMaxBackups:    3,
				LogLevel:         "debug",
				NoStdout:         &trueVal,
				ReportDir:        "/reports",
			},
			changed: map[string]bool{},
			expected: Config{
				BaseURL:          "http://example.com",
				Org:              "org",
				App:              "app",
				Collection:       "coll",
				ClientID:         "id",
				ClientSecret:     "secret",
				Count:            10,
				Concurrency:      4,
				WriteRate:        2,
				PollInterval:     2 * time.Second,
				MaxWait:          3 * time.Minute,
				MaxPolls:         5,
				QueryLimit:       20,
				MarkerField:      "kind",
				MarkerValue:      "canary",
				TemplateFile:     "/t.json",
				PurgeMaxAttempts: 9,
				PurgeDelay:       100 * time.Millisecond,
				SkipPurge:        true,
				HTTPTimeout:      5 * time.Second,
				LogFile:          "/var/log/ic.log",
				LogMaxSizeMB:     50,
				LogMaxBackups:    3,
				LogLevel:         "debug",
				NoStdout:         true,
				ReportDir:        "/reports",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `
base_url = "http://localhost:8080"
org = "test-organization"
poll_interval = "5s"
write_rate = 12.5
count = 100
skip_purge = true
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
base_url: http://localhost:8080
org: test-organization
poll_interval: 5s
write_rate: 12.5
count: 100
skip_purge: true
`,
		},
		{
			name: "yml",
			file: "config.yml",
			content: `
base_url: http://localhost:8080
org: test-organization
poll_interval: 5s
write_rate: 12.5
count: 100
skip_purge: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			fc, err := LoadFileConfig(configPath)
			if err != nil {
				t.Fatalf("LoadFileConfig() error = %v", err)
			}

			if fc.BaseURL != "http://localhost:8080" {
				t.Errorf("BaseURL = %v, want http://localhost:8080", fc.BaseURL)
			}
			if fc.Org != "test-organization" {
				t.Errorf("Org = %v, want test-organization", fc.Org)
			}
			if fc.PollInterval != "5s" {
				t.Errorf("PollInterval = %v, want 5s", fc.PollInterval)
			}
			if fc.WriteRate != 12.5 {
				t.Errorf("WriteRate = %v, want 12.5", fc.WriteRate)
			}
			if fc.Count != 100 {
				t.Errorf("Count = %v, want 100", fc.Count)
			}
			if fc.SkipPurge == nil || !*fc.SkipPurge {
				t.Errorf("SkipPurge = %v, want true", fc.SkipPurge)
			}
		})
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidContent(t *testing.T) {
	tests := map[string]string{
		"invalid.toml": "org = \"x\"\nthis is not valid toml\n",
		"invalid.yaml": "org: [unterminated\n",
	}
	for file, content := range tests {
		t.Run(file, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), file)
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}
			if _, err := LoadFileConfig(configPath); err == nil {
				t.Errorf("LoadFileConfig() expected error for %s", file)
			}
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".indexcheck") {
		t.Errorf("DefaultConfigPath() = %v, should contain .indexcheck", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
