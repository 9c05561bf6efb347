package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/aurum",
		LogDir:  "/home/user/.local/share/aurum/log",
		Database: DatabaseConfig{
			Path: "/home/user/.local/share/aurum/aurum.db",
		},
		Backup: BackupConfig{
			Dir:           "/home/user/.local/share/aurum/backups",
			MaxBackups:    7,
			Interval:      12 * time.Hour,
			RetryDelay:    5 * time.Minute,
			PruneInterval: time.Hour,
			WebhookURL:    "https://example.com/hook",
		},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/aurum/keys/aurum.pub",
			PrivateKeyPath: "/home/user/.local/share/aurum/keys/aurum.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database.Path != original.Database.Path {
		t.Errorf("Database.Path = %q, want %q", got.Database.Path, original.Database.Path)
	}
	if got.Backup.MaxBackups != 7 {
		t.Errorf("Backup.MaxBackups = %d, want 7", got.Backup.MaxBackups)
	}
	if got.Backup.Interval != 12*time.Hour {
		t.Errorf("Backup.Interval = %v, want %v", got.Backup.Interval, 12*time.Hour)
	}
	if got.Backup.RetryDelay != 5*time.Minute {
		t.Errorf("Backup.RetryDelay = %v, want %v", got.Backup.RetryDelay, 5*time.Minute)
	}
	if got.Backup.WebhookURL != original.Backup.WebhookURL {
		t.Errorf("Backup.WebhookURL = %q, want %q", got.Backup.WebhookURL, original.Backup.WebhookURL)
	}
	if len(got.Vaults) != 1 {
		t.Fatalf("len(Vaults) = %d, want 1", len(got.Vaults))
	}
	if got.Vaults[0].Type != "filesystem" {
		t.Errorf("Vault.Type = %q, want %q", got.Vaults[0].Type, "filesystem")
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vault.FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if got.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q, want %q", got.Encryption.Type, "age")
	}
	if got.Encryption.PublicKeyPath != original.Encryption.PublicKeyPath {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", got.Encryption.PublicKeyPath, original.Encryption.PublicKeyPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/aurum")

	if cfg.BaseDir != "/data/aurum" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/aurum")
	}
	if cfg.LogDir != "/data/aurum/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/aurum/log")
	}
	if cfg.Database.Path != "/data/aurum/aurum.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/data/aurum/aurum.db")
	}
	if cfg.Backup.Dir != "/data/aurum/backups" {
		t.Errorf("Backup.Dir = %q, want %q", cfg.Backup.Dir, "/data/aurum/backups")
	}
	if cfg.Encryption.Type != "none" {
		t.Errorf("Encryption.Type = %q, want %q", cfg.Encryption.Type, "none")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "missing backup dir", mutate: func(c *Config) { c.Backup.Dir = "" }, wantErr: true},
		{name: "zero retention", mutate: func(c *Config) { c.Backup.MaxBackups = 0 }, wantErr: true},
		{name: "negative interval", mutate: func(c *Config) { c.Backup.Interval = -time.Hour }, wantErr: true},
		{name: "zero retry delay", mutate: func(c *Config) { c.Backup.RetryDelay = 0 }, wantErr: true},
		{name: "unknown vault type", mutate: func(c *Config) {
			c.Vaults = []VaultConfig{{Type: "carrier-pigeon"}}
		}, wantErr: true},
		{name: "unknown encryption type", mutate: func(c *Config) { c.Encryption.Type = "rot13" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data/aurum")
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "aurum.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "aurum.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "aurum.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.BaseDir != dir {
			t.Errorf("BaseDir = %q, want %q", got.BaseDir, dir)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/aurum.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
