package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for aurum.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Backup     BackupConfig     `toml:"backup"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// DatabaseConfig locates the live store database.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// BackupConfig controls the backup executor, scheduler and retention.
type BackupConfig struct {
	Dir           string        `toml:"dir"`
	MaxBackups    int           `toml:"max_backups"`
	Interval      time.Duration `toml:"interval"`
	RetryDelay    time.Duration `toml:"retry_delay"`
	PruneInterval time.Duration `toml:"prune_interval"`
	WebhookURL    string        `toml:"webhook_url,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to seal artifacts.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age", or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig configures an offsite replication target.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// NewConfig creates a Config with the provided base directory and defaults
// for everything else.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Path: filepath.Join(baseDir, "aurum.db"),
		},
		Backup: BackupConfig{
			Dir:           filepath.Join(baseDir, "backups"),
			MaxBackups:    14,
			Interval:      24 * time.Hour,
			RetryDelay:    15 * time.Minute,
			PruneInterval: time.Hour,
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "aurum.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "aurum.key"),
		},
	}
}

// Validate checks the durations and counters the scheduler depends on.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("backup.dir is required")
	}
	if c.Backup.MaxBackups < 1 {
		return fmt.Errorf("backup.max_backups must be at least 1, got %d", c.Backup.MaxBackups)
	}
	if c.Backup.Interval <= 0 {
		return fmt.Errorf("backup.interval must be positive")
	}
	if c.Backup.RetryDelay <= 0 {
		return fmt.Errorf("backup.retry_delay must be positive")
	}
	if c.Backup.PruneInterval <= 0 {
		return fmt.Errorf("backup.prune_interval must be positive")
	}
	for i, v := range c.Vaults {
		switch v.Type {
		case "memory", "filesystem", "s3":
		default:
			return fmt.Errorf("vaults[%d]: unknown type %q", i, v.Type)
		}
	}
	switch c.Encryption.Type {
	case "", "none", "age", "test":
	default:
		return fmt.Errorf("encryption.type must be none, age or test, got %q", c.Encryption.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
