package encryption

import (
	"fmt"

	"aurum/internal/backup"
	"aurum/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. A nil, nil return means sealing is disabled.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (backup.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
