package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"aurum/internal/backup"
)

// MemoryVault keeps replicated artifacts in memory, which makes it useful
// for testing. Safe for concurrent use.
type MemoryVault struct {
	name      string
	artifacts map[string][]byte // filename -> bytes
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		artifacts: make(map[string][]byte),
	}
}

// PutArtifact stores an artifact's bytes under its filename.
func (m *MemoryVault) PutArtifact(filename string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: the last write for a filename wins
	m.artifacts[filename] = data
	return nil
}

// GetArtifact retrieves an artifact's bytes by filename.
func (m *MemoryVault) GetArtifact(filename string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.artifacts[filename]
	if !ok {
		return fmt.Errorf("artifact not found: %s", filename)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for the in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Len returns the number of stored artifacts.
func (m *MemoryVault) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts)
}

// Compile-time check that MemoryVault implements backup.Vault
var _ backup.Vault = (*MemoryVault)(nil)
