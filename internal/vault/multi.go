package vault

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"aurum/internal/backup"
)

// MultiVault fans out artifact replication to several vaults. Puts go to
// every vault and collect all failures; gets return from the first vault
// that has the artifact.
type MultiVault struct {
	vaults []backup.Vault
}

// NewMultiVault combines the given vaults into one replication target.
func NewMultiVault(vaults ...backup.Vault) *MultiVault {
	return &MultiVault{vaults: vaults}
}

// PutArtifact stores the artifact in every vault. The reader is buffered
// once so each vault receives the full byte stream.
func (m *MultiVault) PutArtifact(filename string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	var result *multierror.Error
	for _, v := range m.vaults {
		if err := v.PutArtifact(filename, bytes.NewReader(data), size); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// GetArtifact returns the artifact from the first vault that has it.
func (m *MultiVault) GetArtifact(filename string, w io.Writer) error {
	var result *multierror.Error
	for _, v := range m.vaults {
		if err := v.GetArtifact(filename, w); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		return nil
	}
	if result != nil {
		return result.ErrorOrNil()
	}
	return fmt.Errorf("artifact not found: %s", filename)
}

// ValidateSetup validates every vault and reports all failures.
func (m *MultiVault) ValidateSetup() error {
	var result *multierror.Error
	for _, v := range m.vaults {
		if err := v.ValidateSetup(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Compile-time check that MultiVault implements backup.Vault
var _ backup.Vault = (*MultiVault)(nil)
