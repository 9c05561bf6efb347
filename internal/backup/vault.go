package backup

import "io"

// Vault is the offsite replication target for artifacts: an external
// collaborator with a plain store-bytes/fetch-bytes contract. Replication
// is best-effort and never affects the outcome of a backup.
type Vault interface {
	// PutArtifact stores an artifact's bytes under its filename.
	// The operation is idempotent: storing the same filename twice is safe.
	// size is the number of bytes that will be read from r.
	PutArtifact(filename string, r io.Reader, size int64) error

	// GetArtifact retrieves an artifact's bytes by filename and writes
	// them to w.
	GetArtifact(filename string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}
