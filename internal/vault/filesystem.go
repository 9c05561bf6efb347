package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"aurum/internal/backup"
)

// FileSystemVault replicates artifacts into a directory, typically on a
// different disk or a mounted network share:
//
//	<root>/
//	  artifacts/
//	    <filename>     (artifact files, named as in the local backup dir)
type FileSystemVault struct {
	name        string
	root        string
	artifactDir string
}

// NewFileSystemVault creates a filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	artifactDir := filepath.Join(root, "artifacts")
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		artifactDir: artifactDir,
	}, nil
}

// PutArtifact stores an artifact's bytes under its filename.
// The operation is idempotent: storing the same filename twice is safe.
func (v *FileSystemVault) PutArtifact(filename string, r io.Reader, size int64) error {
	destPath := filepath.Join(v.artifactDir, filename)

	// Already replicated: consume the reader and verify size only.
	if _, err := os.Stat(destPath); err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read artifact: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return v.writeFile(destPath, r, size)
}

// GetArtifact retrieves an artifact's bytes by filename and writes them to w.
func (v *FileSystemVault) GetArtifact(filename string, w io.Writer) error {
	srcPath := filepath.Join(v.artifactDir, filename)
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("artifact not found: %s", filename)
		}
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.artifactDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write
// (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Temp file in the same directory so the rename stays atomic
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements backup.Vault
var _ backup.Vault = (*FileSystemVault)(nil)
