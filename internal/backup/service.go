package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Service is the orchestration layer for the backup pipeline: it creates,
// verifies, lists and prunes artifacts, and restores them over the live
// data store. All dependencies are injected; the service holds no global
// state.
type Service struct {
	livePath  string // the live data-store file being protected
	backupDir string // where artifact files and their metadata live
	catalog   Catalog
	verifier  Verifier
	encryptor Encryptor // nil disables sealing
	vault     Vault     // nil disables offsite replication
	notifier  Notifier
	logger    Logger
	clock     Clock
}

// NewService creates a Service with the provided dependencies.
// encryptor and vault may be nil; notifier must not be (use NopNotifier).
func NewService(livePath, backupDir string, catalog Catalog, verifier Verifier, encryptor Encryptor, vault Vault, notifier Notifier, logger Logger, clock Clock) *Service {
	return &Service{
		livePath:  livePath,
		backupDir: backupDir,
		catalog:   catalog,
		verifier:  verifier,
		encryptor: encryptor,
		vault:     vault,
		notifier:  notifier,
		logger:    logger,
		clock:     clock,
	}
}

// sealing reports whether artifacts are sealed at rest.
func (s *Service) sealing() bool { return s.encryptor != nil }

// CreateBackup takes one consistent snapshot of the live data store,
// verifies it, compresses (and optionally seals) it, and registers the
// resulting artifact. Any failure after the raw copy cleans up partials;
// nothing is registered unless every step succeeded. The outcome
// notification and offsite replication are fire-and-forget.
func (s *Service) CreateBackup(kind Kind) (*Artifact, error) {
	artifact, err := s.createBackup(kind)
	if err != nil {
		go s.notifier.BackupFailed(kind, err)
		return nil, err
	}

	go s.notifier.BackupSucceeded(artifact)
	if s.vault != nil {
		go s.replicate(artifact)
	}
	return artifact, nil
}

func (s *Service) createBackup(kind Kind) (*Artifact, error) {
	info, err := os.Stat(s.livePath)
	if err != nil {
		return nil, fmt.Errorf("live data store not accessible: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("live data store is not a regular file: %s", s.livePath)
	}

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	createdAt, filename, err := s.uniqueFilename(kind)
	if err != nil {
		return nil, err
	}

	// Raw byte-for-byte copy. A copy taken mid-write is acceptable: the
	// verifier below catches an inconsistent copy and the artifact is
	// simply discarded.
	rawPath := filepath.Join(s.backupDir, rawName(filename))
	if _, err := copyFile(s.livePath, rawPath); err != nil {
		return nil, fmt.Errorf("snapshotting live data store: %w", err)
	}

	if err := s.verifier.Verify(rawPath); err != nil {
		os.Remove(rawPath)
		return nil, &IntegrityError{Path: rawPath, Reason: "snapshot failed verification", Err: err}
	}

	gzPath := rawPath + ".gz"
	if _, err := Compress(rawPath, gzPath); err != nil {
		os.Remove(rawPath)
		return nil, err
	}
	os.Remove(rawPath)

	finalPath := gzPath
	if s.sealing() {
		sealedPath := gzPath + ".age"
		if err := s.sealFile(gzPath, sealedPath); err != nil {
			os.Remove(gzPath)
			return nil, fmt.Errorf("sealing artifact: %w", err)
		}
		os.Remove(gzPath)
		finalPath = sealedPath
	}

	checksum, err := Checksum(finalPath)
	if err != nil {
		os.Remove(finalPath)
		return nil, err
	}

	finalInfo, err := os.Stat(finalPath)
	if err != nil {
		os.Remove(finalPath)
		return nil, fmt.Errorf("stating artifact: %w", err)
	}

	artifact := &Artifact{
		Filename:  filename,
		Path:      finalPath,
		SizeBytes: finalInfo.Size(),
		Checksum:  checksum,
		CreatedAt: createdAt,
		Kind:      kind,
		Sealed:    s.sealing(),
	}

	if err := s.catalog.Register(artifact); err != nil {
		os.Remove(finalPath)
		return nil, fmt.Errorf("registering artifact: %w", err)
	}

	s.logger.Info("backup created", "filename", filename, "kind", string(kind), "size", finalInfo.Size())
	return artifact, nil
}

// uniqueFilename picks a creation timestamp whose artifact filename is not
// already registered, stepping forward one second at a time on collision.
func (s *Service) uniqueFilename(kind Kind) (time.Time, string, error) {
	createdAt := s.clock.Now().UTC()
	for {
		filename := ArtifactFilename(createdAt, kind, s.sealing())
		existing, err := s.catalog.Get(filename)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("checking artifact filename: %w", err)
		}
		if existing == nil {
			return createdAt, filename, nil
		}
		createdAt = createdAt.Add(time.Second)
	}
}

// rawName strips the compression and seal suffixes off an artifact
// filename, leaving the name of the uncompressed intermediate.
func rawName(filename string) string {
	name := strings.TrimSuffix(filename, ".age")
	return strings.TrimSuffix(name, ".gz")
}

// sealFile encrypts src into dst using the configured encryptor.
func (s *Service) sealFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	err = s.encryptor.Seal(in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// replicate pushes an artifact to the offsite vault. Failures are logged
// and dropped: replication never affects the backup outcome.
func (s *Service) replicate(artifact *Artifact) {
	f, err := os.Open(artifact.Path)
	if err != nil {
		s.logger.Warn("offsite replication skipped", "filename", artifact.Filename, "error", err)
		return
	}
	defer f.Close()

	if err := s.vault.PutArtifact(artifact.Filename, f, artifact.SizeBytes); err != nil {
		s.logger.Warn("offsite replication failed", "filename", artifact.Filename, "error", err)
		return
	}
	s.logger.Debug("artifact replicated offsite", "filename", artifact.Filename)
}

// ListArtifacts returns all registered artifacts sorted ascending by
// creation time.
func (s *Service) ListArtifacts() ([]*Artifact, error) {
	return s.catalog.List()
}
