package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Verifier confirms that a file on disk is a structurally valid,
// non-corrupt instance of the live data-store format.
type Verifier interface {
	// Verify opens the file read-only and runs a structural check plus a
	// minimal read query. A nil error means the file is a well-formed
	// data store.
	Verify(path string) error
}

// VerifyReport classifies every cataloged artifact after a full sweep.
type VerifyReport struct {
	Valid     []string // filenames that passed verification
	Corrupted []string // filenames that failed
	// Corrective is the backup taken in response to finding corruption,
	// nil when everything was valid or the corrective backup failed.
	Corrective *Artifact
}

// VerifyArtifact re-checks a single registered artifact: the recorded
// checksum must still match the file, and the unpacked contents must be a
// valid data store. unlock is required for sealed artifacts.
func (s *Service) VerifyArtifact(filename string, unlock DecryptionContext) error {
	artifact, err := s.catalog.Get(filename)
	if err != nil {
		return fmt.Errorf("looking up artifact: %w", err)
	}
	if artifact == nil {
		return ErrArtifactNotFound
	}

	sum, err := Checksum(artifact.Path)
	if err != nil {
		return &IntegrityError{Path: artifact.Path, Reason: "artifact unreadable", Err: err}
	}
	if sum != artifact.Checksum {
		return &IntegrityError{Path: artifact.Path, Reason: "checksum mismatch"}
	}

	tmpDir, err := os.MkdirTemp("", "aurum-verify-*")
	if err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath, err := s.unpackArtifact(artifact, unlock, tmpDir)
	if err != nil {
		return err
	}

	if err := s.verifier.Verify(dbPath); err != nil {
		return &IntegrityError{Path: artifact.Path, Reason: "artifact contents failed verification", Err: err}
	}
	return nil
}

// VerifyAll sweeps every cataloged artifact and classifies it as valid or
// corrupted. Finding any corruption triggers an immediate corrective
// backup of the live store; a failure of that corrective backup is
// reported in the error but does not invalidate the report.
func (s *Service) VerifyAll(unlock DecryptionContext) (*VerifyReport, error) {
	artifacts, err := s.catalog.List()
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	report := &VerifyReport{}
	for _, a := range artifacts {
		if err := s.VerifyArtifact(a.Filename, unlock); err != nil {
			s.logger.Warn("artifact failed verification", "filename", a.Filename, "error", err)
			report.Corrupted = append(report.Corrupted, a.Filename)
			continue
		}
		report.Valid = append(report.Valid, a.Filename)
	}

	if len(report.Corrupted) == 0 {
		return report, nil
	}

	corrective, err := s.CreateBackup(KindManual)
	if err != nil {
		return report, fmt.Errorf("corrective backup after corruption: %w", err)
	}
	report.Corrective = corrective
	s.logger.Info("corrective backup created", "filename", corrective.Filename, "corrupted", len(report.Corrupted))
	return report, nil
}

// unpackArtifact unseals (when needed) and decompresses an artifact into
// dir, returning the path of the raw data-store file.
func (s *Service) unpackArtifact(artifact *Artifact, unlock DecryptionContext, dir string) (string, error) {
	gzPath := artifact.Path

	if artifact.Sealed {
		if unlock == nil {
			return "", fmt.Errorf("artifact %s is sealed but no passphrase was provided", artifact.Filename)
		}
		gzPath = filepath.Join(dir, rawName(artifact.Filename)+".gz")
		if err := unsealFile(unlock, artifact.Path, gzPath); err != nil {
			return "", fmt.Errorf("unsealing artifact: %w", err)
		}
	}

	dbPath := filepath.Join(dir, rawName(artifact.Filename))
	if _, err := Decompress(gzPath, dbPath); err != nil {
		return "", err
	}
	return dbPath, nil
}

// unsealFile decrypts src into dst using an unlocked decryption context.
func unsealFile(unlock DecryptionContext, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	err = unlock.Unseal(in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
