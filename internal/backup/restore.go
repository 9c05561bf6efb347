package backup

import (
	"fmt"
	"os"
)

// RestoreState tracks the restore protocol. Terminal states are
// StateVerified (success) and StateRolledBack (failure after the swap).
type RestoreState string

const (
	StateRequested         RestoreState = "requested"
	StateSafetyBackupTaken RestoreState = "safety-backup-taken"
	StateSwapped           RestoreState = "swapped"
	StateVerified          RestoreState = "verified"
	StateRolledBack        RestoreState = "rolled-back"
)

// RestoreResult reports how far a restore got and which artifacts were
// involved. SafetyArtifact is non-nil from StateSafetyBackupTaken onward,
// regardless of the final outcome.
type RestoreResult struct {
	State          RestoreState
	Target         *Artifact
	SafetyArtifact *Artifact
}

// Restore swaps the named artifact in as the live data store. A restore is
// destructive, so the protocol is safety-first: nothing touches live state
// until a pre-restore-safety backup has been registered, and a
// verification failure after the swap rolls the safety copy back before an
// error is returned. Callers must treat restore as a stop-the-world
// administrative operation; no concurrency guarantee is made between the
// swap and the re-verification.
//
// confirmationToken must equal ConfirmationToken exactly. unlock is
// required when the target or newly created safety artifacts are sealed.
func (s *Service) Restore(filename, confirmationToken string, unlock DecryptionContext) (*RestoreResult, error) {
	if confirmationToken != ConfirmationToken {
		return nil, ErrConfirmation
	}

	target, err := s.catalog.Get(filename)
	if err != nil {
		return nil, fmt.Errorf("looking up artifact: %w", err)
	}
	if target == nil {
		return nil, ErrArtifactNotFound
	}
	if (target.Sealed || s.sealing()) && unlock == nil {
		return nil, fmt.Errorf("restore requires a passphrase: sealed artifacts are involved")
	}

	result := &RestoreResult{State: StateRequested, Target: target}
	s.logger.Info("restore requested", "filename", filename)

	safety, err := s.CreateBackup(KindPreRestoreSafety)
	if err != nil {
		return result, fmt.Errorf("pre-restore safety backup failed, live state untouched: %w", err)
	}
	result.SafetyArtifact = safety
	result.State = StateSafetyBackupTaken

	// Unpack inside the backup directory so the final rename stays on one
	// filesystem and is atomic.
	tmpDir, err := os.MkdirTemp(s.backupDir, ".restore-*")
	if err != nil {
		return result, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath, err := s.unpackArtifact(target, unlock, tmpDir)
	if err != nil {
		return result, fmt.Errorf("unpacking target artifact, live state untouched: %w", err)
	}

	if err := os.Rename(dbPath, s.livePath); err != nil {
		return result, fmt.Errorf("swapping live data store, live state untouched: %w", err)
	}
	result.State = StateSwapped

	if err := s.verifier.Verify(s.livePath); err != nil {
		verifyErr := &IntegrityError{Path: s.livePath, Reason: "restored data store failed verification", Err: err}
		s.logger.Error("restore verification failed, rolling back", "filename", filename, "error", err)

		if rbErr := s.swapInArtifact(safety, unlock, tmpDir); rbErr != nil {
			// The live file is in a verified-bad state and the rollback
			// could not be applied. Surface both; the safety artifact is
			// still registered and can be restored once the cause clears.
			return result, fmt.Errorf("rollback failed after %v: %w", verifyErr, rbErr)
		}
		result.State = StateRolledBack
		return result, verifyErr
	}

	result.State = StateVerified
	s.logger.Info("restore complete", "filename", filename, "safety", safety.Filename)
	return result, nil
}

// swapInArtifact unpacks an artifact and renames it over the live file.
func (s *Service) swapInArtifact(artifact *Artifact, unlock DecryptionContext, dir string) error {
	rollbackDir, err := os.MkdirTemp(dir, "rollback-*")
	if err != nil {
		return fmt.Errorf("creating rollback directory: %w", err)
	}

	dbPath, err := s.unpackArtifact(artifact, unlock, rollbackDir)
	if err != nil {
		return fmt.Errorf("unpacking safety artifact: %w", err)
	}

	if err := os.Rename(dbPath, s.livePath); err != nil {
		return fmt.Errorf("swapping safety copy in: %w", err)
	}
	return nil
}
