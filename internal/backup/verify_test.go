package backup_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"aurum/internal/backup"
)

func TestVerifyArtifact(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	artifact, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	if err := env.svc.VerifyArtifact(artifact.Filename, nil); err != nil {
		t.Errorf("VerifyArtifact() error = %v, want nil", err)
	}
}

func TestVerifyArtifact_ChecksumMismatch(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	artifact, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	// Flip the artifact's bytes on disk after registration.
	f, err := os.OpenFile(artifact.Path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("opening artifact: %v", err)
	}
	if _, err := f.Write([]byte("garbage")); err != nil {
		t.Fatalf("corrupting artifact: %v", err)
	}
	f.Close()

	err = env.svc.VerifyArtifact(artifact.Filename, nil)
	if err == nil {
		t.Fatal("VerifyArtifact() should fail on a corrupted artifact")
	}
	if !backup.IsIntegrityError(err) {
		t.Errorf("error = %v, want an integrity error", err)
	}
}

func TestVerifyArtifact_NotRegistered(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	err := env.svc.VerifyArtifact("no-such-artifact.db.gz", nil)
	if !errors.Is(err, backup.ErrArtifactNotFound) {
		t.Errorf("VerifyArtifact() error = %v, want ErrArtifactNotFound", err)
	}
}

func TestVerifyAll(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	good, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	env.clock.now = env.clock.now.Add(time.Hour)
	bad, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if err := os.WriteFile(bad.Path, []byte("not a gzip stream"), 0644); err != nil {
		t.Fatalf("corrupting artifact: %v", err)
	}

	env.clock.now = env.clock.now.Add(time.Hour)
	report, err := env.svc.VerifyAll(nil)
	if err != nil {
		t.Fatalf("VerifyAll() error = %v", err)
	}

	if len(report.Valid) != 1 || report.Valid[0] != good.Filename {
		t.Errorf("Valid = %v, want [%s]", report.Valid, good.Filename)
	}
	if len(report.Corrupted) != 1 || report.Corrupted[0] != bad.Filename {
		t.Errorf("Corrupted = %v, want [%s]", report.Corrupted, bad.Filename)
	}
	if report.Corrective == nil {
		t.Fatal("Corrective is nil, want a corrective backup after corruption")
	}
	if report.Corrective.Kind != backup.KindManual {
		t.Errorf("Corrective.Kind = %q, want %q", report.Corrective.Kind, backup.KindManual)
	}
}

func TestVerifyAll_AllValid(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	if _, err := env.svc.CreateBackup(backup.KindManual); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	report, err := env.svc.VerifyAll(nil)
	if err != nil {
		t.Fatalf("VerifyAll() error = %v", err)
	}
	if len(report.Corrupted) != 0 {
		t.Errorf("Corrupted = %v, want none", report.Corrupted)
	}
	if report.Corrective != nil {
		t.Error("Corrective should be nil when every artifact is valid")
	}
}
