package backup_test

import (
	"errors"
	"testing"

	"aurum/internal/backup"
)

func TestRestore_RejectsWrongToken(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "lowercase", token: "confirm_restore"},
		{name: "close but wrong", token: "CONFIRM-RESTORE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Restore("anything", tt.token, nil)
			if !errors.Is(err, backup.ErrConfirmation) {
				t.Errorf("Restore() error = %v, want ErrConfirmation", err)
			}
		})
	}

	// Nothing was mutated: the catalog is still empty.
	artifacts, err := env.cat.List()
	if err != nil {
		t.Fatalf("catalog List() error = %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("catalog has %d artifacts after rejected restores, want 0", len(artifacts))
	}
}

func TestRestore_UnknownArtifact(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	_, err := env.svc.Restore("no-such-artifact.db.gz", backup.ConfirmationToken, nil)
	if !errors.Is(err, backup.ErrArtifactNotFound) {
		t.Errorf("Restore() error = %v, want ErrArtifactNotFound", err)
	}
}

func TestRestore_Success(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	target, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	// The live store moves on after the backup was taken.
	env.setLive(t, "live content v2")

	result, err := env.svc.Restore(target.Filename, backup.ConfirmationToken, nil)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if result.State != backup.StateVerified {
		t.Errorf("State = %q, want %q", result.State, backup.StateVerified)
	}
	if got := env.liveContent(t); got != "live content v1" {
		t.Errorf("live content after restore = %q, want %q", got, "live content v1")
	}

	if result.SafetyArtifact == nil {
		t.Fatal("SafetyArtifact is nil, want the pre-restore safety backup")
	}
	if result.SafetyArtifact.Kind != backup.KindPreRestoreSafety {
		t.Errorf("safety Kind = %q, want %q", result.SafetyArtifact.Kind, backup.KindPreRestoreSafety)
	}

	// The safety artifact captured the state that was about to be
	// overwritten, and it stays registered after a successful restore.
	registered, err := env.cat.Get(result.SafetyArtifact.Filename)
	if err != nil {
		t.Fatalf("catalog Get() error = %v", err)
	}
	if registered == nil {
		t.Fatal("safety artifact was not registered")
	}
	if got := unpack(t, result.SafetyArtifact); got != "live content v2" {
		t.Errorf("safety artifact content = %q, want %q", got, "live content v2")
	}
}

func TestRestore_RollsBackOnFailedVerification(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	// Back up content carrying a marker while the verifier accepts it.
	env.setLive(t, "tainted MARKER content")
	target, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	// The live store is replaced with clean content and the verifier now
	// rejects the marker: restoring the old backup must fail verification
	// after the swap and roll the safety copy back.
	env.setLive(t, "clean content")
	env.verifier.bad = "MARKER"

	result, err := env.svc.Restore(target.Filename, backup.ConfirmationToken, nil)
	if err == nil {
		t.Fatal("Restore() should fail when the restored store fails verification")
	}
	if !backup.IsIntegrityError(err) {
		t.Errorf("error = %v, want an integrity error", err)
	}

	if result.State != backup.StateRolledBack {
		t.Errorf("State = %q, want %q", result.State, backup.StateRolledBack)
	}
	if got := env.liveContent(t); got != "clean content" {
		t.Errorf("live content after rollback = %q, want %q", got, "clean content")
	}
	if result.SafetyArtifact == nil {
		t.Error("SafetyArtifact is nil, want it registered even after rollback")
	}
}

func TestRestore_SafetyBackupFailureLeavesLiveUntouched(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	target, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	// The verifier now rejects everything, so the pre-restore safety
	// backup cannot be taken and the restore stops before touching live
	// state.
	env.verifier.bad = "live content"

	result, err := env.svc.Restore(target.Filename, backup.ConfirmationToken, nil)
	if err == nil {
		t.Fatal("Restore() should fail when the safety backup fails")
	}
	if result.State != backup.StateRequested {
		t.Errorf("State = %q, want %q", result.State, backup.StateRequested)
	}
	if result.SafetyArtifact != nil {
		t.Error("SafetyArtifact should be nil when the safety backup failed")
	}
	if got := env.liveContent(t); got != "live content v1" {
		t.Errorf("live content = %q, want untouched %q", got, "live content v1")
	}
}

func TestRestore_SealedRequiresUnlock(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	// Register a sealed artifact by hand; the service itself is unsealed,
	// so only the target's Sealed flag forces the passphrase requirement.
	if err := env.cat.Register(&backup.Artifact{
		Filename: "aurum-20260315T100000Z-manual.db.gz.age",
		Path:     "unused",
		Sealed:   true,
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := env.svc.Restore("aurum-20260315T100000Z-manual.db.gz.age", backup.ConfirmationToken, nil)
	if err == nil {
		t.Fatal("Restore() of a sealed artifact without unlock should fail")
	}
	if errors.Is(err, backup.ErrConfirmation) || errors.Is(err, backup.ErrArtifactNotFound) {
		t.Errorf("unexpected sentinel error: %v", err)
	}
}
