package backup

import (
	"path/filepath"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	for _, raw := range []string{"scheduled", "manual", "pre-restore-safety"} {
		if _, err := ParseKind(raw); err != nil {
			t.Errorf("ParseKind(%q) error = %v", raw, err)
		}
	}
	if _, err := ParseKind("hourly"); err == nil {
		t.Error("ParseKind(\"hourly\") should fail")
	}
}

func TestArtifactFilename(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	got := ArtifactFilename(created, KindManual, false)
	if want := "aurum-20260314T092653Z-manual.db.gz"; got != want {
		t.Errorf("ArtifactFilename() = %s, want %s", got, want)
	}

	got = ArtifactFilename(created, KindScheduled, true)
	if want := "aurum-20260314T092653Z-scheduled.db.gz.age"; got != want {
		t.Errorf("ArtifactFilename(sealed) = %s, want %s", got, want)
	}
}

func TestArtifactModTime(t *testing.T) {
	path := writeTempFile(t, "snapshot.db.gz", []byte("payload"))

	art := &Artifact{Path: path}
	mt := art.ModTime()
	if mt.IsZero() {
		t.Fatal("ModTime() for existing file should not be zero")
	}
	if age := time.Since(mt); age < 0 || age > time.Minute {
		t.Errorf("ModTime() = %v, want recent", mt)
	}

	missing := &Artifact{Path: filepath.Join(t.TempDir(), "gone.db.gz")}
	if !missing.ModTime().IsZero() {
		t.Error("ModTime() for missing file should be zero")
	}
}
