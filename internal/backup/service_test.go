package backup_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aurum/internal/backup"
	"aurum/internal/catalog"
	"aurum/internal/encryption"
	"aurum/internal/vault"
)

// contentVerifier fails verification whenever the file's content contains
// the bad marker. With an empty marker every file passes, which lets a
// test accept a file at backup time and reject it at restore time.
type contentVerifier struct {
	bad string
}

func (v *contentVerifier) Verify(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if v.bad != "" && strings.Contains(string(data), v.bad) {
		return os.ErrInvalid
	}
	return nil
}

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

// testEnv bundles a service with the pieces tests need to poke at.
type testEnv struct {
	svc      *backup.Service
	cat      *catalog.MemoryCatalog
	verifier *contentVerifier
	clock    *stubClock
	livePath string
	backups  string
}

func newTestEnv(t *testing.T, enc backup.Encryptor, vlt backup.Vault) *testEnv {
	t.Helper()

	dir := t.TempDir()
	livePath := filepath.Join(dir, "live.db")
	if err := os.WriteFile(livePath, []byte("live content v1"), 0644); err != nil {
		t.Fatalf("writing live file: %v", err)
	}

	env := &testEnv{
		cat:      catalog.NewMemoryCatalog(),
		verifier: &contentVerifier{},
		clock:    &stubClock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)},
		livePath: livePath,
		backups:  filepath.Join(dir, "backups"),
	}
	env.svc = backup.NewService(livePath, env.backups, env.cat, env.verifier, enc, vlt,
		backup.NopNotifier{}, backup.NewNopLogger(), env.clock)
	return env
}

// liveContent reads the current live data-store bytes.
func (e *testEnv) liveContent(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(e.livePath)
	if err != nil {
		t.Fatalf("reading live file: %v", err)
	}
	return string(data)
}

// setLive overwrites the live data store.
func (e *testEnv) setLive(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.livePath, []byte(content), 0644); err != nil {
		t.Fatalf("writing live file: %v", err)
	}
}

// unpack decompresses an unsealed artifact and returns its content.
func unpack(t *testing.T, artifact *backup.Artifact) string {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "unpacked.db")
	if _, err := backup.Decompress(artifact.Path, dst); err != nil {
		t.Fatalf("decompressing artifact: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading unpacked artifact: %v", err)
	}
	return string(data)
}

func TestCreateBackup(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	artifact, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	want := backup.ArtifactFilename(env.clock.now, backup.KindManual, false)
	if artifact.Filename != want {
		t.Errorf("Filename = %q, want %q", artifact.Filename, want)
	}
	if artifact.Sealed {
		t.Error("Sealed = true, want false")
	}
	if artifact.Kind != backup.KindManual {
		t.Errorf("Kind = %q, want %q", artifact.Kind, backup.KindManual)
	}

	info, err := os.Stat(artifact.Path)
	if err != nil {
		t.Fatalf("artifact file missing: %v", err)
	}
	if info.Size() != artifact.SizeBytes {
		t.Errorf("SizeBytes = %d, file is %d", artifact.SizeBytes, info.Size())
	}

	sum, err := backup.Checksum(artifact.Path)
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	if sum != artifact.Checksum {
		t.Errorf("Checksum = %q, recomputed %q", artifact.Checksum, sum)
	}

	if got := unpack(t, artifact); got != "live content v1" {
		t.Errorf("unpacked content = %q, want %q", got, "live content v1")
	}

	registered, err := env.cat.Get(artifact.Filename)
	if err != nil {
		t.Fatalf("catalog Get() error = %v", err)
	}
	if registered == nil {
		t.Error("artifact was not registered in the catalog")
	}
}

func TestCreateBackup_VerificationFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.verifier.bad = "live content"

	_, err := env.svc.CreateBackup(backup.KindScheduled)
	if err == nil {
		t.Fatal("CreateBackup() should fail when verification fails")
	}
	if !backup.IsIntegrityError(err) {
		t.Errorf("error = %v, want an integrity error", err)
	}

	artifacts, err := env.cat.List()
	if err != nil {
		t.Fatalf("catalog List() error = %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("catalog has %d artifacts, want 0", len(artifacts))
	}

	entries, err := os.ReadDir(env.backups)
	if err != nil {
		t.Fatalf("reading backup dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("backup dir has %d leftover files, want 0", len(entries))
	}
}

func TestCreateBackup_FilenameCollisionStepsForward(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	first, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("first CreateBackup() error = %v", err)
	}

	// The clock does not advance, so the second backup must step its
	// timestamp forward to keep the filename unique.
	second, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("second CreateBackup() error = %v", err)
	}

	if first.Filename == second.Filename {
		t.Fatalf("both backups got filename %q", first.Filename)
	}
	if got, want := second.CreatedAt, first.CreatedAt.Add(time.Second); !got.Equal(want) {
		t.Errorf("second CreatedAt = %v, want %v", got, want)
	}
}

func TestCreateBackup_Sealed(t *testing.T) {
	env := newTestEnv(t, encryption.NewTestEncryptor(), nil)

	artifact, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	if !artifact.Sealed {
		t.Error("Sealed = false, want true")
	}
	if !strings.HasSuffix(artifact.Filename, ".age") {
		t.Errorf("Filename = %q, want .age suffix", artifact.Filename)
	}

	// A sealed artifact round-trips through full verification with an
	// unlocked context.
	unlock, err := encryption.NewTestEncryptor().Unlock("")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := env.svc.VerifyArtifact(artifact.Filename, unlock); err != nil {
		t.Errorf("VerifyArtifact() on sealed artifact error = %v", err)
	}
}

func TestCreateBackup_ReplicatesToVault(t *testing.T) {
	vlt := vault.NewMemoryVault("offsite")
	env := newTestEnv(t, nil, vlt)

	if _, err := env.svc.CreateBackup(backup.KindManual); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	// Replication is fire-and-forget, so poll briefly.
	deadline := time.After(2 * time.Second)
	for vlt.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("artifact was never replicated to the vault")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	stats, err := env.svc.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Count != 0 || stats.TotalBytes != 0 {
		t.Errorf("empty catalog stats = %+v, want zeros", stats)
	}

	first, err := env.svc.CreateBackup(backup.KindManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	env.clock.now = env.clock.now.Add(time.Hour)
	second, err := env.svc.CreateBackup(backup.KindScheduled)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	stats, err = env.svc.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Count != 2 {
		t.Errorf("Count = %d, want 2", stats.Count)
	}
	if want := first.SizeBytes + second.SizeBytes; stats.TotalBytes != want {
		t.Errorf("TotalBytes = %d, want %d", stats.TotalBytes, want)
	}
	if !stats.Oldest.Equal(first.CreatedAt) {
		t.Errorf("Oldest = %v, want %v", stats.Oldest, first.CreatedAt)
	}
	if !stats.Newest.Equal(second.CreatedAt) {
		t.Errorf("Newest = %v, want %v", stats.Newest, second.CreatedAt)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{n: 0, want: "0 B"},
		{n: 512, want: "512 B"},
		{n: 2048, want: "2.0 KiB"},
		{n: 5 * 1024 * 1024, want: "5.0 MiB"},
		{n: 3 * 1024 * 1024 * 1024, want: "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := backup.HumanSize(tt.n); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
