package vault

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryVault_PutAndGetArtifact(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{
			name:     "store and retrieve artifact",
			filename: "aurum-20260101T000000Z-manual.db.gz",
			content:  "hello world",
		},
		{
			name:     "store empty artifact",
			filename: "empty.db.gz",
			content:  "",
		},
		{
			name:     "store large artifact",
			filename: "large.db.gz",
			content:  strings.Repeat("x", 10000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			if err := vault.PutArtifact(tt.filename, r, int64(len(tt.content))); err != nil {
				t.Fatalf("PutArtifact() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetArtifact(tt.filename, &buf); err != nil {
				t.Fatalf("GetArtifact() unexpected error: %v", err)
			}

			if got := buf.String(); got != tt.content {
				t.Errorf("GetArtifact() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_PutArtifact_SizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	err := vault.PutArtifact("a.db.gz", strings.NewReader("short"), 100)
	if err == nil {
		t.Fatal("PutArtifact() with wrong size should fail")
	}
}

func TestMemoryVault_PutArtifact_Idempotent(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	content := "same bytes"
	for i := 0; i < 2; i++ {
		if err := vault.PutArtifact("a.db.gz", strings.NewReader(content), int64(len(content))); err != nil {
			t.Fatalf("PutArtifact() attempt %d error = %v", i+1, err)
		}
	}

	if vault.Len() != 1 {
		t.Errorf("Len() = %d, want 1", vault.Len())
	}
}

func TestMemoryVault_GetArtifact_NotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	if err := vault.GetArtifact("missing.db.gz", &buf); err == nil {
		t.Fatal("GetArtifact() for missing artifact should fail")
	}
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	vault := NewMemoryVault("test-vault")
	if err := vault.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}
