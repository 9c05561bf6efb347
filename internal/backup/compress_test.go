package backup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestChecksum(t *testing.T) {
	data := []byte("the quick brown fox")
	path := writeTempFile(t, "data.bin", data)

	got, err := Checksum(path)
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}

	want := sha256.Sum256(data)
	if got != hex.EncodeToString(want[:]) {
		t.Errorf("Checksum() = %s, want %s", got, hex.EncodeToString(want[:]))
	}
}

func TestChecksum_MissingFile(t *testing.T) {
	if _, err := Checksum(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Checksum() for missing file should fail")
	}
}

func TestCompressDecompress_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "text", data: []byte("hello world")},
		{name: "empty", data: []byte{}},
		{name: "binary", data: []byte{0x00, 0xff, 0x10, 0xfe, 0x00}},
		{name: "compressible", data: bytes.Repeat([]byte("aurum"), 20000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "src.db")
			gz := filepath.Join(dir, "src.db.gz")
			out := filepath.Join(dir, "out.db")

			if err := os.WriteFile(src, tt.data, 0644); err != nil {
				t.Fatal(err)
			}

			n, err := Compress(src, gz)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if n != int64(len(tt.data)) {
				t.Errorf("Compress() consumed %d bytes, want %d", n, len(tt.data))
			}

			n, err = Decompress(gz, out)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if n != int64(len(tt.data)) {
				t.Errorf("Decompress() wrote %d bytes, want %d", n, len(tt.data))
			}

			got, err := os.ReadFile(out)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Error("round-trip content mismatch")
			}
		})
	}
}

func TestDecompress_NotGzip(t *testing.T) {
	src := writeTempFile(t, "plain.db", []byte("not gzip data"))
	dst := filepath.Join(t.TempDir(), "out.db")

	if _, err := Decompress(src, dst); err == nil {
		t.Fatal("Decompress() of non-gzip data should fail")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("failed Decompress() left destination file behind")
	}
}

func TestCompress_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := Compress(filepath.Join(dir, "missing"), filepath.Join(dir, "out.gz")); err == nil {
		t.Fatal("Compress() of missing source should fail")
	}
}
