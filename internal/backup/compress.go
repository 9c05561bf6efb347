package backup

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Checksum computes the SHA-256 checksum of a file's contents, hex encoded.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compress gzip-compresses src into dst, streaming. Returns the number of
// uncompressed bytes consumed. dst is removed on failure.
func Compress(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating destination: %w", err)
	}

	zw := gzip.NewWriter(out)
	written, err := io.Copy(zw, in)
	if err == nil {
		err = zw.Close()
	} else {
		zw.Close()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("compressing %s: %w", src, err)
	}
	return written, nil
}

// Decompress gunzips src into dst, streaming. dst is removed on failure.
func Decompress(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return 0, fmt.Errorf("reading gzip header: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		zr.Close()
		return 0, fmt.Errorf("creating destination: %w", err)
	}

	written, err := io.Copy(out, zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("decompressing %s: %w", src, err)
	}
	return written, nil
}

// copyFile copies src to dst byte for byte. dst is removed on failure.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating destination: %w", err)
	}

	written, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("copying %s: %w", src, err)
	}
	return written, nil
}
