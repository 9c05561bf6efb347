package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"aurum/internal/backup"
)

// FileCatalog is a filesystem-backed snapshot store. Each artifact file is
// paired with a JSON sidecar holding its structured metadata:
//
//	<dir>/
//	  aurum-20240101T120000Z-scheduled.db.gz
//	  aurum-20240101T120000Z-scheduled.db.gz.meta.json
//
// An artifact without a sidecar was never registered and is invisible.
type FileCatalog struct {
	dir string
}

const sidecarSuffix = ".meta.json"

// sidecarRecord is the persisted form of the artifact metadata.
type sidecarRecord struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	Kind      string    `json:"kind"`
	Sealed    bool      `json:"sealed"`
}

// NewFileCatalog creates a catalog rooted at dir, creating it if needed.
func NewFileCatalog(dir string) (*FileCatalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}
	return &FileCatalog{dir: dir}, nil
}

// Dir returns the directory artifacts are kept in.
func (c *FileCatalog) Dir() string { return c.dir }

// Register writes the sidecar for a fully written artifact file.
func (c *FileCatalog) Register(artifact *backup.Artifact) error {
	if _, err := os.Stat(artifact.Path); err != nil {
		return fmt.Errorf("artifact file missing: %w", err)
	}

	rec := sidecarRecord{
		Filename:  artifact.Filename,
		SizeBytes: artifact.SizeBytes,
		Checksum:  artifact.Checksum,
		CreatedAt: artifact.CreatedAt.UTC(),
		Kind:      string(artifact.Kind),
		Sealed:    artifact.Sealed,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding artifact metadata: %w", err)
	}

	return c.writeSidecar(c.sidecarPath(artifact.Filename), data)
}

// Get returns the registered artifact with the given filename, or nil.
func (c *FileCatalog) Get(filename string) (*backup.Artifact, error) {
	artifact, err := c.read(c.sidecarPath(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return artifact, nil
}

// List returns all registered artifacts sorted ascending by CreatedAt.
func (c *FileCatalog) List() ([]*backup.Artifact, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog directory: %w", err)
	}

	var artifacts []*backup.Artifact
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sidecarSuffix) {
			continue
		}
		artifact, err := c.read(filepath.Join(c.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// Remove deletes the artifact file and its sidecar. The sidecar goes
// first: a half-removed artifact must look unregistered, not corrupt.
func (c *FileCatalog) Remove(filename string) error {
	sidecar := c.sidecarPath(filename)
	if _, err := os.Stat(sidecar); err != nil {
		return fmt.Errorf("artifact not registered: %s", filename)
	}

	if err := os.Remove(sidecar); err != nil {
		return fmt.Errorf("removing artifact metadata: %w", err)
	}
	if err := os.Remove(filepath.Join(c.dir, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing artifact file: %w", err)
	}
	return nil
}

func (c *FileCatalog) sidecarPath(filename string) string {
	return filepath.Join(c.dir, filename+sidecarSuffix)
}

func (c *FileCatalog) read(sidecarPath string) (*backup.Artifact, error) {
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, err
	}

	var rec sidecarRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding artifact metadata %s: %w", sidecarPath, err)
	}

	kind, err := backup.ParseKind(rec.Kind)
	if err != nil {
		return nil, fmt.Errorf("in artifact metadata %s: %w", sidecarPath, err)
	}

	return &backup.Artifact{
		Filename:  rec.Filename,
		Path:      filepath.Join(c.dir, rec.Filename),
		SizeBytes: rec.SizeBytes,
		Checksum:  rec.Checksum,
		CreatedAt: rec.CreatedAt,
		Kind:      kind,
		Sealed:    rec.Sealed,
	}, nil
}

// writeSidecar writes metadata atomically (temp file + rename) so a crash
// mid-write never leaves a truncated sidecar behind.
func (c *FileCatalog) writeSidecar(path string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".tmp-meta-*")
	if err != nil {
		return fmt.Errorf("creating temp sidecar: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing sidecar: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming sidecar: %w", err)
	}
	return nil
}

// Compile-time check that FileCatalog implements the catalog contract.
var _ backup.Catalog = (*FileCatalog)(nil)
