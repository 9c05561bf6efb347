package catalog

import (
	"fmt"
	"sort"
	"sync"

	"aurum/internal/backup"
)

// MemoryCatalog is an in-memory snapshot store for tests. It tracks
// metadata only; artifact files still live wherever the caller put them.
type MemoryCatalog struct {
	mu        sync.Mutex
	artifacts map[string]*backup.Artifact

	// RemoveFailures makes Remove fail for the named filenames, for
	// exercising best-effort pruning.
	RemoveFailures map[string]bool

	// Removed records filenames in removal order.
	Removed []string
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		artifacts:      make(map[string]*backup.Artifact),
		RemoveFailures: make(map[string]bool),
	}
}

func (c *MemoryCatalog) Register(artifact *backup.Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.artifacts[artifact.Filename]; ok {
		return fmt.Errorf("artifact already registered: %s", artifact.Filename)
	}
	cp := *artifact
	c.artifacts[artifact.Filename] = &cp
	return nil
}

func (c *MemoryCatalog) Get(filename string) (*backup.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.artifacts[filename]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (c *MemoryCatalog) List() ([]*backup.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*backup.Artifact, 0, len(c.artifacts))
	for _, a := range c.artifacts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (c *MemoryCatalog) Remove(filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RemoveFailures[filename] {
		return fmt.Errorf("simulated removal failure: %s", filename)
	}
	if _, ok := c.artifacts[filename]; !ok {
		return fmt.Errorf("artifact not registered: %s", filename)
	}
	delete(c.artifacts, filename)
	c.Removed = append(c.Removed, filename)
	return nil
}

var _ backup.Catalog = (*MemoryCatalog)(nil)
