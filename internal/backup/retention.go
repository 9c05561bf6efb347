package backup

import (
	"fmt"
	"sort"
)

// Prune enforces the retention window: if more than maxBackups artifacts
// are registered, the oldest excess is deleted. The window is global
// across kinds — manual and pre-restore-safety artifacts age out the same
// way scheduled ones do. Deletion is best-effort per artifact: one failure
// never blocks the rest. Returns the number of artifacts deleted.
func (s *Service) Prune(maxBackups int) (int, error) {
	if maxBackups < 1 {
		return 0, fmt.Errorf("retention window must be at least 1, got %d", maxBackups)
	}

	artifacts, err := s.catalog.List()
	if err != nil {
		return 0, fmt.Errorf("listing artifacts: %w", err)
	}

	// The catalog lists ascending by creation time already; sort again so
	// pruning does not depend on that contract being remembered.
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})

	excess := len(artifacts) - maxBackups
	if excess <= 0 {
		return 0, nil
	}

	deleted := 0
	for _, a := range artifacts[:excess] {
		if err := s.catalog.Remove(a.Filename); err != nil {
			s.logger.Warn("pruning artifact failed", "filename", a.Filename, "error", err)
			continue
		}
		deleted++
		s.logger.Info("artifact pruned", "filename", a.Filename, "kind", string(a.Kind))
	}

	return deleted, nil
}
