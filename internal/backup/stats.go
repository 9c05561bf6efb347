package backup

import (
	"fmt"
	"time"
)

// Stats aggregates the catalog for the administrative stats view.
type Stats struct {
	Count        int
	TotalBytes   int64
	AverageBytes int64
	Newest       time.Time // zero when the catalog is empty
	Oldest       time.Time // zero when the catalog is empty
}

// Stats computes aggregate artifact statistics from the catalog.
func (s *Service) Stats() (*Stats, error) {
	artifacts, err := s.catalog.List()
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	stats := &Stats{Count: len(artifacts)}
	for _, a := range artifacts {
		stats.TotalBytes += a.SizeBytes
		if stats.Oldest.IsZero() || a.CreatedAt.Before(stats.Oldest) {
			stats.Oldest = a.CreatedAt
		}
		if a.CreatedAt.After(stats.Newest) {
			stats.Newest = a.CreatedAt
		}
	}
	if stats.Count > 0 {
		stats.AverageBytes = stats.TotalBytes / int64(stats.Count)
	}
	return stats, nil
}

// HumanSize renders a byte count the way the artifact listing displays it.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
