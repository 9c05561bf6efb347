package backup

import (
	"fmt"
	"os"
	"time"
)

// Kind classifies why an artifact was created.
type Kind string

const (
	// KindScheduled marks artifacts created by the scheduler's interval timer.
	KindScheduled Kind = "scheduled"
	// KindManual marks artifacts created by an explicit administrative request.
	KindManual Kind = "manual"
	// KindPreRestoreSafety marks the safety copy taken immediately before a restore.
	KindPreRestoreSafety Kind = "pre-restore-safety"
)

// ParseKind validates a raw kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindScheduled, KindManual, KindPreRestoreSafety:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown backup kind: %q", s)
	}
}

// Artifact is one point-in-time snapshot of the live data store:
// a compressed (optionally sealed) file plus its catalog metadata.
type Artifact struct {
	Filename  string    // unique, encodes creation timestamp and kind
	Path      string    // absolute location of the artifact file
	SizeBytes int64     // size of the final artifact file
	Checksum  string    // SHA-256 of the final artifact file, hex
	CreatedAt time.Time // creation time (UTC)
	Kind      Kind
	Sealed    bool // true when the artifact is age-encrypted at rest
}

// artifactTimeLayout is sortable lexicographically, so artifact filenames
// order the same way their creation times do.
const artifactTimeLayout = "20060102T150405Z"

// ModTime reports the artifact file's last-modified time, or the zero
// time when the file cannot be statted (missing, replicated-only copy).
func (a *Artifact) ModTime() time.Time {
	info, err := os.Stat(a.Path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// ArtifactFilename builds the canonical artifact filename for a creation
// time and kind. The .gz suffix gains a .age suffix when sealed.
func ArtifactFilename(createdAt time.Time, kind Kind, sealed bool) string {
	name := fmt.Sprintf("aurum-%s-%s.db.gz", createdAt.UTC().Format(artifactTimeLayout), kind)
	if sealed {
		name += ".age"
	}
	return name
}
