package backup

// Catalog is the snapshot store: it tracks every registered artifact and
// owns the artifact files on disk. Files that were written but never
// registered are invisible to List and therefore to pruning.
type Catalog interface {
	// Register records a fully written artifact. The artifact file must
	// already exist at artifact.Path.
	Register(artifact *Artifact) error

	// Get returns the artifact with the given filename, or nil if it is
	// not registered.
	Get(filename string) (*Artifact, error)

	// List returns all registered artifacts sorted ascending by CreatedAt.
	List() ([]*Artifact, error)

	// Remove deletes the artifact file and its metadata. Removing an
	// unregistered filename is an error.
	Remove(filename string) error
}
