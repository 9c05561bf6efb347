package backup

import (
	"errors"
	"fmt"
)

// ConfirmationToken is the literal sentinel an administrator must supply
// before a restore is allowed to touch live state.
const ConfirmationToken = "CONFIRM_RESTORE"

// ErrConfirmation is returned when a restore request does not carry the
// exact confirmation token. Nothing has been mutated when it is returned.
var ErrConfirmation = errors.New("restore requires the exact confirmation token")

// ErrArtifactNotFound is returned when a named artifact is not in the catalog.
var ErrArtifactNotFound = errors.New("artifact not found in catalog")

// IntegrityError reports that an artifact or candidate data file failed
// structural verification. It is recoverable: discard the file and retry.
type IntegrityError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("integrity check failed for %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("integrity check failed for %s: %s", e.Path, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// IsIntegrityError reports whether err is (or wraps) an IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
