// Package core implements the revision engine: recording changes as
// reverse field diffs, reconstructing past states, reverting, and
// rendering per-revision diffs.
package core

import (
	"errors"
	"fmt"

	"github.com/mkalnins/revtrack/internal/models"
)

// ErrFingerprintMismatch is returned when a stored revision's fingerprint
// does not match the hash of its delta. It indicates storage corruption and
// is fatal for any operation that reads the delta.
var ErrFingerprintMismatch = errors.New("delta fingerprint mismatch")

// PatchError reports a patch that could not be applied during replay, with
// enough context to diagnose which revision and field broke. Field updates
// already applied in the same replay pass are not rolled back; callers must
// discard the working copy.
type PatchError struct {
	Ref      models.ObjectRef
	Revision int
	Field    string
	Err      error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("apply patch for %s r%d field %s: %v", e.Ref, e.Revision, e.Field, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}
