package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mkalnins/revtrack/internal/diff"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/mkalnins/revtrack/internal/registry"
	"github.com/mkalnins/revtrack/internal/store"
)

// Reconstruct returns the entity's field values as of just before revision
// target was made: every stored reverse delta with number >= target is
// applied to the live state, newest first. The result maps tracked field
// names to coerced native values. When the target revision holds an empty
// delta (the initial sentinel) there is nothing to reconstruct from and an
// empty map is returned.
//
// The boundary convention, held consistent across Reconstruct, Revert and
// RenderDiff: with history A -(r1)-> B -(r2)-> C, Reconstruct(1) == A,
// Reconstruct(2) == B, and the live value is C.
func Reconstruct(ctx context.Context, st *store.Store, reg *registry.Registry, ref models.ObjectRef, target int) (map[string]any, error) {
	rev, err := st.GetRevision(ctx, ref, target)
	if err != nil {
		return nil, err
	}
	if rev.Delta == "" {
		return map[string]any{}, nil
	}

	working, _, err := replay(ctx, st, reg, ref, target, true)
	if err != nil {
		return nil, err
	}
	return coerceFields(reg, ref.Type, working)
}

// replay loads the live working copy of ref and applies the stored reverse
// deltas of all revisions with number >= from (inclusive) or > from
// (exclusive), newest first. It returns the working copy in text form plus
// the numbers of the revisions whose deltas were consumed, oldest last.
func replay(ctx context.Context, st *store.Store, reg *registry.Registry, ref models.ObjectRef, from int, inclusive bool) (map[string]string, []int, error) {
	live, err := st.GetObject(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		live = map[string]string{}
	} else if err != nil {
		return nil, nil, err
	}

	working := make(map[string]string, len(live))
	for k, v := range live {
		working[k] = v
	}

	revs, err := st.ListNewestFirst(ctx, ref, from, inclusive)
	if err != nil {
		return nil, nil, err
	}

	var consumed []int
	for _, rev := range revs {
		if err := applyDelta(reg, ref, rev, working); err != nil {
			return nil, nil, err
		}
		consumed = append(consumed, rev.Revision)
	}
	return working, consumed, nil
}

// applyDelta verifies one revision's fingerprint, unpacks its delta, and
// patches every matching tracked field of the working copy in place.
// Blocks for other entity types or no-longer-tracked fields are skipped;
// history is expected to outlive schema changes.
func applyDelta(reg *registry.Registry, ref models.ObjectRef, rev *models.Revision, working map[string]string) error {
	if rev.SHA1 != models.Fingerprint(rev.Delta) {
		return fmt.Errorf("%w: %s r%d", ErrFingerprintMismatch, ref, rev.Revision)
	}
	if rev.Delta == "" {
		return nil
	}

	blocks, err := diff.Unpack(rev.Delta)
	if err != nil {
		return fmt.Errorf("unpack delta of %s r%d: %w", ref, rev.Revision, err)
	}

	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		typeName, fieldName, ok := diff.SplitKey(key)
		if !ok {
			return fmt.Errorf("delta of %s r%d has invalid block key %q: %w", ref, rev.Revision, key, diff.ErrMalformedDelta)
		}
		if typeName != ref.Type {
			continue
		}
		f, tracked := reg.Lookup(typeName, fieldName)
		if !tracked {
			continue
		}

		patched, err := codec.Apply(blocks[key], working[fieldName])
		if err != nil {
			return &PatchError{Ref: ref, Revision: rev.Revision, Field: fieldName, Err: err}
		}
		// Round-trip through the native value so the working text stays in
		// the canonical representation for the next patch in the chain.
		v, err := f.Coerce(patched)
		if err != nil {
			return &PatchError{Ref: ref, Revision: rev.Revision, Field: fieldName, Err: err}
		}
		working[fieldName] = registry.Format(v)
	}
	return nil
}

// coerceFields converts a text working copy into native values for every
// tracked field of the entity type.
func coerceFields(reg *registry.Registry, typeName string, working map[string]string) (map[string]any, error) {
	result := make(map[string]any)
	for _, f := range reg.Fields(typeName) {
		text, ok := working[f.Name]
		if !ok {
			continue
		}
		v, err := f.Coerce(text)
		if err != nil {
			return nil, fmt.Errorf("coerce field %s.%s: %w", typeName, f.Name, err)
		}
		result[f.Name] = v
	}
	return result, nil
}
