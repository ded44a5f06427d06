package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkalnins/revtrack/internal/actor"
	"github.com/mkalnins/revtrack/internal/diff"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/mkalnins/revtrack/internal/registry"
	"github.com/mkalnins/revtrack/internal/store"
)

// codec is stateless and shared by every operation in this package.
var codec = diff.NewCodec()

// Meta carries the optional annotation and editor identity for one change.
// An empty Editor falls back to the actor context, and failing that the
// change is recorded as anonymous.
type Meta struct {
	Comment  string
	Editor   string
	EditorIP string
}

// Change is one entity's before/after field state participating in a
// logical change. Field values are text representations keyed by field
// name; missing keys read as empty text.
type Change struct {
	Ref    models.ObjectRef
	Before map[string]string
	After  map[string]string
}

// Record produces and persists exactly one revision for ref describing the
// given changes. A change may span the primary entity and related tracked
// entities; each contributes blocks keyed by its own type name. Only
// tracked fields are diffed, in the stored reverse direction (after ->
// before). When no field changed and ref already has history, no revision
// is created and Record returns (nil, nil).
func Record(ctx context.Context, st *store.Store, reg *registry.Registry, ref models.ObjectRef, changes []Change, meta Meta) (*models.Revision, error) {
	blocks := make(map[string]string)
	for _, ch := range changes {
		for _, f := range reg.Fields(ch.Ref.Type) {
			patch := codec.Make(ch.After[f.Name], ch.Before[f.Name])
			if patch == "" {
				continue
			}
			blocks[diff.Key(ch.Ref.Type, f.Name)] = patch
		}
	}

	max, err := st.MaxRevision(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 && max > 0 {
		// Nothing detectable changed; only the very first save records an
		// empty sentinel revision.
		return nil, nil
	}

	editor, ip := meta.Editor, meta.EditorIP
	ctxEditor, ctxIP := actor.FromContext(ctx)
	if editor == "" {
		editor = ctxEditor
	}
	if ip == "" {
		ip = ctxIP
	}

	delta := diff.Pack(blocks)
	rev := &models.Revision{
		Ref:      ref,
		Delta:    delta,
		SHA1:     models.Fingerprint(delta),
		Comment:  meta.Comment,
		Editor:   editor,
		EditorIP: ip,
	}
	if err := st.InsertRevision(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

// Save is the normal change-tracking path: it loads the entity's current
// live state, records the revision for the transition to fields, and then
// replaces the live state. The first save of an unknown object records the
// transition from the empty state.
func Save(ctx context.Context, st *store.Store, reg *registry.Registry, ref models.ObjectRef, fields map[string]string, meta Meta) (*models.Revision, error) {
	if !reg.Tracked(ref.Type) {
		return nil, fmt.Errorf("entity type %q is not tracked", ref.Type)
	}

	// Reject values the field kind cannot parse up front, so bad input
	// fails at the write instead of inside a later reconstruction.
	for name, value := range fields {
		f, ok := reg.Lookup(ref.Type, name)
		if !ok {
			continue
		}
		if _, err := f.Coerce(value); err != nil {
			return nil, fmt.Errorf("%s: %w", ref.Type, err)
		}
	}

	before, err := st.GetObject(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		before = map[string]string{}
	} else if err != nil {
		return nil, err
	}

	rev, err := Record(ctx, st, reg, ref, []Change{{Ref: ref, Before: before, After: fields}}, meta)
	if err != nil {
		return nil, err
	}

	if err := st.PutObject(ctx, ref, fields); err != nil {
		return nil, err
	}
	return rev, nil
}
