package core

import (
	"context"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mkalnins/revtrack/internal/diff"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/mkalnins/revtrack/internal/registry"
	"github.com/mkalnins/revtrack/internal/store"
)

// FieldDiff is the display diff of one field across one revision, in the
// forward direction readers expect (before -> after).
type FieldDiff struct {
	Field string
	Diffs []diffmatchpatch.Diff
	HTML  string
}

// RenderDiff produces the human-readable diff of revision target: the
// entity's state just before the revision against its state just after.
// Both states come from the same replay — revisions newer than target are
// undone to obtain the "after" state, and applying target's own reverse
// delta to it yields the "before" state. Fields the revision did not touch
// are omitted. A revision with an empty delta renders as nil.
func RenderDiff(ctx context.Context, st *store.Store, reg *registry.Registry, ref models.ObjectRef, target int) ([]FieldDiff, error) {
	rev, err := st.GetRevision(ctx, ref, target)
	if err != nil {
		return nil, err
	}
	if rev.Delta == "" {
		return nil, nil
	}

	after, _, err := replay(ctx, st, reg, ref, target, false)
	if err != nil {
		return nil, err
	}

	before := make(map[string]string, len(after))
	for k, v := range after {
		before[k] = v
	}
	if err := applyDelta(reg, ref, rev, before); err != nil {
		return nil, err
	}

	touched, err := diff.Unpack(rev.Delta)
	if err != nil {
		return nil, err
	}

	var result []FieldDiff
	for _, f := range reg.Fields(ref.Type) {
		if _, ok := touched[diff.Key(ref.Type, f.Name)]; !ok {
			continue
		}
		d := codec.Compare(before[f.Name], after[f.Name])
		result = append(result, FieldDiff{
			Field: f.Name,
			Diffs: d,
			HTML:  codec.HTML(d),
		})
	}
	return result, nil
}
