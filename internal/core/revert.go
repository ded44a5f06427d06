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

// Revert restores ref's live state to how it stood after revision target:
// every revision with a number strictly greater than target is undone by
// forward-applying its stored reverse delta, newest first. The consumed
// revisions are flagged reverted, the restored state replaces the live
// row, and a new forward revision records the revert itself — all in one
// store transaction, so a failure leaves no partial flag updates.
//
// The new revision's comment names the target revision; editor identity
// comes from meta, falling back to the actor context. When nothing newer
// than target exists the call is a no-op and returns (nil, nil).
func Revert(ctx context.Context, st *store.Store, reg *registry.Registry, ref models.ObjectRef, target int, meta Meta) (*models.Revision, error) {
	if _, err := st.GetRevision(ctx, ref, target); err != nil {
		return nil, err
	}

	live, err := st.GetObject(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		live = map[string]string{}
	} else if err != nil {
		return nil, err
	}

	restored, consumed, err := replay(ctx, st, reg, ref, target, false)
	if err != nil {
		return nil, err
	}
	if len(consumed) == 0 {
		return nil, nil
	}

	// The revert is recorded as a new forward change, not a history
	// rewrite: reverse-diff the restored state against the pre-revert live
	// state like any other edit.
	blocks := make(map[string]string)
	for _, f := range reg.Fields(ref.Type) {
		patch := codec.Make(restored[f.Name], live[f.Name])
		if patch == "" {
			continue
		}
		blocks[diff.Key(ref.Type, f.Name)] = patch
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
		Comment:  fmt.Sprintf("Reverted to revision #%d", target),
		Editor:   editor,
		EditorIP: ip,
	}

	if err := st.CommitRevert(ctx, ref, restored, consumed, rev); err != nil {
		return nil, err
	}
	return rev, nil
}
