// Package diff implements the per-field text diff codec and the delta
// payload format that packs many field diffs into one revision.
//
// Stored diffs follow the reverse convention: a patch is always computed
// from the new value to the old value, so applying a stored patch to the
// current text moves it one step back in time. Revert and historical
// reconstruction are therefore plain forward patch application; no patch
// inversion exists anywhere in revtrack.
package diff

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Codec computes and applies per-field text patches.
type Codec struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewCodec creates a codec with default diff-match-patch settings.
func NewCodec() *Codec {
	return &Codec{dmp: diffmatchpatch.New()}
}

// Make returns the patch text transforming newText into oldText (the
// reverse direction relative to the edit). Returns "" when the texts are
// equal, which callers treat as "no change to record".
func (c *Codec) Make(newText, oldText string) string {
	if newText == oldText {
		return ""
	}
	patches := c.dmp.PatchMake(newText, oldText)
	return c.dmp.PatchToText(patches)
}

// Apply parses patchText and applies it to text. It fails when the patch
// text cannot be parsed or when any hunk does not apply cleanly; a partial
// application is never returned.
func (c *Codec) Apply(patchText, text string) (string, error) {
	patches, err := c.dmp.PatchFromText(patchText)
	if err != nil {
		return "", fmt.Errorf("parse patch text: %w", err)
	}
	result, applied := c.dmp.PatchApply(patches, text)
	for i, ok := range applied {
		if !ok {
			return "", fmt.Errorf("hunk %d/%d did not apply", i+1, len(applied))
		}
	}
	return result, nil
}

// Compare computes a forward display diff (before -> after) with semantic
// cleanup. This is the direction readers expect, even though storage uses
// the reverse convention.
func (c *Codec) Compare(before, after string) []diffmatchpatch.Diff {
	diffs := c.dmp.DiffMain(before, after, false)
	return c.dmp.DiffCleanupSemantic(diffs)
}

// HTML renders a display diff as inline HTML with <ins>/<del> spans.
func (c *Codec) HTML(diffs []diffmatchpatch.Diff) string {
	return c.dmp.DiffPrettyHtml(diffs)
}
