package diff

import (
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_ReverseRoundTrip(t *testing.T) {
	c := NewCodec()

	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"single word", "A", "B"},
		{"sentence edit", "the quick brown fox", "the slow brown fox jumps"},
		{"empty to value", "", "hello world"},
		{"value to empty", "hello world", ""},
		{"multiline", "line one\nline two\nline three", "line one\nline 2\nline three\nline four"},
		{"unicode", "naïve café", "naïve cáfe"},
		{"null literal", "<null>", "a summary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch := c.Make(tt.new, tt.old)
			require.NotEmpty(t, patch)

			// Applying the stored reverse patch to the new value yields
			// the old value.
			got, err := c.Apply(patch, tt.new)
			require.NoError(t, err)
			assert.Equal(t, tt.old, got)
		})
	}
}

func TestCodec_MakeEqualTextsIsEmpty(t *testing.T) {
	c := NewCodec()
	assert.Empty(t, c.Make("same", "same"))
	assert.Empty(t, c.Make("", ""))
}

func TestCodec_ApplyRejectsGarbage(t *testing.T) {
	c := NewCodec()
	_, err := c.Apply("not a patch", "text")
	assert.Error(t, err)
}

func TestCodec_ApplyReportsFailedHunk(t *testing.T) {
	c := NewCodec()

	// A patch built against one text should not apply to a completely
	// unrelated one.
	patch := c.Make("the quick brown fox jumps over the lazy dog", "the quick brown cat naps")
	require.NotEmpty(t, patch)

	_, err := c.Apply(patch, "0123456789 0123456789 0123456789 0123456789")
	assert.Error(t, err)
}

func TestCodec_CompareIsForward(t *testing.T) {
	c := NewCodec()
	diffs := c.Compare("A", "B")

	var sawDelete, sawInsert bool
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sawDelete = true
			assert.Equal(t, "A", d.Text)
		case diffmatchpatch.DiffInsert:
			sawInsert = true
			assert.Equal(t, "B", d.Text)
		}
	}
	assert.True(t, sawDelete)
	assert.True(t, sawInsert)
}

func TestCodec_HTML(t *testing.T) {
	c := NewCodec()
	html := c.HTML(c.Compare("old title", "new title"))
	assert.Contains(t, html, "<del")
	assert.Contains(t, html, "<ins")
}
