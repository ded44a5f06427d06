package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce_Text(t *testing.T) {
	f := Field{Name: "title", Kind: KindText}

	v, err := f.Coerce("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestCoerce_NullableNull(t *testing.T) {
	f := Field{Name: "summary", Kind: KindText, Nullable: true}

	v, err := f.Coerce(NullLiteral)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCoerce_NullLiteralOnNonNullable(t *testing.T) {
	f := Field{Name: "title", Kind: KindText}

	// A non-nullable text field keeps the literal as plain text.
	v, err := f.Coerce(NullLiteral)
	require.NoError(t, err)
	assert.Equal(t, NullLiteral, v)
}

func TestCoerce_Bool(t *testing.T) {
	f := Field{Name: "published", Kind: KindBool}

	v, err := f.Coerce("true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = f.Coerce("false")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	_, err = f.Coerce("yes")
	assert.Error(t, err)
}

func TestCoerce_IntAndFloat(t *testing.T) {
	intField := Field{Name: "views", Kind: KindInt}
	v, err := intField.Coerce("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = intField.Coerce("forty-two")
	assert.Error(t, err)

	floatField := Field{Name: "rating", Kind: KindFloat}
	v, err = floatField.Coerce("4.5")
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)
}

func TestFormat_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value any
	}{
		{"text", Field{Name: "title", Kind: KindText}, "A fine title"},
		{"empty text", Field{Name: "title", Kind: KindText}, ""},
		{"null", Field{Name: "summary", Kind: KindText, Nullable: true}, nil},
		{"bool true", Field{Name: "published", Kind: KindBool}, true},
		{"bool false", Field{Name: "published", Kind: KindBool}, false},
		{"int", Field{Name: "views", Kind: KindInt}, int64(-7)},
		{"float", Field{Name: "rating", Kind: KindFloat}, 3.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Format(tt.value)
			back, err := tt.field.Coerce(text)
			require.NoError(t, err)
			assert.Equal(t, tt.value, back)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("bool")
	require.NoError(t, err)
	assert.Equal(t, KindBool, k)

	// Empty defaults to text.
	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindText, k)

	_, err = ParseKind("decimal")
	assert.Error(t, err)
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("Article",
		Field{Name: "title", Kind: KindText},
		Field{Name: "body", Kind: KindText},
		Field{Name: "published", Kind: KindBool},
	))

	assert.True(t, r.Tracked("Article"))
	assert.False(t, r.Tracked("Comment"))

	fields := r.Fields("Article")
	require.Len(t, fields, 3)
	assert.Equal(t, "title", fields[0].Name, "registration order is preserved")

	f, ok := r.Lookup("Article", "published")
	require.True(t, ok)
	assert.Equal(t, KindBool, f.Kind)

	_, ok = r.Lookup("Article", "missing")
	assert.False(t, ok)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := New()
	err := r.Register("Article",
		Field{Name: "title"},
		Field{Name: "title"},
	)
	assert.Error(t, err)
}
