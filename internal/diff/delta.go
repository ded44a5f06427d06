package diff

import (
	"errors"
	"sort"
	"strings"
)

// ErrMalformedDelta is returned when a stored delta cannot be parsed into
// field-diff blocks. Replay must fail loudly on it; skipping a block would
// silently corrupt reconstructed state.
var ErrMalformedDelta = errors.New("malformed delta payload")

// keyPrefix marks the start of a field block inside a delta. Patch text
// lines never collide with it: diff-match-patch percent-encodes content,
// so a diff line cannot begin with "--- " (dash dash dash space).
const keyPrefix = "--- "

// Key builds the composite delta block key for an entity type and field.
func Key(typeName, fieldName string) string {
	return typeName + "." + fieldName
}

// SplitKey splits a delta block key back into entity type and field name.
func SplitKey(key string) (typeName, fieldName string, ok bool) {
	typeName, fieldName, ok = strings.Cut(key, ".")
	if typeName == "" || fieldName == "" {
		return "", "", false
	}
	return typeName, fieldName, ok
}

// Pack serializes a mapping of block keys ("Type.field") to patch texts
// into one delta payload. Keys are written in sorted order so the same
// change always produces the same bytes and the same fingerprint. An empty
// map packs to "".
func Pack(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(keyPrefix)
		b.WriteString(k)
		b.WriteByte('\n')
		b.WriteString(fields[k])
	}
	return b.String()
}

// Unpack parses a delta payload back into its block key -> patch text
// mapping. Each block's value is the exact byte range between its key line
// and the next key line (or the end of the payload), so Pack and Unpack
// round-trip byte-for-byte. Unknown keys are returned as-is; tolerance for
// fields that are no longer tracked belongs to replay, not parsing. Content
// appearing before the first key line makes the payload malformed.
func Unpack(delta string) (map[string]string, error) {
	fields := make(map[string]string)
	if delta == "" {
		return fields, nil
	}

	var key string
	start := 0
	flush := func(end int) {
		if key != "" {
			fields[key] = delta[start:end]
		}
	}

	pos := 0
	for pos < len(delta) {
		next := len(delta)
		line := delta[pos:]
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = pos + i + 1
		}

		if strings.HasPrefix(line, keyPrefix) {
			flush(pos)
			key = line[len(keyPrefix):]
			if key == "" {
				return nil, ErrMalformedDelta
			}
			start = next
		} else if key == "" {
			return nil, ErrMalformedDelta
		}
		pos = next
	}
	flush(len(delta))

	return fields, nil
}
