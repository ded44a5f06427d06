// Package actor carries the acting editor identity and originating address
// through a context.Context, so change-recording code can attribute edits
// without every caller threading the values explicitly. Absence is a valid
// state: a context without actor information records an anonymous change.
package actor

import "context"

type contextKey struct{}

type info struct {
	editor string
	ip     string
}

// With returns a context carrying the editor identity and address.
func With(ctx context.Context, editor, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, info{editor: editor, ip: ip})
}

// FromContext returns the acting editor and address, or empty strings when
// the context carries none.
func FromContext(ctx context.Context) (editor, ip string) {
	v, ok := ctx.Value(contextKey{}).(info)
	if !ok {
		return "", ""
	}
	return v.editor, v.ip
}
