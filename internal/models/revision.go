// Package models defines the data types shared across revtrack:
// object references, revisions, and editor metadata.
package models

import "time"

// ObjectRef identifies one versioned entity's history line.
// It is immutable once a Revision references it.
type ObjectRef struct {
	Type string `json:"entity_type"`
	ID   string `json:"object_id"`
}

// String returns the canonical "Type/ID" form used in logs and errors.
func (r ObjectRef) String() string {
	return r.Type + "/" + r.ID
}

// Revision is one persisted change record for an object.
//
// Delta holds the packed per-field reverse diffs (new state -> old state),
// so applying it to the post-edit state yields the pre-edit state. SHA1 is
// the hex SHA-1 fingerprint of the exact delta bytes. A Revision is
// immutable after insert except for the Reverted flag, which flips
// false -> true once a revert has consumed it.
type Revision struct {
	ID       int64     `json:"id"`
	Ref      ObjectRef `json:"ref"`
	Revision int       `json:"revision"`
	Reverted bool      `json:"reverted"`
	SHA1     string    `json:"sha1"`
	Delta    string    `json:"delta"`

	CreatedAt time.Time `json:"created_at"`
	Comment   string    `json:"comment,omitempty"`
	Editor    string    `json:"editor,omitempty"`
	EditorIP  string    `json:"editor_ip,omitempty"`
}

// Anonymous reports whether the change was made without an identified editor.
func (r *Revision) Anonymous() bool {
	return r.Editor == ""
}
