package jsonvisit

import (
	json "github.com/segmentio/encoding/json"

	jsonpatch "github.com/evanphx/json-patch"
)

// Patched returns a leaf schema that re-encodes the matched value,
// applies patch to that encoding, and hands the patched JSON to cb as
// raw bytes. This lets a caller request "this subtree, patched" without
// materializing the rest of the document. The matched value itself goes
// through the normal decode step first, so only its re-encoded text —
// not the original buffered bytes — is patched.
func Patched(patch jsonpatch.Patch, cb func(json.RawMessage) error) Schema {
	return Leaf(func(value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return &LexicalError{Err: err}
		}
		patched, err := patch.Apply(raw)
		if err != nil {
			return err
		}
		return cb(json.RawMessage(patched))
	})
}
