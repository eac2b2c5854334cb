// Package jsonvisit implements an incremental, chunk-spanning JSON
// parser built around a schema that names only the values a caller
// actually wants. Unselected values are scanned to keep the token
// stream correctly positioned but are never decoded or buffered, so
// memory use tracks the size of what was asked for rather than the
// size of the document.
//
// A Schema is one of three things: a Leaf callback that receives a
// fully decoded value, an Array descent that matches every element of
// a JSON array, or a Fields mapping (plain map[string]Schema) that
// matches named object keys and skips the rest. Visit drives a
// ChunkSource through the schema, calling leaf callbacks as their
// values complete.
//
//	err := jsonvisit.Visit(ctx, jsonvisit.FromReader(r, 0), jsonvisit.Fields{
//		"results": jsonvisit.Array(jsonvisit.Leaf(func(v any) error {
//			return process(v)
//		})),
//	})
package jsonvisit
