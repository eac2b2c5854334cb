package jsonvisit

import (
	"errors"
	"fmt"
)

var (
	errNotArray  = errors.New("value is not a JSON array")
	errNotObject = errors.New("value is not a JSON object")
)

// SyntaxError reports that the document's token stream did not match
// what the schema expected at the current frame — an object where an
// array was expected, a missing colon, unbalanced delimiters, and so on.
// There is no recovery: the first SyntaxError terminates Visit.
type SyntaxError struct {
	Msg string
	// Offset is the approximate number of input bytes consumed by the
	// scanner before this error was detected. It is a diagnostic aid,
	// not an exact byte position within any one token.
	Offset int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("jsonvisit: syntax error at offset %d: %s", e.Offset, e.Msg)
}

// LexicalError reports that a buffered value failed to decode as JSON.
// The underlying decoder error is unwrapped verbatim via errors.As/Is.
type LexicalError struct {
	Err error
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("jsonvisit: lexical error: %v", e.Err)
}

func (e *LexicalError) Unwrap() error { return e.Err }
