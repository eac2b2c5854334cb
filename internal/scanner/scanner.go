// Package scanner implements the chunk-spanning JSON tokenizer: the hard
// lexer half of the streaming engine. A Scanner consumes one chunk of
// input bytes at a time and emits the structural tokens and atom spans
// completed by that chunk, carrying at most one pending (unfinished)
// token across calls.
//
// The scanner is not a JSON validator. It classifies byte runs into the
// seven token kinds described by Kind; it never inspects whether an atom
// is a well-formed number, string, or keyword. That is left to whatever
// decodes the buffered bytes a token spans.
package scanner

import (
	"go.uber.org/zap"

	"github.com/streamvisit/jsonvisit/internal/jlog"
)

// Kind is one of the seven JSON token kinds the scanner recognizes.
type Kind int

const (
	BeginObject Kind = iota
	EndObject
	BeginArray
	EndArray
	NameSeparator // ':'
	ValueSeparator // ','
	Atom          // string, number, boolean, or null — undifferentiated
)

func (k Kind) String() string {
	switch k {
	case BeginObject:
		return "BeginObject"
	case EndObject:
		return "EndObject"
	case BeginArray:
		return "BeginArray"
	case EndArray:
		return "EndArray"
	case NameSeparator:
		return "NameSeparator"
	case ValueSeparator:
		return "ValueSeparator"
	case Atom:
		return "Atom"
	default:
		return "Unknown"
	}
}

// Token is (kind, end-index): end is the exclusive position, within the
// chunk passed to the call that completed this token, at which the token
// ends. For a token that began in an earlier chunk, end refers only to
// the current chunk — the start position is not carried; stitching spans
// across chunks is the buffered stream's job, not the scanner's.
type Token struct {
	Kind Kind
	End  int
}

// continuation names the kind of partially-scanned token a Scanner may
// be carrying across a Feed call.
type continuation int

const (
	contNone continuation = iota
	contString
	contBareAtom
)

// Scanner recognizes JSON structural tokens and atom spans across
// arbitrarily sized chunks. The zero value has no pending state and is
// equivalent to New(). A Scanner is not safe for concurrent use.
type Scanner struct {
	pending continuation
	// skip is the number of leading bytes of the next chunk to pass over
	// verbatim without reinterpretation — used to carry a dangling string
	// escape (a trailing backslash) across a chunk boundary.
	skip int
	// lastLen is the length of the most recently fed chunk, used to
	// re-stamp a still-pending token's end-index on every resumption and
	// to give it a final end-index if Close is called while pending.
	lastLen int
	closed  bool
}

// New returns a fresh Scanner with no pending state.
func New() *Scanner {
	return &Scanner{}
}

// Feed scans chunk and returns the tokens newly completed by it. A token
// left unfinished at the end of chunk (an open string or an atom not yet
// delimited) is remembered and resumed by the next call to Feed or
// finalized by Close.
func (s *Scanner) Feed(chunk []byte) []Token {
	var tokens []Token
	n := len(chunk)
	i := 0

	if s.skip > 0 {
		if s.skip >= n {
			s.skip -= n
			s.lastLen = n
			return tokens
		}
		i = s.skip
		s.skip = 0
	}

	switch s.pending {
	case contString:
		end, done, trailingEscape := scanString(chunk, i)
		if !done {
			if trailingEscape {
				s.skip = 1
			}
			s.lastLen = n
			return tokens
		}
		tokens = append(tokens, Token{Kind: Atom, End: end})
		s.pending = contNone
		i = end
	case contBareAtom:
		end, done := scanBareAtom(chunk, i)
		if !done {
			s.lastLen = n
			return tokens
		}
		tokens = append(tokens, Token{Kind: Atom, End: end})
		s.pending = contNone
		i = end
	}

	for i < n {
		c := chunk[i]
		switch {
		case isSpace(c):
			i++
		case c == '{':
			tokens = append(tokens, Token{Kind: BeginObject, End: i + 1})
			i++
		case c == '}':
			tokens = append(tokens, Token{Kind: EndObject, End: i + 1})
			i++
		case c == '[':
			tokens = append(tokens, Token{Kind: BeginArray, End: i + 1})
			i++
		case c == ']':
			tokens = append(tokens, Token{Kind: EndArray, End: i + 1})
			i++
		case c == ':':
			tokens = append(tokens, Token{Kind: NameSeparator, End: i + 1})
			i++
		case c == ',':
			tokens = append(tokens, Token{Kind: ValueSeparator, End: i + 1})
			i++
		case c == '"':
			end, done, trailingEscape := scanString(chunk, i+1)
			if !done {
				s.pending = contString
				if trailingEscape {
					s.skip = 1
				}
				i = n
				break
			}
			tokens = append(tokens, Token{Kind: Atom, End: end})
			i = end
		default:
			end, done := scanBareAtom(chunk, i)
			if !done {
				s.pending = contBareAtom
				i = n
				break
			}
			tokens = append(tokens, Token{Kind: Atom, End: end})
			i = end
		}
	}

	s.lastLen = n
	if jlog.Scan() {
		for _, tok := range tokens {
			jlog.L().Debug("token", zap.Stringer("kind", tok.Kind), zap.Int("end", tok.End))
		}
	}
	return tokens
}

// Close flushes any pending token, treating it as completed at the
// logical end of the stream, and returns it (or nil if nothing was
// pending). Subsequent calls to Close return nil.
func (s *Scanner) Close() []Token {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.pending == contNone {
		return nil
	}
	s.pending = contNone
	return []Token{{Kind: Atom, End: s.lastLen}}
}

// scanString scans string content starting at i (just past the opening
// quote, or at a resumption point within an already-open string),
// honoring `\X` escapes including the chunk-final case where X is
// absent. It returns the exclusive end-index of the closing quote and
// done=true if the string closed within chunk, or done=false if the
// string remains open (with trailingEscape=true when the chunk ended on
// an unpaired backslash, so the caller must skip one byte of the next
// chunk verbatim).
func scanString(chunk []byte, i int) (end int, done bool, trailingEscape bool) {
	n := len(chunk)
	for i < n {
		switch chunk[i] {
		case '\\':
			if i+1 < n {
				i += 2
				continue
			}
			return n, false, true
		case '"':
			return i + 1, true, false
		default:
			i++
		}
	}
	return n, false, false
}

// scanBareAtom scans an undelimited run starting at i until a delimiter
// (whitespace, a structural symbol, or a quote) or the end of chunk. It
// returns the position of the delimiter (not consumed) and done=true if
// one was found, or the chunk length and done=false if the atom may
// still extend into a following chunk.
func scanBareAtom(chunk []byte, i int) (end int, done bool) {
	n := len(chunk)
	for i < n && !isDelimiter(chunk[i]) {
		i++
	}
	if i == n {
		return n, false
	}
	return i, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '{', '}', '[', ']', ',', ':', '"':
		return true
	default:
		return false
	}
}
