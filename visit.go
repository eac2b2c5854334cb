package jsonvisit

import (
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/streamvisit/jsonvisit/internal/jlog"
	"github.com/streamvisit/jsonvisit/internal/scanner"
	"github.com/streamvisit/jsonvisit/internal/tokstream"
)

// ChunkSource is the asynchronous producer of input chunks Visit pulls
// from. Chunk boundaries carry no meaning; a Schema sees the same
// result regardless of how the document was split.
type ChunkSource = tokstream.ChunkSource

// FromReader adapts an io.Reader into a ChunkSource, reading fixed-size
// chunks. If chunkSize <= 0, a 4096-byte default is used.
func FromReader(r io.Reader, chunkSize int) ChunkSource {
	return tokstream.FromReader(r, chunkSize)
}

// frameKind names one of the visitor automaton's eleven states.
type frameKind int

const (
	fValueBuffering frameKind = iota
	fValueSkipping
	fArrayPreBegin
	fArrayPostBegin
	fArrayPostValue
	fArrayPreEnd
	fObjectPreBegin
	fObjectPostBegin
	fObjectPreKey
	fObjectPostKey
	fObjectPostValue
)

// frame is one entry of the driver's schema-level stack. Which fields
// are meaningful depends on kind; frames are small enough that carrying
// all of them unconditionally is simpler than a variant type per kind.
type frame struct {
	kind frameKind

	leaf       Leaf   // fValueBuffering
	inner      Schema // fArrayPreBegin: element schema to start from
	innerStart *frame // fArrayPostBegin/fArrayPostValue/fArrayPreEnd: template pushed per element
	fields     Fields // fObjectPreBegin/fObjectPostBegin/fObjectPreKey/fObjectPostValue
	valueStart *frame // fObjectPostKey: frame to push once ':' is seen
}

// startFrame produces the initial frame for descending into s.
func startFrame(s Schema) frame {
	switch v := s.(type) {
	case Leaf:
		return frame{kind: fValueBuffering, leaf: v}
	case arrayOf:
		return frame{kind: fArrayPreBegin, inner: v.inner}
	case Fields:
		return frame{kind: fObjectPreBegin, fields: v}
	default:
		panic(fmt.Sprintf("jsonvisit: unknown Schema implementation %T", s))
	}
}

// driver runs the visitor automaton over a single token stream.
type driver struct {
	stream *tokstream.Stream
	stack  []frame
	depth  int
}

func newDriver(stream *tokstream.Stream) *driver {
	return &driver{stream: stream}
}

func (d *driver) empty() bool { return len(d.stack) == 0 }

func (d *driver) top() *frame { return &d.stack[len(d.stack)-1] }

// pushFrame pushes f, arranging buffering and the depth counter so that
// the very next token pulled from the stream is the first token seen by
// f when f is a value frame. Buffering is requested here — at the
// moment a ValueBuffering context is entered — rather than once the
// frame has already seen its first token, because the stream's window
// start only stays put for tokens recorded while buffering is already
// on; requesting it one token late would lose that first token.
func (d *driver) pushFrame(f frame) {
	if f.kind == fValueBuffering || f.kind == fValueSkipping {
		d.depth = 0
	}
	if f.kind == fValueBuffering {
		d.stream.Buffer()
	}
	d.stack = append(d.stack, f)
}

func (d *driver) popFrame() {
	d.stack = d.stack[:len(d.stack)-1]
}

func (d *driver) syntaxErr(msg string) error {
	return &SyntaxError{Msg: msg, Offset: d.stream.Offset()}
}

// deltaDepth is the effect token kind has on nesting depth while a value
// is being buffered or skipped wholesale.
func deltaDepth(k scanner.Kind) int {
	switch k {
	case scanner.BeginObject, scanner.BeginArray:
		return 1
	case scanner.EndObject, scanner.EndArray:
		return -1
	default:
		return 0
	}
}

func decodeValue(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeKey(text string) (string, error) {
	var k string
	if err := json.Unmarshal([]byte(text), &k); err != nil {
		return "", err
	}
	return k, nil
}

// step advances the automaton past a single input token, which may
// trigger a cascade of frame transitions that consume no input (a push
// followed by re-examining the same token against the new top, or a
// mutate-then-fallthrough such as ArrayPostBegin turning into
// ArrayPreEnd on end-array) before the token is finally consumed.
func (d *driver) step(kind scanner.Kind) error {
	for {
		if d.empty() {
			return nil
		}
		consumed, err := d.dispatch(kind)
		if err != nil {
			return err
		}
		if consumed {
			return nil
		}
	}
}

func (d *driver) dispatch(kind scanner.Kind) (bool, error) {
	top := d.top()

	switch top.kind {
	case fValueBuffering:
		d.depth += deltaDepth(kind)
		if d.depth < 0 {
			return false, d.syntaxErr("unbalanced value while buffering")
		}
		if d.depth != 0 {
			return true, nil
		}
		text := d.stream.Flush()
		val, err := decodeValue(text)
		if err != nil {
			return false, &LexicalError{Err: err}
		}
		cb := top.leaf
		d.popFrame()
		if err := cb(val); err != nil {
			return false, err
		}
		return true, nil

	case fValueSkipping:
		d.depth += deltaDepth(kind)
		if d.depth < 0 {
			return false, d.syntaxErr("unbalanced value while skipping")
		}
		if d.depth == 0 {
			d.popFrame()
		}
		return true, nil

	case fArrayPreBegin:
		if kind != scanner.BeginArray {
			return false, d.syntaxErr("expected array")
		}
		innerStart := startFrame(top.inner)
		d.popFrame()
		d.pushFrame(frame{kind: fArrayPostBegin, innerStart: &innerStart})
		if innerStart.kind == fValueBuffering {
			// The first element, if one exists, starts with the very next
			// token, and a leaf element needs that token included in its
			// buffered span. Whether the array is in fact empty is not yet
			// known, so buffering is requested speculatively here and
			// canceled below if the next token turns out to be ']'.
			d.stream.Buffer()
		}
		return true, nil

	case fArrayPostBegin:
		if kind == scanner.EndArray {
			if top.innerStart.kind == fValueBuffering {
				d.stream.Flush() // cancel the speculative buffer; array was empty
			}
			top.kind = fArrayPreEnd
			return false, nil
		}
		fresh := *top.innerStart
		top.kind = fArrayPostValue
		d.pushFrame(fresh)
		return false, nil

	case fArrayPostValue:
		switch kind {
		case scanner.EndArray:
			d.popFrame()
			return true, nil
		case scanner.ValueSeparator:
			d.pushFrame(*top.innerStart)
			return true, nil
		default:
			return false, d.syntaxErr("expected ',' or ']' in array")
		}

	case fArrayPreEnd:
		if kind != scanner.EndArray {
			return false, d.syntaxErr("expected ']'")
		}
		d.popFrame()
		return true, nil

	case fObjectPreBegin:
		if kind != scanner.BeginObject {
			return false, d.syntaxErr("expected object")
		}
		fields := top.fields
		d.popFrame()
		d.pushFrame(frame{kind: fObjectPostBegin, fields: fields})
		d.stream.Buffer() // anticipate the first key atom
		return true, nil

	case fObjectPostBegin, fObjectPreKey:
		switch kind {
		case scanner.EndObject:
			if top.kind == fObjectPreKey {
				return false, d.syntaxErr("expected object key")
			}
			d.stream.Flush() // cancel the speculative key buffer; object was empty
			d.popFrame()
			return true, nil
		case scanner.Atom:
			keyText := d.stream.Flush()
			key, err := decodeKey(keyText)
			if err != nil {
				return false, &LexicalError{Err: err}
			}
			var valueStart frame
			if child, ok := top.fields[key]; ok {
				valueStart = startFrame(child)
			} else {
				valueStart = frame{kind: fValueSkipping}
			}
			top.kind = fObjectPostValue
			d.pushFrame(frame{kind: fObjectPostKey, valueStart: &valueStart})
			return true, nil
		default:
			return false, d.syntaxErr("expected object key or '}'")
		}

	case fObjectPostKey:
		if kind != scanner.NameSeparator {
			return false, d.syntaxErr("expected ':'")
		}
		vs := *top.valueStart
		d.popFrame()
		d.pushFrame(vs)
		return true, nil

	case fObjectPostValue:
		switch kind {
		case scanner.EndObject:
			d.popFrame()
			return true, nil
		case scanner.ValueSeparator:
			top.kind = fObjectPreKey
			d.stream.Buffer() // anticipate the next key atom
			return true, nil
		default:
			return false, d.syntaxErr("expected ',' or '}' in object")
		}
	}

	return false, d.syntaxErr("internal: unreachable frame kind")
}

// Visit pulls chunks from src, tokenizes them, and drives schema against
// the resulting token stream. Only the values schema actually names are
// ever decoded or held in memory; everything else is scanned and
// discarded in constant space. Visit returns once the document's
// top-level value has been fully consumed, the context is canceled, or
// src reports an error other than io.EOF. If src reaches io.EOF before
// the top-level value is complete, Visit returns a *SyntaxError.
func Visit(ctx context.Context, src ChunkSource, schema Schema) error {
	d := newDriver(tokstream.New(src))
	d.pushFrame(startFrame(schema))

	for !d.empty() {
		if err := ctx.Err(); err != nil {
			return err
		}
		kind, err := d.stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return d.syntaxErr("unexpected end of input")
		}
		if err != nil {
			return err
		}
		if jlog.Visit() {
			jlog.L().Debug("token", zap.Stringer("kind", kind), zap.Int("depth", d.depth), zap.Int("stack", len(d.stack)))
		}
		if err := d.step(kind); err != nil {
			return err
		}
	}
	return nil
}

// VisitTyped is Visit with a compile-time-only type parameter: T
// documents the shape callers expect schema's leaves to ultimately
// assemble, but the schema tree built from Leaf/Array/Fields is what
// actually governs decoding, so VisitTyped is indistinguishable from
// Visit at runtime. T is not checked against schema at compile time
// either: leaf callbacks still receive values as any.
func VisitTyped[T any](ctx context.Context, src ChunkSource, schema Schema) error {
	return Visit(ctx, src, schema)
}
