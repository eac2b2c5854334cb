// Package tokstream wraps the scanner as a pull-driven producer of token
// kinds and transparently captures the raw chunk bytes spanned by a
// selectable window of tokens, so a consumer can recover the literal
// text of any token range without the scanner ever needing to know about
// buffering.
package tokstream

import (
	"context"
	"errors"
	"io"

	"github.com/streamvisit/jsonvisit/internal/scanner"
)

// ChunkSource is the abstract "asynchronous producer of text chunks" the
// engine consumes. Next returns io.EOF once the source is exhausted;
// chunk boundaries are arbitrary and carry no semantic meaning.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// readerSource adapts an io.Reader into a ChunkSource, reading fixed-size
// chunks. This is the minimal glue most callers need; converting from a
// platform-specific byte stream into arbitrary chunking is otherwise out
// of scope for this package.
type readerSource struct {
	r    io.Reader
	buf  []byte
	done bool
}

// FromReader returns a ChunkSource that reads chunkSize-byte chunks from
// r. If chunkSize <= 0, a 4096-byte default is used.
func FromReader(r io.Reader, chunkSize int) ChunkSource {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	return &readerSource{r: r, buf: make([]byte, chunkSize)}
}

func (rs *readerSource) Next(ctx context.Context) ([]byte, error) {
	if rs.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := rs.r.Read(rs.buf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, rs.buf[:n])
		if err != nil {
			rs.done = true
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return chunk, err
		}
		return chunk, nil
	}
	if err == nil {
		return nil, nil
	}
	rs.done = true
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	return nil, err
}

// Stream pulls chunks from a ChunkSource, tokenizes them, and yields
// token kinds one at a time while optionally capturing the literal bytes
// a run of tokens spans. Not safe for concurrent use.
type Stream struct {
	src ChunkSource
	sc  *scanner.Scanner

	pending []scanner.Token // tokens already extracted, not yet yielded

	saved     [][]byte // byte slices carried over from earlier chunks in the window
	cur       []byte   // most recently read chunk
	start     int      // first buffered code unit within cur
	end       int      // one past the last token-aligned position within cur
	buffering bool

	eof    bool
	closed bool

	consumed int // total bytes handed to the scanner so far, for diagnostics
}

// New returns a Stream reading chunks from src.
func New(src ChunkSource) *Stream {
	return &Stream{src: src, sc: scanner.New()}
}

// Buffer starts capturing raw input from the next yielded token onward.
// The window starts where the token yielded immediately before this call
// (if any) ended, so that token itself is not part of the captured text.
func (s *Stream) Buffer() {
	s.buffering = true
}

// Flush returns the concatenated raw bytes from the start of the current
// buffer window through the end of the most recently yielded token, then
// clears the window and stops buffering.
func (s *Stream) Flush() string {
	var total int
	for _, c := range s.saved {
		total += len(c)
	}
	total += s.end - s.start
	out := make([]byte, 0, total)
	for _, c := range s.saved {
		out = append(out, c...)
	}
	out = append(out, s.cur[s.start:s.end]...)

	s.saved = nil
	s.start = s.end
	s.buffering = false
	return string(out)
}

// Next returns the next token's kind, or io.EOF once the underlying
// source and scanner are exhausted.
func (s *Stream) Next(ctx context.Context) (scanner.Kind, error) {
	for len(s.pending) == 0 {
		if err := s.advance(ctx); err != nil {
			return 0, err
		}
	}
	tok := s.pending[0]
	s.pending = s.pending[1:]
	s.recordToken(tok)
	return tok.Kind, nil
}

// advance pulls the next chunk (or the end-of-stream flush) and fills
// s.pending with the tokens it completes.
func (s *Stream) advance(ctx context.Context) error {
	if s.eof {
		return io.EOF
	}
	chunk, err := s.src.Next(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if errors.Is(err, io.EOF) {
		s.pending = s.sc.Close()
		s.eof = true
		if len(s.pending) == 0 {
			return io.EOF
		}
		return nil
	}
	if len(chunk) == 0 {
		return nil
	}
	s.rotate(chunk)
	s.consumed += len(chunk)
	s.pending = s.sc.Feed(chunk)
	return nil
}

// Offset returns the total number of input bytes handed to the scanner
// so far. It is an approximate diagnostic position, not an exact
// token-level byte offset.
func (s *Stream) Offset() int {
	return s.consumed
}

// rotate makes chunk the current chunk, first saving whatever suffix of
// the previous chunk still belonged to the open buffer window so flush
// can later reconstruct text that spans the boundary. When the window
// isn't open, that suffix belongs to a value nothing will ever flush
// (a skipped atom, most commonly), so it is dropped rather than saved —
// otherwise a long unselected value spanning many chunks would retain
// its entire text for no reason.
func (s *Stream) rotate(chunk []byte) {
	if s.cur != nil && s.buffering {
		if tail := s.cur[s.start:]; len(tail) > 0 {
			s.saved = append(s.saved, tail)
		}
	}
	s.cur = chunk
	s.start = 0
	s.end = 0
}

// recordToken updates the window bookkeeping for a token just yielded.
func (s *Stream) recordToken(tok scanner.Token) {
	s.end = tok.End
	if !s.buffering {
		s.start = tok.End
		s.saved = s.saved[:0]
	}
}
