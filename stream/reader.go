package stream

import (
	"errors"
	"io"
)

const readChunkSize = 4 * 1024

// Reader yields deltas lazily from an underlying transport body.
type Reader struct {
	src     io.Reader
	parser  *Parser
	pending []string
	chunk   []byte
	err     error
}

// NewReader wraps src. The reader does not close src.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src:    src,
		parser: NewParser(),
		chunk:  make([]byte, readChunkSize),
	}
}

// Next returns the next delta. It returns io.EOF once the sentinel was seen
// or the transport closed cleanly; any other error comes from the transport.
// After an error every further call returns the same error.
func (r *Reader) Next() (string, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return "", r.err
		}
		if r.parser.Done() {
			r.err = io.EOF
			continue
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.pending = append(r.pending, r.parser.Feed(r.chunk[:n])...)
		}
		switch {
		case errors.Is(err, io.EOF):
			r.pending = append(r.pending, r.parser.Flush()...)
			r.err = io.EOF
		case err != nil:
			r.err = err
		}
	}

	d := r.pending[0]
	r.pending = r.pending[1:]
	return d, nil
}

// Ended reports whether the stream finished with the sentinel rather than a
// bare transport close.
func (r *Reader) Ended() bool {
	return r.parser.Done()
}

// Collect drains r and returns every delta. Mostly useful in tests and tools.
func Collect(r *Reader) ([]string, error) {
	var out []string
	for {
		d, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
}
