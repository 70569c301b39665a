// Package stream decodes the chat backend's line-delimited event stream into
// text deltas.
//
// The wire format is a subset of server-sent events: content lines start with
// "data:" and everything else (blank separators, comments, event names) is
// ignored. A payload equal to Sentinel marks the end of the answer.
package stream

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	// DataPrefix starts every content-bearing line.
	DataPrefix = "data:"
	// Sentinel is the payload the backend sends once the answer is complete.
	Sentinel = "[STREAM_END]"
)

// Parser turns arbitrarily segmented chunks into deltas.
// It is not safe for concurrent use.
type Parser struct {
	buf  []byte
	done bool
}

// NewParser returns an empty parser.
func NewParser() *Parser {
	return &Parser{}
}

// Done reports whether the sentinel has been seen.
func (p *Parser) Done() bool {
	return p.done
}

// Feed appends chunk to the pending buffer and returns the deltas of every
// line completed by it. Once the sentinel has been seen Feed returns nil.
func (p *Parser) Feed(chunk []byte) []string {
	if p.done {
		return nil
	}
	p.buf = append(p.buf, chunk...)

	var deltas []string
	for !p.done {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		p.buf = p.buf[i+1:]
		if d, ok := p.parseLine(line); ok {
			deltas = append(deltas, d)
		}
	}
	if p.done {
		p.buf = nil
	}
	return deltas
}

// Flush handles whatever is left in the buffer at the end of input. The final
// line may arrive without a trailing newline and is still parsed.
func (p *Parser) Flush() []string {
	if p.done || len(p.buf) == 0 {
		p.buf = nil
		return nil
	}
	// Run the remainder through the same line logic, including any embedded
	// line breaks, by terminating it.
	rest := append(p.buf, '\n')
	p.buf = nil
	return p.Feed(rest)
}

func (p *Parser) parseLine(raw []byte) (string, bool) {
	line := strings.TrimSpace(decodeUTF8(raw))
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false
	}
	payload := strings.TrimSpace(line[len(DataPrefix):])
	if payload == "" {
		return "", false
	}
	if payload == Sentinel {
		p.done = true
		return "", false
	}
	return payload, true
}

// decodeUTF8 decodes one complete line. Lines are only cut at '\n', which
// never occurs inside a multi-byte sequence, so a character split across
// network chunks is always whole by the time it gets here.
func decodeUTF8(raw []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
