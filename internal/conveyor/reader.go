package conveyor

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
)

// Reader is an interactive conveyor: it prompts on out for each item and
// parses "w h d" lines from in. A malformed line gets an explanation and
// a fresh prompt; entering "-1" (or hitting end of input) ends the
// stream. Pulls block on the reader, which is fine for this source.
type Reader struct {
	window
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

// NewReader builds an interactive conveyor with lookahead k.
func NewReader(k int, in io.Reader, out io.Writer) (*Reader, error) {
	if k < 1 {
		return nil, fmt.Errorf("lookahead must be at least 1, got %d", k)
	}
	return &Reader{window: newWindow(k), in: in, out: out}, nil
}

// Reset rearms the window. The underlying reader cannot be rewound, so a
// second Reset simply continues from wherever the reader stands.
func (r *Reader) Reset() error {
	if r.scanner == nil {
		r.scanner = bufio.NewScanner(r.in)
	}
	r.init(r.pullLine)
	return nil
}

func (r *Reader) pullLine() (geometry.Size, bool) {
	for {
		fmt.Fprint(r.out, "item: ")
		if !r.scanner.Scan() {
			return geometry.Size{}, false
		}
		line := strings.TrimSpace(r.scanner.Text())
		if line == "-1" {
			return geometry.Size{}, false
		}
		size, err := ParseItemLine(line)
		if err != nil {
			fmt.Fprintf(r.out, "invalid format (%v). each line must be [w: int] [h: int] [d: int], for example: 4 5 6\n", err)
			continue
		}
		return size, true
	}
}

// Peek returns the lookahead window.
func (r *Reader) Peek() []*model.StreamItem { return r.peek() }

// Grab removes and returns the item at window index i.
func (r *Reader) Grab(i int) (*model.StreamItem, error) { return r.grab(i) }
