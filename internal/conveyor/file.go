package conveyor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
)

// File is a conveyor over a newline-delimited "w h d" text file. The
// whole file is parsed at Reset so malformed records fail fast instead of
// surfacing mid-run.
type File struct {
	window
	path  string
	sizes []geometry.Size
}

// NewFile builds a file conveyor with lookahead k over the given path.
// The file is not touched until Reset.
func NewFile(k int, path string) (*File, error) {
	if k < 1 {
		return nil, fmt.Errorf("lookahead must be at least 1, got %d", k)
	}
	return &File{window: newWindow(k), path: path}, nil
}

// ParseItemLine parses one "w h d" record.
func ParseItemLine(line string) (geometry.Size, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return geometry.Size{}, fmt.Errorf("want 3 fields %q, got %d", "w h d", len(fields))
	}
	dims := make([]int, 3)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return geometry.Size{}, fmt.Errorf("dimension %q is not an integer", f)
		}
		if v < 1 {
			return geometry.Size{}, fmt.Errorf("dimension %d must be positive", v)
		}
		dims[i] = v
	}
	return geometry.Size{W: dims[0], H: dims[1], D: dims[2]}, nil
}

// Reset reads and parses the file, then rearms the lookahead window at
// the first record.
func (f *File) Reset() error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open item stream: %w", err)
	}
	defer file.Close()

	f.sizes = f.sizes[:0]
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		size, err := ParseItemLine(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", f.path, lineNo, err)
		}
		f.sizes = append(f.sizes, size)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read item stream: %w", err)
	}

	i := 0
	f.init(func() (geometry.Size, bool) {
		if i >= len(f.sizes) {
			return geometry.Size{}, false
		}
		size := f.sizes[i]
		i++
		return size, true
	})
	return nil
}

// Peek returns the lookahead window.
func (f *File) Peek() []*model.StreamItem { return f.peek() }

// Grab removes and returns the item at window index i.
func (f *File) Grab(i int) (*model.StreamItem, error) { return f.grab(i) }
