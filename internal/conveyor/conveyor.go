// Package conveyor supplies the engine with its item stream. A conveyor
// exposes a fixed lookahead window of k items over an underlying source:
// a text file, an interactive reader, an in-memory slice, or the
// synthetic split generator. Once the source runs dry the window is
// padded with nil sentinels.
package conveyor

import (
	"fmt"

	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
)

// Conveyor is the engine-facing contract of every item source.
//
// Peek returns the current lookahead window, always of length k, with nil
// entries once the source is exhausted. Grab removes the item at the
// given window index and refills the window with one more pull from the
// source. Reset (re)initializes the window and the source; for seeded
// synthetic sources it reproduces the same stream.
type Conveyor interface {
	Reset() error
	Peek() []*model.StreamItem
	Grab(i int) (*model.StreamItem, error)
}

// window implements the shared lookahead mechanics. Sources plug in a
// pull function that yields the next raw size, or false when spent.
type window struct {
	k     int
	items []*model.StreamItem
	pull  func() (geometry.Size, bool)
	seq   int
	err   error // sticky source failure, surfaced on Grab
}

func newWindow(k int) window {
	return window{k: k}
}

// init rearms the window over a fresh pull function.
func (w *window) init(pull func() (geometry.Size, bool)) {
	w.items = nil
	w.pull = pull
	w.seq = 0
	w.err = nil
}

func (w *window) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *window) next() *model.StreamItem {
	if w.pull == nil || w.err != nil {
		return nil
	}
	size, ok := w.pull()
	if !ok {
		w.pull = nil
		return nil
	}
	item := &model.StreamItem{Seq: w.seq, Size: size}
	w.seq++
	return item
}

func (w *window) peek() []*model.StreamItem {
	for len(w.items) < w.k {
		w.items = append(w.items, w.next())
	}
	return w.items
}

func (w *window) grab(i int) (*model.StreamItem, error) {
	if i < 0 || i >= w.k {
		return nil, fmt.Errorf("grab index %d outside lookahead window of %d", i, w.k)
	}
	if w.err != nil {
		return nil, w.err
	}
	w.peek()
	item := w.items[i]
	w.items = append(w.items[:i], w.items[i+1:]...)
	w.items = append(w.items, w.next())
	if w.err != nil {
		return nil, w.err
	}
	return item, nil
}

// Exhausted reports whether a peeked window contains no further items.
func Exhausted(items []*model.StreamItem) bool {
	for _, it := range items {
		if it != nil {
			return false
		}
	}
	return true
}

// Slice is a conveyor over a fixed in-memory item list, used by the
// freight adapter and by tests.
type Slice struct {
	window
	sizes []geometry.Size
}

// NewSlice builds a conveyor over the given sizes with lookahead k.
func NewSlice(k int, sizes []geometry.Size) (*Slice, error) {
	if k < 1 {
		return nil, fmt.Errorf("lookahead must be at least 1, got %d", k)
	}
	return &Slice{window: newWindow(k), sizes: sizes}, nil
}

// Reset rewinds to the start of the slice.
func (s *Slice) Reset() error {
	i := 0
	s.init(func() (geometry.Size, bool) {
		if i >= len(s.sizes) {
			return geometry.Size{}, false
		}
		size := s.sizes[i]
		i++
		return size, true
	})
	return nil
}

// Peek returns the lookahead window.
func (s *Slice) Peek() []*model.StreamItem { return s.peek() }

// Grab removes and returns the item at window index i.
func (s *Slice) Grab(i int) (*model.StreamItem, error) { return s.grab(i) }
