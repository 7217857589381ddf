package project

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kittfreight/deeppack/internal/conveyor"
)

// DumpStream drains a conveyor into the plain text stream format, one
// "w h d" triple per line. max caps the number of items written; zero
// means drain until the source ends. The conveyor is reset first, so a
// seeded generated source dumps its canonical stream.
func DumpStream(w io.Writer, conv conveyor.Conveyor, max int) (int, error) {
	if err := conv.Reset(); err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	count := 0
	for max <= 0 || count < max {
		item, err := conv.Grab(0)
		if err != nil {
			return count, err
		}
		if item == nil {
			break
		}
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", item.Size.W, item.Size.H, item.Size.D); err != nil {
			return count, err
		}
		count++
	}
	return count, bw.Flush()
}

// DumpStreamFile writes the stream dump to a file, creating parent
// directories as needed.
func DumpStreamFile(path string, conv conveyor.Conveyor, max int) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := DumpStream(f, conv, max)
	if err != nil {
		return n, err
	}
	return n, f.Sync()
}
