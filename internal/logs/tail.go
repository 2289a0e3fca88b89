package logs

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineSize       = 1024 * 1024
)

// Tail returns the last n lines of the newest file in prefix's rotation
// family. Each yielded chunk is one line followed by "\n", oldest first.
//
// When no log file exists yet the sequence yields a single empty string and
// no error. With n <= 0 an existing file yields nothing. Any other failure is
// yielded once as an error and ends the sequence.
//
// The sequence is lazy: every range over it repeats the lookup and read.
func (a *Accessor) Tail(prefix string, n int) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		newest, err := a.Newest(prefix)
		if err != nil {
			yield("", err)
			return
		}
		if newest == "" {
			yield("", nil)
			return
		}

		f, err := os.Open(newest)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				yield("", nil)
				return
			}
			yield("", err)
			return
		}
		defer f.Close()

		lines, err := LastLines(f, n)
		if err != nil {
			yield("", err)
			return
		}
		for _, line := range lines {
			if !yield(line+"\n", nil) {
				return
			}
		}
	}
}

// TailFunc calls emit for every chunk Tail produces and returns the first
// error encountered.
func (a *Accessor) TailFunc(prefix string, n int, emit func(string)) error {
	for chunk, err := range a.Tail(prefix, n) {
		if err != nil {
			return err
		}
		emit(chunk)
	}
	return nil
}

// LastLines reads r to the end and returns its last n lines without line
// terminators. Only n lines are held in memory at any time.
func LastLines(r io.Reader, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	w := newWindow(n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineSize)
	for scanner.Scan() {
		w.push(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return w.lines(), nil
}

// window keeps the most recent lines pushed into it, up to size.
type window struct {
	buf  []string
	size int
	next int // slot overwritten by the next push once buf is full
}

func newWindow(size int) *window {
	return &window{
		buf:  make([]string, 0, min(size, 1024)),
		size: size,
	}
}

func (w *window) push(line string) {
	if len(w.buf) < w.size {
		w.buf = append(w.buf, line)
		return
	}
	w.buf[w.next] = line
	w.next = (w.next + 1) % w.size
}

// lines returns the retained lines in the order they were pushed.
func (w *window) lines() []string {
	out := make([]string, 0, len(w.buf))
	out = append(out, w.buf[w.next:]...)
	return append(out, w.buf[:w.next]...)
}
