// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rotatewriter writes log lines into size bounded files, keeping a fixed number of them.
package rotatewriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const timeLayout = "2006-01-02T15-04-05"

// Writer is an io.WriteCloser rotating files named <base>-<time>.log in a directory.
type Writer struct {
	dir      string
	base     string
	maxSize  int64
	maxFiles int
	now      func() time.Time

	mu   sync.Mutex
	file *os.File
	size int64
	seq  int
}

type Option func(*Writer)

func WithDir(dir string) Option             { return func(w *Writer) { w.dir = dir } }
func WithFileBaseName(base string) Option   { return func(w *Writer) { w.base = base } }
func WithFileMaxSize(size int64) Option     { return func(w *Writer) { w.maxSize = size } }
func WithMaxNumberFiles(n int) Option       { return func(w *Writer) { w.maxFiles = n } }
func withClock(now func() time.Time) Option { return func(w *Writer) { w.now = now } }

// New creates the directory and opens the first file.
func New(opts ...Option) (*Writer, error) {
	w := &Writer{
		base:    "poold",
		maxSize: 64 << 20,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.dir == "" {
		return nil, errors.New("log dir required")
	}
	if w.maxSize <= 0 {
		return nil, errors.New("max file size must be positive")
	}
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	if err := w.openNext(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends p to the current file, rotating first when p doesn't fit.
// A single write larger than the max size still lands in one file.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, io.ErrClosedPipe
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.openNext(); err != nil {
			return 0, err
		}
		if err := w.prune(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Name returns the path of the file being written.
func (w *Writer) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return ""
	}
	return w.file.Name()
}

func (w *Writer) openNext() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return errors.Wrap(err, "close log file")
		}
		w.file = nil
	}

	stamp := w.now().Format(timeLayout)
	var path string
	for {
		path = filepath.Join(w.dir, fmt.Sprintf("%s-%s-%04d.log", w.base, stamp, w.seq))
		w.seq++
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	w.file = f
	w.size = 0
	return nil
}

// prune removes the oldest files beyond maxFiles. Zero keeps everything.
// File names sort in creation order.
func (w *Writer) prune() error {
	if w.maxFiles <= 0 {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(w.dir, w.base+"-*.log"))
	if err != nil {
		return err
	}
	if len(files) <= w.maxFiles {
		return nil
	}
	sort.Strings(files)
	current := w.file.Name()
	for _, f := range files[:len(files)-w.maxFiles] {
		if f == current {
			continue
		}
		if err := os.Remove(f); err != nil {
			return errors.Wrap(err, "remove old log file")
		}
	}
	return nil
}
