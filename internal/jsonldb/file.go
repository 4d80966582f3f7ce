package jsonldb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// ErrStoreNotFound is returned by every File method when the backing file
// does not exist.
var ErrStoreNotFound = errors.New("store file not found")

var errPathRequired = errors.New("path is required")

// File handles storage of rows of type T in a JSONL file.
//
// File keeps no state besides its path and is not safe for concurrent writers.
type File[T any] struct {
	path string
}

// NewFile returns a File for path. The file is not touched.
func NewFile[T any](path string) (*File[T], error) {
	if path == "" {
		return nil, errPathRequired
	}
	if _, err := rowStructType[T](); err != nil {
		return nil, err
	}
	return &File[T]{path: path}, nil
}

// Path returns the backing file path.
func (f *File[T]) Path() string {
	return f.path
}

// Create creates an empty file and its parent directory if missing.
//
// It is a no-op when the file already exists.
func (f *File[T]) Create() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create directory for %s: %w", f.path, err)
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // G302: store file is not secret
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("failed to create table file: %w", err)
	}
	return fh.Close()
}

// Append encodes row and writes it as a new last line.
//
// If the file does not end with a newline (manual edit), one is added first so
// the previous line is kept intact.
func (f *File[T]) Append(row T) error {
	return f.guard(f.append(row))
}

// Scan returns an iterator over the decoded rows, in file order.
//
// Iteration stops at the first error, which is yielded with a zero row. A blank
// line is a decoding error like any other malformed line.
func (f *File[T]) Scan() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		fh, err := os.Open(f.path)
		if err != nil {
			yield(zero, f.guard(fmt.Errorf("failed to open table file: %w", err)))
			return
		}
		defer func() {
			_ = fh.Close()
		}()
		stopped := false
		err = readLines(fh, func(n int, line []byte) error {
			row, err := Decode[T](line)
			if err != nil {
				return withLine(err, n)
			}
			if !yield(row, nil) {
				stopped = true
				return errStop
			}
			return nil
		})
		if err != nil && !stopped {
			yield(zero, f.guard(err))
		}
	}
}

// All returns every row in file order. An empty file yields an empty slice.
func (f *File[T]) All() ([]T, error) {
	rows := []T{}
	for row, err := range f.Scan() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Rewrite atomically rewrites the file, passing each decoded row to fn.
//
// When fn returns replace == true, the returned row is encoded in place of the
// original line. Other lines are copied byte for byte. Returns how many rows
// were replaced. When none were, or on any error, the temporary file is
// removed and the original file is left untouched.
func (f *File[T]) Rewrite(fn func(row T) (T, bool, error)) (int, error) {
	n, err := f.rewrite(fn)
	return n, f.guard(err)
}

// guard translates a missing backing file into ErrStoreNotFound.
func (f *File[T]) guard(err error) error {
	if err == nil || errors.Is(err, ErrStoreNotFound) || !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreNotFound, err)
}

func (f *File[T]) append(row T) error {
	data, err := Encode(row)
	if err != nil {
		return err
	}
	// No O_CREATE: appending must not resurrect a missing store.
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = fh.Close()
	}()

	st, err := fh.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat table file: %w", err)
	}
	buf := make([]byte, 0, len(data)+2)
	if size := st.Size(); size > 0 {
		last := []byte{0}
		if _, err := fh.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("failed to read table file: %w", err)
		}
		if last[0] != '\n' {
			buf = append(buf, '\n')
		}
	}
	buf = append(buf, data...)
	buf = append(buf, '\n')
	if _, err := fh.Write(buf); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return fh.Close()
}

func (f *File[T]) rewrite(fn func(row T) (T, bool, error)) (int, error) {
	perm, err := f.mode()
	if err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	n, err := f.copyTo(w, fn)
	if err == nil {
		err = w.Flush()
	}
	if err == nil && n > 0 {
		if err = tmp.Chmod(perm); err == nil {
			err = tmp.Sync()
		}
	}
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close temp file: %w", cerr)
	}
	if err != nil || n == 0 {
		return 0, errors.Join(err, os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return 0, errors.Join(fmt.Errorf("failed to replace table file: %w", err), os.Remove(tmpPath))
	}
	return n, nil
}

// copyTo streams the original file into w, substituting rows fn replaces.
// The source is closed before returning so the rename can proceed everywhere.
func (f *File[T]) copyTo(w io.Writer, fn func(row T) (T, bool, error)) (int, error) {
	src, err := os.Open(f.path)
	if err != nil {
		return 0, fmt.Errorf("failed to open table file: %w", err)
	}
	defer func() {
		_ = src.Close()
	}()
	replaced := 0
	err = readLines(src, func(n int, line []byte) error {
		row, err := Decode[T](line)
		if err != nil {
			return withLine(err, n)
		}
		updated, replace, err := fn(row)
		if err != nil {
			return err
		}
		if !replace {
			_, err := w.Write(line)
			return err
		}
		data, err := Encode(updated)
		if err != nil {
			return err
		}
		replaced++
		if _, err := w.Write(data); err != nil {
			return err
		}
		_, err = w.Write([]byte{'\n'})
		return err
	})
	return replaced, err
}

func (f *File[T]) mode() (fs.FileMode, error) {
	st, err := os.Stat(f.path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat table file: %w", err)
	}
	return st.Mode().Perm(), nil
}

// errStop ends readLines early without reporting an error.
var errStop = errors.New("stop")

// readLines calls fn with each raw line of r, including its terminator, and
// its 1-based number. The last line may lack a terminator.
func readLines(r io.Reader, fn func(n int, line []byte) error) error {
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if ferr := fn(n, line); ferr != nil {
				if ferr == errStop { //nolint:errorlint // sentinel is never wrapped
					return nil
				}
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read table file: %w", err)
		}
	}
}

func withLine(err error, n int) error {
	var de *DecodingError
	if errors.As(err, &de) && de.Line == 0 {
		de.Line = n
	}
	return err
}
