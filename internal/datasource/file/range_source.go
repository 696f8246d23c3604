package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// alignBufSize is the probe size used while searching for a newline.
const alignBufSize = 64 << 10

// Range is a data source over the byte interval [Start, End) of a file,
// widened to whole lines: a non-zero Start moves forward past the next
// newline (the line it lands in belongs to the previous range) and End moves
// forward through the next newline. Adjacent ranges therefore cover every
// line exactly once.
type Range struct {
	path       string
	Start, End int64
}

// NewRange binds a raw, unaligned byte range of path.
func NewRange(path string, start, end int64) *Range {
	return &Range{path: path, Start: start, End: end}
}

// Open aligns the range and returns a reader limited to it.
func (r *Range) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", r.path, err)
	}
	start, end, err := Align(f, st.Size(), r.Start, r.End)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("align %s [%d,%d): %w", r.path, r.Start, r.End, err)
	}
	if end < start {
		end = start
	}
	adviseSequential(f, start, end-start)
	return &sectionReadCloser{
		SectionReader: io.NewSectionReader(f, start, end-start),
		f:             f,
	}, nil
}

type sectionReadCloser struct {
	*io.SectionReader
	f *os.File
}

func (s *sectionReadCloser) Close() error { return s.f.Close() }

// Align widens [start, end) of a file of size filesz to line boundaries.
func Align(r io.ReaderAt, filesz, start, end int64) (int64, int64, error) {
	if end > filesz {
		end = filesz
	}
	if start > 0 {
		if err := alignStart(r, alignBufSize, filesz, &start); err != nil {
			return 0, 0, err
		}
	}
	if err := alignEnd(r, alignBufSize, filesz, &end); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// alignStart moves start just past the first newline at or after it. With
// no newline left, start becomes filesz.
func alignStart(r io.ReaderAt, tmpSz int, filesz int64, start *int64) error {
	tmp := make([]byte, tmpSz)
	pos := *start
	for pos < filesz {
		n, err := r.ReadAt(tmp, pos)
		if i := bytes.IndexByte(tmp[:n], '\n'); i >= 0 {
			*start = pos + int64(i+1)
			return nil
		}
		pos += int64(n)
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return err
		}
	}
	*start = filesz
	return nil
}

// alignEnd moves end just past the first newline at or after it, or to
// filesz when the file ends first.
func alignEnd(r io.ReaderAt, tmpSz int, filesz int64, end *int64) error {
	if *end >= filesz {
		*end = filesz
		return nil
	}
	tmp := make([]byte, tmpSz)
	pos := *end
	for pos < filesz {
		n, err := r.ReadAt(tmp, pos)
		if j := bytes.IndexByte(tmp[:n], '\n'); j >= 0 {
			*end = pos + int64(j+1)
			return nil
		}
		pos += int64(n)
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return err
		}
	}
	*end = filesz
	return nil
}
