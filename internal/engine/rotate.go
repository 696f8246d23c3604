package engine

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zeebo/xxh3"

	"csvsplit/internal/writer"
	"csvsplit/pkg/records"
)

// FilePrefix starts every output file name.
const FilePrefix = "split_part_"

// FileName builds an output file name. partition 0 means sequential naming:
//
//	split_part_<file>_<date><ext>             sequential
//	split_part_<partition>_<file>_<date><ext> parallel
func FileName(partition, index int, date, ext string) string {
	name := FilePrefix
	if partition > 0 {
		name += strconv.Itoa(partition) + "_"
	}
	return name + strconv.Itoa(index) + "_" + date + ext
}

// writeRowError marks a failure confined to one row's encoding.
type writeRowError struct{ err error }

func (e *writeRowError) Error() string { return e.err.Error() }
func (e *writeRowError) Unwrap() error { return e.err }

// outFile is the open output file; every byte written is counted and hashed.
type outFile struct {
	f    *os.File
	bw   *bufio.Writer
	h    *xxh3.Hasher
	path string
	rows int64
	size int64
}

func (o *outFile) Write(p []byte) (int, error) {
	n, err := o.bw.Write(p)
	_, _ = o.h.Write(p[:n])
	o.size += int64(n)
	return n, err
}

// rotator owns the output file sequence of one split. The next file is opened
// lazily, when a row arrives and no file is open.
type rotator struct {
	dir       string
	date      string
	partition int
	max       int64
	w         writer.Writer
	headers   []string

	cur   *outFile
	index int
	files []FileInfo

	// onRotate is called before a full file is finalized.
	onRotate func()
}

func (r *rotator) open() error {
	r.index++
	path := filepath.Join(r.dir, FileName(r.partition, r.index, r.date, r.w.Extension()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output %s: %w", path, err)
	}
	o := &outFile{f: f, bw: bufio.NewWriterSize(f, 256<<10), h: xxh3.New(), path: path}
	if err := r.w.WriteHeader(o, r.headers); err != nil {
		f.Close()
		return fmt.Errorf("write header %s: %w", path, err)
	}
	r.cur = o
	return nil
}

// write appends one row, opening a file if needed and finalizing it once it
// holds max rows. Encoding failures come back as *writeRowError.
func (r *rotator) write(rec records.Record) error {
	if r.cur == nil {
		if err := r.open(); err != nil {
			return err
		}
	}
	if err := r.w.WriteRow(r.cur, rec, r.headers); err != nil {
		return &writeRowError{err: err}
	}
	r.cur.rows++
	if r.cur.rows >= r.max {
		if r.onRotate != nil {
			r.onRotate()
		}
		return r.close()
	}
	return nil
}

// close finalizes the open file: footer, flush, close, record FileInfo.
func (r *rotator) close() error {
	o := r.cur
	if o == nil {
		return nil
	}
	r.cur = nil
	if err := r.w.WriteFooter(o); err != nil {
		o.f.Close()
		return fmt.Errorf("write footer %s: %w", o.path, err)
	}
	if err := o.bw.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("flush %s: %w", o.path, err)
	}
	if err := o.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", o.path, err)
	}
	r.files = append(r.files, FileInfo{
		Partition: r.partition,
		Index:     r.index,
		Path:      o.path,
		Rows:      o.rows,
		Bytes:     o.size,
		Checksum:  fmt.Sprintf("%016x", o.h.Sum64()),
	})
	return nil
}

// abort closes the open file without a footer. Used on fatal errors.
func (r *rotator) abort() {
	if r.cur != nil {
		_ = r.cur.bw.Flush()
		_ = r.cur.f.Close()
		r.cur = nil
	}
}
