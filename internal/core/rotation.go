package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// journalFormat selects the encoding of every segment a RotatingWriter
// writes (via newWriter) and a RotatingReader decodes (via openSegment).
// Both encodings share the same segment naming and rotation mechanics; only
// the byte format differs.
type journalFormat int

const (
	FormatBinary journalFormat = iota
	FormatText
)

func (f journalFormat) newWriter(path string) (JournalWriter, error) {
	switch f {
	case FormatBinary:
		return NewBinaryJournalWriter(path)
	case FormatText:
		return NewTextJournalWriter(path)
	default:
		return nil, fmt.Errorf("core: unknown journal format %d", f)
	}
}

const segmentExt = ".log"
const archiveExt = ".log.zst"

func segmentPath(dir string, format journalFormat, index int) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%08d%s", index, segmentExt))
}

func archivePath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%08d%s", index, archiveExt))
}

// RotatingWriter wraps a sequence of journal segments in one directory. It
// writes to an active, uncompressed segment; once that segment reaches
// maxSegmentBytes, it closes the segment, compresses it into a .log.zst
// archive with zstd, removes the uncompressed copy, and opens a fresh active
// segment. Archived segments are never rewritten once compressed.
type RotatingWriter struct {
	dir             string
	format          journalFormat
	maxSegmentBytes int64

	index  int
	active JournalWriter
	path   string
}

func NewRotatingWriter(dir string, format journalFormat, maxSegmentBytes int64) (*RotatingWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	index, err := nextSegmentIndex(dir)
	if err != nil {
		return nil, err
	}
	rw := &RotatingWriter{dir: dir, format: format, maxSegmentBytes: maxSegmentBytes, index: index}
	if err := rw.openActive(); err != nil {
		return nil, err
	}
	return rw, nil
}

func nextSegmentIndex(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	highest := -1
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "segment-") {
			continue
		}
		rest := strings.TrimPrefix(name, "segment-")
		rest = strings.TrimSuffix(strings.TrimSuffix(rest, archiveExt), segmentExt)
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func (rw *RotatingWriter) openActive() error {
	path := segmentPath(rw.dir, rw.format, rw.index)
	writer, err := rw.format.newWriter(path)
	if err != nil {
		return err
	}
	rw.active = writer
	rw.path = path
	return nil
}

func (rw *RotatingWriter) Write(msg Message) error {
	if err := rw.active.Write(msg); err != nil {
		return err
	}
	info, err := os.Stat(rw.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	if info.Size() < rw.maxSegmentBytes {
		return nil
	}
	return rw.rotate()
}

func (rw *RotatingWriter) rotate() error {
	if err := rw.active.Close(); err != nil {
		return err
	}
	if err := compressSegment(rw.path, archivePath(rw.dir, rw.index)); err != nil {
		return err
	}
	rw.index++
	return rw.openActive()
}

func compressSegment(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJournalIo, err)
	}

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		dst.Close()
		return fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	if _, err := enc.ReadFrom(src); err != nil {
		enc.Close()
		dst.Close()
		return fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	if err := enc.Close(); err != nil {
		dst.Close()
		return fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrJournalIo, err)
	}
	return os.Remove(srcPath)
}

func (rw *RotatingWriter) Close() error {
	return rw.active.Close()
}

// RotatingReader presents every segment under dir as one continuous
// JournalReader. Segments are read in ascending index order, whether
// archived or not: archived (.log.zst) segments are decoded through a zstd
// decompressor, uncompressed (.log) segments are read directly off disk.
type RotatingReader struct {
	format  journalFormat
	entries []segmentEntry
	pos     int
	current JournalReader
}

type segmentEntry struct {
	path      string
	compressed bool
}

func NewRotatingReader(dir string, format journalFormat) (*RotatingReader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJournalIo, err)
	}

	byIndex := map[int]segmentEntry{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, archiveExt):
			idx, err := parseSegmentIndex(name, archiveExt)
			if err != nil {
				continue
			}
			byIndex[idx] = segmentEntry{path: filepath.Join(dir, name), compressed: true}
		case strings.HasSuffix(name, segmentExt):
			idx, err := parseSegmentIndex(name, segmentExt)
			if err != nil {
				continue
			}
			byIndex[idx] = segmentEntry{path: filepath.Join(dir, name), compressed: false}
		}
	}

	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	ordered := make([]segmentEntry, 0, len(indices))
	for _, idx := range indices {
		ordered = append(ordered, byIndex[idx])
	}

	return &RotatingReader{format: format, entries: ordered}, nil
}

func parseSegmentIndex(name, suffix string) (int, error) {
	rest := strings.TrimPrefix(strings.TrimSuffix(name, suffix), "segment-")
	return strconv.Atoi(rest)
}

func (r *RotatingReader) Next() (Message, error) {
	for {
		if r.current == nil {
			if r.pos >= len(r.entries) {
				return Message{}, io.EOF
			}
			reader, err := r.openSegment(r.entries[r.pos])
			if err != nil {
				return Message{}, err
			}
			r.current = reader
		}

		msg, err := r.current.Next()
		if err == nil {
			return msg, nil
		}
		if err == io.EOF {
			r.current.Close()
			r.current = nil
			r.pos++
			continue
		}
		return Message{}, err
	}
}

func (r *RotatingReader) openSegment(entry segmentEntry) (JournalReader, error) {
	file, err := os.Open(entry.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJournalIo, err)
	}

	var rc io.ReadCloser = file
	if entry.compressed {
		dec, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: %v", ErrJournalIo, err)
		}
		rc = zstdReadCloser{Decoder: dec, underlying: file}
	}

	switch r.format {
	case FormatBinary:
		return NewBinaryJournalReaderFromStream(rc), nil
	case FormatText:
		return NewTextJournalReaderFromStream(rc), nil
	default:
		return nil, fmt.Errorf("core: unknown journal format %d", r.format)
	}
}

// zstdReadCloser adapts a *zstd.Decoder (whose Close takes no error) to
// io.ReadCloser, also closing the underlying compressed file it reads from.
type zstdReadCloser struct {
	*zstd.Decoder
	underlying *os.File
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.underlying.Close()
}

func (r *RotatingReader) Close() error {
	if r.current != nil {
		return r.current.Close()
	}
	return nil
}
