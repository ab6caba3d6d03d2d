package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// Buffer sizing. Lines carrying pasted file contents run large; the cap
// bounds memory regardless of file size. readerMaxLine is a var so tests
// can shrink it.
const readerInitialBuf = 256 * 1024

var readerMaxLine = 10 * 1024 * 1024

// ReadStats reports what happened while streaming one file.
type ReadStats struct {
	Lines     int // total lines seen
	Malformed int // lines skipped because they did not decode
}

// ErrStop may be returned by a Stream callback to end the walk early
// without reporting an error.
var ErrStop = errors.New("source: stop streaming")

// Stream decodes a JSONL file line by line, invoking fn for each well-formed
// record with its 1-based line number. Malformed lines are counted and
// skipped; a line over the cap is discarded, counted malformed, and reading
// continues with the next line. Memory stays bounded by the line cap, never
// the file size.
func Stream(path string, fn func(line int, entry *RawEntry) error) (ReadStats, error) {
	var stats ReadStats

	f, err := os.Open(path)
	if err != nil {
		return stats, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReaderSize(f, readerInitialBuf)
	buf := make([]byte, 0, readerInitialBuf)
	tooLong := false

	for {
		chunk, rerr := r.ReadSlice('\n')
		if len(chunk) > 0 && !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > readerMaxLine {
				// Drop the rest of this line but keep reading the file.
				tooLong = true
				buf = buf[:0]
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return stats, fmt.Errorf("read %s: %w", path, rerr)
		}

		eof := errors.Is(rerr, io.EOF)
		if eof && len(buf) == 0 && !tooLong {
			return stats, nil
		}

		stats.Lines++
		line := bytes.TrimRight(buf, "\r\n")
		buf = buf[:0]

		switch {
		case tooLong:
			tooLong = false
			stats.Malformed++
		case len(line) == 0:
			// blank line
		default:
			var entry RawEntry
			if err := json.Unmarshal(line, &entry); err != nil {
				stats.Malformed++
				break
			}
			if err := fn(stats.Lines, &entry); err != nil {
				if errors.Is(err, ErrStop) {
					return stats, nil
				}
				return stats, err
			}
		}

		if eof {
			return stats, nil
		}
	}
}

// IsNotFound reports whether err means the source file is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsTransient reports whether err is a file-access failure worth retrying
// next cycle: permission problems or a file busy/locked by its writer.
func IsTransient(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EAGAIN)
}
