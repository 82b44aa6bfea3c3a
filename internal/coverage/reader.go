/*
Handle the CSV exported by JaCoCo (jacoco.csv).
*/
package coverage

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const maxLineSize = 1024 * 1024

// ErrFileNotFound is returned by Open when the input CSV does not exist.
var ErrFileNotFound = errors.New("file not found")

// Record is a data line of the CSV, mapped by position to the header names.
type Record struct {
	index  map[string]int
	fields []string
}

// Get returns the value of the column, or an empty string when the column is
// unknown or the line is shorter than the header.
func (r Record) Get(column string) string {
	idx, ok := r.index[column]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return r.fields[idx]
}

// Reader pulls records from a coverage CSV one line at a time. The first line
// is the header.
type Reader struct {
	Path string

	file    *os.File
	scanner *bufio.Scanner
	header  []string
	index   map[string]int
	record  Record
	line    int
	err     error
}

// Open opens the CSV and reads its header. Each call starts a new pass over the file.
func Open(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrFileNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "error reading file %s", path)
	}
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading file %s", path)
	}

	r := &Reader{
		Path:    path,
		file:    fd,
		scanner: bufio.NewScanner(fd),
		index:   map[string]int{},
	}
	r.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	if r.scanner.Scan() {
		r.line++
		header := strings.TrimPrefix(trimEOL(r.scanner.Text()), "\ufeff")
		r.header = ParseLine(header)
		for idx, name := range r.header {
			r.index[name] = idx
		}
	}
	if err := r.scanner.Err(); err != nil {
		fd.Close()
		return nil, errors.Wrapf(err, "error reading header of %s", path)
	}
	return r, nil
}

// Header returns the column names, empty for an empty file.
func (r *Reader) Header() []string {
	return r.header
}

// Next advances to the next non-empty data line.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.scanner.Scan() {
		r.line++
		line := trimEOL(r.scanner.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := ParseLine(line)
		if len(fields) != len(r.header) {
			log.Debugf("%s:%d: expected %d fields, found %d", r.Path, r.line, len(r.header), len(fields))
		}
		r.record = Record{index: r.index, fields: fields}
		return true
	}
	if err := r.scanner.Err(); err != nil {
		r.err = errors.Wrapf(err, "error reading %s at line %d", r.Path, r.line+1)
	}
	return false
}

// Record returns the record read by the last call to Next.
func (r *Reader) Record() Record {
	return r.record
}

// Err returns the first read error, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// ParseLine splits a CSV line into trimmed fields. Commas inside double quotes
// are kept, and a doubled quote is a literal quote.
func ParseLine(line string) []string {
	fields := []string{}
	var current strings.Builder
	quoted := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if quoted && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
				continue
			}
			quoted = !quoted
		case c == ',' && !quoted:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

func trimEOL(line string) string {
	return strings.TrimSuffix(line, "\r")
}
