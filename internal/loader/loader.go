// Package loader reads capacity logs: one "<time> <capacity>" record per line,
// no header.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jgoulah/capplot/pkg/models"
)

const maxLineSize = 1 << 20

// ErrMalformedLine indicates a line that is not exactly two numeric fields.
var ErrMalformedLine = errors.New("malformed line")

// LineError reports which line of the input could not be parsed.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Options controls how lines are split into fields
type Options struct {
	// Whitespace accepts any run of spaces or tabs between fields. When false
	// the separator is exactly one space.
	Whitespace bool
}

// Load reads the capacity log at path
func Load(path string, opts Options) ([]models.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capacity log: %w", err)
	}
	defer file.Close()

	records, err := Parse(file, opts)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return records, nil
}

// Parse reads records from r in input order. Empty lines are skipped (and,
// in whitespace mode, whitespace-only lines); any other line must hold
// exactly two finite numbers.
func Parse(r io.Reader, opts Options) ([]models.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	records := make([]models.Record, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		// ScanLines already drops a single trailing \r
		line := scanner.Text()
		if line == "" || (opts.Whitespace && strings.TrimSpace(line) == "") {
			continue
		}

		record, err := parseLine(line, opts)
		if err != nil {
			return nil, &LineError{Line: lineNo, Text: line, Err: err}
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning line %d: %w", lineNo+1, err)
	}

	return records, nil
}

func parseLine(line string, opts Options) (models.Record, error) {
	var fields []string
	if opts.Whitespace {
		fields = strings.Fields(line)
	} else {
		fields = strings.Split(line, " ")
	}

	if len(fields) != 2 {
		return models.Record{}, fmt.Errorf("%w: expected 2 fields, got %d", ErrMalformedLine, len(fields))
	}

	t, err := parseNumber(fields[0])
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: time: %v", ErrMalformedLine, err)
	}
	c, err := parseNumber(fields[1])
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: capacity: %v", ErrMalformedLine, err)
	}

	return models.Record{Time: t, Capacity: c}, nil
}

// parseNumber accepts decimal notation only; ParseFloat alone would also
// take hex floats such as 0x1p3.
func parseNumber(s string) (float64, error) {
	if strings.ContainsAny(s, "xX_") {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}
