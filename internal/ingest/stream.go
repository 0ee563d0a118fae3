// Package ingest bulk-loads the flat-file export of the movie catalog into
// the relational source. Files are streamed record by record; the reader
// and the batched loader run concurrently and are connected by a bounded
// channel, so memory stays around one batch regardless of file size.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// nullMarkers are cell values loaded as NULL.
var nullMarkers = map[string]bool{`\N`: true, "": true, "NaN": true}

// DetectComma picks the field separator from the first line. Exports that
// contain quoted tuple fragments ("('") are comma separated; everything
// else is treated as TSV.
func DetectComma(firstLine string) rune {
	if strings.Contains(firstLine, "('") {
		return ','
	}
	return '\t'
}

// StreamRecords reads a delimited file with a header row and sends each data
// record, truncated to width and with null markers mapped to nil, to out.
//
// Records with fewer than width fields are soft errors: they are reported
// through onError with their line number and skipped. The caller closes out.
func StreamRecords(ctx context.Context, r io.Reader, width int, out chan<- []any, onError func(line int, err error)) error {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return fmt.Errorf("ingest: peek: %w", err)
	}
	line, _, _ := strings.Cut(string(first), "\n")

	cr := csv.NewReader(br)
	cr.Comma = DetectComma(line)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err == io.EOF {
		return nil
	} else if err != nil {
		return fmt.Errorf("ingest: read header: %w", err)
	}

	n := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		n++
		if err != nil {
			if onError != nil {
				onError(n, fmt.Errorf("parse: %w", err))
			}
			continue
		}
		if len(rec) < width {
			if onError != nil {
				onError(n, fmt.Errorf("expected %d fields, got %d", width, len(rec)))
			}
			continue
		}

		row := make([]any, width)
		for i, v := range rec[:width] {
			if !nullMarkers[v] {
				row[i] = v
			}
		}
		select {
		case out <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
