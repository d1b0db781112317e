// Package ingest reads the raw observation archive from disk. It is a thin
// boundary wrapper: records come out as undecoded JSON for the normalizer to
// judge, so one bad record never poisons the rest of the file.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxRecordSize bounds a single NDJSON line.
const maxRecordSize = 1 << 20

// ReadArchive loads raw observation records from path. The file may hold a
// single top-level JSON array or newline-delimited JSON, one record per
// line; the format is auto-detected.
func ReadArchive(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes raw records from r. See ReadArchive for the accepted formats.
func Read(r io.Reader) ([]json.RawMessage, error) {
	br := bufio.NewReader(r)

	first, err := firstNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	if first == '[' {
		var records []json.RawMessage
		dec := json.NewDecoder(br)
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode archive array: %w", err)
		}
		return records, nil
	}

	var records []json.RawMessage
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan archive: %w", err)
	}
	return records, nil
}

// firstNonSpace peeks past leading whitespace without consuming the first
// meaningful byte.
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			if err := br.UnreadByte(); err != nil {
				return 0, err
			}
			return b, nil
		}
	}
}
