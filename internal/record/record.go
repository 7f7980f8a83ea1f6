// Package record implements the on-disk encoding shared by every segment and
// the write-ahead log: one key-value pair per line, encoded as
// self-describing JSON and terminated by '\n'.
package record

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/ignitekv/ignitekv/pkg/errors"
)

// Record is a single key-value pair as it travels through the engine,
// segments, and the WAL.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Encode serializes r to its canonical line form, including the trailing
// newline. The encoding never embeds a raw '\n' in the key or value: JSON
// string encoding escapes newlines as "\n", so the contract that encoded
// output is newline-safe holds regardless of the record's contents.
func Encode(r Record) ([]byte, error) {
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, pkgerrors.NewDecodeError(err, pkgerrors.ErrorCodeDecodeFailure, "failed to encode record").
			WithDetail("key", r.Key)
	}
	buf = append(buf, '\n')
	return buf, nil
}

// Decode parses a single line (without its trailing newline) back into a
// Record. It returns a DecodeError on malformed input.
func Decode(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, pkgerrors.NewMalformedLineError(err, string(line), 0)
	}
	return r, nil
}

// DecodeLine is a convenience wrapper over Decode for callers holding a
// string line (e.g. from bufio.Scanner.Text) rather than a byte slice, with
// a known line number for diagnostics.
func DecodeLine(line string, lineNumber int) (Record, error) {
	r, err := Decode([]byte(line))
	if err != nil {
		if de, ok := pkgerrors.AsDecodeError(err); ok {
			de.WithLineNumber(lineNumber)
		}
		return Record{}, err
	}
	return r, nil
}

// TrimNewline strips a single trailing '\n' (and an optional preceding '\r')
// from a raw line read off disk.
func TrimNewline(line string) string {
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
}
