// Package normalize turns a discovered file into the text handed to the parser.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedEncoding is returned for files whose bytes are not valid UTF-8.
var ErrUnsupportedEncoding = errors.New("unsupported file encoding")

// NotebookExtension marks cell-structured notebook documents.
const NotebookExtension = ".ipynb"

// Content is the normalized text of one file.
type Content struct {
	Text string
	// DecodeErr is set when a notebook could not be decoded. Text is then empty
	// and the file is still handed to the parser.
	DecodeErr error
}

// notebook is the subset of the nbformat document we need.
type notebook struct {
	Cells []cell `json:"cells"`
}

type cell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// File reads path and normalizes it. Read failures and invalid encodings are
// returned as errors; notebook decode failures are not.
func File(path string) (Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Bytes(path, raw)
}

// Bytes normalizes already-read file content. The name only selects the format.
func Bytes(name string, raw []byte) (Content, error) {
	if !strings.HasSuffix(name, NotebookExtension) {
		if !utf8.Valid(raw) {
			return Content{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupportedEncoding, name)
		}
		return Content{Text: string(raw)}, nil
	}

	// a notebook that is not even text is just another undecodable document
	if !utf8.Valid(raw) {
		return Content{DecodeErr: fmt.Errorf("%w: notebook is not valid UTF-8", ErrUnsupportedEncoding)}, nil
	}
	text, err := Notebook(raw)
	if err != nil {
		return Content{DecodeErr: err}, nil
	}
	return Content{Text: text}, nil
}

// Notebook concatenates the source of every code cell in document order.
// A cell's source is either a list of lines, joined with no separator, or a
// single string. Cells are joined with a newline.
func Notebook(raw []byte) (string, error) {
	var nb notebook
	if err := json.Unmarshal(raw, &nb); err != nil {
		return "", fmt.Errorf("failed to decode notebook: %w", err)
	}

	var parts []string
	for i, c := range nb.Cells {
		if c.CellType != "code" {
			continue
		}
		src, err := cellSource(c.Source)
		if err != nil {
			return "", fmt.Errorf("failed to decode notebook cell %d: %w", i, err)
		}
		parts = append(parts, src)
	}

	return strings.Join(parts, "\n"), nil
}

func cellSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, ""), nil
	}

	var block string
	if err := json.Unmarshal(raw, &block); err != nil {
		return "", err
	}
	return block, nil
}

// Preview returns the first n characters of text. Characters are runes, so a
// multi-byte character is never split.
func Preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}
