// Package builder materializes a selection of catalog entries into a
// persisted command list, one command per line.
package builder

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/3leaps/gobatch/internal/fsutil"
	"github.com/3leaps/gobatch/pkg/catalog"
	"github.com/3leaps/gobatch/pkg/selection"
)

// WriteError reports a command file that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write command file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Build parses selectionText and renders the selected catalog entries in
// ascending id order.
//
// Errors are *selection.ParseError for a malformed selection and
// *catalog.LookupError for an id the catalog does not have.
func Build(cat *catalog.Catalog, p catalog.Params, selectionText string) ([]string, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	ids, err := selection.Parse(selectionText)
	if err != nil {
		return nil, err
	}
	return cat.Resolve(ids, p)
}

// BuildCommandFile writes the selected commands to outputPath, replacing any
// previous content, and returns outputPath.
//
// All ids are resolved before anything touches the disk, and the file is
// replaced by rename, so a failed build leaves a prior file unmodified.
func BuildCommandFile(cat *catalog.Catalog, p catalog.Params, selectionText, outputPath string) (string, error) {
	if strings.TrimSpace(outputPath) == "" {
		return "", fmt.Errorf("output path is required")
	}

	lines, err := Build(cat, p, selectionText)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if err := fsutil.WriteFileAtomic(outputPath, buf.Bytes(), 0o644); err != nil {
		return "", &WriteError{Path: outputPath, Err: err}
	}
	return outputPath, nil
}

// ReadCommandFile reads a command list written by BuildCommandFile.
//
// Line terminators (LF or CRLF) are stripped and blank lines are skipped.
func ReadCommandFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open command file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read command file: %w", err)
	}
	return lines, nil
}
