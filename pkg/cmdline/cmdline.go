// Package cmdline splits command lines into argument vectors and derives the
// human-readable fields used to label and group run logs.
//
// Field derivation is coupled to the wording of the catalog templates
// (WEKA attribute selection runs). All of it lives here so a template change
// that breaks log grouping fails loudly in one place.
package cmdline

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/shlex"
)

// Markers located in command text.
const (
	EvaluatorMarker = "attributeSelection."
	SearchFlag      = "-s"
	InputFlag       = " -i"
	ClassifierFlag  = "-B"
)

// ErrUnrecognizedCommand indicates a command line does not have the shape
// needed to derive log fields.
var ErrUnrecognizedCommand = errors.New("unrecognized command shape")

// FieldError reports which field could not be derived and the missing marker.
type FieldError struct {
	Field  string
	Marker string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("cannot derive %s: marker %q not found", e.Field, e.Marker)
}

func (e *FieldError) Unwrap() error {
	return ErrUnrecognizedCommand
}

// Fields are the display fields derived from a command line.
type Fields struct {
	// Evaluator is the attribute evaluator with its options,
	// e.g. `WrapperSubsetEval -B "weka.classifiers.trees.J48" -F 5 -T 0.01 -R 1`.
	Evaluator string

	// Search is the search method class name, e.g. "BestFirst".
	Search string

	// Technique is the wrapped classifier class name, e.g. "J48".
	Technique string
}

// Split breaks a command line into an executable and its arguments using
// POSIX shell quoting rules, so quoted paths containing spaces stay whole.
func Split(line string) ([]string, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("split command line: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("split command line: command is empty")
	}
	return argv, nil
}

// Derive extracts the evaluator, search and technique fields.
//
// The technique is read from the first quoted -B value after the evaluator
// marker, so dataset paths containing "-B" do not affect it.
func Derive(line string) (Fields, error) {
	evaluator, err := evaluator(line)
	if err != nil {
		return Fields{}, err
	}
	search, err := search(line)
	if err != nil {
		return Fields{}, err
	}
	technique, err := technique(line)
	if err != nil {
		return Fields{}, err
	}
	return Fields{Evaluator: evaluator, Search: search, Technique: technique}, nil
}

// LogFileName returns "{technique}_{search}.log" for the command.
//
// Commands that share a technique and search method share a log file.
func LogFileName(line string) (string, error) {
	technique, err := technique(line)
	if err != nil {
		return "", err
	}

	before, _, ok := strings.Cut(line, `"`+InputFlag)
	if !ok {
		return "", &FieldError{Field: "log file search", Marker: `"` + InputFlag}
	}
	search := lastSegment(before)

	name := technique + "_" + search + ".log"
	if technique == "" || search == "" || strings.ContainsAny(name, `/\"`) || strings.ContainsFunc(name, unicode.IsSpace) {
		return "", fmt.Errorf("%w: derived log file name %q is not a plain file name", ErrUnrecognizedCommand, name)
	}
	return name, nil
}

func evaluator(line string) (string, error) {
	_, rest, ok := strings.Cut(line, EvaluatorMarker)
	if !ok {
		return "", &FieldError{Field: "evaluator", Marker: EvaluatorMarker}
	}
	value, _, ok := strings.Cut(rest, SearchFlag)
	if !ok {
		return "", &FieldError{Field: "evaluator", Marker: SearchFlag}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: evaluator is empty", ErrUnrecognizedCommand)
	}
	return value, nil
}

func search(line string) (string, error) {
	before, _, ok := strings.Cut(line, InputFlag)
	if !ok {
		return "", &FieldError{Field: "search", Marker: InputFlag}
	}
	value, _, _ := strings.Cut(lastSegment(before), `"`)
	words := strings.Fields(value)
	if len(words) == 0 {
		return "", fmt.Errorf("%w: search method is empty", ErrUnrecognizedCommand)
	}
	return words[0], nil
}

func technique(line string) (string, error) {
	_, rest, ok := strings.Cut(line, EvaluatorMarker)
	if !ok {
		return "", &FieldError{Field: "technique", Marker: EvaluatorMarker}
	}
	_, value, ok := strings.Cut(rest, ClassifierFlag+` "`)
	if !ok {
		return "", &FieldError{Field: "technique", Marker: ClassifierFlag + ` "`}
	}
	value, _, ok = strings.Cut(value, `"`)
	if !ok {
		return "", fmt.Errorf("%w: classifier value is not quoted", ErrUnrecognizedCommand)
	}
	value = strings.TrimSpace(lastSegment(value))
	if value == "" {
		return "", fmt.Errorf("%w: technique is empty", ErrUnrecognizedCommand)
	}
	return value, nil
}

func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
