package runlog

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// FormatError reports a record that does not follow the log layout.
type FormatError struct {
	// Index is the 0-based record position in the file.
	Index  int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("run log record %d: %s", e.Index, e.Reason)
}

// Parse reads every record from a run log.
//
// A record must be complete: all labelled fields in order and a closing
// separator. Stdout that itself contains a header line cannot be told apart
// from a new record and is reported as malformed.
func Parse(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	text := string(data)
	if text == "" {
		return nil, nil
	}

	header := Header + "\n"
	if !strings.HasPrefix(text, header) {
		return nil, &FormatError{Index: 0, Reason: "missing run header"}
	}

	var out []Record
	for i := 0; text != ""; i++ {
		body := text[len(header):]
		var block string
		if next := strings.Index(body, "\n"+header); next >= 0 {
			block, text = body[:next+1], body[next+1:]
		} else {
			block, text = body, ""
		}

		rec, err := parseBlock(block)
		if err != nil {
			return out, &FormatError{Index: i, Reason: err.Error()}
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseBlock(block string) (Record, error) {
	var rec Record
	rest := block

	next := func(label string) (string, error) {
		line, after, ok := strings.Cut(rest, "\n")
		if !ok {
			return "", fmt.Errorf("truncated before %q", label)
		}
		prefix := fmt.Sprintf("%-*s", labelWidth, label)
		if !strings.HasPrefix(line, prefix) {
			return "", fmt.Errorf("expected %q, got %q", label, line)
		}
		rest = after
		return line[len(prefix):], nil
	}

	v, err := next(LabelStartTime)
	if err != nil {
		return rec, err
	}
	if rec.StartTime, err = time.ParseInLocation(TimeLayout, v, time.Local); err != nil {
		return rec, fmt.Errorf("start time: %w", err)
	}

	if rec.Command, err = next(LabelCommandline); err != nil {
		return rec, err
	}
	if rec.Evaluator, err = next(LabelEvaluator); err != nil {
		return rec, err
	}
	if rec.Search, err = next(LabelSearch); err != nil {
		return rec, err
	}

	if v, err = next(LabelDuration); err != nil {
		return rec, err
	}
	if rec.Duration, err = parseDuration(v); err != nil {
		return rec, err
	}

	if v, err = next(LabelTask); err != nil {
		return rec, err
	}
	ord, total, ok := strings.Cut(v, "/")
	if !ok {
		return rec, fmt.Errorf("task %q is not ordinal/total", v)
	}
	if rec.Ordinal, err = strconv.Atoi(ord); err != nil {
		return rec, fmt.Errorf("task ordinal: %w", err)
	}
	if rec.Total, err = strconv.Atoi(total); err != nil {
		return rec, fmt.Errorf("task total: %w", err)
	}

	closing := Separator + "\n"
	if !strings.HasSuffix(rest, closing) {
		return rec, fmt.Errorf("missing closing separator")
	}
	rec.Stdout = strings.TrimSuffix(rest, closing)
	return rec, nil
}

func parseDuration(v string) (time.Duration, error) {
	idx := strings.LastIndex(v, " : ")
	if idx < 0 {
		return 0, fmt.Errorf("duration %q has no seconds field", v)
	}
	secText := strings.TrimSuffix(strings.TrimSpace(v[idx+3:]), " s")
	secs, err := strconv.ParseFloat(secText, 64)
	if err != nil {
		return 0, fmt.Errorf("duration seconds: %w", err)
	}
	return time.Duration(secs * float64(time.Second)).Round(10 * time.Millisecond), nil
}
