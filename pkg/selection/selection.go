// Package selection parses compact id selections such as "1-3, 5, 7-9".
//
// A selection is a comma-separated list of single ids and inclusive ranges.
// Parsing is strict: any malformed token fails the whole selection, so a
// typo never silently drops commands from a batch.
package selection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseError reports a malformed selection token.
type ParseError struct {
	// Token is the offending token, trimmed of surrounding whitespace.
	Token string

	// Reason describes why the token was rejected.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid selection token %q: %s", e.Token, e.Reason)
}

// Parse expands a selection string into a strictly ascending list of unique
// ids. Every id is >= 1.
//
// A reversed range such as "9-7" is rejected rather than expanding to nothing.
func Parse(text string) ([]int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Token: text, Reason: "selection is empty"}
	}

	seen := make(map[int]struct{})
	for _, raw := range strings.Split(text, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			return nil, &ParseError{Token: token, Reason: "empty token"}
		}

		start, end, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		for id := start; id <= end; id++ {
			seen[id] = struct{}{}
		}
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func parseToken(token string) (int, int, error) {
	lo, hi, isRange := strings.Cut(token, "-")
	if !isRange {
		n, err := parseID(token, token)
		return n, n, err
	}
	if strings.Contains(hi, "-") {
		return 0, 0, &ParseError{Token: token, Reason: "range has more than one '-'"}
	}

	start, err := parseID(token, strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseID(token, strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, err
	}
	if start > end {
		return 0, 0, &ParseError{Token: token, Reason: "range start is greater than range end"}
	}
	return start, end, nil
}

func parseID(token, s string) (int, error) {
	if s == "" {
		return 0, &ParseError{Token: token, Reason: "missing number"}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ParseError{Token: token, Reason: fmt.Sprintf("%q is not an integer", s)}
	}
	if n < 1 {
		return 0, &ParseError{Token: token, Reason: "ids must be >= 1"}
	}
	return n, nil
}

// Format renders ids in canonical compact form, collapsing consecutive runs
// into ranges: [1 2 3 5 7 8 9] becomes "1-3,5,7-9".
//
// The input is sorted and deduplicated first; it is not modified.
func Format(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	var b strings.Builder
	writeRun := func(start, end int) {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if start == end {
			b.WriteString(strconv.Itoa(start))
			return
		}
		fmt.Fprintf(&b, "%d-%d", start, end)
	}

	start, prev := sorted[0], sorted[0]
	for _, id := range sorted[1:] {
		switch {
		case id == prev:
			continue
		case id == prev+1:
			prev = id
		default:
			writeRun(start, prev)
			start, prev = id, id
		}
	}
	writeRun(start, prev)
	return b.String()
}
