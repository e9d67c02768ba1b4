// Package runlog renders, appends and parses the plain-text run records
// written after each command completes.
//
// The layout is a compatibility surface for existing log tooling:
//
//	=== Run information ===
//	Start time:    2026-01-19 12:00:00
//	Commandline:   java -cp "weka.jar" weka.attributeSelection.WrapperSubsetEval ...
//	Evaluator:     WrapperSubsetEval -B "weka.classifiers.trees.J48" -F 5 -T 0.01 -R 1
//	Search:        BestFirst
//	Duration:      0 D : 0 H : 2 M : 90.00 s
//	Task:          3/10
//	<captured stdout, verbatim>
//	------------------------------------------------------------
package runlog

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

const (
	// Header opens every record.
	Header = "=== Run information ==="

	// TimeLayout formats the start time (local time).
	TimeLayout = "2006-01-02 15:04:05"

	labelWidth = 15
)

// Separator closes every record.
var Separator = strings.Repeat("-", 60)

// Field labels in record order.
const (
	LabelStartTime   = "Start time:"
	LabelCommandline = "Commandline:"
	LabelEvaluator   = "Evaluator:"
	LabelSearch      = "Search:"
	LabelDuration    = "Duration:"
	LabelTask        = "Task:"
)

// Record is the result of one command execution.
type Record struct {
	StartTime time.Time
	Command   string
	Evaluator string
	Search    string
	Duration  time.Duration

	// Ordinal is the 1-based position of the job in its command list.
	Ordinal int
	Total   int

	Stdout string

	// Stderr is captured for diagnostics but not part of the log layout.
	Stderr string

	// LogFile is the file name the record was appended to.
	LogFile string
}

// Format renders the record in the fixed log layout.
func (r *Record) Format() []byte {
	var b bytes.Buffer
	b.WriteString(Header)
	b.WriteByte('\n')
	writeField(&b, LabelStartTime, r.StartTime.Local().Format(TimeLayout))
	writeField(&b, LabelCommandline, r.Command)
	writeField(&b, LabelEvaluator, r.Evaluator)
	writeField(&b, LabelSearch, r.Search)
	writeField(&b, LabelDuration, FormatDuration(r.Duration))
	writeField(&b, LabelTask, fmt.Sprintf("%d/%d", r.Ordinal, r.Total))
	b.WriteString(r.Stdout)
	b.WriteString(Separator)
	b.WriteByte('\n')
	return b.Bytes()
}

func writeField(b *bytes.Buffer, label, value string) {
	fmt.Fprintf(b, "%-*s%s\n", labelWidth, label, value)
}

// FormatDuration renders "<D> D : <H> H : <M> M : <S.SS> s".
//
// D, H and M each restate the whole elapsed span in days, hours and minutes,
// rounded to the nearest integer with ties going to even (0.5 M is "0",
// 1.5 M is "2"). They are not a decomposition: 90 s is "0 D : 0 H : 2 M".
func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	return fmt.Sprintf("%.0f D : %.0f H : %.0f M : %.2f s", s/86400, s/3600, s/60, s)
}
