package model

import (
	"fmt"
	"strings"
	"time"
)

// FailureRecord is one entry of the process-wide failure log. Records are
// append-only; a single writer lock in the log serializes appends.
type FailureRecord struct {
	Time       time.Time
	ItemID     ItemID
	TaskKind   TaskKind
	URL        string
	TargetPath string
	Message    string
}

// Format renders the record in the fixed fail_list.txt block format.
func (r FailureRecord) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failure - %s\n", r.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "item id:     %s\n", r.ItemID)
	fmt.Fprintf(&b, "task kind:   %s\n", r.TaskKind)
	fmt.Fprintf(&b, "url:         %s\n", r.URL)
	fmt.Fprintf(&b, "target path: %s\n", r.TargetPath)
	fmt.Fprintf(&b, "error:       %s\n", r.Message)
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n")
	return b.String()
}
