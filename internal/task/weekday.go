package task

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"github.com/taskd-io/taskd/pkg/protocol"
)

// dateLayouts are tried before falling back to dateparse.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02-Jan-2006",
	"Jan 02, 2006",
	"January 2, 2006",
}

// parseDate accepts the formats found in generated date files.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return t, nil
}

// mondayIndex maps a weekday onto 0=Monday..6=Sunday.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// countWeekday counts dates in r (one per line) falling on weekday,
// where weekday is 0=Monday..6=Sunday.
func countWeekday(r io.Reader, weekday int) (int, error) {
	lines, err := readLines(r)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range lines {
		t, err := parseDate(line)
		if err != nil {
			return 0, err
		}
		if mondayIndex(t.Weekday()) == weekday {
			count++
		}
	}
	return count, nil
}

type weekdayArgs struct {
	Filename   string `json:"filename"`
	Targetfile string `json:"targetfile"`
	Weekday    int    `json:"weekday"`
}

func (a weekdayArgs) Validate() error {
	if a.Weekday < 0 || a.Weekday > 6 {
		return fmt.Errorf("weekday must be 0 (Monday) to 6 (Sunday), got %d", a.Weekday)
	}
	return requirePaths("filename", a.Filename, "targetfile", a.Targetfile)
}

func countWeekdaysTask() Task {
	desc := protocol.TaskDescriptor{
		Name:        "count_weekdays",
		Description: "Count how many dates in a file (one per line) fall on a given weekday, e.g. Wednesdays, and write the count to a target file.",
		Params: []protocol.ParamSpec{
			str("filename", "File with one date per line"),
			str("targetfile", "File to write the count to"),
			integer("weekday", "Day of week: 0=Monday, 1=Tuesday, 2=Wednesday, 3=Thursday, 4=Friday, 5=Saturday, 6=Sunday"),
		},
	}
	return newHandler(desc, func(_ context.Context, a weekdayArgs) error {
		f, err := os.Open(a.Filename)
		if err != nil {
			return fmt.Errorf("count_weekdays: %w", err)
		}
		defer f.Close()

		n, err := countWeekday(f, a.Weekday)
		if err != nil {
			return fmt.Errorf("count_weekdays: %s: %w", a.Filename, err)
		}
		return writeOutput(a.Targetfile, []byte(strconv.Itoa(n)))
	})
}
