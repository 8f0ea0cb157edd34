package git

import (
	"context"
	"strings"
	"time"

	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
)

// commitDateLayout is the calendar-day format git prints for --date=short.
const commitDateLayout = "2006-01-02"

// CommitRecord is one new commit as reported by the commit-range query,
// parsed from a line of the form "YYYY-MM-DD: shorthash subject".
type CommitRecord struct {
	Date      time.Time
	ShortHash string
	Message   string
}

// IsZero reports whether the record is unset, which is what a malformed line parses to.
func (c CommitRecord) IsZero() bool {
	return c.ShortHash == "" && c.Message == "" && c.Date.IsZero()
}

// String renders the record back in the log line format.
func (c CommitRecord) String() string {
	return c.Date.Format(commitDateLayout) + ": " + c.ShortHash + " " + c.Message
}

// ParseCommitLine parses one line of commit-range output. A malformed line
// yields the zero CommitRecord rather than an error so one bad line never
// aborts a batch.
func ParseCommitLine(line string) CommitRecord {
	line = strings.TrimRight(line, "\r\n")

	datePart, rest, ok := strings.Cut(line, ": ")
	if !ok {
		return CommitRecord{}
	}

	date, err := time.Parse(commitDateLayout, datePart)
	if err != nil {
		return CommitRecord{}
	}

	hash, message, _ := strings.Cut(rest, " ")
	if !isHex(hash) || len(hash) < 4 {
		return CommitRecord{}
	}

	return CommitRecord{Date: date, ShortHash: hash, Message: message}
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}

// CommitsBetween returns the non-merge commits reachable from end but not
// from start, oldest first.
//
// start == end yields an empty slice and a nil error. A range git cannot
// resolve, or one that produces no parseable commit, yields
// ErrDivergedHistory: after a fetch that moved the remote head, an empty range
// means upstream history was rewritten rather than that nothing is new.
func CommitsBetween(ctx context.Context, runner *Runner, start, end string) ([]CommitRecord, error) {
	if start == end {
		return []CommitRecord{}, nil
	}

	out, err := runner.RawOutput(ctx,
		"log", "--no-merges", "--reverse", "--date=short",
		"--pretty=format:%ad: %h %s",
		start+".."+end,
	)
	if err != nil {
		return nil, gitupdateErrors.Join(gitupdateErrors.ErrDivergedHistory, err)
	}

	var commits []CommitRecord
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		record := ParseCommitLine(line)
		if record.IsZero() {
			continue
		}
		commits = append(commits, record)
	}

	if len(commits) == 0 {
		return nil, gitupdateErrors.Wrapf(gitupdateErrors.ErrDivergedHistory, "no linear history from %s to %s", shortSHA(start), shortSHA(end))
	}

	return commits, nil
}
