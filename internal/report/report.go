package report

import (
	"fmt"
	"io"

	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/update"
	"github.com/fatih/color"
)

// Plural picks the singular or plural form of a noun for n.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// Count renders n followed by the matching form of the noun, e.g. "1 new commit".
func Count(n int, singular, plural string) string {
	return fmt.Sprintf("%d %s", n, Plural(n, singular, plural))
}

// Reporter renders session results for the user.
type Reporter struct {
	out     io.Writer
	verbose bool

	header   *color.Color
	hash     *color.Color
	breaking *color.Color
	success  *color.Color
	warning  *color.Color
	failure  *color.Color
}

// New creates a Reporter writing to out. Progress lines are only printed
// when verbose is set.
func New(out io.Writer, verbose bool) *Reporter {
	return &Reporter{
		out:      out,
		verbose:  verbose,
		header:   color.New(color.Bold),
		hash:     color.New(color.FgYellow),
		breaking: color.New(color.FgRed, color.Bold),
		success:  color.New(color.FgGreen),
		warning:  color.New(color.FgYellow, color.Bold),
		failure:  color.New(color.FgRed),
	}
}

// Progress reports classification progress. It matches the
// update.Options.Progress signature.
func (r *Reporter) Progress(current, total int) {
	if !r.verbose || total == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.out, "\rChecking commits for breaking changes: %d/%d", current, total)
	if current == total {
		_, _ = fmt.Fprintln(r.out)
	}
}

// Render prints what a session found and how it ended.
func (r *Reporter) Render(res *update.Result) {
	if res == nil {
		return
	}

	source := res.Remote
	if res.URL != "" {
		source = res.URL
	}
	_, _ = r.header.Fprintf(r.out, "Remote: %s (%s)\n", source, res.Branch)

	if len(res.Commits) > 0 {
		_, _ = fmt.Fprintf(r.out, "%s:\n", Count(len(res.Commits), "new commit", "new commits"))
		r.renderCommits(res)
	}

	if res.HasBreaking {
		_, _ = r.breaking.Fprintf(r.out, "%s found.\n", Count(len(res.Breaking), "breaking change", "breaking changes"))
	}

	if len(res.Removed) > 0 {
		_, _ = fmt.Fprintf(r.out, "Removed %s:\n", Count(len(res.Removed), "untracked path", "untracked paths"))
		for _, p := range res.Removed {
			_, _ = fmt.Fprintf(r.out, "  %s\n", p)
		}
	}

	r.renderOutcome(res)
}

func (r *Reporter) renderCommits(res *update.Result) {
	breaking := make(map[string]bool, len(res.Breaking))
	for _, c := range res.Breaking {
		breaking[c.ShortHash] = true
	}

	for _, c := range res.Commits {
		_, _ = fmt.Fprintf(r.out, "  %s: ", c.Date.Format("2006-01-02"))
		_, _ = r.hash.Fprint(r.out, c.ShortHash)
		if breaking[c.ShortHash] {
			_, _ = r.breaking.Fprintf(r.out, " %s\n", c.Message)
			continue
		}
		_, _ = fmt.Fprintf(r.out, " %s\n", c.Message)
	}
}

func (r *Reporter) renderOutcome(res *update.Result) {
	switch res.Outcome {
	case update.OutcomeApplied:
		if res.HasBreaking {
			_, _ = r.warning.Fprintf(r.out, "Updated to %s with %s. Review your local configuration.\n",
				shortSHA(res.RemoteHead), Count(len(res.Breaking), "breaking change", "breaking changes"))
		} else {
			_, _ = r.success.Fprintf(r.out, "Updated to %s.\n", shortSHA(res.RemoteHead))
		}
		if res.KeptSnapshot != "" {
			_, _ = r.warning.Fprintf(r.out, "Local changes were not reapplied. They are saved in snapshot %s.\n",
				shortSHA(res.KeptSnapshot))
		}
	case update.OutcomeNoChanges:
		switch {
		case res.UpToDate:
			_, _ = r.success.Fprintln(r.out, "Already up to date.")
		case res.Diverged:
			_, _ = r.warning.Fprintln(r.out, "History has diverged from the remote. Kept the current version.")
		default:
			_, _ = fmt.Fprintln(r.out, "No changes applied.")
		}
	default:
		r.renderFailure(res)
	}
}

func (r *Reporter) renderFailure(res *update.Result) {
	switch {
	case gitupdateErrors.Is(res.Err, gitupdateErrors.ErrRestoreFailed):
		_, _ = r.failure.Fprintf(r.out, "Update failed and the repository could not be restored: %v\n", res.Err)
		_, _ = r.warning.Fprintln(r.out, "Run 'gitupdate repair' or recover your changes from refs/gitupdate/backup.")
	case gitupdateErrors.Is(res.Err, gitupdateErrors.ErrUserDeclined):
		_, _ = fmt.Fprintln(r.out, "Update cancelled. Your repository was left as it was.")
	case gitupdateErrors.Is(res.Err, gitupdateErrors.ErrDivergedHistory):
		_, _ = fmt.Fprintln(r.out, "History has diverged from the remote. Update cancelled, nothing was changed.")
	case res.Err != nil:
		_, _ = r.failure.Fprintf(r.out, "Update failed: %v\n", res.Err)
		if res.LocalHead != "" {
			_, _ = fmt.Fprintf(r.out, "Your repository was restored to %s.\n", shortSHA(res.LocalHead))
		}
	default:
		_, _ = r.failure.Fprintln(r.out, "Update failed.")
	}
}

// RenderCheck prints the result of a read-only check.
func (r *Reporter) RenderCheck(res *update.CheckResult) {
	if res == nil {
		return
	}
	_, _ = r.header.Fprintf(r.out, "Remote: %s (%s)\n", res.Source, res.Branch)
	if !res.UpdateAvailable {
		_, _ = r.success.Fprintf(r.out, "Up to date at %s.\n", shortSHA(res.LocalHead))
		return
	}
	_, _ = r.warning.Fprintf(r.out, "Update available: %s -> %s\n", shortSHA(res.LocalHead), shortSHA(res.RemoteHead))
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
