package evalset

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// Write prints one line per case followed by a summary. Passing cases are
// listed only when verbose is set.
func (r *Report) Write(w io.Writer, verbose bool) error {
	var b strings.Builder
	for _, res := range r.Results {
		switch {
		case res.Skipped:
			if verbose {
				fmt.Fprintf(&b, "%s %s %s\n", yellow("SKIP"), res.Case.Name, gray("(fixed clock)"))
			}
		case res.Err != nil:
			fmt.Fprintf(&b, "%s %s\n", red("ERR "), res.Case.Name)
			fmt.Fprintf(&b, "     %s\n", res.Err)
		case res.Passed():
			if verbose {
				fmt.Fprintf(&b, "%s %s\n", green("PASS"), res.Case.Name)
			}
		default:
			fmt.Fprintf(&b, "%s %s %s\n", red("FAIL"), res.Case.Name, gray(fmt.Sprintf("%q", res.Case.Text)))
			for _, m := range res.Mismatches {
				fmt.Fprintf(&b, "     %s\n", m)
			}
		}
	}

	summary := fmt.Sprintf("%d passed, %d failed, %d skipped in %s",
		r.Passed, r.Failed, r.Skipped, r.Duration.Round(time.Millisecond))
	if r.OK() {
		fmt.Fprintf(&b, "%s %s\n", bold(green("OK")), summary)
	} else {
		fmt.Fprintf(&b, "%s %s\n", bold(red("FAILED")), summary)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
