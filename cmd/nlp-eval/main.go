// Command nlp-eval runs the extraction pipeline from the terminal and
// scores it against a YAML corpus.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/lichhen/internal/evalset"
	"github.com/okian/lichhen/pkg/logger"
)

// errCasesFailed makes the process exit non-zero after the report is
// printed.
var errCasesFailed = errors.New("corpus has failing cases")

func main() {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errCasesFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "nlp-eval",
		Short:         "Evaluate Vietnamese event extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if verbose {
				return logger.SetLevelString("debug")
			}
			return logger.SetLevelString("warn")
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress and list passing cases")
	root.SetOut(out)
	root.AddCommand(newParseCmd(), newRunCmd(&verbose))
	return root
}

func newParseCmd() *cobra.Command {
	var nowFlag, tz string
	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Extract one sentence and print the result as JSON",
		Example: `  nlp-eval parse "Họp team lúc 9h sáng mai tại phòng 201"
  nlp-eval parse --now 2025-01-01T08:00:00+07:00 --tz Asia/Ho_Chi_Minh "ăn tối thứ 6"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}
			var now time.Time
			if nowFlag != "" {
				if now, err = time.Parse(time.RFC3339, nowFlag); err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}
			res, err := evalset.NewLocalParser(loc).Parse(cmd.Context(), args[0], now)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "evaluate at this RFC3339 instant instead of the current time")
	cmd.Flags().StringVar(&tz, "tz", "UTC", "time zone dates are interpreted in")
	return cmd
}

func newRunCmd(verbose *bool) *cobra.Command {
	var (
		url     string
		workers int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run <corpus.yaml>",
		Short: "Score the pipeline against a corpus",
		Long: `Evaluates every case of a YAML corpus and prints a report.

Without --url the pipeline runs in-process at each case's "now". With --url
the cases are posted to a running service, which parses against its own
clock, so cases that pin "now" are skipped.`,
		Example: `  nlp-eval run internal/evalset/testdata/corpus.yaml
  nlp-eval run --url http://localhost:8080 --workers 8 corpus.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, err := evalset.LoadFile(args[0])
			if err != nil {
				return err
			}
			var p evalset.Parser = evalset.NewLocalParser(corpus.Location())
			if url != "" {
				p = evalset.NewHTTPParser(url, timeout)
			}
			rep, err := evalset.Run(cmd.Context(), corpus, p, evalset.WithWorkers(workers))
			if err != nil {
				return err
			}
			if err := rep.Write(cmd.OutOrStdout(), *verbose); err != nil {
				return err
			}
			if !rep.OK() {
				return errCasesFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "base URL of a running service")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "cases evaluated concurrently")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	return cmd
}
