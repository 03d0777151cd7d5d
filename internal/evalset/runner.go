package evalset

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/lichhen/pkg/logger"
)

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case       Case
	Got        Result
	Mismatches []string
	Skipped    bool
	Err        error
}

// Passed reports whether the case ran and matched every expectation.
func (r CaseResult) Passed() bool { //nolint:gocritic // hugeParam: results are small
	return !r.Skipped && r.Err == nil && len(r.Mismatches) == 0
}

// Report collects the results of a run in corpus order.
type Report struct {
	Results  []CaseResult
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// OK reports whether no case failed.
func (r *Report) OK() bool { return r.Failed == 0 }

// Option configures Run.
type Option func(*runSettings)

type runSettings struct {
	workers int
}

// WithWorkers bounds how many cases run at once. Defaults to the number of
// CPUs.
func WithWorkers(n int) Option {
	return func(s *runSettings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Run evaluates every case in c with p. Case failures land in the report;
// the error is only set when ctx ends first.
func Run(ctx context.Context, c *Corpus, p Parser, opts ...Option) (*Report, error) {
	s := runSettings{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&s)
	}
	log := logger.Get().Named("evalset")
	log.Info(ctx, "evaluating corpus",
		logger.Int("cases", len(c.Cases)),
		logger.Int("workers", s.workers),
		logger.String("timezone", c.Location().String()))

	start := time.Now()
	results := make([]CaseResult, len(c.Cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range c.Cases {
		tc := c.Cases[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = evaluate(gctx, p, tc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{Results: results, Duration: time.Since(start)}
	for _, r := range results {
		switch {
		case r.Skipped:
			rep.Skipped++
		case r.Passed():
			rep.Passed++
		default:
			rep.Failed++
			log.Debug(ctx, "case failed", logger.String("case", r.Case.Name), logger.Any("mismatches", r.Mismatches))
		}
	}
	log.Info(ctx, "corpus evaluated",
		logger.Int("passed", rep.Passed),
		logger.Int("failed", rep.Failed),
		logger.Int("skipped", rep.Skipped),
		logger.Duration("duration", rep.Duration))
	return rep, nil
}

func evaluate(ctx context.Context, p Parser, tc Case) CaseResult { //nolint:gocritic // hugeParam: cases travel by value
	got, err := p.Parse(ctx, tc.Text, tc.At())
	switch {
	case errors.Is(err, ErrFixedClock):
		return CaseResult{Case: tc, Skipped: true}
	case err != nil:
		return CaseResult{Case: tc, Err: err}
	}
	return CaseResult{Case: tc, Got: got, Mismatches: Compare(tc.Expect, got)}
}

// Compare lists every expectation that got does not meet.
func Compare(want Expect, got Result) []string { //nolint:gocritic // hugeParam: expectations are read-only
	var out []string
	mismatch := func(field string, w, g any) {
		out = append(out, fmt.Sprintf("%s: want %v, got %v", field, w, g))
	}

	wantSuccess := want.Code == ""
	if want.Success != nil {
		wantSuccess = *want.Success
	}
	if got.Success != wantSuccess {
		mismatch("success", wantSuccess, got.Success)
		if got.Error != "" {
			out = append(out, "error: "+got.Error)
		}
		return out
	}
	if want.Code != "" && got.Code != want.Code {
		mismatch("code", want.Code, got.Code)
	}
	if !got.Success {
		return out
	}

	if want.EventName != nil && *want.EventName != got.EventName {
		mismatch("event_name", *want.EventName, got.EventName)
	}
	if want.StartTime != nil && *want.StartTime != got.StartTime {
		mismatch("start_time", *want.StartTime, got.StartTime)
	}
	if want.EndTime != nil && *want.EndTime != deref(got.EndTime) {
		mismatch("end_time", show(*want.EndTime), show(deref(got.EndTime)))
	}
	if want.Location != nil && *want.Location != deref(got.Location) {
		mismatch("location", show(*want.Location), show(deref(got.Location)))
	}
	if want.Reminder != nil {
		g := -1
		if got.Reminder != nil {
			g = *got.Reminder
		}
		w := *want.Reminder
		if w < 0 {
			w = -1
		}
		if w != g {
			mismatch("reminder", reminderText(w), reminderText(g))
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func show(s string) string {
	if s == "" {
		return "<none>"
	}
	return fmt.Sprintf("%q", s)
}

func reminderText(m int) string {
	if m < 0 {
		return "<none>"
	}
	return fmt.Sprintf("%d", m)
}
