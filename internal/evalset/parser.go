package evalset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/lichhen/internal/domain/nlp"
)

// Error codes reported for failed extractions, as the API names them.
const (
	CodeMissingText   = "missing_text"
	CodeInvalidDate   = "invalid_date"
	CodeInternalError = "internal_error"
)

const defaultTimeout = 10 * time.Second

// Result is an extraction outcome in wire form.
type Result struct {
	Success   bool    `json:"success"`
	Code      string  `json:"code,omitempty"`
	Error     string  `json:"error,omitempty"`
	EventName string  `json:"event_name,omitempty"`
	StartTime string  `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Location  *string `json:"location,omitempty"`
	Reminder  *int    `json:"time_reminder,omitempty"`
}

// Parser extracts one sentence. A zero now means the current time. The
// returned error is a transport failure, not an extraction failure.
type Parser interface {
	Parse(ctx context.Context, text string, now time.Time) (Result, error)
}

// LocalParser runs the pipeline in-process.
type LocalParser struct {
	ex  *nlp.Extractor
	loc *time.Location
}

// NewLocalParser creates a parser that interprets dates in loc.
func NewLocalParser(loc *time.Location) *LocalParser {
	if loc == nil {
		loc = time.UTC
	}
	return &LocalParser{ex: nlp.NewExtractor(nlp.WithLocation(loc)), loc: loc}
}

// Parse implements Parser.
func (p *LocalParser) Parse(_ context.Context, text string, now time.Time) (Result, error) {
	if now.IsZero() {
		now = time.Now()
	}
	return FromCandidate(p.ex.Extract(text, now), p.loc), nil
}

// FromCandidate converts a candidate to its wire form with times in loc.
func FromCandidate(c nlp.EventCandidate, loc *time.Location) Result { //nolint:gocritic // hugeParam: candidates travel by value
	if !c.Success {
		return Result{Code: codeOf(c.Err), Error: c.Error}
	}
	r := Result{
		Success:   true,
		EventName: c.EventName,
		StartTime: c.StartTime.In(loc).Format(nlp.TimeLayout),
		Location:  c.Location,
		Reminder:  c.ReminderMinutes,
	}
	if c.EndTime != nil {
		end := c.EndTime.In(loc).Format(nlp.TimeLayout)
		r.EndTime = &end
	}
	return r
}

func codeOf(err error) string {
	switch {
	case errors.Is(err, nlp.ErrEmptyInput):
		return CodeMissingText
	case errors.Is(err, nlp.ErrInvalidDate):
		return CodeInvalidDate
	default:
		return CodeInternalError
	}
}

// HTTPParser posts sentences to a running service's /nlp/parse endpoint.
// The service parses against its own clock.
type HTTPParser struct {
	baseURL string
	client  *http.Client
}

// NewHTTPParser creates a parser for the service at baseURL. A
// non-positive timeout uses the default.
func NewHTTPParser(baseURL string, timeout time.Duration) *HTTPParser {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPParser{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type parseResponse struct {
	EventName    string  `json:"event_name"`
	StartTime    string  `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Location     *string `json:"location"`
	TimeReminder *int    `json:"time_reminder"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Parse implements Parser. It returns ErrFixedClock when now is set.
func (p *HTTPParser) Parse(ctx context.Context, text string, now time.Time) (Result, error) {
	if !now.IsZero() {
		return Result{}, ErrFixedClock
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/nlp/parse", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post %s: %w", req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var pr parseResponse
		if err := json.Unmarshal(data, &pr); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
		}
		return Result{
			Success:   true,
			EventName: pr.EventName,
			StartTime: pr.StartTime,
			EndTime:   pr.EndTime,
			Location:  pr.Location,
			Reminder:  pr.TimeReminder,
		}, nil
	}

	var er errorResponse
	if err := json.Unmarshal(data, &er); err != nil || er.Code == "" {
		return Result{}, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
	return Result{Code: er.Code, Error: er.Message}, nil
}
