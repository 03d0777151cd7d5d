// Package evalset scores the extraction pipeline against a YAML corpus of
// sentences with expected results, either in-process or against a running
// service.
package evalset

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Corpus is a set of cases sharing one time zone.
type Corpus struct {
	Timezone string `yaml:"timezone"`
	Cases    []Case `yaml:"cases"`

	loc *time.Location
}

// Case is one sentence and what extraction should produce for it.
type Case struct {
	Name   string `yaml:"name"`
	Text   string `yaml:"text"`
	Now    string `yaml:"now"`
	Expect Expect `yaml:"expect"`

	now time.Time
}

// Expect lists the checked fields of a result. Nil fields are not checked.
// An empty EndTime or Location expects the field to be absent, and a
// negative Reminder expects no reminder.
type Expect struct {
	Success   *bool   `yaml:"success"`
	Code      string  `yaml:"code"`
	EventName *string `yaml:"event_name"`
	StartTime *string `yaml:"start_time"`
	EndTime   *string `yaml:"end_time"`
	Location  *string `yaml:"location"`
	Reminder  *int    `yaml:"reminder"`
}

// Location returns the corpus time zone.
func (c *Corpus) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// At returns the instant the case is evaluated at, or the zero time when
// it runs against the current clock.
func (c Case) At() time.Time { return c.now }

// LoadFile reads a corpus from path.
func LoadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCorpus, err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load decodes and validates a corpus.
func Load(r io.Reader) (*Corpus, error) {
	var c Corpus
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCorpus, err)
	}

	c.loc = time.UTC
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidCorpus, c.Timezone, err)
		}
		c.loc = loc
	}
	if len(c.Cases) == 0 {
		return nil, fmt.Errorf("%w: no cases", ErrInvalidCorpus)
	}

	for i := range c.Cases {
		tc := &c.Cases[i]
		if tc.Name == "" {
			tc.Name = fmt.Sprintf("case %d", i+1)
		}
		if tc.Now == "" {
			continue
		}
		now, err := time.Parse(time.RFC3339, tc.Now)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: now: %w", ErrInvalidCorpus, tc.Name, err)
		}
		tc.now = now.In(c.loc)
	}
	return &c, nil
}
