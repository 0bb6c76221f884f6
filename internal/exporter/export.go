package exporter

import (
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/robotomize/go-xunit-slack/internal/notifier"
	"github.com/robotomize/go-xunit-slack/internal/summary"
)

var hostname string

func init() {
	hostname, _ = os.Hostname()
}

// Record is the machine readable outcome of a run.
type Record struct {
	Invocation string            `json:"invocation"`
	CreatedAt  time.Time         `json:"createdAt"`
	Host       string            `json:"host"`
	Files      []string          `json:"files"`
	Summary    summary.Summary   `json:"summary"`
	Elapsed    string            `json:"elapsedFormatted"`
	CI         notifier.Metadata `json:"ci"`
}

type Option func(*Record)

// WithInvocation sets the invocation id, a random one is generated otherwise.
func WithInvocation(id string) Option {
	return func(r *Record) {
		r.Invocation = id
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Record) {
		r.CreatedAt = now().UTC()
	}
}

func NewRecord(files []string, s summary.Summary, meta notifier.Metadata, opts ...Option) Record {
	r := Record{
		Invocation: uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Host:       hostname,
		Files:      make([]string, len(files)),
		Summary:    s,
		Elapsed:    s.FormatElapsed(),
		CI:         meta,
	}

	copy(r.Files, files)

	for _, o := range opts {
		o(&r)
	}

	return r
}
