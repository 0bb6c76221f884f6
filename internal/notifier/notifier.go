package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robotomize/go-xunit-slack/internal/slack"
	"github.com/robotomize/go-xunit-slack/internal/summary"
)

const (
	DefaultAuthorName = "JUnit Slack Reporter"
	DefaultServerURL  = "https://github.com"

	PassColor = "good"
	FailColor = "danger"
)

// Metadata describes the CI run the reports belong to.
type Metadata struct {
	ServerURL  string `json:"serverUrl"`
	Repository string `json:"repository"`
	RunID      string `json:"runId"`
	Workflow   string `json:"workflow"`
	Ref        string `json:"ref"`
}

// RunURL links to the workflow run page.
func (m Metadata) RunURL() string {
	server := m.ServerURL
	if server == "" {
		server = DefaultServerURL
	}

	return fmt.Sprintf("%s/%s/actions/runs/%s", strings.TrimSuffix(server, "/"), m.Repository, m.RunID)
}

// Decision is the outcome of the notification policy.
type Decision struct {
	// Send is set when a message has to be posted.
	Send bool
	// Failed marks the run as failed for the exit status.
	Failed bool
}

// Decide applies the notification policy: issues are always reported and fail
// the run, a clean run is reported unless onlyOnIssues is set.
func Decide(hasIssues, onlyOnIssues bool) Decision {
	if hasIssues {
		return Decision{Send: true, Failed: true}
	}

	return Decision{Send: !onlyOnIssues}
}

// Build renders the attachment for s. An empty title falls back to DefaultAuthorName.
func Build(s summary.Summary, meta Metadata, title string) slack.Attachment {
	color := PassColor
	if s.HasIssues {
		color = FailColor
	}

	if title == "" {
		title = DefaultAuthorName
	}

	return slack.Attachment{
		Color:      color,
		AuthorName: title,
		AuthorLink: meta.RunURL(),
		Title:      fmt.Sprintf("Test results for \"%s\" on \"%s\"", meta.Workflow, meta.Ref),
		Fields: []slack.Field{
			{Title: "Total # of tests", Value: strconv.Itoa(s.Total), Short: true},
			{Title: "Tests passed", Value: strconv.Itoa(s.Passed), Short: true},
			{Title: "Tests errored", Value: strconv.Itoa(s.Broken), Short: true},
			{Title: "Tests failed", Value: strconv.Itoa(s.Failed), Short: true},
			{Title: "Time elapsed", Value: s.FormatElapsed(), Short: true},
		},
	}
}

type Sender interface {
	PostMessage(ctx context.Context, msg slack.Message) error
}

type Option func(*Notifier)

func WithOnlyOnIssues(v bool) Option {
	return func(n *Notifier) {
		n.onlyOnIssues = v
	}
}

func WithTitle(title string) Option {
	return func(n *Notifier) {
		n.title = title
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(n *Notifier) {
		n.log = l
	}
}

func New(sender Sender, channel string, opts ...Option) *Notifier {
	n := Notifier{
		sender:  sender,
		channel: channel,
		log:     logrus.StandardLogger(),
	}

	for _, o := range opts {
		o(&n)
	}

	return &n
}

type Notifier struct {
	sender       Sender
	channel      string
	title        string
	onlyOnIssues bool
	log          logrus.FieldLogger
}

// Notify posts at most one message for s and returns the policy decision.
func (n *Notifier) Notify(ctx context.Context, s summary.Summary, meta Metadata) (Decision, error) {
	decision := Decide(s.HasIssues, n.onlyOnIssues)

	log := n.log.WithFields(logrus.Fields{
		"channel":    n.channel,
		"has_issues": s.HasIssues,
	})

	if !decision.Send {
		log.Info("All tests passed, notification suppressed")
		return decision, nil
	}

	msg := slack.Message{
		Channel:     n.channel,
		Attachments: []slack.Attachment{Build(s, meta, n.title)},
	}

	if err := n.sender.PostMessage(ctx, msg); err != nil {
		return decision, fmt.Errorf("sender PostMessage: %w", err)
	}

	log.Info("Notification sent")

	return decision, nil
}
