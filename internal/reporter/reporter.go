// Package reporter runs the whole pipeline: resolve report files, parse and
// aggregate them, then notify the channel about the outcome.
package reporter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/robotomize/go-xunit-slack/internal/config"
	"github.com/robotomize/go-xunit-slack/internal/exporter"
	"github.com/robotomize/go-xunit-slack/internal/fs"
	"github.com/robotomize/go-xunit-slack/internal/notifier"
	"github.com/robotomize/go-xunit-slack/internal/slack"
	"github.com/robotomize/go-xunit-slack/internal/slice"
	"github.com/robotomize/go-xunit-slack/internal/summary"
	"github.com/robotomize/go-xunit-slack/internal/xunit"
)

// Result describes a finished run.
type Result struct {
	Invocation  string
	Files       []string
	Summary     summary.Summary
	Decision    notifier.Decision
	SummaryFile string
}

type Option func(*Reporter)

// WithSender replaces the slack client, used by tests.
func WithSender(s notifier.Sender) Option {
	return func(r *Reporter) {
		r.sender = s
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reporter) {
		r.log = l
	}
}

// WithFS sets the workspace the glob pattern is matched against.
func WithFS(fsys fs.FS) Option {
	return func(r *Reporter) {
		r.fsys = fsys
	}
}

// WithOutput sets where dry-run messages and verbose summary records are printed.
func WithOutput(w io.Writer) Option {
	return func(r *Reporter) {
		r.out = w
	}
}

func WithInvocation(id string) Option {
	return func(r *Reporter) {
		r.invocation = id
	}
}

func New(cfg config.Config, opts ...Option) *Reporter {
	r := Reporter{
		cfg: cfg,
		log: logrus.StandardLogger(),
		out: io.Discard,
	}

	for _, o := range opts {
		o(&r)
	}

	if r.invocation == "" {
		r.invocation = uuid.New().String()
	}

	return &r
}

type Reporter struct {
	cfg        config.Config
	sender     notifier.Sender
	fsys       fs.FS
	log        logrus.FieldLogger
	out        io.Writer
	invocation string
}

// Run executes the pipeline once. Any error aborts the run before a message is sent,
// except a delivery error which is returned after the decision has been made.
func (r *Reporter) Run(ctx context.Context) (Result, error) {
	result := Result{Invocation: r.invocation}

	if err := r.cfg.Validate(); err != nil {
		return result, err
	}

	log := r.log.WithField("invocation", r.invocation)

	fsys, err := r.workspace()
	if err != nil {
		return result, err
	}

	files, err := fs.Resolve(fsys, r.cfg.XUnitPath, r.cfg.XUnitGlob)
	if err != nil {
		return result, fmt.Errorf("fs.Resolve: %w", err)
	}

	result.Files = files
	log.WithFields(logrus.Fields{
		"workspace": fsys.RootDir(),
		"files":     len(files),
	}).Debug("Resolved xunit reports")

	reports := make([]xunit.Report, 0, len(files))
	for _, file := range files {
		if err = ctx.Err(); err != nil {
			return result, err
		}

		report, readErr := xunit.ReadFile(file)
		if readErr != nil {
			return result, fmt.Errorf("xunit.ReadFile: %w", readErr)
		}

		fileLog := log.WithFields(logrus.Fields{
			"file":     file,
			"tests":    report.Tests,
			"failures": report.Failures,
			"errors":   report.Errors,
		})
		if info, statErr := os.Stat(file); statErr == nil {
			fileLog = fileLog.WithField("size", humanize.Bytes(uint64(info.Size())))
		}
		fileLog.Debug("Parsed xunit report")

		reports = append(reports, report)
	}

	result.Summary = summary.Aggregate(reports...)
	log.WithFields(logrus.Fields{
		"total":         result.Summary.Total,
		"passed":        result.Summary.Passed,
		"failed":        result.Summary.Failed,
		"broken":        result.Summary.Broken,
		"elapsed":       result.Summary.FormatElapsed(),
		"failing_files": len(slice.Filter(reports, xunit.Report.HasIssues)),
	}).Info("Aggregated test results")

	meta := notifier.Metadata{
		ServerURL:  r.cfg.CI.ServerURL,
		Repository: r.cfg.CI.Repository,
		RunID:      r.cfg.CI.RunID,
		Workflow:   r.cfg.CI.Workflow,
		Ref:        r.cfg.CI.Ref,
	}

	if r.cfg.SummaryDir != "" {
		record := exporter.NewRecord(files, result.Summary, meta, exporter.WithInvocation(r.invocation))
		pth, writeErr := exporter.NewWriter(exporter.WriteToDir(r.cfg.SummaryDir)).WriteRecord(ctx, record)
		if writeErr != nil {
			return result, fmt.Errorf("exporter WriteRecord: %w", writeErr)
		}

		result.SummaryFile = pth
		log.WithField("path", pth).Info("Summary written")
	}

	n := notifier.New(
		r.messageSender(),
		r.cfg.SlackChannel,
		notifier.WithOnlyOnIssues(r.cfg.OnlyNotifyOnIssues),
		notifier.WithTitle(r.cfg.MessageTitle),
		notifier.WithLogger(log),
	)

	result.Decision, err = n.Notify(ctx, result.Summary, meta)
	if err != nil {
		return result, fmt.Errorf("notifier Notify: %w", err)
	}

	return result, nil
}

func (r *Reporter) workspace() (fs.FS, error) {
	if r.fsys != nil {
		return r.fsys, nil
	}

	root := r.cfg.Workspace
	if root == "" {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("os.Getwd: %w", err)
		}

		root = pwd
	}

	return fs.New(root), nil
}

func (r *Reporter) messageSender() notifier.Sender {
	if r.sender != nil {
		return r.sender
	}

	if r.cfg.DryRun {
		return notifier.NewWriterSender(r.out)
	}

	var opts []slack.Option
	if r.cfg.SlackAPIURL != "" {
		opts = append(opts, slack.WithBaseURL(r.cfg.SlackAPIURL))
	}

	if r.cfg.SlackTimeout > 0 {
		opts = append(opts, slack.WithTimeout(r.cfg.SlackTimeout))
	}

	return slack.NewClient(r.cfg.SlackToken, opts...)
}
