// Package config builds the run configuration from environment style key/value sources.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvXUnitPath          = "XUNIT_PATH"
	EnvXUnitGlob          = "XUNIT_PATH_GLOB"
	EnvWorkspace          = "GITHUB_WORKSPACE"
	EnvSlackChannel       = "SLACK_CHANNEL"
	EnvSlackToken         = "SLACK_TOKEN"
	EnvSlackAPIURL        = "SLACK_API_URL"
	EnvSlackTimeout       = "SLACK_TIMEOUT"
	EnvSlackMessageTitle  = "SLACK_MESSAGE_TITLE"
	EnvOnlyNotifyOnIssues = "ONLY_NOTIFY_ON_ISSUES"
	EnvExitOnFailure      = "EXIT_ON_FAILURE"
	EnvSummaryDir         = "XUNIT_SUMMARY_DIR"
	EnvDryRun             = "DRY_RUN"
	EnvLogLevel           = "LOG_LEVEL"

	EnvServerURL  = "GITHUB_SERVER_URL"
	EnvRepository = "GITHUB_REPOSITORY"
	EnvRunID      = "GITHUB_RUN_ID"
	EnvWorkflow   = "GITHUB_WORKFLOW"
	EnvRef        = "GITHUB_REF"

	DefaultEnvFile = ".env"
)

var (
	ErrMissingInput   = errors.New("xunit file(s) not found")
	ErrMissingChannel = errors.New("slack channel is not set")
	ErrMissingToken   = errors.New("slack token is not set")
	ErrInvalidValue   = errors.New("invalid value")
)

// Error is a configuration error tied to a key.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CI holds the metadata the CI system exports for the current run.
type CI struct {
	ServerURL  string
	Repository string
	RunID      string
	Workflow   string
	Ref        string
}

type Config struct {
	XUnitPath string
	XUnitGlob string
	Workspace string

	SlackChannel string
	SlackToken   string
	SlackAPIURL  string
	SlackTimeout time.Duration
	MessageTitle string

	OnlyNotifyOnIssues bool
	ExitOnFailure      bool
	DryRun             bool

	SummaryDir string
	LogLevel   string

	CI CI
}

// LookupFunc returns the value of key and whether it is set.
type LookupFunc func(key string) (string, bool)

// Chain returns a LookupFunc that asks each lookup in order and stops at the first hit.
func Chain(lookups ...LookupFunc) LookupFunc {
	return func(key string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}

			if v, ok := lookup(key); ok {
				return v, true
			}
		}

		return "", false
	}
}

// Load reads the configuration through lookup. Values are parsed but not validated,
// call Validate once all overrides are applied.
func Load(lookup LookupFunc) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		XUnitPath:    get(EnvXUnitPath),
		XUnitGlob:    get(EnvXUnitGlob),
		Workspace:    get(EnvWorkspace),
		SlackChannel: get(EnvSlackChannel),
		SlackToken:   get(EnvSlackToken),
		SlackAPIURL:  get(EnvSlackAPIURL),
		MessageTitle: get(EnvSlackMessageTitle),
		SummaryDir:   get(EnvSummaryDir),
		LogLevel:     get(EnvLogLevel),
		CI: CI{
			ServerURL:  get(EnvServerURL),
			Repository: get(EnvRepository),
			RunID:      get(EnvRunID),
			Workflow:   get(EnvWorkflow),
			Ref:        get(EnvRef),
		},
	}

	var errs []error

	parseBool := func(key string, dst *bool) {
		v := get(key)
		if v == "" {
			return
		}

		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, &Error{Key: key, Err: fmt.Errorf("%w %q: expected true or false", ErrInvalidValue, v)})
			return
		}

		*dst = b
	}

	parseBool(EnvOnlyNotifyOnIssues, &cfg.OnlyNotifyOnIssues)
	parseBool(EnvExitOnFailure, &cfg.ExitOnFailure)
	parseBool(EnvDryRun, &cfg.DryRun)

	if v := get(EnvSlackTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, &Error{Key: EnvSlackTimeout, Err: fmt.Errorf("%w %q: expected a positive duration", ErrInvalidValue, v)})
		}
		cfg.SlackTimeout = d
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// Validate reports every missing required setting. The slack token is not required
// for a dry run since nothing is posted.
func (c Config) Validate() error {
	var errs []error

	if c.XUnitPath == "" && c.XUnitGlob == "" {
		errs = append(errs, &Error{
			Key: EnvXUnitPath,
			Err: fmt.Errorf("%w: set %s or %s", ErrMissingInput, EnvXUnitPath, EnvXUnitGlob),
		})
	}

	if c.SlackChannel == "" {
		errs = append(errs, &Error{Key: EnvSlackChannel, Err: ErrMissingChannel})
	}

	if c.SlackToken == "" && !c.DryRun {
		errs = append(errs, &Error{Key: EnvSlackToken, Err: ErrMissingToken})
	}

	return errors.Join(errs...)
}

// LoadEnvFile exports the variables of an env file into the process environment
// without overriding variables that are already set. A missing default file is ignored.
func LoadEnvFile(pth string) error {
	if pth == "" {
		pth = DefaultEnvFile
	}

	if err := godotenv.Load(pth); err != nil {
		if pth == DefaultEnvFile && errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("godotenv.Load %s: %w", pth, err)
	}

	return nil
}

// FileLookup reads a flat YAML document of KEY: value pairs, keys as in the environment.
func FileLookup(pth string) (LookupFunc, error) {
	data, err := os.ReadFile(pth)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	var raw map[string]any
	if err = yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal %s: %w", pth, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch val := v.(type) {
		case nil:
			continue
		case string:
			values[key] = val
		case bool, int, float64:
			values[key] = fmt.Sprint(val)
		default:
			return nil, &Error{Key: key, Err: fmt.Errorf("%w: %s must be a scalar", ErrInvalidValue, pth)}
		}
	}

	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}, nil
}
