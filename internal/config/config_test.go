package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load(mapLookup(map[string]string{
		EnvXUnitPath:          "report.xml",
		EnvSlackChannel:       " #ci ",
		EnvSlackToken:         "xoxb-1",
		EnvOnlyNotifyOnIssues: "TRUE",
		EnvExitOnFailure:      "false",
		EnvSlackTimeout:       "3s",
		EnvRepository:         "octo/app",
		EnvRunID:              "42",
		EnvWorkflow:           "CI",
		EnvRef:                "refs/heads/main",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	expected := Config{
		XUnitPath:          "report.xml",
		SlackChannel:       "#ci",
		SlackToken:         "xoxb-1",
		SlackTimeout:       3 * time.Second,
		OnlyNotifyOnIssues: true,
		CI: CI{
			Repository: "octo/app",
			RunID:      "42",
			Workflow:   "CI",
			Ref:        "refs/heads/main",
		},
	}

	if diff := cmp.Diff(expected, cfg); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if err = cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{name: "test_bad_bool", env: map[string]string{EnvExitOnFailure: "yes please"}, key: EnvExitOnFailure},
		{name: "test_bad_dry_run", env: map[string]string{EnvDryRun: "maybe"}, key: EnvDryRun},
		{name: "test_bad_timeout", env: map[string]string{EnvSlackTimeout: "soon"}, key: EnvSlackTimeout},
		{name: "test_negative_timeout", env: map[string]string{EnvSlackTimeout: "-1s"}, key: EnvSlackTimeout},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				_, err := Load(mapLookup(tc.env))
				if !errors.Is(err, ErrInvalidValue) {
					t.Fatalf("got: %v, want: %v", err, ErrInvalidValue)
				}

				var cfgErr *Error
				if !errors.As(err, &cfgErr) {
					t.Fatalf("got: %T, want: *Error", err)
				}

				if diff := cmp.Diff(tc.key, cfgErr.Key); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		cfg      Config
		expected []error
	}{
		{
			name:     "test_no_input",
			cfg:      Config{SlackChannel: "#ci", SlackToken: "t"},
			expected: []error{ErrMissingInput},
		},
		{
			name:     "test_glob_only",
			cfg:      Config{XUnitGlob: "**/*.xml", SlackChannel: "#ci", SlackToken: "t"},
			expected: nil,
		},
		{
			name:     "test_nothing_set",
			cfg:      Config{},
			expected: []error{ErrMissingInput, ErrMissingChannel, ErrMissingToken},
		},
		{
			name:     "test_dry_run_without_token",
			cfg:      Config{XUnitPath: "a.xml", SlackChannel: "#ci", DryRun: true},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				err := tc.cfg.Validate()
				if len(tc.expected) == 0 {
					if err != nil {
						t.Fatalf("Validate: %v", err)
					}
					return
				}

				for _, want := range tc.expected {
					if !errors.Is(err, want) {
						t.Errorf("got: %v, want: %v", err, want)
					}
				}
			},
		)
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	lookup := Chain(
		mapLookup(map[string]string{EnvSlackChannel: "#env"}),
		nil,
		mapLookup(map[string]string{EnvSlackChannel: "#file", EnvSlackToken: "file-token"}),
	)

	cfg, err := Load(lookup)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff("#env", cfg.SlackChannel); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if diff := cmp.Diff("file-token", cfg.SlackToken); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestFileLookup(t *testing.T) {
	t.Parallel()

	lookup, err := FileLookup(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("FileLookup: %v", err)
	}

	cfg, err := Load(lookup)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	expected := Config{
		XUnitGlob:     "reports/**/*.xml",
		SlackChannel:  "#ci",
		SlackTimeout:  5 * time.Second,
		MessageTitle:  "Nightly",
		ExitOnFailure: true,
	}

	if diff := cmp.Diff(expected, cfg); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestFileLookup_Invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pth := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(pth, []byte("SLACK_CHANNEL:\n  - a\n  - b\n"), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	if _, err := FileLookup(pth); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("got: %v, want: %v", err, ErrInvalidValue)
	}

	if _, err := FileLookup(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got: %v, want: %v", err, os.ErrNotExist)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join("testdata", "ci.env")); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}

	t.Cleanup(func() {
		_ = os.Unsetenv("SLACK_CHANNEL_FROM_DOTENV")
	})

	if diff := cmp.Diff("#dotenv", os.Getenv("SLACK_CHANNEL_FROM_DOTENV")); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if err := LoadEnvFile(filepath.Join("testdata", "missing.env")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got: %v, want: %v", err, os.ErrNotExist)
	}
}
