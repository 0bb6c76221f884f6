package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robotomize/go-xunit-slack/internal/config"
	"github.com/robotomize/go-xunit-slack/internal/reporter"
)

var exitFunc = os.Exit

var (
	verboseFlag       bool
	envFileFlag       string
	configFileFlag    string
	xunitPathFlag     string
	xunitGlobFlag     string
	workspaceFlag     string
	channelFlag       string
	titleFlag         string
	onlyOnIssuesFlag  bool
	exitOnFailureFlag bool
	outputDirFlag     string
	dryRunFlag        bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(
		&verboseFlag,
		"verbose",
		"v",
		false,
		"verbose",
	)
	rootCmd.PersistentFlags().StringVarP(
		&envFileFlag,
		"env",
		"",
		"",
		"load variables from env file, defaults to .env when present: --env ci.env",
	)
	rootCmd.PersistentFlags().StringVarP(
		&configFileFlag,
		"config",
		"c",
		"",
		"yaml file with KEY: value settings, environment wins: -c xunit-slack.yaml",
	)
	rootCmd.Flags().StringVarP(
		&xunitPathFlag,
		"path",
		"p",
		"",
		"xunit report file: -p build/report.xml",
	)
	rootCmd.Flags().StringVarP(
		&xunitGlobFlag,
		"glob",
		"g",
		"",
		"glob pattern relative to the workspace: -g 'reports/**/*.xml'",
	)
	rootCmd.Flags().StringVarP(
		&workspaceFlag,
		"workspace",
		"w",
		"",
		"workspace root for the glob pattern, defaults to $GITHUB_WORKSPACE or the working directory",
	)
	rootCmd.Flags().StringVarP(
		&channelFlag,
		"channel",
		"",
		"",
		"slack channel: --channel '#ci'",
	)
	rootCmd.Flags().StringVarP(
		&titleFlag,
		"title",
		"t",
		"",
		"message author name: --title 'Nightly tests'",
	)
	rootCmd.Flags().BoolVarP(
		&onlyOnIssuesFlag,
		"only-on-issues",
		"",
		false,
		"send a message only when tests failed or errored",
	)
	rootCmd.Flags().BoolVarP(
		&exitOnFailureFlag,
		"exit-on-failure",
		"e",
		false,
		"exit with code 1 when tests failed or errored",
	)
	rootCmd.Flags().StringVarP(
		&outputDirFlag,
		"output",
		"o",
		"",
		"write a json summary to the directory: -o <summary-path>",
	)
	rootCmd.Flags().BoolVarP(
		&dryRunFlag,
		"dry-run",
		"",
		false,
		"print the slack message instead of sending it",
	)
}

var rootCmd = &cobra.Command{
	Use:          "xunitslack",
	Long:         "Aggregate xunit reports and post the results to slack",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := config.LoadEnvFile(envFileFlag); err != nil {
			return fmt.Errorf("config LoadEnvFile: %w", err)
		}

		lookups := []config.LookupFunc{os.LookupEnv}
		if configFileFlag != "" {
			fileLookup, err := config.FileLookup(configFileFlag)
			if err != nil {
				return fmt.Errorf("config FileLookup: %w", err)
			}

			lookups = append(lookups, fileLookup)
		}

		cfg, err := config.Load(config.Chain(lookups...))
		if err != nil {
			return fmt.Errorf("config Load: %w", err)
		}

		if err = applyFlags(cmd.Flags(), &cfg); err != nil {
			return err
		}

		logger := newLogger(verboseFlag, cfg.LogLevel)

		r := reporter.New(cfg, reporter.WithLogger(logger), reporter.WithOutput(cmd.OutOrStdout()))
		result, err := r.Run(ctx)
		if err != nil {
			return fmt.Errorf("reporter Run: %w", err)
		}

		if cfg.ExitOnFailure && result.Decision.Failed {
			logger.WithField("invocation", result.Invocation).Error("One or more tests failed. exiting with error 1")
			exitFunc(1)
		}

		return nil
	},
}

// applyFlags overrides configuration values with the flags set on the command line.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	strFlags := map[string]*string{
		"path":      &cfg.XUnitPath,
		"glob":      &cfg.XUnitGlob,
		"workspace": &cfg.Workspace,
		"channel":   &cfg.SlackChannel,
		"title":     &cfg.MessageTitle,
		"output":    &cfg.SummaryDir,
	}

	for name, dst := range strFlags {
		if !flags.Changed(name) {
			continue
		}

		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("flags GetString %s: %w", name, err)
		}

		*dst = v
	}

	boolFlags := map[string]*bool{
		"only-on-issues":  &cfg.OnlyNotifyOnIssues,
		"exit-on-failure": &cfg.ExitOnFailure,
		"dry-run":         &cfg.DryRun,
	}

	for name, dst := range boolFlags {
		if !flags.Changed(name) {
			continue
		}

		v, err := flags.GetBool(name)
		if err != nil {
			return fmt.Errorf("flags GetBool %s: %w", name, err)
		}

		*dst = v
	}

	return nil
}
