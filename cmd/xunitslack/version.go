package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var (
	BuildName = "xunitslack"
	BuildTag  string
)

var versionCmd = &cobra.Command{
	Use:          "version",
	Short:        "Print the xunitslack version",
	Long:         "Print the release tag, the target OS and the architecture of this xunitslack binary",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version())
		return err
	},
}

func init() {
	// Release builds set BuildTag via -ldflags, go install falls back to the module version.
	if info, ok := debug.ReadBuildInfo(); ok && BuildTag == "" && info.Main.Version != "(devel)" {
		BuildTag = info.Main.Version
	}

	rootCmd.AddCommand(versionCmd)
}

func version() string {
	tag := strings.TrimPrefix(BuildTag, "v")
	if tag == "" {
		tag = "dev"
	}

	return fmt.Sprintf("%s version %s %s/%s", BuildName, tag, runtime.GOOS, runtime.GOARCH)
}
