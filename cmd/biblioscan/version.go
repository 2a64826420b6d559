package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set at build time via ldflags; empty in plain "go build" binaries,
// where the module build info fills the gaps.
var (
	version = ""
	commit  = ""
	date    = ""
)

// resolveBuildInfo returns version, commit, and build date, preferring
// the ldflags values and falling back to debug.ReadBuildInfo.
func resolveBuildInfo() (string, string, string) {
	v, c, d := version, commit, date

	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "" {
			v = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if c == "" {
					c = shortRevision(s.Value)
				}
			case "vcs.time":
				if d == "" {
					d = s.Value
				}
			}
		}
	}

	if v == "" {
		v = "(devel)"
	}
	if c == "" {
		c = "unknown"
	}
	if d == "" {
		d = "unknown"
	}
	return v, c, d
}

// versionString assembles the one-line version banner.
func versionString() string {
	v, c, d := resolveBuildInfo()
	return fmt.Sprintf("biblioscan %s (commit %s, built %s, %s)", v, c, d, runtime.Version())
}

// rootVersion is the bare version for cobra's --version flag.
func rootVersion() string {
	v, _, _ := resolveBuildInfo()
	return v
}

// shortRevision trims a VCS revision to the familiar 7-character form.
func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of biblioscan.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}
