// Package main is wikiguard's entry point: a Cobra root command with a
// "serve" subcommand that runs the HTTP front door and a "version"
// subcommand that prints build metadata.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/wikiguard/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wikiguard",
		Short: "wikiguard mirrors a wiki, restoring vandalism-reverted edits behind a marked merge",
		Long: `wikiguard is an HTTP mirror of a MediaWiki-style wiki.

For each requested article it fetches recent revisions, identifies
reversions of vandalism, and re-applies the content those reversions
removed into the current article text wherever a clean three-way merge
allows it. Restored fragments are visually marked in the rendered page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "wikiguard %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

// bindServeFlags binds the serve command's flags onto v, to be merged
// with any config file and WIKIGUARD_-prefixed environment variables by
// internal/config.Load.
func bindServeFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().Int("port", 0, "port to listen on (default 8080)")
	cmd.Flags().String("wiki", "", "upstream wiki host to mirror, e.g. en.wikipedia.org (its port comes from wiki_port)")
	cmd.Flags().String("cache_host", "", "optional cache host")
	cmd.Flags().Int("cache_port", 0, "optional cache port")
	cmd.Flags().Int("diff_size_limit", 0, "max byte divergence between base and theirs before a merge is skipped")
	cmd.Flags().Int("diff_time_limit_ms", 0, "LCS search deadline in milliseconds")
	cmd.Flags().Int("max_consecutive_diff_timeouts", 0, "consecutive timeouts before a section worker backs off")

	_ = v.BindPFlag("listen_port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("wiki_host", cmd.Flags().Lookup("wiki"))
	_ = v.BindPFlag("cache_host", cmd.Flags().Lookup("cache_host"))
	_ = v.BindPFlag("cache_port", cmd.Flags().Lookup("cache_port"))
	_ = v.BindPFlag("diff_size_limit_bytes", cmd.Flags().Lookup("diff_size_limit"))
	_ = v.BindPFlag("diff_time_limit_ms", cmd.Flags().Lookup("diff_time_limit_ms"))
	_ = v.BindPFlag("max_consecutive_diff_timeouts", cmd.Flags().Lookup("max_consecutive_diff_timeouts"))
}

func printBanner(listenPort int, wikiHost string) {
	title := color.New(color.FgCyan, color.Bold)
	detail := color.New(color.FgGreen)

	title.Fprintln(os.Stdout, "wikiguard")
	detail.Fprintf(os.Stdout, "  mirroring %s, listening on :%d\n", wikiHost, listenPort)
}
