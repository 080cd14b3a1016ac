// Command classify-mail classifies job-search email from the command line
package main

import (
	"fmt"
	"os"

	"github.com/mikey/job-mail-tracker/internal/di"
	"github.com/spf13/cobra"
)

var flags = &di.CLIFlags{Out: os.Stdout}

var rootCmd = &cobra.Command{
	Use:           "classify-mail",
	Short:         "Classify job-search email",
	Long:          "Classifies raw RFC 5322 messages into job-search categories, runs one-off mailbox scans and authorizes Gmail access.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Show signals and debug logging")
	pf.BoolVar(&flags.JSONOutput, "json", false, "Write results as JSON lines")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	pf.StringSliceVar(&flags.Precedence, "precedence", nil, "Rule precedence, highest first (overrides config)")
	pf.StringSliceVar(&flags.ExtraJobBoardDomains, "job-board", nil, "Additional job board sender domains")
	pf.IntVar(&flags.MaxBodySize, "max-body-size", 0, "Maximum body size in bytes (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
