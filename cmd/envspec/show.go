package main

import (
	"github.com/artpar/envspec/core/formatter"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [file|dir|url]",
	Short: "Load an environment and print it",
	Long: `Load an environment file and print its normalized form.

Without an argument the current directory and its parents are searched
for environment.yml, then environment.yaml. URLs are fetched with the
configured remote schemes.

Examples:
  envspec show
  envspec show ./ci/environment.yml
  envspec show https://example.com/environment.yml --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var (
	showFormat   string
	showMaxWidth int
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showFormat, "format", "f", "yaml", "output format (yaml, json, table)")
	showCmd.Flags().IntVar(&showMaxWidth, "max-width", 0, "truncate table values to this width")
}

func runShow(cmd *cobra.Command, args []string) error {
	f, err := formatter.Lookup(showFormat)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	locator := ""
	if len(args) == 1 {
		locator = args[0]
	}

	e, err := a.Specs.Resolve(cmd.Context(), locator)
	if err != nil {
		return err
	}
	return f.Format(cmd.OutOrStdout(), e, formatter.FormatOptions{MaxWidth: showMaxWidth})
}
