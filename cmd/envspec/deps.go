package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Edit the dependencies of an environment file",
	Long: `Edit the dependency list of an environment file in place.

Examples:
  envspec deps add numpy=1.26 "scipy>=1.11"
  envspec deps add flask --file web/environment.yml`,
}

var depsAddCmd = &cobra.Command{
	Use:   "add <requirement>...",
	Short: "Append conda requirements",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDepsAdd,
}

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.AddCommand(depsAddCmd)

	depsCmd.PersistentFlags().StringVar(&editFile, "file", "", "environment file (default: search from current directory)")
}

func runDepsAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	e, err := a.Specs.AddDependencies(cmd.Context(), editFile, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d dependencies\n", e.SourcePath, e.Dependencies.Len())
	return nil
}
