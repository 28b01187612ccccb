package main

import (
	"fmt"

	"github.com/artpar/envspec/core/loader"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file|dir|url]...",
	Short: "Validate environment files",
	Long: `Validate one or more environment files.

Checks:
  - The document parses and is not empty
  - Every field has the expected shape
  - Unknown top-level sections (reported, then ignored)
  - pip groups without pip among the dependencies (reported, pip added)

Exits non-zero if any file fails to load. Warnings alone do not fail
unless --strict is set.

Examples:
  envspec validate
  envspec validate environment.yml ci/environment.yml --strict`,
	RunE: runValidate,
}

var validateStrict bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat warnings as failures")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var warnings []loader.Warning
	a, err := newApp(cmd, func(w loader.Warning) {
		warnings = append(warnings, w)
	})
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if len(args) == 0 {
		args = []string{""}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, locator := range args {
		name := locator
		if name == "" {
			name = "environment.yml (searched)"
		}
		fmt.Fprintf(out, "Validating %s...\n", name)

		warnings = warnings[:0]
		e, err := a.Specs.Resolve(cmd.Context(), locator)
		if err != nil {
			printCheck(out, false, "Loads")
			fmt.Fprintf(out, "      Error: %v\n", err)
			failed++
			continue
		}
		printCheck(out, true, "Loads from %s", e.SourcePath)
		printCheck(out, true, "Name: %s", orDash(e.Name))
		printCheck(out, true, "Channels: %d", len(e.Channels))
		printCheck(out, true, "Dependencies: %d", e.Dependencies.Len())

		for _, w := range warnings {
			printCheck(out, false, "Warning (%s): %s", w.Kind, w.String())
		}
		if validateStrict && len(warnings) > 0 {
			failed++
		}
	}

	fmt.Fprintln(out)
	if failed > 0 {
		return fmt.Errorf("%d of %d environment files invalid", failed, len(args))
	}
	fmt.Fprintln(out, "All environment files are valid.")
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
