package main

import (
	"fmt"
	"os"

	"github.com/artpar/envspec/app"
	"github.com/artpar/envspec/core/formatter"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an installed prefix as an environment",
	Long: `Reconstruct an environment file from the inventory of an installed
prefix. Prefixes are added with "envspec inventory import".

By default conda packages are listed with their build string and pip
packages are grouped under a pip entry. Channels start from the
configured list and are biased toward the channels packages came from.

Examples:
  envspec export --prefix /opt/envs/data
  envspec export --prefix /opt/envs/data --from-history -o environment.yml
  envspec export --prefix /opt/envs/data --no-builds --format json`,
	RunE: runExport,
}

var (
	exportPrefix         string
	exportName           string
	exportNoBuilds       bool
	exportIgnoreChannels bool
	exportFromHistory    bool
	exportFormat         string
	exportOutput         string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportPrefix, "prefix", "p", "", "installed prefix (required)")
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "", "environment name")
	exportCmd.Flags().BoolVar(&exportNoBuilds, "no-builds", false, "omit build strings")
	exportCmd.Flags().BoolVar(&exportIgnoreChannels, "ignore-channels", false, "use only the configured channels")
	exportCmd.Flags().BoolVar(&exportFromHistory, "from-history", false, "export only explicitly requested packages")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "output format (yaml, json, table)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	exportCmd.MarkFlagRequired("prefix")
}

func runExport(cmd *cobra.Command, args []string) error {
	f, err := formatter.Lookup(exportFormat)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if err := a.OpenInventory(cmd.Context()); err != nil {
		return fmt.Errorf("open inventory: %w", err)
	}

	e, err := a.Exports.FromPrefix(cmd.Context(), app.ExportOptions{
		Name:           exportName,
		Prefix:         exportPrefix,
		NoBuilds:       exportNoBuilds,
		IgnoreChannels: exportIgnoreChannels,
		FromHistory:    exportFromHistory,
	})
	if err != nil {
		return err
	}

	if exportOutput == "" {
		return f.Format(cmd.OutOrStdout(), e, formatter.FormatOptions{})
	}

	out, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := f.Format(out, e, formatter.FormatOptions{}); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", exportPrefix, exportOutput)
	return nil
}
