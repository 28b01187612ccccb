package main

import (
	"fmt"
	"os"

	"github.com/artpar/envspec/app"
	"github.com/spf13/cobra"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage the installed-prefix inventory",
	Long: `Manage the inventory of installed prefixes that "envspec export"
reads from.

An inventory file describes one prefix:

  prefix: /opt/envs/data
  records:
    - {name: python, version: 3.11.4, build: h955ad1f_0, channel: conda-forge}
    - {name: requests, version: 2.31.0, package_type: virtual_python_wheel}
  variables:
    DATA_HOME: /data
  history: [python=3.11, requests]

Examples:
  envspec inventory import snapshot.yaml`,
}

var inventoryImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import prefix snapshots into the inventory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInventoryImport,
}

func init() {
	rootCmd.AddCommand(inventoryCmd)

	inventoryCmd.AddCommand(inventoryImportCmd)
}

func runInventoryImport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if err := a.OpenInventory(cmd.Context()); err != nil {
		return fmt.Errorf("open inventory: %w", err)
	}

	for _, path := range args {
		inv, err := readInventory(path)
		if err != nil {
			return err
		}
		if err := a.Inventory.Import(cmd.Context(), inv); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d records, %d requests\n",
			inv.Prefix, len(inv.Records), len(inv.History))
	}
	return nil
}

func readInventory(path string) (*app.Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory file: %w", err)
	}
	defer f.Close()

	inv, err := app.ParseInventory(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inv, nil
}
