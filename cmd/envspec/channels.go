package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Edit the channels of an environment file",
	Long: `Edit the channel list of an environment file in place.

Examples:
  envspec channels add conda-forge bioconda
  envspec channels add pytorch --file ml/environment.yml
  envspec channels remove`,
}

var channelsAddCmd = &cobra.Command{
	Use:   "add <channel>...",
	Short: "Put channels first, dropping later duplicates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChannelsAdd,
}

var channelsRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove all channels",
	Args:  cobra.NoArgs,
	RunE:  runChannelsRemove,
}

var editFile string

func init() {
	rootCmd.AddCommand(channelsCmd)

	channelsCmd.AddCommand(channelsAddCmd)
	channelsCmd.AddCommand(channelsRemoveCmd)

	channelsCmd.PersistentFlags().StringVar(&editFile, "file", "", "environment file (default: search from current directory)")
}

func runChannelsAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	e, err := a.Specs.AddChannels(cmd.Context(), editFile, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s channels: %s\n", e.SourcePath, strings.Join(e.Channels, ", "))
	return nil
}

func runChannelsRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	e, err := a.Specs.RemoveChannels(cmd.Context(), editFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s channels removed\n", e.SourcePath)
	return nil
}
