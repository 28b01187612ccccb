package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/envspec/bootstrap"
	"github.com/artpar/envspec/core/loader"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "envspec",
	Short: "Read, edit and export conda-style environment files",
	Long: `envspec reads environment.yml files, validates and edits them, and
reconstructs them from the package inventory of installed prefixes.

Environment files:
  envspec show                  # Find environment.yml here or in a parent
  envspec validate env.yml      # Check a file and report warnings
  envspec channels add conda-forge
  envspec deps add numpy=1.26

Inventory:
  envspec inventory import snapshot.yaml
  envspec export --prefix /opt/envs/data
  envspec serve                 # HTTP export/validate API`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default envspec.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

// newApp wires the application for a command. Logs go to the command's
// error stream.
func newApp(cmd *cobra.Command, onWarning loader.WarningHandler) (*bootstrap.App, error) {
	return bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		LogLevel:   logLevel,
		LogOutput:  cmd.ErrOrStderr(),
		Version:    version,
		OnWarning:  onWarning,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

func printCheck(w io.Writer, ok bool, format string, args ...any) {
	mark := checkMark
	if !ok {
		mark = crossMark
	}
	fmt.Fprintf(w, "  %s %s\n", mark, fmt.Sprintf(format, args...))
}
