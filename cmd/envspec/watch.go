package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Re-validate an environment file whenever it changes",
	Long: `Watch an environment file and validate it after every save.

Examples:
  envspec watch
  envspec watch ci/environment.yml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 100*time.Millisecond, "wait this long after a change before validating")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	path := "environment.yml"
	if len(args) == 1 {
		path = args[0]
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory (editors often replace the file on save)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	check := func() {
		e, err := a.Loader.FromSource(ctx, path)
		stamp := time.Now().Format("15:04:05")
		if err != nil {
			printCheck(out, false, "%s %v", stamp, err)
			return
		}
		printCheck(out, true, "%s %s: %d dependencies, %d channels",
			stamp, filepath.Base(path), e.Dependencies.Len(), len(e.Channels))
	}

	fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", path)
	check()

	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.Logger.Error().Err(err).Msg("file watcher error")
		case <-pending:
			pending = nil
			check()
		case <-ctx.Done():
			return nil
		}
	}
}
