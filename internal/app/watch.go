package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pinbuild/internal/manifest"
	"github.com/blackwell-systems/pinbuild/internal/watcher"
)

var (
	watchDir         string
	watchDaemon      bool
	watchDaemonChild bool
	watchStop        bool
	watchStatus      bool

	watchCmd = &cobra.Command{
		Use:   "watch --dir DIR",
		Short: "Rebuild packages when their manifests change",
		Long: `Watch a manifest directory and rebuild a package whenever its manifest
file is written. Changes are debounced so editor save bursts trigger a
single rebuild.

With --daemon the watcher runs in the background; its PID and log live under
the pinbuild root.`,
		Example: `  # Watch in the foreground
  pinbuild watch --dir manifests

  # Run as a background daemon
  pinbuild watch --dir manifests --daemon

  # Check / stop the daemon
  pinbuild watch --status
  pinbuild watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "manifest directory to watch")
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run in the background")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal: run as the forked daemon child")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop a running daemon")
	watchCmd.Flags().BoolVar(&watchStatus, "status", false, "report whether the daemon is running")
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	pidFile, err := getPIDFile()
	if err != nil {
		return err
	}

	if watchStatus {
		running, err := watcher.IsDaemonRunning(pidFile)
		if err != nil {
			return err
		}
		if running {
			fmt.Println("Watch daemon is running.")
		} else {
			fmt.Println("Watch daemon is not running.")
		}
		return nil
	}

	if watchStop {
		if err := watcher.StopDaemon(pidFile); err != nil {
			return err
		}
		fmt.Println("✓ Watch daemon stopped.")
		return nil
	}

	if watchDir == "" {
		return fmt.Errorf("no manifest directory given, usage: pinbuild watch --dir DIR")
	}

	if watchDaemon {
		logFile, err := getLogFile()
		if err != nil {
			return err
		}
		extra := []string{"--dir", watchDir}
		if rootFlag != "" {
			extra = append(extra, "--root", rootFlag)
		}
		if dbFlag != "" {
			extra = append(extra, "--db", dbFlag)
		}
		if err := watcher.StartDaemon(pidFile, logFile, extra); err != nil {
			return err
		}
		fmt.Printf("✓ Watch daemon started (log: %s)\n", logFile)
		return nil
	}

	w, err := newManifestWatcher(cmd.Context())
	if err != nil {
		return err
	}

	if watchDaemonChild {
		return w.RunDaemon(pidFile)
	}

	// Foreground mode: block until interrupted.
	fmt.Printf("Watching %s for manifest changes (Ctrl-C to stop)...\n", watchDir)
	return w.RunDaemon(pidFile)
}

// newManifestWatcher builds the Watcher whose rebuild function runs the full
// build pipeline for a changed manifest.
func newManifestWatcher(ctx context.Context) (*watcher.Watcher, error) {
	db, err := openStore()
	if err != nil {
		return nil, err
	}

	rebuild := func(path string) error {
		m, err := manifest.Load(path)
		if err != nil {
			return err
		}
		fmt.Printf("manifest %s changed, rebuilding %s %s\n", path, m.Name, m.Version)
		return buildManifest(ctx, db, m, true)
	}

	return watcher.New(watchDir, rebuild)
}
