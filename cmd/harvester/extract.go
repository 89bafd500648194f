package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/applicant-harvester/internal/entity"
)

var extractRestart bool

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run one extraction in the foreground",
	Long: "Run one extraction against the open applicant view, print progress and the export path. " +
		"Ctrl-C stops after the current applicant and exports what was collected.",
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractRestart, "restart", false, "Discard partial progress of a previous run")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.Close()

	events, unsubscribe := a.hub.Subscribe()
	defer unsubscribe()

	runID, err := a.controller.Extract(ctx, extractRestart)
	if err != nil {
		return err
	}
	log.Info("extraction started", zap.String("run_id", runID))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	finished := make(chan struct{})
	go func() {
		a.controller.Wait()
		close(finished)
	}()

	out := cmd.OutOrStdout()
	for {
		select {
		case <-signals:
			fmt.Fprintln(out, "Stopping after the current applicant...")
			a.controller.Stop()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if done, err := report(out, ev); done {
				return err
			}
		case <-finished:
			// The hub drops events for slow subscribers; drain what is left
			// and fall back to the final status.
			for {
				select {
				case ev := <-events:
					if done, err := report(out, ev); done {
						return err
					}
				default:
					return reportStatus(out, a.controller.Status(ctx))
				}
			}
		}
	}
}

func reportStatus(w io.Writer, status entity.RunStatus) error {
	if status.State == entity.RunFailed {
		return fmt.Errorf("extraction failed: %s", status.Error)
	}
	fmt.Fprintln(w, status.Message)
	if status.ExportPath != "" {
		fmt.Fprintf(w, "Exported to %s\n", status.ExportPath)
	}
	return nil
}

// report prints one event and reports whether it ended the run.
func report(w io.Writer, ev entity.Event) (bool, error) {
	switch ev.Type {
	case entity.EventProgress:
		if ev.Progress != nil {
			fmt.Fprintf(w, "Page %d of %d (%.0f%%)\n", ev.Progress.CurrentPage, ev.Progress.TotalPages, ev.Progress.Percent())
		}
	case entity.EventTerminal:
		if ev.Terminal == nil {
			return true, nil
		}
		if !ev.Terminal.Success {
			return true, fmt.Errorf("extraction failed: %s", ev.Terminal.Error)
		}
		fmt.Fprintln(w, ev.Terminal.Message)
		if ev.Terminal.ExportPath != "" {
			fmt.Fprintf(w, "Exported to %s\n", ev.Terminal.ExportPath)
		}
		return true, nil
	}
	return false, nil
}
