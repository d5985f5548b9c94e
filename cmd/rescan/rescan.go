// Package rescan implements the periodic rescan daemon.
package rescan

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/aeoscan/cmd/common"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/scan"
)

// Command returns the rescan command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "rescan",
		Short: "Periodically re-scan previously audited sites",
		Long: `Runs as a daemon, re-scanning every target that has at least one
completed scan on the configured cron schedule. Each rescan produces a
fresh scan with new issues and a new report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return run(cfgFile)
		},
	}
}

// run starts the cron scheduler and blocks until interrupted.
func run(cfgFile string) error {
	deps, err := common.New(cfgFile)
	if err != nil {
		return err
	}
	defer deps.Close()

	scheduler := cron.New()
	schedule := deps.Config.Rescan.Schedule

	_, err = scheduler.AddFunc(schedule, func() {
		rescanAll(context.Background(), deps.Runner, deps.Repos, deps.Logger)
	})
	if err != nil {
		return fmt.Errorf("invalid rescan schedule %q: %w", schedule, err)
	}

	deps.Logger.Info("rescan daemon started", "schedule", schedule)
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Let any in-flight rescan finish before exiting.
	ctx := scheduler.Stop()
	<-ctx.Done()

	deps.Logger.Info("rescan daemon stopped")
	return nil
}

// rescanAll starts a fresh scan for every known completed target.
func rescanAll(ctx context.Context, runner *scan.Runner, repos scan.Repositories, log logger.Interface) {
	targets, err := repos.Scans.ListCompletedTargets(ctx)
	if err != nil {
		log.Error("failed to list rescan targets", "error", err.Error())
		return
	}

	log.Info("rescan wave starting", "targets", len(targets))

	for _, target := range targets {
		s, createErr := repos.Scans.Create(ctx, target)
		if createErr != nil {
			log.Error("failed to create rescan", "target", target, "error", createErr.Error())
			continue
		}

		if execErr := runner.Execute(ctx, s); execErr != nil {
			log.Error("rescan failed", "target", target, "error", execErr.Error())
		}
	}
}
