// Package httpd implements the HTTP API server command.
package httpd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/aeoscan/cmd/common"
	"github.com/jonesrussell/aeoscan/internal/api"
	"github.com/jonesrussell/aeoscan/internal/export"
	"github.com/jonesrussell/aeoscan/internal/report"
)

// errorChannelBufferSize keeps the server goroutine from blocking on a
// failed start.
const errorChannelBufferSize = 1

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Serve the audit HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return run(cfgFile)
		},
	}
}

// run starts the API server and blocks until interrupted.
func run(cfgFile string) error {
	deps, err := common.New(cfgFile)
	if err != nil {
		return err
	}
	defer deps.Close()

	reportSvc := report.NewService(
		deps.Repos.Scans,
		deps.Repos.Clusters,
		deps.Repos.Issues,
		deps.Repos.Reports,
		deps.Fixes,
		deps.Logger,
	)
	exportSvc := export.NewService(deps.Repos.Issues, deps.Repos.Pages, deps.Logger)

	handler := api.NewScansHandler(deps.Runner, deps.Repos.Scans, deps.Repos.Pages, reportSvc, exportSvc, deps.Archive, deps.Logger)

	server := api.NewServer(api.ServerConfig{
		Address:      deps.Config.Server.Address,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
		Development:  deps.Config.Environment == "development",
	}, handler, deps.Logger)

	errChan := make(chan error, errorChannelBufferSize)
	go func() {
		errChan <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case serveErr := <-errChan:
		return serveErr
	case sig := <-quit:
		deps.Logger.Info("shutdown signal received", "signal", sig.String())
	}

	return server.Stop(context.Background())
}
