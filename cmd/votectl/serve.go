package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vote-admin/api"
	"vote-admin/ledger"
	"vote-admin/service"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the election API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log.SetFormatter(&log.JSONFormatter{})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := dialSource(ctx, settings)
	if err != nil {
		return errors.Wrap(err, "failed to connect to block source")
	}
	defer closeSource()

	var (
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if settings.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registerer, gatherer = reg, reg
	}

	metrics := service.NewMetricsCollector(registerer)
	bootstrapper := service.NewBootstrapper(ledger.NewSyncer(src), service.WithMetrics(metrics))

	queue := service.NewBootstrapQueue(bootstrapper, settings.BootstrapWorkers, settings.BootstrapQueueSize)
	queue.Start()
	defer queue.Stop()

	cfg := api.APIConfig{
		Host:      settings.APIHost,
		Port:      settings.APIPort,
		ExportDir: settings.ExportDir,
		Gatherer:  gatherer,
	}

	log.WithFields(log.Fields{
		"lwd_url":    settings.LightwalletdURL,
		"workers":    settings.BootstrapWorkers,
		"queue_size": settings.BootstrapQueueSize,
		"export_dir": settings.ExportDir,
		"metrics":    settings.MetricsEnabled,
	}).Info("Election service configured")

	return api.NewServer(queue, metrics, cfg).Serve(ctx, cfg)
}
