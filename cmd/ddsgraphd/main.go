package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/sambigeara/ddsgraph/pkg/config"
	"github.com/sambigeara/ddsgraph/pkg/observability/logging"
	"github.com/sambigeara/ddsgraph/pkg/observability/metrics"
)

const ddsgraphRootDir = ".ddsgraph"

func main() {
	root := &cobra.Command{
		Use:   "ddsgraphd",
		Short: "Run a simulated DDS mesh over the graph cache",
	}
	root.PersistentFlags().String("dir", defaultDir(), "Config directory")
	root.AddCommand(newRunCmd(), newStatusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ddsgraphRootDir
	}
	return filepath.Join(home, ddsgraphRootDir)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, err
	}
	return config.Load(dir)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the simulated mesh",
		RunE:  runMesh,
	}
}

func runMesh(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.Init(conf.LogLevel)
	log := zap.S().Named("ddsgraphd")

	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim, err := newSimulator(conf)
	if err != nil {
		return err
	}
	defer sim.close()

	if err := metrics.RegisterGraph(sim.parts[0].cache); err != nil {
		return err
	}

	log.Infow("mesh started", "participants", conf.Participants, "topics", conf.Topics)

	if err := sim.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	dumpMetrics(log, reader)
	return nil
}

func dumpMetrics(log *zap.SugaredLogger, reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		log.Warnw("metrics collection failed", "err", err)
		return
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					log.Infow("metric", "name", m.Name, "value", dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					log.Infow("metric", "name", m.Name, "value", dp.Value)
				}
			}
		}
	}
}
