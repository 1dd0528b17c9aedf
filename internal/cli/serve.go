package cli

import (
	"github.com/spf13/cobra"

	"github.com/ferncroft/helper-audit/internal/analysis"
	"github.com/ferncroft/helper-audit/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the analysis history over HTTP and accepts triggers for
new runs. The server runs until interrupted.

Endpoints:
  GET  /api/v1/health       component health
  GET  /api/v1/runs         stored run summaries
  GET  /api/v1/runs/latest  full latest result
  POST /api/v1/analyze      trigger a new analysis`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Shutdown path

	client, err := connectHass(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck // Shutdown path

	mqttClient, status, err := connectMQTT()
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer mqttClient.Close() //nolint:errcheck // Shutdown path
	}

	influxClient, err := connectInflux()
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer influxClient.Close() //nolint:errcheck // Shutdown path
	}

	engine := analysis.NewEngine(newDiscovery(client), cfg.Hass.ConfigDir, cfg.StorageDir(), namingOptions(cfg))
	engine.SetLogger(log)

	repo := analysis.NewSQLiteRepository(db)
	p := &pipeline{
		engine: engine,
		repo:   repo,
		sink:   analysis.NewDirSink(cfg.Reports.Dir),
		status: status,
		influx: influxClient,
		logger: log,
	}

	components := map[string]api.HealthChecker{
		"database": db,
	}
	if mqttClient != nil {
		components["mqtt"] = mqttClient
	}
	if influxClient != nil {
		components["influxdb"] = influxClient
	}

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Logger:     log,
		Repo:       repo,
		Analyzer:   p,
		Components: components,
		Version:    Version,
	})
	if err != nil {
		return err
	}

	if err := server.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("serving, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}
