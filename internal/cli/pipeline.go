package cli

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ferncroft/helper-audit/migrations"

	"github.com/ferncroft/helper-audit/internal/analysis"
	"github.com/ferncroft/helper-audit/internal/hass"
	"github.com/ferncroft/helper-audit/internal/helper"
	"github.com/ferncroft/helper-audit/internal/infrastructure/config"
	"github.com/ferncroft/helper-audit/internal/infrastructure/database"
	"github.com/ferncroft/helper-audit/internal/infrastructure/influxdb"
	"github.com/ferncroft/helper-audit/internal/infrastructure/logging"
	"github.com/ferncroft/helper-audit/internal/infrastructure/mqtt"
	"github.com/ferncroft/helper-audit/internal/scan"
)

// pipeline runs one full analysis: engine, report artefacts, run history,
// and the optional MQTT status sensor and InfluxDB metrics.
//
// It implements api.Analyzer so the serve command can expose a trigger
// endpoint over the same wiring the analyze command uses.
type pipeline struct {
	engine *analysis.Engine
	repo   analysis.Repository
	sink   analysis.Sink
	status *mqtt.StatusSensor
	influx *influxdb.Client
	logger *logging.Logger
}

// Analyze runs the engine and fans the result out to every configured
// destination. Report and persistence failures are fatal; publishing
// failures are logged and tolerated.
func (p *pipeline) Analyze(ctx context.Context) (*analysis.Result, error) {
	start := time.Now()

	result, err := p.engine.Run(ctx)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	if err := analysis.WriteArtifacts(result, p.sink); err != nil {
		return nil, fmt.Errorf("writing report artefacts: %w", err)
	}

	if err := p.repo.SaveRun(ctx, result, duration); err != nil {
		return nil, fmt.Errorf("saving run history: %w", err)
	}

	if p.status != nil {
		if err := p.status.PublishDiscovery(); err != nil {
			p.logger.Warn("failed to publish MQTT discovery config", "error", err)
		} else if err := p.status.PublishRun(runStatus(result)); err != nil {
			p.logger.Warn("failed to publish MQTT run status", "error", err)
		}
	}

	if p.influx != nil {
		c := result.Counts
		p.influx.WriteRunMetrics(
			result.RunID, result.Timestamp,
			c.Total,
			c.ByClassification[analysis.ActivelyUsed],
			c.ByClassification[analysis.DashboardOnly],
			c.ByClassification[analysis.TrulyOrphaned],
			len(result.LoadErrors),
			duration,
		)
		p.influx.Flush()
	}

	return result, nil
}

// runStatus maps a result to the MQTT sensor payload.
func runStatus(result *analysis.Result) mqtt.RunStatus {
	c := result.Counts
	return mqtt.RunStatus{
		RunID:         result.RunID,
		Timestamp:     result.Timestamp,
		Total:         c.Total,
		ActivelyUsed:  c.ByClassification[analysis.ActivelyUsed],
		DashboardOnly: c.ByClassification[analysis.DashboardOnly],
		TrulyOrphaned: c.ByClassification[analysis.TrulyOrphaned],
		LoadErrors:    len(result.LoadErrors),
	}
}

// namingOptions maps the config section to the scan package's options.
func namingOptions(cfg *config.Config) scan.NamingOptions {
	return scan.NamingOptions{
		Enabled:        cfg.Analysis.Naming.Enabled,
		MinTokenLength: cfg.Analysis.Naming.MinTokenLength,
		StopTokens:     cfg.Analysis.Naming.StopTokens,
	}
}

// connectHass dials the Home Assistant WebSocket API and completes the
// authentication handshake.
func connectHass(ctx context.Context) (*hass.Client, error) {
	client, err := hass.NewClient(cfg.Hass.URL, cfg.Hass.Token, cfg.GetCallTimeout())
	if err != nil {
		return nil, fmt.Errorf("creating Home Assistant client: %w", err)
	}
	client.SetLogger(log)

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to Home Assistant: %w", err)
	}
	log.Info("Home Assistant connected", "url", cfg.Hass.URL)
	return client, nil
}

// newDiscovery wraps a connected client in the helper registry reader.
func newDiscovery(client *hass.Client) *helper.Discovery {
	discovery := helper.NewDiscovery(client)
	discovery.SetLogger(log)
	return discovery
}

// openDatabase opens the run-history database and applies migrations.
func openDatabase(ctx context.Context) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// connectMQTT connects the optional status-sensor publisher.
// Returns nils when MQTT is disabled.
func connectMQTT() (*mqtt.Client, *mqtt.StatusSensor, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil, nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, mqtt.NewStatusSensor(client, cfg.MQTT), nil
}

// connectInflux connects the optional metrics client.
// Returns nil when InfluxDB is disabled.
func connectInflux() (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}
