package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferncroft/helper-audit/internal/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Scan the configuration and classify every helper",
	Long: `Analyze discovers helper entities from the Home Assistant registry,
scans the configuration directory and .storage dashboards for references
to them, classifies each helper, and writes the report artefacts.

The run is recorded in the history database. When MQTT or InfluxDB are
enabled, the run summary is published there too.

Examples:
  helperaudit analyze
  helperaudit analyze --config /etc/helperaudit/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, err := connectHass(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck // Shutdown path

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Shutdown path

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

	sink := analysis.NewDirSink(cfg.Reports.Dir)
	p := &pipeline{
		engine: engine,
		repo:   analysis.NewSQLiteRepository(db),
		sink:   sink,
		status: status,
		influx: influxClient,
		logger: log,
	}

	result, err := p.Analyze(ctx)
	if err != nil {
		return err
	}

	c := result.Counts
	fmt.Printf("Analysed %d helpers: %d actively used, %d dashboard-only, %d truly orphaned\n",
		c.Total,
		c.ByClassification[analysis.ActivelyUsed],
		c.ByClassification[analysis.DashboardOnly],
		c.ByClassification[analysis.TrulyOrphaned],
	)
	if n := len(result.LoadErrors); n > 0 {
		fmt.Printf("%d files could not be read or parsed; see %s\n", n, analysis.ArtifactSummary)
	}
	fmt.Printf("Reports written to %s\n", sink.Dir())
	return nil
}
