package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ferncroft/helper-audit/internal/analysis"
	"github.com/ferncroft/helper-audit/internal/deletion"
)

var (
	deleteDryRun bool
	deleteForce  bool
	deleteList   string
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete orphaned helpers named in the action list",
	Long: `Delete removes helpers listed in the orphan action list, after
validating each one against the latest analysis run. Helpers that are
not truly orphaned are rejected; template-type entities are never
deleted and must be removed from the configuration by hand.

A backup of every candidate's state is written to the reports directory
before anything is removed. Commented lines in the list are skipped, so
the reviewed list is the deletion contract.

Examples:
  helperaudit delete --dry-run
  helperaudit delete
  helperaudit delete --list /tmp/reviewed.txt --force`,
	Args: cobra.NoArgs,
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", false, "validate and report without deleting")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")
	deleteCmd.Flags().StringVar(&deleteList, "list", "", "action list path (default: orphan list in the reports directory)")
}

func runDelete(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	listPath := deleteList
	if listPath == "" {
		listPath = filepath.Join(cfg.Reports.Dir, analysis.ArtifactOrphanList)
	}
	listText, err := os.ReadFile(listPath)
	if err != nil {
		return fmt.Errorf("reading action list: %w", err)
	}

	lines := analysis.ParseActionList(string(listText))
	if len(lines) == 0 {
		fmt.Println("Action list has no uncommented entries; nothing to do.")
		return nil
	}

	if !deleteDryRun && !deleteForce {
		if !confirm(fmt.Sprintf("About to delete up to %d helpers listed in %s", len(lines), listPath)) {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Shutdown path

	repo := analysis.NewSQLiteRepository(db)
	latest, err := repo.LatestRun(ctx)
	if errors.Is(err, analysis.ErrNoRuns) {
		return fmt.Errorf("no analysis run recorded; run 'helperaudit analyze' first")
	}
	if err != nil {
		return fmt.Errorf("loading latest run: %w", err)
	}

	client, err := connectHass(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck // Shutdown path

	live, err := newDiscovery(client).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovering helpers: %w", err)
	}

	influxClient, err := connectInflux()
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer influxClient.Close() //nolint:errcheck // Shutdown path
	}

	runner := deletion.NewRunner(client, deletion.NewSQLiteRecordStore(db), analysis.NewDirSink(cfg.Reports.Dir))
	runner.SetLogger(log)

	report, err := runner.Run(ctx, string(listText), live, latest, deleteDryRun)
	if err != nil {
		return err
	}

	printDeletionReport(report)

	if influxClient != nil {
		influxClient.WriteDeletionMetrics(report.RunID, report.Deleted(), report.Failed(), report.DryRun)
		influxClient.Flush()
	}

	if report.Failed() > 0 {
		return fmt.Errorf("%d deletions failed", report.Failed())
	}
	return nil
}

// printDeletionReport writes the outcome summary to stdout.
func printDeletionReport(report *deletion.Report) {
	if report.DryRun {
		fmt.Printf("Dry run: %d helpers would be deleted\n", len(report.Records))
	} else {
		fmt.Printf("Deleted %d helpers (%d failed)\n", report.Deleted(), report.Failed())
	}
	if n := len(report.AlreadyAbsent); n > 0 {
		fmt.Printf("%d entries already absent from the registry\n", n)
	}
	for _, rej := range report.Rejected {
		fmt.Printf("Rejected %s (line %d): %s\n", rej.EntityID, rej.Line, rej.Reason)
	}
}

// confirm prompts on stdin and accepts y or yes.
func confirm(prompt string) bool {
	fmt.Printf("%s\nContinue? [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
