package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"halo-cme-lab/internal/config"
	"halo-cme-lab/internal/pipeline"
	"halo-cme-lab/internal/reporting"
)

var reportFlags = map[string]string{
	"output":       "output.dir",
	"run-store":    "storage.run_store",
	"sqlite-path":  "storage.sqlite_path",
	"postgres-dsn": "storage.postgres_dsn",
}

func newReportCmd(a *app) *cobra.Command {
	var (
		runID string
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate the output tables of a stored run",
		Long: `Load a run from the run store and write its event, evaluation and
false-negative tables and the Markdown report. Without --run-id the most
recent run is used. Score files and input checks are not stored and are not
regenerated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := a.loadConfig(cmd, reportFlags)
			if err != nil {
				return err
			}
			if cfg.Storage.RunStore == config.RunStoreNone || cfg.Storage.RunStore == "" {
				return fmt.Errorf("no run store configured: set --run-store postgres or sqlite")
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			var cl closers
			defer cl.close()

			store, err := openRunStore(ctx, cfg, logger, &cl)
			if err != nil {
				return err
			}

			ids, err := store.ListRunIDs(ctx)
			if err != nil {
				return err
			}
			if list {
				for _, id := range ids {
					fmt.Fprintln(a.stdout, id)
				}
				return nil
			}
			if runID == "" {
				if len(ids) == 0 {
					return fmt.Errorf("run store is empty")
				}
				runID = ids[len(ids)-1]
			}

			report, err := reporting.NewGenerator(store).Generate(ctx, runID)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
				return err
			}
			outputs := []struct {
				name    string
				content string
			}{
				{pipeline.EventsFile, reporting.RenderEventsCSV(report.Events)},
				{pipeline.SummaryFile, reporting.RenderSummaryCSV(report.Evaluation)},
				{pipeline.MetricsFile, reporting.RenderMetricsText(report.Evaluation)},
				{pipeline.FalseNegativesFile, reporting.RenderFalseNegativesCSV(report.FalseNegatives)},
				{pipeline.ReportFile, reporting.RenderMarkdown(report)},
			}
			fmt.Fprintf(a.stdout, "Report for run %s:\n", runID)
			for _, o := range outputs {
				path := filepath.Join(cfg.Output.Dir, o.name)
				if err := os.WriteFile(path, []byte(o.content), 0644); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "  - %s\n", path)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&runID, "run-id", "", "run to report (default: most recent)")
	f.BoolVar(&list, "list", false, "list stored run IDs and exit")
	f.StringP("output", "o", "", "output directory")
	f.String("run-store", "", "run store: postgres or sqlite")
	f.String("sqlite-path", "", "SQLite database file")
	f.String("postgres-dsn", "", "Postgres connection string")
	return cmd
}
