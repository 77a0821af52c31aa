package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bruno-te/Code-Crafters/internal/input"
	"github.com/Bruno-te/Code-Crafters/internal/pipeline"
	"github.com/Bruno-te/Code-Crafters/internal/store"
)

var (
	runXMLPath    string
	runDBPath     string
	runExportJSON string
	runLogPath    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline over an XML export",
	Long: `Run extracts transactions from the XML document at --xml (a local
path or a gs:// URI), normalizes and classifies them, upserts them into
the SQLite database at --db and recomputes the analytics metrics.
With --export-json a reporting snapshot is written afterwards; with
--log the run summary is saved as JSON.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, closeLog, err := newLogger()
		if err != nil {
			return err
		}
		defer closeLog()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := input.Read(cmd.Context(), runXMLPath)
		if err != nil {
			return err
		}

		st, err := store.Open(runDBPath, log)
		if err != nil {
			return err
		}
		defer st.Close()

		runner := pipeline.NewRunner(cfg, st, log)
		summary, err := runner.Run(cmd.Context(), data)
		if summary != nil && runLogPath != "" {
			if werr := writeJSON(runLogPath, summary); werr != nil {
				log.Warn().Err(werr).Msg("run summary not written")
			}
		}
		if err != nil {
			return err
		}

		if runExportJSON != "" {
			snap, err := st.ExportSnapshot(cmd.Context(), cfg.Pipeline.SnapshotLimit)
			if err != nil {
				return err
			}
			if err := writeJSON(runExportJSON, snap); err != nil {
				return err
			}
			log.Info().Str("path", runExportJSON).Msg("snapshot exported")
		}

		log.Info().
			Int("inserted", summary.Inserted).
			Int("updated", summary.Updated).
			Msg("pipeline run complete")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runXMLPath, "xml", "", "XML input document (local path or gs:// URI)")
	runCmd.Flags().StringVar(&runDBPath, "db", "data/transactions.db", "SQLite database path")
	runCmd.Flags().StringVar(&runExportJSON, "export-json", "", "write a reporting snapshot to this path after the run")
	runCmd.Flags().StringVar(&runLogPath, "log", "", "write the run summary as JSON to this path")
	_ = runCmd.MarkFlagRequired("xml")
	rootCmd.AddCommand(runCmd)
}

// writeJSON writes v as indented JSON to path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
