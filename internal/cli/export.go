package cli

import (
	"github.com/spf13/cobra"

	"github.com/Bruno-te/Code-Crafters/internal/store"
)

var (
	exportDBPath string
	exportOut    string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a reporting snapshot from an existing database",
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

		limit := exportLimit
		if limit <= 0 {
			limit = cfg.Pipeline.SnapshotLimit
		}

		st, err := store.Open(exportDBPath, log)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := st.ExportSnapshot(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if err := writeJSON(exportOut, snap); err != nil {
			return err
		}
		log.Info().
			Str("path", exportOut).
			Int("transactions", len(snap.Transactions)).
			Msg("snapshot exported")
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDBPath, "db", "data/transactions.db", "SQLite database path")
	exportCmd.Flags().StringVar(&exportOut, "out", "dashboard.json", "snapshot output path")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "transaction sample size (config default when 0)")
	rootCmd.AddCommand(exportCmd)
}
