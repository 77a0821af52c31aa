package cli

import (
	"github.com/spf13/cobra"

	"github.com/Bruno-te/Code-Crafters/internal/store"
)

var migrateDBPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, closeLog, err := newLogger()
		if err != nil {
			return err
		}
		defer closeLog()

		st, err := store.Open(migrateDBPath, log)
		if err != nil {
			return err
		}
		defer st.Close()

		log.Info().Str("db", st.Path()).Msg("schema up to date")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDBPath, "db", "data/transactions.db", "SQLite database path")
	rootCmd.AddCommand(migrateCmd)
}
