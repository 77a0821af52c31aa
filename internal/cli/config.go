package cli

import (
	"github.com/spf13/cobra"

	"github.com/Bruno-te/Code-Crafters/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the rule configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the built-in rule configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(args[0]); err != nil {
			return err
		}
		cmd.Printf("wrote default configuration to %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
