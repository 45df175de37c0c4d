package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the customers and orders tables",
		Long: `Create the customers and orders tables if they do not exist.

The serve command runs the same migration on start-up, so this is only
needed to prepare a database ahead of the first deployment.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			db, dialect, err := openDatabase(cmd.Context(), cfg, zapLogger)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", dialect.Name)
			return nil
		},
	}
}
