// ptcg-import loads scraped card and product files into the catalog database
// and runs maintenance tasks against it.
//
// Usage:
//
//	ptcg-import cards cards_sv1.json cards_sv2.json --rate 20
//	ptcg-import products ptcg_products.json
//	ptcg-import archive events event_123.json --processed
//	ptcg-import archive images --region jp --expansion sv1 jp12345.png
//	ptcg-import migrate
//	ptcg-import cleanup-html
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/ptcg-carddb/internal/config"
	"github.com/codyseavey/ptcg-carddb/internal/database"
	"github.com/codyseavey/ptcg-carddb/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ptcg-import",
	Short:         "Import scraped PTCG data into the card catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger, err = logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(cardsCmd, productsCmd, archiveCmd, migrateCmd, cleanupCmd)
}

// openDB opens the configured database and brings the schema up to date
func openDB() (*gorm.DB, error) {
	if err := database.Initialize(cfg.Database, logger); err != nil {
		return nil, err
	}
	return database.GetDB(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
