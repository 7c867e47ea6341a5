package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/config"
	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/catalog"
	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/database"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "libreria",
	Short: "Librería Pérez Galdós catalog administration tool",
	Long: `A CLI tool for administering the bookstore catalog: backfilling
inventory codes for items that never got one, and exporting filtered
catalog views as XLSX workbooks.`,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Config is optional for some commands, don't fail here
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun runs before each command and initializes dependencies
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()

	cmdNeedsDB := cmd.Name() == "backfill-codes" || cmd.Name() == "export"

	if cmdNeedsDB {
		if cfg == nil {
			return fmt.Errorf("config required for %s command but not loaded", cmd.Name())
		}
		if err := initDatabase(); err != nil {
			return fmt.Errorf("database initialization failed: %w", err)
		}
		logger.Info().Msg("Database connected")
	}

	return nil
}

// newService wires a catalog service over the connected database.
func newService() *catalog.Service {
	store := database.NewCatalogStore(database.Pool())

	locations := make(map[string]catalog.LocationRule, len(cfg.Allocator.Locations))
	for name, loc := range cfg.Allocator.Locations {
		locations[catalog.NormalizeLocation(name)] = catalog.LocationRule{
			Suffix:  loc.Suffix,
			Ceiling: loc.Ceiling,
		}
	}

	return catalog.NewService(store,
		catalog.BuilderConfig{
			PriceCeilingCents:    cfg.Catalog.PriceCeilingCents,
			ExactMatchCap:        cfg.Catalog.ExactMatchCap,
			PublisherLookupLimit: cfg.Catalog.PublisherLookupLimit,
		},
		catalog.AllocatorConfig{
			MaxAttempts:      cfg.Allocator.MaxAttempts,
			RecentSampleSize: cfg.Allocator.RecentSampleSize,
			RangeScanLimit:   cfg.Allocator.RangeScanLimit,
			DefaultCeiling:   cfg.Allocator.DefaultCeiling,
			Locations:        locations,
		},
		catalog.JitterBackoff{Max: time.Duration(cfg.Allocator.BackoffMaxMs) * time.Millisecond},
	)
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// Always use console format for CLI
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stdout
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func initDatabase() error {
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
