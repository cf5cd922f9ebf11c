package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/logging"
)

var (
	cfgFile string
	debug   bool

	// overrides applied on top of the loaded configuration
	flagLogLevel        string
	flagLogFormat       string
	flagHeatmapPath     string
	flagSeed            int64
	flagTestSize        float64
	flagConstantColumns string
	flagFetchTimeoutSec int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:           "tabloom",
	Short:         "tabloom: clean tabular data, chart correlations and assemble a classifier spec",
	Long:          `tabloom loads CSV, TSV, JSON or XLSX tables, drops incomplete rows, normalizes numeric columns, renders a correlation heatmap, splits features from the target and assembles a binary-classification model configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.tabloom/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: text|json (overrides config)")
	pf.StringVar(&flagHeatmapPath, "heatmap", "", "heatmap output path (overrides config)")
	pf.Int64Var(&flagSeed, "seed", 0, "split seed (overrides config)")
	pf.Float64Var(&flagTestSize, "test-size", 0, "evaluation fraction in (0,1) (overrides config)")
	pf.StringVar(&flagConstantColumns, "constant-columns", "", "zero-variance columns: skip|mark|fail (overrides config)")
	pf.IntVar(&flagFetchTimeoutSec, "fetch-timeout", 0, "fetch timeout in seconds (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so commands still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultConfig()
	}
	cfg = c
	applyOverrides(cfg)

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logging.Setup(level, cfg.LogFormat, os.Stderr)
	log.WithField("config", cfgFile).Debug("configuration loaded")
}

func applyOverrides(c *cfgpkg.Global) {
	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") {
		c.LogFormat = flagLogFormat
	}
	if f.Changed("heatmap") && flagHeatmapPath != "" {
		c.HeatmapPath = flagHeatmapPath
	}
	if f.Changed("seed") {
		c.Seed = flagSeed
	}
	if f.Changed("test-size") {
		c.TestSize = flagTestSize
	}
	if f.Changed("constant-columns") {
		c.ConstantColumns = flagConstantColumns
	}
	if f.Changed("fetch-timeout") && flagFetchTimeoutSec > 0 {
		c.FetchTimeoutSec = flagFetchTimeoutSec
	}
}

// defaultConfig mirrors the defaults applied by config.Load.
func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		HeatmapPath:     "correlation_matrix.png",
		TestSize:        0.2,
		Seed:            42,
		ConstantColumns: "skip",
		FetchTimeoutSec: 30,
		UserAgent:       "tabloom/1.0",
		ServerHost:      "127.0.0.1",
		ServerPort:      8000,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// current returns the loaded configuration, loading it on first use.
func current() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}
