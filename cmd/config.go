package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/tabloom-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tabloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := current()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "heatmap_path: %s\n", c.HeatmapPath)
		fmt.Fprintf(out, "test_size: %.3f\n", c.TestSize)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "constant_columns: %s\n", c.ConstantColumns)
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		}
		if c.MaxRows > 0 {
			fmt.Fprintf(out, "max_rows: %d\n", c.MaxRows)
		}
		fmt.Fprintf(out, "fetch_timeout_sec: %d\n", c.FetchTimeoutSec)
		if c.APIBaseURL != "" {
			fmt.Fprintf(out, "api_base_url: %s\n", c.APIBaseURL)
		}
		fmt.Fprintf(out, "api_key: %s\n", mask(c.APIKey))
		fmt.Fprintf(out, "api_token: %s\n", mask(c.APIToken))
		fmt.Fprintf(out, "user_agent: %s\n", c.UserAgent)
		fmt.Fprintf(out, "server: %s\n", c.Addr())
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// Saved values come from file and env only, not from this run's flags.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			c = defaultConfig()
		}
		switch key {
		case "heatmap_path":
			c.HeatmapPath = val
		case "test_size":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f <= 0 || f >= 1 {
				return fmt.Errorf("invalid float for test_size: %v (must be within (0, 1))", val)
			}
			c.TestSize = f
		case "seed":
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for seed: %w", err)
			}
			c.Seed = i
		case "constant_columns":
			p, err := clean.ParsePolicy(val)
			if err != nil {
				return err
			}
			c.ConstantColumns = string(p)
		case "delimiter":
			c.Delimiter = val
			if _, err := c.DelimiterRune(); err != nil {
				return err
			}
		case "max_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for max_rows: %v", val)
			}
			c.MaxRows = i
		case "fetch_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for fetch_timeout_sec: %v", val)
			}
			c.FetchTimeoutSec = i
		case "api_base_url":
			c.APIBaseURL = val
		case "api_key":
			c.APIKey = val
		case "api_token":
			c.APIToken = val
		case "user_agent":
			c.UserAgent = val
		case "server_host":
			c.ServerHost = val
		case "server_port":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 || i > 65535 {
				return fmt.Errorf("invalid port for server_port: %v", val)
			}
			c.ServerPort = i
		case "log_level":
			switch val {
			case "debug", "info", "warn", "warning", "error":
				c.LogLevel = val
			default:
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
			}
		case "log_format":
			switch val {
			case "text", "json":
				c.LogFormat = val
			default:
				return fmt.Errorf("invalid log_format: %s (use text or json)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
