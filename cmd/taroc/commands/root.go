// Package commands provides the CLI commands for the taroc tool.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/taro-lang/taro/internal/config"
	"github.com/taro-lang/taro/internal/log"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "taroc",
	Short: "taroc - Taro compiler analysis and optimization driver",
	Long: `taroc analyzes and optimizes taro programs for the 6502 family.

Commands:
  analyze     Run the tiered analysis pipeline over a program description
  optimize    Apply rewrite patterns to an instruction listing
  callgraph   Print the call graph with recursion and inlining annotations
  init        Create a taroc configuration interactively

Use "taroc [command] --help" for more information about a command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file path (default: .taroc/config.yaml)")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")

	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(optimizeCmd)
	RootCmd.AddCommand(callgraphCmd)
	RootCmd.AddCommand(initCmd)
}

// loadConfig resolves the effective configuration for a command run.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		log.Default().SetLevel(log.DebugLevel)
	}
	if cfg.JSONOutput {
		log.Default().SetJSONOutput(true)
	}
	return cfg, nil
}
