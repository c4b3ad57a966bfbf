package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taro-lang/taro/internal/config"
	"github.com/taro-lang/taro/internal/loader"
	"github.com/taro-lang/taro/internal/log"
	"github.com/taro-lang/taro/pkg/analyzer"
	"github.com/taro-lang/taro/pkg/cache"
	"github.com/taro-lang/taro/pkg/callgraph"
	"github.com/taro-lang/taro/pkg/dataflow"
	"github.com/taro-lang/taro/pkg/diag"
	"github.com/taro-lang/taro/pkg/target"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <program.yaml>",
	Short: "Run the tiered analysis pipeline over a program description",
	Long: `Runs variable usage, control flow, value numbering, call graph and
zero-page analyses over a YAML program description and prints the
diagnostics report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		path := args[0]
		if info, err := os.Stat(path); err != nil {
			return fmt.Errorf("stat file: %w", err)
		} else if info.IsDir() {
			return fmt.Errorf("path is a directory, expected a file: %s", path)
		}

		program, err := loader.LoadProgram(path)
		if err != nil {
			return fmt.Errorf("loading program: %w", err)
		}
		log.Default().Debug("program loaded", "file", path, "functions", len(program.Functions))

		opts, summaries, err := analyzerOptions(cmd, cfg)
		if err != nil {
			return err
		}

		result, err := analyzer.New(opts).Run(program)
		if err != nil {
			return fmt.Errorf("analyzing program: %w", err)
		}

		if summaries != nil && cfg.CachePath != "" {
			if err := cache.PersistToFile(summaries, cfg.CachePath); err != nil {
				log.Default().Warn("failed to persist summary cache", "path", cfg.CachePath, "error", err)
			}
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			out := struct {
				*analyzer.Result
				Diagnostics []diag.Diagnostic `json:"diagnostics"`
			}{result, result.Diagnostics().Reported()}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Print(result.Report())
		if result.Counts()[diag.SeverityError] > 0 {
			return fmt.Errorf("analysis reported errors")
		}
		return nil
	},
}

// analyzerOptions assembles analysis options from config and flags.
// The returned cache is non-nil when a cache path is configured.
func analyzerOptions(cmd *cobra.Command, cfg *config.Config) (analyzer.Options, *cache.SummaryCache, error) {
	opts := analyzer.Options{
		Usage: dataflow.UsageOptions{
			ReportUnderscore:  cfg.ReportUnderscore,
			ReportExported:    cfg.ReportExported,
			ReportLoopCounter: cfg.ReportLoopCounter,
		},
		Thresholds: callgraph.Thresholds{
			MaxInlineStatements: cfg.MaxInlineStatements,
			MaxInlineCallSites:  cfg.MaxInlineCallSites,
		},
		ReportCap: cfg.DiagnosticsCap,
	}

	if tier, _ := cmd.Flags().GetInt("tier"); tier > 0 {
		opts.MaxTier = analyzer.Tier(tier)
	}

	if cfg.TargetFile != "" {
		desc, err := target.LoadFromFile(cfg.TargetFile)
		if err != nil {
			return opts, nil, fmt.Errorf("loading target descriptor: %w", err)
		}
		opts.Target = desc
	}

	if cfg.CachePath != "" {
		summaries := cache.New(cache.Options{MaxSize: cfg.CacheSize})
		if err := cache.LoadFromFile(summaries, cfg.CachePath); err != nil {
			log.Default().Warn("failed to load summary cache", "path", cfg.CachePath, "error", err)
		}
		opts.Cache = summaries
		return opts, summaries, nil
	}
	return opts, nil, nil
}

func init() {
	analyzeCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	analyzeCmd.Flags().Int("tier", 0, "Stop after the given analysis tier (1-3)")
}
