package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/taro-lang/taro/internal/config"
	"github.com/taro-lang/taro/internal/loader"
	"github.com/taro-lang/taro/internal/log"
	"github.com/taro-lang/taro/pkg/ir"
	"github.com/taro-lang/taro/pkg/optimizer"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize <ir.yaml>",
	Short: "Apply rewrite patterns to an instruction listing",
	Long: `Loads a YAML instruction listing, applies the registered rewrite
patterns at the configured optimization level, and prints the
optimized listing with per-function metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		seqs, err := loader.LoadSequences(args[0])
		if err != nil {
			return fmt.Errorf("loading ir listing: %w", err)
		}

		registry := optimizer.NewRegistry()
		if err := optimizer.RegisterBuiltins(registry); err != nil {
			return fmt.Errorf("registering patterns: %w", err)
		}

		fwCfg := frameworkConfig(cmd, cfg)
		framework := optimizer.NewFramework(registry, fwCfg)

		before := make(map[string]*ir.Sequence, len(seqs))
		for name, seq := range seqs {
			before[name] = seq
		}
		results := framework.RunAll(seqs)

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		printResults(before, results)
		return nil
	},
}

// frameworkConfig translates config plus flags into a framework config.
func frameworkConfig(cmd *cobra.Command, cfg *config.Config) optimizer.Config {
	fwCfg := optimizer.Config{
		Level:           optimizer.Level(cfg.OptimizationLevel),
		SizeSpeedWeight: cfg.SizeSpeedWeight,
		MaxPasses:       cfg.MaxPasses,
	}
	if level, _ := cmd.Flags().GetString("level"); level != "" {
		fwCfg.Level = optimizer.Level(level)
	}
	if disabled, _ := cmd.Flags().GetStringSlice("disable"); len(disabled) > 0 {
		fwCfg.DisabledPatterns = disabled
	}
	if budget, _ := cmd.Flags().GetDuration("time-limit"); budget > 0 {
		fwCfg.TimeLimit = budget
	}
	log.Default().Debug("optimizer configured",
		"level", fwCfg.Level, "weight", fwCfg.SizeSpeedWeight, "max_passes", fwCfg.MaxPasses)
	return fwCfg
}

// printResults prints a human-readable per-function summary.
func printResults(before map[string]*ir.Sequence, results map[string]*optimizer.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := results[name]
		in := before[name]
		fmt.Printf("=== %s ===\n", name)
		fmt.Printf("  passes: %d", r.Passes)
		if r.TimedOut {
			fmt.Print(" (time budget exhausted)")
		}
		fmt.Printf(", elapsed: %s\n", r.Elapsed.Round(time.Microsecond))
		fmt.Printf("  instructions: %d -> %d\n", in.Len(), r.Sequence.Len())
		fmt.Printf("  cycles: %d -> %d, bytes: %d -> %d\n",
			in.Cycles(), r.Sequence.Cycles(), in.Bytes(), r.Sequence.Bytes())
		for _, app := range r.Applications {
			fmt.Printf("  applied %s (pass %d): %+d cycles, %+d bytes\n",
				app.PatternID, app.Pass, app.Metrics.Cycles, app.Metrics.Size)
		}
		for _, inst := range r.Sequence.Instructions {
			if inst.Label != "" {
				fmt.Printf("%s:\n", inst.Label)
			}
			if inst.Operand != "" {
				fmt.Printf("    %s %s\n", inst.Op, inst.Operand)
			} else {
				fmt.Printf("    %s\n", inst.Op)
			}
		}
	}
}

func init() {
	optimizeCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	optimizeCmd.Flags().String("level", "", "Optimization level (none, basic, standard, aggressive)")
	optimizeCmd.Flags().StringSlice("disable", nil, "Pattern ids to disable")
	optimizeCmd.Flags().Duration("time-limit", 0, "Wall-clock budget for the run")
}
