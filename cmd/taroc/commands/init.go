package commands

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/taro-lang/taro/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a taroc configuration interactively",
	Long: `Guides you through setting up taroc configuration step by step.
Creates a project-level config file with optimization and analysis settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	cfg := config.DefaultConfig()

	var levelChoice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Optimization level").
				Description("Select the default pattern set for taroc optimize").
				Options(
					huh.NewOption("None - analysis only", "none"),
					huh.NewOption("Basic - always-safe rewrites", "basic"),
					huh.NewOption("Standard - safe under checked preconditions", "standard"),
					huh.NewOption("Aggressive - may change flag and timing behavior", "aggressive"),
				).
				Value(&levelChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.OptimizationLevel = config.OptLevel(levelChoice)

	var preferSize bool
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Optimization goal").
				Description("Prefer smaller code over faster code?").
				Affirmative("Size").
				Negative("Speed").
				Value(&preferSize),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	if preferSize {
		cfg.SizeSpeedWeight = 0.8
	} else {
		cfg.SizeSpeedWeight = 0.2
	}

	var useCache bool
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Analysis summary cache").
				Description("Reuse analysis results for unchanged functions between runs?").
				Affirmative("Enable").
				Negative("Disable").
				Value(&useCache),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	if useCache {
		cfg.CachePath = filepath.Join(".taroc", "summaries.msgpack")
	}

	targetFile := ""
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Target descriptor file (optional, press Enter for built-in m6502)").
				Placeholder("targets/m6502.yaml").
				Value(&targetFile),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.TargetFile = targetFile

	path := filepath.Join(".taroc", "config.yaml")
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}
