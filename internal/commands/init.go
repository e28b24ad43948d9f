package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/categorize"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/importer"
)

func newInitCommand(projectDir *string) *cobra.Command {
	var labels string
	var currency string
	var signFirst bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := *projectDir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg := config.Default()
			cfg.Display.Labels = labels
			cfg.Display.Currency = currency
			cfg.Rules.SignFirst = signFirst
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := runInit(absDir, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized tally project at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&labels, "labels", "en", "category label language (en or ja)")
	cmd.Flags().StringVar(&currency, "currency", "RM", "currency prefix for amounts")
	cmd.Flags().BoolVar(&signFirst, "sign-first", false, "classify every inflow as income before keyword rules")

	return cmd
}

func runInit(dir string, cfg *config.Config) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	// Create directory structure.
	dirs := []string{
		"rules",
		"logs",
		"data",
		importer.ImportDir,
		filepath.Join(importer.ImportDir, "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write empty categorization rules.
	if err := categorize.SaveFile(filepath.Join(dir, categorize.RulesFile), nil); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	// Statements and the database hold personal data.
	gitignore := "data/\nimport/\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, importer.ImportDir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	return nil
}
