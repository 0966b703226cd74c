package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/server"
)

var (
	runEstablishment string
	runCategories    []string
	runTargetCat     string
	runOutside       bool
	runDryRun        bool
	runPromptFile    string
	runPreset        string
	runNoFollow      bool
)

// preset is a reusable run configuration loaded from a YAML file.
type preset struct {
	EstablishmentID  string   `yaml:"establishment_id"`
	CategoryIDs      []string `yaml:"category_ids"`
	TargetCategoryID string   `yaml:"target_category_id"`
	IncludeOutside   bool     `yaml:"include_outside"`
	DryRun           bool     `yaml:"dry_run"`
	PromptFile       string   `yaml:"prompt_file"`
}

var renameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Bulk-rename products via the LLM classifier",
	Long: `Start a rename run: every matching product name is sent to the
classifier and rewritten in standard title case.

Examples:
  mercado rename --establishment est1
  mercado rename --establishment est1 --category bebidas --dry-run
  mercado rename --preset runs/rename-bebidas.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun("renamer")
	},
}

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Assign categories and subcategories in batches",
	Long: `Start a categorize run: products are classified in batches against
the establishment's subcategory vocabulary.

Examples:
  mercado categorize --establishment est1
  mercado categorize --establishment est1 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun("categorizer")
	},
}

var targetedCmd = &cobra.Command{
	Use:   "targeted",
	Short: "Refine one category's subcategory assignments",
	Long: `Start a targeted run: products inside the target category get a
subcategory; with --include-outside, products elsewhere are screened
and pulled in when they belong.

Examples:
  mercado targeted --establishment est1 --target-category acougue
  mercado targeted --establishment est1 --target-category acougue --include-outside`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun("categorizer-targeted")
	},
}

func init() {
	for _, cmd := range []*cobra.Command{renameCmd, categorizeCmd, targetedCmd} {
		cmd.Flags().StringVarP(&runEstablishment, "establishment", "e", "", "establishment id")
		cmd.Flags().StringSliceVarP(&runCategories, "category", "c", nil, "limit to these category ids (repeatable)")
		cmd.Flags().BoolVar(&runDryRun, "dry-run", false, "classify without writing changes")
		cmd.Flags().StringVar(&runPromptFile, "prompt-file", "", "file with a custom prompt for this run")
		cmd.Flags().StringVar(&runPreset, "preset", "", "YAML file with run parameters")
		cmd.Flags().BoolVar(&runNoFollow, "no-follow", false, "start the run and return immediately")
	}
	targetedCmd.Flags().StringVar(&runTargetCat, "target-category", "", "category to refine")
	targetedCmd.Flags().BoolVar(&runOutside, "include-outside", false, "also screen products outside the target category")
}

// buildStartRequest merges preset file, flags and prompt file into one
// request. Flags win over preset values.
func buildStartRequest() (server.StartRequest, error) {
	req := server.StartRequest{
		EstablishmentID:  runEstablishment,
		CategoryIDs:      runCategories,
		TargetCategoryID: runTargetCat,
		IncludeOutside:   runOutside,
		DryRun:           runDryRun,
	}

	promptFile := runPromptFile
	if runPreset != "" {
		data, err := os.ReadFile(runPreset)
		if err != nil {
			return req, fmt.Errorf("read preset: %w", err)
		}
		var p preset
		if err := yaml.Unmarshal(data, &p); err != nil {
			return req, fmt.Errorf("parse preset %s: %w", runPreset, err)
		}
		if req.EstablishmentID == "" {
			req.EstablishmentID = p.EstablishmentID
		}
		if len(req.CategoryIDs) == 0 {
			req.CategoryIDs = p.CategoryIDs
		}
		if req.TargetCategoryID == "" {
			req.TargetCategoryID = p.TargetCategoryID
		}
		if !req.IncludeOutside {
			req.IncludeOutside = p.IncludeOutside
		}
		if !req.DryRun {
			req.DryRun = p.DryRun
		}
		if promptFile == "" {
			promptFile = p.PromptFile
		}
	}

	if promptFile != "" {
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return req, fmt.Errorf("read prompt file: %w", err)
		}
		req.CustomPrompt = string(data)
	}

	if req.EstablishmentID == "" {
		return req, fmt.Errorf("--establishment is required (flag or preset)")
	}
	return req, nil
}

func startRun(tool string) error {
	req, err := buildStartRequest()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, msg, err := apiClient.Start(ctx, tool, req)
	if err != nil {
		return err
	}
	if st == nil {
		fmt.Println(msg)
		return nil
	}

	fmt.Printf("Run %s started (%d products)\n", st.ID, st.Progress.Total)
	if runNoFollow {
		fmt.Printf("Use 'mercado status %s' to check progress.\n", tool)
		return nil
	}
	return followRun(tool)
}
