package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/ai-toolbox/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert tools from a JSON or YAML seed file",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "data/tools.json", "seed file ({\"tools\": [...]} as JSON or YAML)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tools, err := seed.Load(seedFile)
	if err != nil {
		return err
	}

	repos, closeRepos, err := openRepositories(cfg, log)
	if err != nil {
		return err
	}
	defer closeRepos()

	report := seed.Run(cmd.Context(), repos.Tool, tools, log)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "seeded %d tools, %d failed\n", report.Succeeded, report.Failed)
	slugs := make([]string, 0, len(report.Errors))
	for slug := range report.Errors {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		fmt.Fprintf(out, "  %s: %v\n", slug, report.Errors[slug])
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d tools failed to seed", report.Failed)
	}
	return nil
}
