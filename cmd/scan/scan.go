// Package scan implements the one-shot scan command.
package scan

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/aeoscan/cmd/common"
	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/issue"
)

// topFixRows bounds the fixes printed in the summary table.
const topFixRows = 5

// Command returns the scan command.
func Command() *cobra.Command {
	var overrides budget.Overrides

	cmd := &cobra.Command{
		Use:   "scan [target-url]",
		Short: "Run a full audit scan against a site",
		Long: `Crawls the target site within the configured budgets, clusters its
templates, evaluates the rubric and prints the resulting score with the
highest-leverage fixes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return runScan(cmd.Context(), cfgFile, args[0], overrides)
		},
	}

	cmd.Flags().IntVar(&overrides.MaxPages, "max-pages", 0, "override the page fetch ceiling for this scan")
	cmd.Flags().IntVar(&overrides.MaxRenders, "max-renders", 0, "override the render ceiling for this scan")
	cmd.Flags().IntVar(&overrides.MaxLLMCalls, "max-llm-calls", 0, "override the LLM call ceiling for this scan")

	return cmd
}

// runScan executes one scan synchronously and prints the results.
func runScan(ctx context.Context, cfgFile, targetURL string, overrides budget.Overrides) error {
	if _, err := crawl.NormalizeURL(targetURL); err != nil {
		return fmt.Errorf("invalid target URL %q: %w", targetURL, err)
	}

	deps, err := common.New(cfgFile)
	if err != nil {
		return err
	}
	defer deps.Close()

	scan, err := deps.Repos.Scans.Create(ctx, targetURL)
	if err != nil {
		return fmt.Errorf("create scan: %w", err)
	}

	if execErr := deps.Runner.ExecuteWithOverrides(ctx, scan, overrides); execErr != nil {
		return fmt.Errorf("scan failed: %w", execErr)
	}

	return printResults(ctx, deps, scan.ID)
}

// printResults renders the finished scan as terminal tables.
func printResults(ctx context.Context, deps *common.Deps, scanID string) error {
	scan, err := deps.Repos.Scans.GetByID(ctx, scanID)
	if err != nil {
		return fmt.Errorf("load scan: %w", err)
	}

	rpt, err := deps.Repos.Reports.GetLatestByScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	issues, err := deps.Repos.Issues.ListByScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("load issues: %w", err)
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(os.Stdout)
	summary.AppendHeader(table.Row{"Target", "Status", "Pages", "Score"})
	summary.AppendRow(table.Row{
		scan.TargetURL,
		scan.Status,
		scan.PagesFetched,
		fmt.Sprintf("%.1f / 9.5", domain.PublicScore(rpt.OverallScore)),
	})
	summary.Render()

	pillars := table.NewWriter()
	pillars.SetOutputMirror(os.Stdout)
	pillars.AppendHeader(table.Row{"Pillar", "Score"})
	for _, ps := range rpt.Scores {
		pillars.AppendRow(table.Row{ps.Name, fmt.Sprintf("%.0f / 100", ps.Score)})
	}
	pillars.Render()

	fixes := issue.TopFixes(issues, topFixRows)
	if len(fixes) == 0 {
		fmt.Println("No high-leverage issues found.")
		return nil
	}

	fixTable := table.NewWriter()
	fixTable.SetOutputMirror(os.Stdout)
	fixTable.AppendHeader(table.Row{"Priority", "Issue", "Scope", "Affected Pages"})
	for _, f := range fixes {
		fixTable.AppendRow(table.Row{f.PriorityScore, f.Title, f.Scope, f.AffectedCount})
	}
	fixTable.Render()

	return nil
}
