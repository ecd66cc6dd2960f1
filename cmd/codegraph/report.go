package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/coderisk/codegraph/internal/artifact"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a graph_output.json artifact",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().String("output", "", "graph_output.json to summarize (defaults to the workspace artifacts dir)")
	reportCmd.Flags().String("diff-against", "", "a second graph_output.json to diff the first one against")
}

func runReport(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	diffAgainst, _ := cmd.Flags().GetString("diff-against")

	if outputPath == "" {
		outputPath = cfg.Workspace.ArtifactsDir + "/graph_output.json"
	}

	out, err := artifact.ReadGraphOutput(outputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", outputPath, err)
	}

	if diffAgainst != "" {
		return printReportDiff(outputPath, diffAgainst)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Repository", out.Repository})
	t.AppendRow(table.Row{"Files processed", out.FilesProcessed})
	t.AppendRow(table.Row{"Files failed", out.FilesFailed})
	t.AppendRow(table.Row{"Classes", out.GraphStats.Classes})
	t.AppendRow(table.Row{"Functions", out.GraphStats.Functions})
	t.AppendRow(table.Row{"Call sites", out.GraphStats.CallSites})
	t.AppendRow(table.Row{"Import sites", out.GraphStats.ImportSites})
	t.AppendRow(table.Row{"Resolved calls", out.GraphStats.ResolvedCalls})
	t.AppendRow(table.Row{"Resolved imports", out.GraphStats.ResolvedImports})
	t.AppendRow(table.Row{"Relationships", out.GraphStats.Relationships})
	t.Render()

	if len(out.Errors) > 0 {
		fmt.Printf("\n%d errors recorded during the run:\n", len(out.Errors))
		for _, e := range out.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

// printReportDiff renders a line-level diff between two graph_output.json
// summaries (entity/relationship count deltas) as colored inline text
// (insertions green, deletions red), the --diff-against mode supplemented
// from the original pipeline's reporting.
func printReportDiff(pathA, pathB string) error {
	a, err := os.ReadFile(pathA)
	if err != nil {
		return fmt.Errorf("read %s: %w", pathA, err)
	}
	b, err := os.ReadFile(pathB)
	if err != nil {
		return fmt.Errorf("read %s: %w", pathB, err)
	}

	dmp := diffmatchpatch.New()
	charsA, charsB, lines := dmp.DiffLinesToChars(string(a), string(b))
	diffs := dmp.DiffMain(charsA, charsB, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	fmt.Println(dmp.DiffPrettyText(diffs))
	return nil
}
